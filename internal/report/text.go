package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/auth-fusion/authfusion/internal/verdict"
)

const banner = "============================================================"

type palette struct {
	header *color.Color
	label  *color.Color
	danger *color.Color
	safe   *color.Color
	warn   *color.Color
	subtle *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		header: color.New(color.FgCyan, color.Bold),
		label:  color.New(color.Bold),
		danger: color.New(color.FgRed, color.Bold),
		safe:   color.New(color.FgGreen, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		subtle: color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.header, p.label, p.danger, p.safe, p.warn, p.subtle} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) outcome(o verdict.Outcome) string {
	switch o {
	case verdict.Vulnerable:
		return p.danger.Sprint(o)
	case verdict.NotVulnerable:
		return p.safe.Sprint(o)
	default:
		return p.warn.Sprint(o)
	}
}

func writeText(out io.Writer, doc Document, colored bool) error {
	p := newPalette(colored)
	w := bufio.NewWriter(out)

	field := func(name, format string, args ...any) {
		fmt.Fprintf(w, "  %s : %s\n", p.label.Sprintf("%-12s", name), fmt.Sprintf(format, args...))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, p.header.Sprint("  AUTH-FUSION | Authorization Replay Report"))
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w)

	field("Run", "%s", doc.RunID)

	if doc.Target != nil {
		target := doc.Target.Scheme + "://" + doc.Target.Host
		if doc.Target.Proxy != "" {
			target += " via " + doc.Target.Proxy
		}
		field("Target", "%s", target)
	}

	if doc.Request != nil {
		field("Request", "%s %s %s", doc.Request.Method, doc.Request.Path, doc.Request.Proto)
		if doc.Status == StatusAnalyzed || doc.Response != nil {
			if doc.Request.HadOriginalAuthHeader {
				field("Credential", "replaced in %d Authorization header(s)", doc.Request.ReplacedAuthHeaders)
			} else {
				field("Credential", "injected, the captured request had no Authorization header")
			}
		}
		if doc.Request.LengthMismatch {
			field("Note", "Content-Length of the capture disagreed with its body and was recomputed")
		}
	}

	if doc.Error != nil {
		field("Failed", "%s", p.danger.Sprint(doc.Error.Stage))
		field("Error", "%s", doc.Error.Message)
	}

	if doc.Response != nil {
		writeResponse(field, doc.Response)
	}
	if doc.Baseline != nil {
		if doc.Baseline.Failure != nil {
			field("Baseline", "transport failure (%s)", doc.Baseline.Failure.Kind)
		} else {
			field("Baseline", "%d %s, %d bytes", doc.Baseline.StatusCode, doc.Baseline.Status, doc.Baseline.BodySize)
		}
	}

	if v := doc.Verdict; v != nil {
		fmt.Fprintln(w)
		field("Verdict", "%s", p.outcome(v.Outcome()))
		field("Rule", "%s", v.Rule())
		field("Score", "%.2f", v.Score())
		field("Expected", "HTTP %d, %d bytes", v.Expected().StatusCode, v.Expected().BodySize)
		field("Observed", "HTTP %d, %d bytes", v.Observed().StatusCode, v.Observed().BodySize)

		if reasons := v.Reasons(); len(reasons) > 0 {
			fmt.Fprintf(w, "\n  %s\n", p.label.Sprint("Analysis:"))
			for _, r := range reasons {
				fmt.Fprintf(w, "    - %s\n", r)
			}
		}

		if v.Outcome() == verdict.Vulnerable && doc.Response != nil {
			writeEvidence(w, p, doc.Response)
		}
	}

	fmt.Fprintf(w, "\n%s\n", banner)
	return w.Flush()
}

func writeResponse(field func(string, string, ...any), resp *Response) {
	if resp.Failure != nil {
		field("Response", "transport failure (%s): %s", resp.Failure.Kind, resp.Failure.Message)
		field("Elapsed", "%dms", resp.ElapsedMS)
		return
	}

	field("Status Code", "%d %s", resp.StatusCode, resp.Status)

	size := fmt.Sprintf("%d bytes", resp.BodySize)
	if resp.Decoded != "" {
		size += ", decoded from " + resp.Decoded
	}
	if resp.Truncated {
		size += ", truncated"
	}
	field("Body Size", "%s", size)
	field("Elapsed", "%dms", resp.ElapsedMS)
}

func writeEvidence(w io.Writer, p palette, resp *Response) {
	if len(resp.Headers) > 0 {
		fmt.Fprintf(w, "\n  %s\n", p.label.Sprint("Response Headers:"))
		for _, h := range resp.Headers {
			fmt.Fprintf(w, "    %s: %s\n", h.Name, h.Value)
		}
	}

	if resp.BodyPreview != "" {
		fmt.Fprintf(w, "\n  %s\n", p.label.Sprintf("Response Body (first %d bytes):", len(resp.BodyPreview)))
		for _, line := range strings.Split(strings.TrimRight(resp.BodyPreview, "\r\n"), "\n") {
			fmt.Fprintf(w, "    %s\n", p.subtle.Sprint(strings.TrimRight(line, "\r")))
		}
	}
}
