package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/auth-fusion/authfusion/internal/pipeline"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q, expected text, json or yaml", s)
	}
}

// Writer renders pipeline results to Out. It implements pipeline.Reporter.
type Writer struct {
	Out    io.Writer
	Format Format

	// NoColor disables ANSI colors in text output.
	NoColor bool

	// BodyPreview bounds the response body bytes shown per response.
	BodyPreview int
}

var _ pipeline.Reporter = (*Writer)(nil)

func (w *Writer) Report(res pipeline.Result) error {
	doc := Build(res, w.BodyPreview)

	switch w.Format {
	case FormatJSON:
		enc := json.NewEncoder(w.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w.Out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return writeText(w.Out, doc, !w.NoColor)
	default:
		return fmt.Errorf("unknown output format %q", w.Format)
	}
}
