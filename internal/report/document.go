package report

import (
	"errors"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/auth-fusion/authfusion/internal/pipeline"
	"github.com/auth-fusion/authfusion/internal/rawhttp"
	"github.com/auth-fusion/authfusion/internal/replay"
	"github.com/auth-fusion/authfusion/internal/substitute"
	"github.com/auth-fusion/authfusion/internal/verdict"
)

// DefaultBodyPreview is the number of response body bytes kept in a report.
const DefaultBodyPreview = 500

const (
	StatusAnalyzed = "analyzed"
	StatusFailed   = "failed"
)

// Document is the machine-readable form of a pipeline result.
type Document struct {
	RunID    string           `json:"run_id" yaml:"run_id"`
	Status   string           `json:"status" yaml:"status"`
	Target   *Target          `json:"target,omitempty" yaml:"target,omitempty"`
	Request  *Request         `json:"request,omitempty" yaml:"request,omitempty"`
	Verdict  *verdict.Verdict `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Response *Response        `json:"response,omitempty" yaml:"response,omitempty"`
	Baseline *Response        `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Error    *Error           `json:"error,omitempty" yaml:"error,omitempty"`
}

type Target struct {
	Host   string `json:"host" yaml:"host"`
	Scheme string `json:"scheme" yaml:"scheme"`
	Proxy  string `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

type Request struct {
	Method                string `json:"method" yaml:"method"`
	Path                  string `json:"path" yaml:"path"`
	Proto                 string `json:"proto" yaml:"proto"`
	HadOriginalAuthHeader bool   `json:"had_original_auth_header" yaml:"had_original_auth_header"`
	ReplacedAuthHeaders   int    `json:"replaced_auth_headers" yaml:"replaced_auth_headers"`
	LengthMismatch        bool   `json:"length_mismatch,omitempty" yaml:"length_mismatch,omitempty"`
}

type Response struct {
	StatusCode  int             `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Status      string          `json:"status,omitempty" yaml:"status,omitempty"`
	Headers     rawhttp.Headers `json:"headers,omitempty" yaml:"headers,omitempty"`
	BodySize    int             `json:"body_size" yaml:"body_size"`
	BodyPreview string          `json:"body_preview,omitempty" yaml:"body_preview,omitempty"`
	Truncated   bool            `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	Decoded     string          `json:"decoded,omitempty" yaml:"decoded,omitempty"`
	ElapsedMS   int64           `json:"elapsed_ms" yaml:"elapsed_ms"`
	Failure     *Failure        `json:"failure,omitempty" yaml:"failure,omitempty"`
}

type Failure struct {
	Kind    replay.FailureKind `json:"kind" yaml:"kind"`
	Message string             `json:"message" yaml:"message"`
}

type Error struct {
	Stage   string `json:"stage" yaml:"stage"`
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// Build converts res into a Document. preview bounds the body bytes kept
// per response; zero uses DefaultBodyPreview.
func Build(res pipeline.Result, preview int) Document {
	if preview <= 0 {
		preview = DefaultBodyPreview
	}

	doc := Document{RunID: res.RunID()}

	switch r := res.(type) {
	case *pipeline.Failed:
		doc.Status = StatusFailed
		doc.Error = buildError(r)
		if r.Last != nil {
			fill(&doc, r.Last, preview)
		}
	default:
		doc.Status = StatusAnalyzed
		fill(&doc, res, preview)
	}

	return doc
}

func fill(doc *Document, res pipeline.Result, preview int) {
	var (
		parsed      *pipeline.Parsed
		substituted *pipeline.Substituted
		replayed    *pipeline.Replayed
	)

	switch r := res.(type) {
	case *pipeline.Parsed:
		parsed = r
	case *pipeline.Substituted:
		parsed, substituted = &r.Parsed, r
	case *pipeline.Replayed:
		parsed, substituted, replayed = &r.Parsed, &r.Substituted, r
	case *pipeline.Analyzed:
		parsed, substituted, replayed = &r.Parsed, &r.Substituted, &r.Replayed
		v := r.Verdict
		doc.Verdict = &v
	case *pipeline.Reported:
		parsed, substituted, replayed = &r.Parsed, &r.Substituted, &r.Replayed
		v := r.Verdict
		doc.Verdict = &v
	default:
		return
	}

	doc.Target = &Target{
		Host:   parsed.Target.Host,
		Scheme: parsed.Target.Scheme(),
		Proxy:  redactProxy(parsed.Target.Proxy),
	}

	req := parsed.Request
	doc.Request = &Request{
		Method:         req.Method,
		Path:           req.Path(),
		Proto:          req.Proto,
		LengthMismatch: req.LengthMismatch(),
	}
	if substituted != nil {
		doc.Request.HadOriginalAuthHeader = substituted.Substitution.HadOriginalAuthHeader
		doc.Request.ReplacedAuthHeaders = substituted.Substitution.Replaced
	}

	if replayed != nil {
		doc.Response = buildResponse(replayed.Response, preview)
		doc.Baseline = buildResponse(replayed.Baseline, preview)
	}
}

func buildResponse(resp *replay.Response, preview int) *Response {
	if resp == nil {
		return nil
	}

	out := &Response{ElapsedMS: resp.Elapsed.Round(time.Millisecond).Milliseconds()}
	if resp.Failed() {
		out.Failure = &Failure{Kind: resp.Failure.Kind, Message: resp.Failure.Message()}
		return out
	}

	out.StatusCode = resp.StatusCode
	out.Status = resp.Status
	out.Headers = resp.Headers
	out.BodySize = resp.BodySize()
	out.BodyPreview = previewOf(resp.Body, preview)
	out.Truncated = resp.Truncated
	out.Decoded = resp.Decoded
	return out
}

func buildError(f *pipeline.Failed) *Error {
	out := &Error{
		Stage:   f.At.String(),
		Kind:    "error",
		Message: f.Err.Error(),
	}

	var (
		malformed *rawhttp.MalformedRequestError
		scheme    *substitute.UnsupportedCredentialSchemeError
	)
	switch {
	case errors.As(f.Err, &malformed):
		out.Kind = "malformed_request"
		out.Line = malformed.Line
	case errors.As(f.Err, &scheme):
		out.Kind = "unsupported_credential_scheme"
	case errors.Is(f.Err, substitute.ErrEmptyCredential), errors.Is(f.Err, substitute.ErrInvalidCredential):
		out.Kind = "invalid_credential"
	case errors.Is(f.Err, replay.ErrInvalidTarget):
		out.Kind = "invalid_target"
	case errors.Is(f.Err, pipeline.ErrEmptyRequest):
		out.Kind = "empty_request"
	}

	return out
}

// previewOf returns up to n bytes of body as text, cut at a rune boundary.
func previewOf(body []byte, n int) string {
	if len(body) > n {
		cut := n
		for cut > 0 && cut > n-utf8.UTFMax && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return string(body)
}

func redactProxy(proxy string) string {
	if proxy == "" {
		return ""
	}
	u, err := url.Parse(proxy)
	if err != nil || u.User == nil {
		return proxy
	}
	return u.Redacted()
}
