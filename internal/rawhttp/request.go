package rawhttp

import (
	"bytes"
	"io"
	"net/url"
	"strings"
)

// Request is a structured, addressable view of a raw HTTP request.
type Request struct {
	// Method is the request method, kept as written.
	Method string `json:"method" yaml:"method"`

	// Target is the request-target: origin-form, absolute-form or "*".
	Target string `json:"target" yaml:"target"`

	// Proto is the protocol version, e.g. "HTTP/1.1".
	Proto string `json:"proto" yaml:"proto"`

	// Headers holds the header fields in wire order.
	Headers Headers `json:"headers" yaml:"headers"`

	// Body holds the raw body bytes. A chunked body is stored dechunked.
	Body []byte `json:"-" yaml:"-"`

	// DeclaredLength is the Content-Length seen at parse time, or -1.
	DeclaredLength int64 `json:"declared_length" yaml:"declared_length"`

	// Dechunked is set when the body was transfer-decoded during parsing.
	Dechunked bool `json:"dechunked,omitempty" yaml:"dechunked,omitempty"`
}

// Clone returns a deep copy of r.
func (r *Request) Clone() *Request {
	out := *r
	out.Headers = r.Headers.Clone()
	if r.Body != nil {
		out.Body = bytes.Clone(r.Body)
	}
	return &out
}

// Path returns the origin-form of the request-target. Absolute-form targets
// are reduced to their path and query.
func (r *Request) Path() string {
	if !IsAbsoluteForm(r.Target) {
		return r.Target
	}

	u, err := url.Parse(r.Target)
	if err != nil {
		return r.Target
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}

// LengthMismatch reports whether the declared Content-Length disagreed with
// the body that was captured.
func (r *Request) LengthMismatch() bool {
	return r.DeclaredLength >= 0 && r.DeclaredLength != int64(len(r.Body))
}

// WriteTo writes the request in HTTP/1.1 wire format, headers in stored order.
func (r *Request) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	buf.WriteString(r.Method)
	buf.WriteByte(' ')
	buf.WriteString(r.Target)
	buf.WriteByte(' ')
	buf.WriteString(r.Proto)
	buf.WriteString("\r\n")

	for _, hdr := range r.Headers {
		buf.WriteString(hdr.Name)
		buf.WriteString(": ")
		buf.WriteString(hdr.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(r.Body)

	return buf.WriteTo(w)
}

// Bytes returns the wire format of the request.
func (r *Request) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = r.WriteTo(&buf)
	return buf.Bytes()
}

// IsAbsoluteForm reports whether target is an absolute-form request-target.
func IsAbsoluteForm(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
