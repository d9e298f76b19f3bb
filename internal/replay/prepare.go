package replay

import (
	"strconv"
	"strings"

	"github.com/auth-fusion/authfusion/internal/rawhttp"
)

// Prepare returns the exact message that is written to the wire for req.
//
// The Host header is overridden by the target, Transfer-Encoding is removed
// since bodies are stored dechunked, and Content-Length is recomputed from
// the final body. The request is downgraded to HTTP/1.1 framing and the
// target reduced to origin-form.
func Prepare(req *rawhttp.Request, target Target) *rawhttp.Request {
	out := req.Clone()

	out.Proto = wireProto(req.Proto)
	if out.Target != "*" {
		out.Target = req.Path()
	}

	out.Headers = out.Headers.SetFirst("Host", target.Host)
	out.Headers = out.Headers.Del("Transfer-Encoding")

	if needsContentLength(req) {
		out.Headers = out.Headers.Set("Content-Length", strconv.Itoa(len(out.Body)))
	} else {
		out.Headers = out.Headers.Del("Content-Length")
	}

	return out
}

func wireProto(proto string) string {
	switch p := strings.ToUpper(proto); p {
	case "HTTP/1.0", "HTTP/1.1":
		return p
	default:
		return "HTTP/1.1"
	}
}

func needsContentLength(req *rawhttp.Request) bool {
	if len(req.Body) > 0 || req.Headers.Has("Content-Length") {
		return true
	}
	switch strings.ToUpper(req.Method) {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}
