package replay

import (
	"strings"
	"time"

	"github.com/auth-fusion/authfusion/internal/rawhttp"
)

// Response is the outcome of a replay: either an HTTP response or a
// transport failure, never both. Failed distinguishes the two.
type Response struct {
	// StatusCode and Status hold the status code and reason phrase.
	StatusCode int
	Status     string

	Proto string

	// Headers holds the response header fields in wire order.
	Headers rawhttp.Headers

	// Body holds the response body, content-decoded when Decoded is set.
	Body []byte

	// Truncated is set when the body exceeded the configured cap.
	Truncated bool

	// Decoded names the content codings that were removed from Body.
	Decoded string

	Elapsed time.Duration

	// Failure is set when no HTTP response was obtained.
	Failure *Failure

	// Sent is the message that was written to the connection. It is nil if
	// the request could not be prepared.
	Sent *rawhttp.Request
}

// Failed reports whether the replay ended in a transport failure.
func (r *Response) Failed() bool {
	return r.Failure != nil
}

// BodySize returns the number of body bytes available for analysis.
func (r *Response) BodySize() int {
	return len(r.Body)
}

// ContentType returns the media type of the response without parameters.
func (r *Response) ContentType() string {
	ct, _ := r.Headers.Get("Content-Type")
	mediaType, _, _ := strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}
