package rawhttp

import (
	"errors"
	"fmt"
)

// MalformedRequestError is returned when a raw request cannot be parsed.
// Line is 1-based; 0 means the error is not tied to a single line.
type MalformedRequestError struct {
	Line    int
	Context string
	Reason  string
}

func (e *MalformedRequestError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("malformed request: %s", e.Reason)
	}
	if e.Context == "" {
		return fmt.Sprintf("malformed request at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed request at line %d: %s: %q", e.Line, e.Reason, e.Context)
}

func newMalformed(line int, context, reason string) *MalformedRequestError {
	const maxContext = 80
	if len(context) > maxContext {
		context = context[:maxContext] + "..."
	}
	return &MalformedRequestError{Line: line, Context: context, Reason: reason}
}

// IsMalformedRequest reports whether err is or wraps a MalformedRequestError.
func IsMalformedRequest(err error) bool {
	if err == nil {
		return false
	}

	var malformed *MalformedRequestError
	return errors.As(err, &malformed)
}
