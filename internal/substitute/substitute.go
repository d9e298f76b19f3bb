package substitute

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/auth-fusion/authfusion/internal/rawhttp"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "Bearer"
)

var (
	ErrEmptyCredential   = errors.New("attacker credential is empty")
	ErrInvalidCredential = errors.New("attacker credential contains characters not allowed in a header value")
)

// UnsupportedCredentialSchemeError is returned when an Authorization header
// uses a scheme other than Bearer.
type UnsupportedCredentialSchemeError struct {
	// Scheme is the scheme found in the header; empty if the value was empty.
	Scheme string

	// Header is the index of the offending header in the request.
	Header int
}

func (e *UnsupportedCredentialSchemeError) Error() string {
	if e.Scheme == "" {
		return fmt.Sprintf("unsupported credential scheme: authorization header %d has no scheme", e.Header)
	}
	return fmt.Sprintf("unsupported credential scheme %q: only Bearer credentials can be substituted", e.Scheme)
}

// IsUnsupportedCredentialScheme reports whether err is or wraps an
// UnsupportedCredentialSchemeError.
func IsUnsupportedCredentialScheme(err error) bool {
	if err == nil {
		return false
	}

	var schemeErr *UnsupportedCredentialSchemeError
	return errors.As(err, &schemeErr)
}

// Result is the outcome of a substitution.
type Result struct {
	// Request is the mutated copy. The input request is never modified.
	Request *rawhttp.Request

	// HadOriginalAuthHeader is false when the Authorization header had to
	// be injected.
	HadOriginalAuthHeader bool

	// Replaced counts the Authorization headers that were rewritten.
	Replaced int

	// OriginalCredentials holds the victim tokens that were replaced.
	OriginalCredentials []string
}

// Substitute replaces the Bearer credential of every Authorization header in
// req with credential, or injects one when none exists.
func Substitute(req *rawhttp.Request, credential string) (Result, error) {
	token, err := normalizeCredential(credential)
	if err != nil {
		return Result{}, err
	}

	indexes := req.Headers.Indexes(authorizationHeader)

	// check every header before touching any, so a request never ends up
	// carrying a mixture of old and new credentials
	originals := make([]string, 0, len(indexes))
	for _, i := range indexes {
		scheme, value := splitScheme(req.Headers[i].Value)
		if !strings.EqualFold(scheme, bearerScheme) {
			return Result{}, &UnsupportedCredentialSchemeError{Scheme: scheme, Header: i}
		}
		originals = append(originals, value)
	}

	out := req.Clone()
	newValue := bearerScheme + " " + token

	if len(indexes) == 0 {
		out.Headers = append(out.Headers, rawhttp.Header{Name: authorizationHeader, Value: newValue})
		return Result{
			Request:               out,
			HadOriginalAuthHeader: false,
		}, nil
	}

	for _, i := range indexes {
		out.Headers[i].Value = newValue
	}

	return Result{
		Request:               out,
		HadOriginalAuthHeader: true,
		Replaced:              len(indexes),
		OriginalCredentials:   originals,
	}, nil
}

// normalizeCredential trims the credential and drops a pasted Bearer prefix.
func normalizeCredential(credential string) (string, error) {
	token := strings.TrimSpace(credential)

	if scheme, rest := splitScheme(token); strings.EqualFold(scheme, bearerScheme) && rest != "" {
		token = rest
	}

	if token == "" {
		return "", ErrEmptyCredential
	}
	if !httpguts.ValidHeaderFieldValue(token) {
		return "", ErrInvalidCredential
	}

	return token, nil
}

// splitScheme splits an Authorization value into its scheme and the rest.
func splitScheme(value string) (string, string) {
	value = strings.TrimSpace(value)
	i := strings.IndexAny(value, " \t")
	if i < 0 {
		return value, ""
	}
	return value[:i], strings.TrimSpace(value[i+1:])
}
