package substitute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auth-fusion/authfusion/internal/rawhttp"
	"github.com/auth-fusion/authfusion/internal/substitute"
)

func parse(t *testing.T, raw string) *rawhttp.Request {
	t.Helper()

	req, err := rawhttp.Parse([]byte(raw))
	require.NoError(t, err)
	return req
}

func TestSubstitute_ReplacesBearer(t *testing.T) {
	req := parse(t, "POST /api/v1/admin/users HTTP/1.1\r\n"+
		"Host: old.example\r\n"+
		"Authorization: Bearer VICTIM\r\n"+
		"Accept: application/json\r\n"+
		"Content-Length: 9\r\n"+
		"\r\n"+
		`{"a":"b"}`)

	res, err := substitute.Substitute(req, "ATTACKER123")
	require.NoError(t, err)

	assert.True(t, res.HadOriginalAuthHeader)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, []string{"VICTIM"}, res.OriginalCredentials)
	assert.Equal(t, []string{"Bearer ATTACKER123"}, res.Request.Headers.Values("authorization"))

	// everything else is untouched
	assert.Equal(t, req.Method, res.Request.Method)
	assert.Equal(t, req.Target, res.Request.Target)
	assert.Equal(t, req.Body, res.Request.Body)
	assert.Equal(t, req.Headers.Del("Authorization"), res.Request.Headers.Del("Authorization"))
	assert.Equal(t, 1, res.Request.Headers.Indexes("Authorization")[0])
}

func TestSubstitute_DoesNotMutateInput(t *testing.T) {
	req := parse(t, "GET / HTTP/1.1\r\nAuthorization: Bearer VICTIM\r\n\r\n")

	_, err := substitute.Substitute(req, "ATTACKER")
	require.NoError(t, err)

	value, _ := req.Headers.Get("Authorization")
	assert.Equal(t, "Bearer VICTIM", value)
}

func TestSubstitute_CaseInsensitiveNameAndScheme(t *testing.T) {
	req := parse(t, "GET / HTTP/1.1\r\nauthorization: bearer victim\r\n\r\n")

	res, err := substitute.Substitute(req, "attacker")
	require.NoError(t, err)

	assert.Equal(t, rawhttp.Header{Name: "authorization", Value: "Bearer attacker"}, res.Request.Headers[0])
}

func TestSubstitute_AllAuthorizationHeaders(t *testing.T) {
	req := parse(t, "GET / HTTP/1.1\r\n"+
		"Authorization: Bearer one\r\n"+
		"Host: a\r\n"+
		"AUTHORIZATION: Bearer two\r\n"+
		"\r\n")

	res, err := substitute.Substitute(req, "new")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Replaced)
	assert.Equal(t, []string{"Bearer new", "Bearer new"}, res.Request.Headers.Values("Authorization"))
	assert.Equal(t, []string{"one", "two"}, res.OriginalCredentials)
}

func TestSubstitute_InjectsWhenMissing(t *testing.T) {
	req := parse(t, "GET /me HTTP/1.1\r\nHost: a\r\nAccept: */*\r\n\r\n")

	res, err := substitute.Substitute(req, "ATTACKER")
	require.NoError(t, err)

	assert.False(t, res.HadOriginalAuthHeader)
	assert.Equal(t, 0, res.Replaced)
	require.Len(t, res.Request.Headers, 3)
	assert.Equal(t, rawhttp.Header{Name: "Authorization", Value: "Bearer ATTACKER"}, res.Request.Headers[2])
	assert.Len(t, req.Headers, 2)
}

func TestSubstitute_UnsupportedScheme(t *testing.T) {
	tests := map[string]string{
		"token":  "Authorization: Token abc",
		"basic":  "Authorization: Basic dXNlcjpwYXNz",
		"empty":  "Authorization:",
		"digest": "Authorization: Digest username=\"a\"",
	}

	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			req := parse(t, "GET / HTTP/1.1\r\n"+header+"\r\n\r\n")

			_, err := substitute.Substitute(req, "ATTACKER")
			require.Error(t, err)
			assert.True(t, substitute.IsUnsupportedCredentialScheme(err))
		})
	}
}

func TestSubstitute_MixedSchemesFailWithoutPartialRewrite(t *testing.T) {
	req := parse(t, "GET / HTTP/1.1\r\n"+
		"Authorization: Bearer one\r\n"+
		"Authorization: Basic two\r\n"+
		"\r\n")

	_, err := substitute.Substitute(req, "new")

	var schemeErr *substitute.UnsupportedCredentialSchemeError
	require.ErrorAs(t, err, &schemeErr)
	assert.Equal(t, "Basic", schemeErr.Scheme)
	assert.Equal(t, 1, schemeErr.Header)
	assert.Equal(t, []string{"Bearer one", "Basic two"}, req.Headers.Values("Authorization"))
}

func TestSubstitute_CredentialNormalization(t *testing.T) {
	req := parse(t, "GET / HTTP/1.1\r\nAuthorization: Bearer VICTIM\r\n\r\n")

	res, err := substitute.Substitute(req, "  Bearer  ATTACKER  ")
	require.NoError(t, err)

	value, _ := res.Request.Headers.Get("Authorization")
	assert.Equal(t, "Bearer ATTACKER", value)
}

func TestSubstitute_InvalidCredentials(t *testing.T) {
	req := parse(t, "GET / HTTP/1.1\r\nAuthorization: Bearer VICTIM\r\n\r\n")

	_, err := substitute.Substitute(req, "   ")
	assert.ErrorIs(t, err, substitute.ErrEmptyCredential)

	_, err = substitute.Substitute(req, "abc\r\nX-Injected: 1")
	assert.ErrorIs(t, err, substitute.ErrInvalidCredential)
}
