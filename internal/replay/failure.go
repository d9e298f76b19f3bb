package replay

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// FailureKind classifies a transport-level failure.
type FailureKind string

const (
	FailureRefused  FailureKind = "refused"
	FailureTimeout  FailureKind = "timeout"
	FailureDNS      FailureKind = "dns"
	FailureTLS      FailureKind = "tls"
	FailureProxy    FailureKind = "proxy"
	FailureCanceled FailureKind = "canceled"
	FailureProtocol FailureKind = "protocol"
	FailureUnknown  FailureKind = "unknown"
)

// Failure describes why no HTTP response was obtained.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Message returns the underlying error text.
func (f *Failure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

var errProtocol = errors.New("malformed response")

type tlsError struct {
	err error
}

func (e *tlsError) Error() string { return "tls handshake: " + e.err.Error() }
func (e *tlsError) Unwrap() error { return e.err }

func classify(ctx context.Context, err error) *Failure {
	return &Failure{Kind: kindOf(ctx, err), Err: err}
}

func kindOf(ctx context.Context, err error) FailureKind {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return FailureCanceled
	}
	if errors.Is(err, ErrProxyConnect) || errors.Is(err, ErrUnsupportedProxy) {
		return FailureProxy
	}
	if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return FailureTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return FailureRefused
	}
	if isTLS(err) {
		return FailureTLS
	}
	if errors.Is(err, errProtocol) {
		return FailureProtocol
	}

	return FailureUnknown
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTLS(err error) bool {
	var (
		handshake  *tlsError
		record     tls.RecordHeaderError
		verify     *tls.CertificateVerificationError
		alert      tls.AlertError
		unknownCA  x509.UnknownAuthorityError
		hostname   x509.HostnameError
		invalidErr x509.CertificateInvalidError
	)
	return errors.As(err, &handshake) ||
		errors.As(err, &record) ||
		errors.As(err, &verify) ||
		errors.As(err, &alert) ||
		errors.As(err, &unknownCA) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalidErr)
}
