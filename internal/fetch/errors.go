package fetch

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies every way an outbound request can fail. Workers and
// adapters branch on the kind, never on error strings.
type ErrorKind string

const (
	KindInvalidURL     ErrorKind = "INVALID_URL"
	KindRobotsDisallow ErrorKind = "ROBOTS_DISALLOW"
	KindHTTP4xx        ErrorKind = "HTTP_4XX"
	KindNetwork        ErrorKind = "ERROR_NETWORK"
	KindSSL            ErrorKind = "ERROR_SSL"
	KindTooLarge       ErrorKind = "TOO_LARGE"
)

// Error is the typed failure every transport problem is converted into.
type Error struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s: status %d", e.URL, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the error kind, or empty for non-fetch errors.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// isTLSError recognizes certificate and handshake failures so the SSL
// fallback chain only triggers on genuine TLS problems.
func isTLSError(err error) bool {
	if err == nil {
		return false
	}
	var (
		certErr     *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	if errors.As(err, &certErr) || errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuth) || errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr) {
		return true
	}
	// Handshake failures surface as opaque strings from the net stack. An
	// HTTPS request answered by a plain-HTTP server loses its
	// RecordHeaderError inside net/http and comes back only as this string.
	msg := err.Error()
	return strings.Contains(msg, "tls:") || strings.Contains(msg, "x509:") ||
		strings.Contains(msg, "server gave HTTP response to HTTPS client")
}
