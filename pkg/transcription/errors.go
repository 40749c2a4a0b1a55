package transcription

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"syscall"
)

// NetworkErrorMessage is the message of every KindNetwork error.
const NetworkErrorMessage = "Network error: Unable to connect to the transcription service. Please check if the backend is running and CORS is configured correctly."

// ErrorKind tells apart why a request failed
type ErrorKind int

const (
	// KindApplication means the service answered non-2xx with an "error" message in the body
	KindApplication ErrorKind = iota + 1
	// KindStatus means the service answered non-2xx without a usable error message
	KindStatus
	// KindNetwork means the request never got a response
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindApplication:
		return "application"
	case KindStatus:
		return "status"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is the normalized failure returned by Client methods.
// Error() is exactly Message; callers can show it as is.
type Error struct {
	Kind       ErrorKind
	StatusCode int // zero for KindNetwork
	Message    string
	Err        error // transport cause, KindNetwork only
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr, true
	}
	return nil, false
}

// IsNetworkError reports whether err is a KindNetwork failure.
func IsNetworkError(err error) bool {
	clientErr, ok := AsError(err)
	return ok && clientErr.Kind == KindNetwork
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	if clientErr, ok := AsError(err); ok {
		return clientErr.StatusCode
	}
	return 0
}

func newNetworkError(cause error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Message: NetworkErrorMessage,
		Err:     cause,
	}
}

// classifyTransportError maps a failure from the transport to a KindNetwork
// error, or returns nil when err is not a connectivity failure.
func classifyTransportError(err error) error {
	if err == nil || !isConnectivityFailure(err) {
		return nil
	}
	return newNetworkError(err)
}

func isConnectivityFailure(err error) bool {
	var (
		dnsErr     *net.DNSError
		opErr      *net.OpError
		netErr     net.Error
		authErr    x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
		recordErr  tls.RecordHeaderError
	)

	switch {
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EHOSTUNREACH):
		return true
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// connection closed before a response arrived
		return true
	case errors.As(err, &authErr), errors.As(err, &hostErr),
		errors.As(err, &invalidErr), errors.As(err, &recordErr):
		return true
	case errors.As(err, &netErr) && netErr.Timeout():
		return true
	}
	return false
}
