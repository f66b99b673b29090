package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

var (
	// ErrConnection means the server could not be reached.
	ErrConnection = errors.New("connection failed")

	// ErrTimeout means the server did not answer in time.
	ErrTimeout = errors.New("request timed out")

	// ErrModelNotFound means the server does not know the requested model.
	ErrModelNotFound = errors.New("model not found")

	// ErrImageUnsupported means an image was given to a transport that cannot send it.
	ErrImageUnsupported = errors.New("image input not supported by transport")

	// ErrProtocol means the server answered, but not in the expected protocol.
	ErrProtocol = errors.New("protocol error")
)

// TransportError attributes a failure to the transport that produced it.
type TransportError struct {
	Transport string
	Err       error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// FailedTransport returns the name of the transport err is attributed to, or
// selected when err carries no attribution.
func FailedTransport(err error, selected string) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Transport
	}
	return selected
}

var kinds = []error{ErrConnection, ErrTimeout, ErrModelNotFound, ErrImageUnsupported, ErrProtocol}

// Known reports whether err already carries one of the taxonomy sentinels.
func Known(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// Classify wraps err with the sentinel matching its cause. Errors that are
// already classified, and errors it does not recognize, are returned unchanged.
func Classify(err error) error {
	if err == nil || Known(err) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	return err
}

// LooksLikeModelNotFound reports whether a server error message says the
// requested model does not exist or is not loaded.
func LooksLikeModelNotFound(message string) bool {
	m := strings.ToLower(message)
	if !strings.Contains(m, "model") {
		return false
	}

	for _, phrase := range []string{"not found", "no model", "not loaded", "does not exist", "model_not_found"} {
		if strings.Contains(m, phrase) {
			return true
		}
	}
	return false
}
