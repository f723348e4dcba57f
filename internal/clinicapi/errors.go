package clinicapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrCapacityConflict is returned when the backend rejects a booking
	// because the dentist's day filled up after the client checked.
	ErrCapacityConflict = errors.New("clinicapi: daily booking limit reached")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("clinicapi: resource not found")
)

// NetworkError wraps transport failures (dial, timeout, reset, bad body).
// The same request may be retried by the caller.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("clinicapi: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clinicapi: %s %s returned %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("clinicapi: %s %s returned %d: %s", e.Method, e.Path, e.Code, e.Message)
}

// Is lets errors.Is match the sentinel errors derived from the status code
// and message.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrCapacityConflict:
		return isCapacityConflict(e.Code, e.Message)
	}
	return false
}

func isCapacityConflict(code int, message string) bool {
	if code == http.StatusConflict {
		return true
	}
	if code < 400 || code >= 500 {
		return false
	}
	msg := strings.ToLower(message)
	return strings.Contains(msg, "limit") || strings.Contains(msg, "fully booked")
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
