package portalclient

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing listens on the portal address
	ErrTypeConnectionRefused
	// ErrTypeRejected indicates the portal refused the settings (400)
	ErrTypeRejected
	// ErrTypeHTTP indicates any other non-200 status
	ErrTypeHTTP
	// ErrTypeParse indicates a malformed response
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeRejected:
		return "Rejected"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// PortalError is a failed exchange with a clock's settings portal
type PortalError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *PortalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *PortalError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request may succeed. The portal
// is a small embedded server that drops connections while the access point
// settles, so transport failures and 5xx are retried; a rejected form is
// not.
func (e *PortalError) Retryable() bool {
	switch e.Type {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused:
		return true
	case ErrTypeHTTP:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// IsRetryable checks if err is a retryable portal error
func IsRetryable(err error) bool {
	var pe *PortalError
	return errors.As(err, &pe) && pe.Retryable()
}

// IsRejected checks if the portal refused the submitted settings
func IsRejected(err error) bool {
	var pe *PortalError
	return errors.As(err, &pe) && pe.Type == ErrTypeRejected
}

func classifyNetworkError(message string, err error) *PortalError {
	pe := &PortalError{Type: ErrTypeNetwork, Message: message, Err: err}

	inner := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		inner = urlErr.Err
	}

	var opErr *net.OpError
	switch {
	case os.IsTimeout(inner):
		pe.Type = ErrTypeTimeout
	case errors.As(inner, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED):
		pe.Type = ErrTypeConnectionRefused
	}
	return pe
}

// Troubleshooting returns operator hints for err.
func Troubleshooting(err error) []string {
	var pe *PortalError
	if !errors.As(err, &pe) {
		return nil
	}
	switch pe.Type {
	case ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeNetwork:
		return []string{
			"Join the clock's access point (NixieClock XXXX) first",
			"The portal closes after a minute without requests; power-cycle the clock to reopen it",
			"Run 'nixieclock-cfg scan' to find the portal address",
		}
	case ErrTypeRejected:
		return []string{
			"The SSID is required",
			"Values must not contain line breaks",
		}
	default:
		return nil
	}
}
