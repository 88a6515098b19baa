package geoapi

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
	// ErrTypeTimeout indicates the call exceeded its deadline
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the remote end refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHTTP indicates a non-2xx HTTP status
	ErrTypeHTTP
	// ErrTypeStatus indicates a 2xx response whose API status is not OK
	ErrTypeStatus
	// ErrTypeParse indicates a malformed response body or header
	ErrTypeParse
	// ErrTypeEncode indicates the request body could not be serialized
	ErrTypeEncode
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
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeStatus:
		return "API Status Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeEncode:
		return "Encode Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// APIError represents a failed call to the geolocation or timezone service
type APIError struct {
	Type       ErrorType
	Service    string // "geolocation" or "timezone"
	Message    string
	StatusCode int    // HTTP status code (if applicable)
	APIStatus  string // "status" field of the response body (if applicable)
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s (caused by: %v)", e.Service, e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Service, e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyNetworkError analyzes a transport error and returns a typed error
func classifyNetworkError(service, message string, err error) *APIError {
	apiErr := &APIError{Type: ErrTypeNetwork, Service: service, Message: message, Err: err}

	var urlErr *url.Error
	inner := err
	if errors.As(err, &urlErr) {
		inner = urlErr.Err
	}

	if os.IsTimeout(inner) || errors.Is(inner, os.ErrDeadlineExceeded) {
		apiErr.Type = ErrTypeTimeout
		return apiErr
	}

	var dnsErr *net.DNSError
	if errors.As(inner, &dnsErr) {
		apiErr.Type = ErrTypeDNS
		return apiErr
	}

	var opErr *net.OpError
	if errors.As(inner, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		apiErr.Type = ErrTypeConnectionRefused
	}
	return apiErr
}

func newHTTPError(service string, statusCode int) *APIError {
	return &APIError{
		Type:       ErrTypeHTTP,
		Service:    service,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		StatusCode: statusCode,
	}
}

func newParseError(service, message string, err error) *APIError {
	return &APIError{Type: ErrTypeParse, Service: service, Message: message, Err: err}
}

// IsNetworkError checks if an error is a transport-level failure
func IsNetworkError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Type {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS:
		return true
	}
	return false
}

// IsHTTPError checks if an error is a non-2xx response
func IsHTTPError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrTypeHTTP
}

// IsParseError checks if an error is a malformed response
func IsParseError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == ErrTypeParse
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
