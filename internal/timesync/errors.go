package timesync

import (
	"errors"
	"fmt"
)

// Kind classifies why a step of bringing up the clock failed.
type Kind int

const (
	// KindConfigAbsent means the persisted record is missing or unusable
	KindConfigAbsent Kind = iota + 1
	// KindNetworkJoin means the configured network could not be joined
	KindNetworkJoin
	// KindGeolocation means no location could be resolved this cycle
	KindGeolocation
	// KindTimeReference means the authoritative time could not be read
	KindTimeReference
	// KindTimezoneLookup means the offset for a location could not be read
	KindTimezoneLookup
)

func (k Kind) String() string {
	switch k {
	case KindConfigAbsent:
		return "ConfigAbsentOrInvalid"
	case KindNetworkJoin:
		return "NetworkJoinFailure"
	case KindGeolocation:
		return "GeolocationFailure"
	case KindTimeReference:
		return "TimeReferenceFailure"
	case KindTimezoneLookup:
		return "TimezoneLookupFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a classified, non-fatal failure.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error of the given kind.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err carries an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
