package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error at the core boundary. Kinds are stable across
// releases; messages are advisory only.
type Kind string

const (
	KindInvalidArgument   Kind = "invalid_argument"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindSeatUnavailable   Kind = "seat_unavailable"
	KindFlightNotBookable Kind = "flight_not_bookable"
	KindPriceChanged      Kind = "price_changed"
	KindHoldExpired       Kind = "hold_expired"
	KindInvalidState      Kind = "invalid_state"
	KindPaymentFailed     Kind = "payment_failed"
	KindPassengerLimit    Kind = "passenger_limit_exceeded"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

// Error carries a stable kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
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

// E builds a new Error with the given kind and formatted message.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal for
// untyped errors so database and adapter faults never leak raw.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// MessageOf returns the advisory message, hiding internals for untyped errors.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
