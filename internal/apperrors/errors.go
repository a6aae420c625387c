package apperrors

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindRetakeCooldown Kind = "retake_cooldown"
	KindUpstream       Kind = "upstream_failure"
	KindStoreTransient Kind = "store_transient"
	KindConflict       Kind = "conflict"
	KindDataIntegrity  Kind = "data_integrity"
	KindUnauthorized   Kind = "unauthorized"
)

// Error is the single error type crossing service boundaries. Handlers map
// Kind to a response status; everything else stays in the wrapped error.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// Set only for KindRetakeCooldown.
	RetakeDate *time.Time
	Reason     string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind so callers can write
// errors.Is(err, apperrors.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Retryable reports whether the same request may be sent again unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == KindStoreTransient || e.Kind == KindUpstream || e.Kind == KindConflict
}

// Kind sentinels for errors.Is.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrRetakeCooldown = &Error{Kind: KindRetakeCooldown}
	ErrUpstream       = &Error{Kind: KindUpstream}
	ErrStoreTransient = &Error{Kind: KindStoreTransient}
	ErrConflict       = &Error{Kind: KindConflict}
	ErrDataIntegrity  = &Error{Kind: KindDataIntegrity}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func RetakeCooldown(reason string, retakeDate *time.Time) *Error {
	return &Error{
		Kind:       KindRetakeCooldown,
		Message:    "retake not available",
		Reason:     reason,
		RetakeDate: retakeDate,
	}
}

func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

func StoreTransient(message string, err error) *Error {
	return &Error{Kind: KindStoreTransient, Message: message, Err: err}
}

func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func DataIntegrity(message string, err error) *Error {
	return &Error{Kind: KindDataIntegrity, Message: message, Err: err}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
