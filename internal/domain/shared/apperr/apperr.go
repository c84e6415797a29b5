// Package apperr classifies engine failures into the kinds exposed to callers
// as {kind, message} results.
package apperr

import "errors"

// Kind is a machine-readable error category.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindPolicyViolation Kind = "policy_violation"
	KindUnsupported     Kind = "unsupported"
	KindInternal        Kind = "internal"
)

// Kind-only targets for errors.Is checks.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrPolicyViolation = &Error{Kind: KindPolicyViolation}
	ErrUnsupported     = &Error{Kind: KindUnsupported}
)

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches targets of the same kind. A target without a message matches
// every error of its kind; otherwise messages must be equal too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(message string) *Error      { return New(KindValidation, message) }
func NotFound(message string) *Error        { return New(KindNotFound, message) }
func Conflict(message string) *Error        { return New(KindConflict, message) }
func PolicyViolation(message string) *Error { return New(KindPolicyViolation, message) }
func Unsupported(message string) *Error     { return New(KindUnsupported, message) }

// KindOf reports the kind of the first classified error in err's chain.
// Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
