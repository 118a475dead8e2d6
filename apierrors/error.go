// Package apierrors defines the typed error kinds the engine returns and the
// single place they are translated to an HTTP status code. The shape (NewError,
// WrapError, WithStack, ErrorIs, ExtractHTTPError) is modeled on the call contract
// proven by the teacher's own sdk/error_test.go; the teacher's error.go itself was
// not present in the retrieved file set.
package apierrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the error classifications from the error handling design table.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindAlreadyExists
	KindInvalid
	KindExpired
	KindUnauthorized
	KindForbidden
	KindConflict
	KindTooLarge
	KindConnectionFailed
)

// String renders the kind the way it would appear in logs and in ErrorIs checks.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindInvalid:
		return "Invalid"
	case KindExpired:
		return "Expired"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindConflict:
		return "Conflict"
	case KindTooLarge:
		return "TooLarge"
	case KindConnectionFailed:
		return "ConnectionFailed"
	default:
		return "Internal"
	}
}

// HTTPStatus returns the status code bound to this kind by the error handling
// design table. This binding is a contract: callers outside the engine rely on it.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return 404
	case KindAlreadyExists:
		return 409
	case KindInvalid:
		return 400
	case KindExpired:
		return 401
	case KindUnauthorized:
		return 401
	case KindForbidden:
		return 403
	case KindConflict:
		return 409
	case KindTooLarge:
		return 413
	case KindConnectionFailed:
		return 503
	default:
		return 500
	}
}

// Error is the typed error every engine component API returns.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind with a static message.
func New(kind Kind, message string) error {
	return errors.WithStack(&Error{Kind: kind, Message: message})
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// NewError wraps a lower-level cause as an Error of the given kind, preserving a
// call stack the way the teacher's NewError(kind, cause) did.
func NewError(kind Kind, cause error) error {
	if cause == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, Message: cause.Error(), cause: cause})
}

// WrapError annotates err with a message, preserving its Kind if it has one, and
// records a stack frame — analogous to the teacher's sdk.WrapError used throughout
// its dao.go files.
func WrapError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	var ae *Error
	if As(err, &ae) {
		return errors.WithStack(&Error{Kind: ae.Kind, Message: msg + ": " + ae.Message, cause: err})
	}
	return errors.WithStack(&Error{Kind: KindInternal, Message: msg, cause: err})
}

// WithStack records a call stack on an error that is not already an Error,
// classifying it as Internal.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if As(err, &ae) {
		return err
	}
	return errors.WithStack(&Error{Kind: KindInternal, Message: err.Error(), cause: err})
}

// As is a thin indirection over errors.As kept local so callers of this package
// never need to import both apierrors and the standard errors package.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is reports whether err (or anything it wraps) is an *Error of the given kind —
// the teacher's ErrorIs(err, kind) predicate.
func Is(err error, kind Kind) bool {
	var ae *Error
	if !As(err, &ae) {
		return false
	}
	return ae.Kind == kind
}

// KindOf extracts the Kind of err, defaulting to KindInternal for untyped errors.
func KindOf(err error) Kind {
	var ae *Error
	if As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// ErrorResponse is the JSON body an HTTP adapter returns alongside the status code.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ExtractHTTPError maps err to the status code and body an HTTP adapter should
// send, the single place errors become status codes (per §7 Propagation).
func ExtractHTTPError(err error) (int, ErrorResponse) {
	if err == nil {
		return 200, ErrorResponse{}
	}
	var ae *Error
	if As(err, &ae) {
		return ae.Kind.HTTPStatus(), ErrorResponse{Kind: ae.Kind.String(), Message: ae.Message}
	}
	return 500, ErrorResponse{Kind: KindInternal.String(), Message: err.Error()}
}
