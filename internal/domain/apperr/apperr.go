// Package apperr classifies business-rule failures into a small set of kinds
// that the transport layer maps onto responses.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind enumerates the categories of user-facing failures.
type Kind uint8

const (
	// Internal is any failure that is not a business-rule violation.
	Internal Kind = iota
	// NotFound means the referenced entity does not exist or is not visible
	// to the caller.
	NotFound
	// EmptyCart means checkout was attempted against a cart without lines.
	EmptyCart
	// InvalidState means the entity exists but its state forbids the operation.
	InvalidState
	// Conflict means the operation collides with existing data.
	Conflict
	// Validation means the input was malformed.
	Validation
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case EmptyCart:
		return "empty_cart"
	case InvalidState:
		return "invalid_state"
	case Conflict:
		return "conflict"
	case Validation:
		return "validation"
	default:
		return "internal"
	}
}

// Error is a classified business error. Sentinel values are compared by
// identity, so wrapping preserves errors.Is matching.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New returns a classified error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf returns a classified error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of the first classified error in err's chain, or
// Internal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the user-facing message of the first classified error in
// err's chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
