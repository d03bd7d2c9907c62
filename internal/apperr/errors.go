// Package apperr carries domain failures from services to the HTTP layer.
// A service returns either a value or an *Error describing what went wrong;
// handlers map the Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindFailure:
		return "failure"
	default:
		return "unexpected"
	}
}

// Error is a coded domain error.
type Error struct {
	Code        string
	Description string
	Kind        Kind
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches any *Error with the same code, so parametrised errors
// (different descriptions) still compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func Validation(code, description string) *Error {
	return &Error{Code: code, Description: description, Kind: KindValidation}
}

func NotFound(code, description string) *Error {
	return &Error{Code: code, Description: description, Kind: KindNotFound}
}

func Conflict(code, description string) *Error {
	return &Error{Code: code, Description: description, Kind: KindConflict}
}

func Unauthorized(code, description string) *Error {
	return &Error{Code: code, Description: description, Kind: KindUnauthorized}
}

func Forbidden(code, description string) *Error {
	return &Error{Code: code, Description: description, Kind: KindForbidden}
}

func Failure(code, description string) *Error {
	return &Error{Code: code, Description: description, Kind: KindFailure}
}

// From extracts the first *Error in err's chain.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
