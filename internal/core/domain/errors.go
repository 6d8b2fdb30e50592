package domain

import "errors"

// Kind classifies a domain error
type Kind string

const (
	KindForbidden           Kind = "FORBIDDEN"
	KindNotFound            Kind = "NOT_FOUND"
	KindDuplicateActiveCase Kind = "DUPLICATE_ACTIVE_CASE"
	KindInvalidReference    Kind = "INVALID_REFERENCE"
	KindInvariantViolation  Kind = "INVARIANT_VIOLATION"
	KindTransientStorage    Kind = "TRANSIENT_STORAGE_FAILURE"
	KindInvalidInput        Kind = "INVALID_INPUT"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindConflict            Kind = "CONFLICT"
)

// Error is a classified domain error. Two errors match under errors.Is when their kinds match.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Common domain errors
var (
	ErrForbidden           = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrDuplicateActiveCase = &Error{Kind: KindDuplicateActiveCase, Message: "borrower already has an open case"}
	ErrInvalidReference    = &Error{Kind: KindInvalidReference, Message: "invalid reference"}
	ErrInvariantViolation  = &Error{Kind: KindInvariantViolation, Message: "ledger invariant violated"}
	ErrTransientStorage    = &Error{Kind: KindTransientStorage, Message: "storage temporarily unavailable"}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrConflict            = &Error{Kind: KindConflict, Message: "conflict"}
)

// User errors
var (
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Message: "invalid credentials"}
	ErrUserInactive       = &Error{Kind: KindUnauthorized, Message: "user account is inactive"}
	ErrUserAlreadyExists  = &Error{Kind: KindConflict, Message: "user already exists"}
)

func Forbidden(msg string) error           { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) error            { return &Error{Kind: KindNotFound, Message: msg} }
func DuplicateActiveCase(msg string) error { return &Error{Kind: KindDuplicateActiveCase, Message: msg} }
func InvalidReference(msg string) error    { return &Error{Kind: KindInvalidReference, Message: msg} }
func InvariantViolation(msg string) error  { return &Error{Kind: KindInvariantViolation, Message: msg} }
func InvalidInput(msg string) error        { return &Error{Kind: KindInvalidInput, Message: msg} }
func Conflict(msg string) error            { return &Error{Kind: KindConflict, Message: msg} }

// TransientStorage wraps a retryable storage failure
func TransientStorage(msg string, err error) error {
	return &Error{Kind: KindTransientStorage, Message: msg, Err: err}
}

// KindOf returns the kind of the first domain error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
