// Package apperror defines the error kinds shared by the document core.
// Callers classify failures with errors.Is against the exported sentinels.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by who is at fault and how the caller should react.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindStorage    Kind = "storage"
	KindIntegrity  Kind = "integrity"
)

// Sentinels matched by (*Error).Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage error")
	ErrIntegrity  = errors.New("integrity error")
)

var sentinels = map[Kind]error{
	KindValidation: ErrValidation,
	KindNotFound:   ErrNotFound,
	KindForbidden:  ErrForbidden,
	KindConflict:   ErrConflict,
	KindStorage:    ErrStorage,
	KindIntegrity:  ErrIntegrity,
}

// Error is a classified failure. Op names the operation that failed and Msg is
// safe to show to the caller; Err is the underlying cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the caller-safe message of the first *Error in err's chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return ""
}

func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func NotFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

func Forbidden(op, msg string) error {
	return &Error{Kind: KindForbidden, Op: op, Msg: msg}
}

func Conflict(op, msg string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Msg: msg, Err: err}
}

// Storage wraps a content-store failure.
func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Msg: "content storage failure", Err: err}
}

// Integrity marks a row that references content which no longer exists.
func Integrity(op, msg string, err error) error {
	return &Error{Kind: KindIntegrity, Op: op, Msg: msg, Err: err}
}
