package repository

import (
	"errors"
	"fmt"
)

// ErrorCode classifies repository failures.
type ErrorCode int

const (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound ErrorCode = iota

	// ErrLocked indicates the object is already locked (checked out).
	ErrLocked

	// ErrNotLockOwner indicates the caller does not hold the lock the
	// operation requires.
	ErrNotLockOwner

	// ErrNotHead indicates the operation requires the latest version of a
	// series but a predecessor was given.
	ErrNotHead

	// ErrNotWorkingCopy indicates a working copy was expected.
	ErrNotWorkingCopy

	// ErrInvalidObject indicates the object cannot be stored by this
	// repository (wrong kind, missing traits, undecodable record).
	ErrInvalidObject

	// ErrAlreadyExists indicates an id collision on insert.
	ErrAlreadyExists
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not found"
	case ErrLocked:
		return "locked"
	case ErrNotLockOwner:
		return "not lock owner"
	case ErrNotHead:
		return "not head"
	case ErrNotWorkingCopy:
		return "not a working copy"
	case ErrInvalidObject:
		return "invalid object"
	case ErrAlreadyExists:
		return "already exists"
	default:
		return "unknown"
	}
}

// Error is the error type returned by repositories and backends for
// business-logic failures. I/O failures are returned wrapped as-is.
type Error struct {
	Code    ErrorCode
	Message string
	ID      string
}

func (e *Error) Error() string {
	if e.ID == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.ID)
}

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, &repository.Error{Code: repository.ErrLocked}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError builds an *Error.
func NewError(code ErrorCode, id, format string, args ...any) *Error {
	return &Error{Code: code, ID: id, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err. ok is false when err carries none.
func CodeOf(err error) (code ErrorCode, ok bool) {
	var repoErr *Error
	if errors.As(err, &repoErr) {
		return repoErr.Code, true
	}
	return 0, false
}

// IsNotFound reports whether err is an ErrNotFound repository error.
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrNotFound
}
