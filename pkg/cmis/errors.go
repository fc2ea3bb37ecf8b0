package cmis

import (
	"errors"
	"fmt"

	"github.com/marmos91/dittocmis/pkg/content"
	"github.com/marmos91/dittocmis/pkg/repository"
	blob "github.com/marmos91/dittocmis/pkg/store/content"
)

// ErrorCode is the bridge error taxonomy. A transport layer maps each code
// to a protocol status.
type ErrorCode int

const (
	// ErrNotFound indicates a missing object, path segment or type id.
	ErrNotFound ErrorCode = iota

	// ErrInvalidArgument indicates a malformed filter, property, version
	// label or an operation that makes no sense for the target.
	ErrInvalidArgument

	// ErrConflict indicates the target's state forbids the operation, such
	// as a checkout of an already checked-out series.
	ErrConflict

	// ErrIllegalState indicates a broken configuration: an entity that is
	// neither document nor folder, or a repository returning foreign objects.
	ErrIllegalState

	// ErrUnsupported indicates a capability the repository does not have.
	ErrUnsupported
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "objectNotFound"
	case ErrInvalidArgument:
		return "invalidArgument"
	case ErrConflict:
		return "conflict"
	case ErrIllegalState:
		return "illegalState"
	case ErrUnsupported:
		return "notSupported"
	default:
		return "unknown"
	}
}

// Error is returned by every bridge operation that fails for a reason in the
// taxonomy. Err keeps the lower-level cause, if any.
type Error struct {
	Code    ErrorCode
	Message string
	ID      string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.ID != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.ID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code ErrorCode, id, format string, args ...any) *Error {
	return &Error{Code: code, ID: id, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode of err. ok is false for errors outside the
// taxonomy (I/O failures of a backend, cancelled contexts).
func CodeOf(err error) (code ErrorCode, ok bool) {
	var cmisErr *Error
	if errors.As(err, &cmisErr) {
		return cmisErr.Code, true
	}
	return 0, false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

func IsNotFound(err error) bool        { return hasCode(err, ErrNotFound) }
func IsInvalidArgument(err error) bool { return hasCode(err, ErrInvalidArgument) }
func IsConflict(err error) bool        { return hasCode(err, ErrConflict) }
func IsIllegalState(err error) bool    { return hasCode(err, ErrIllegalState) }
func IsUnsupported(err error) bool     { return hasCode(err, ErrUnsupported) }

// translate maps repository and content store failures onto the taxonomy.
// Errors already in the taxonomy and errors with no mapping are returned
// unchanged.
func translate(err error, id string) error {
	if err == nil {
		return nil
	}
	if _, ok := CodeOf(err); ok {
		return err
	}

	if code, ok := repository.CodeOf(err); ok {
		switch code {
		case repository.ErrNotFound:
			return &Error{Code: ErrNotFound, Message: "object not found", ID: id, Err: err}
		case repository.ErrLocked:
			return &Error{Code: ErrConflict, Message: "version series is checked out", ID: id, Err: err}
		case repository.ErrNotLockOwner:
			return &Error{Code: ErrConflict, Message: "version series is checked out by another user", ID: id, Err: err}
		case repository.ErrNotHead:
			return &Error{Code: ErrConflict, Message: "object is not the latest version", ID: id, Err: err}
		case repository.ErrNotWorkingCopy:
			return &Error{Code: ErrConflict, Message: "object is not a private working copy", ID: id, Err: err}
		case repository.ErrAlreadyExists:
			return &Error{Code: ErrConflict, Message: "object already exists", ID: id, Err: err}
		case repository.ErrInvalidObject:
			return &Error{Code: ErrIllegalState, Message: "repository rejected object", ID: id, Err: err}
		}
	}

	switch {
	case errors.Is(err, content.ErrNoContent):
		return &Error{Code: ErrNotFound, Message: "object has no content stream", ID: id, Err: err}
	case errors.Is(err, blob.ErrContentNotFound):
		return &Error{Code: ErrNotFound, Message: "content stream not found", ID: id, Err: err}
	case errors.Is(err, content.ErrNotContentBearing):
		return &Error{Code: ErrInvalidArgument, Message: "object cannot carry a content stream", ID: id, Err: err}
	case errors.Is(err, content.ErrContentTooLarge):
		return &Error{Code: ErrInvalidArgument, Message: "content stream too large", ID: id, Err: err}
	case errors.Is(err, blob.ErrInvalidContentID):
		return &Error{Code: ErrIllegalState, Message: "invalid content id", ID: id, Err: err}
	}

	return err
}
