package cmis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/marmos91/dittocmis/pkg/content"
	"github.com/marmos91/dittocmis/pkg/repository"
	blob "github.com/marmos91/dittocmis/pkg/store/content"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"not found", repository.NewError(repository.ErrNotFound, "x", "gone"), ErrNotFound},
		{"locked", repository.NewError(repository.ErrLocked, "x", "locked"), ErrConflict},
		{"not lock owner", repository.NewError(repository.ErrNotLockOwner, "x", "owner"), ErrConflict},
		{"not head", repository.NewError(repository.ErrNotHead, "x", "head"), ErrConflict},
		{"not working copy", repository.NewError(repository.ErrNotWorkingCopy, "x", "pwc"), ErrConflict},
		{"already exists", repository.NewError(repository.ErrAlreadyExists, "x", "dup"), ErrConflict},
		{"invalid object", repository.NewError(repository.ErrInvalidObject, "x", "kind"), ErrIllegalState},
		{"wrapped repository error", fmt.Errorf("save: %w", repository.NewError(repository.ErrLocked, "x", "locked")), ErrConflict},
		{"no content", fmt.Errorf("object x: %w", content.ErrNoContent), ErrNotFound},
		{"missing blob", fmt.Errorf("content y: %w", blob.ErrContentNotFound), ErrNotFound},
		{"not content bearing", content.ErrNotContentBearing, ErrInvalidArgument},
		{"too large", fmt.Errorf("%w: limit", content.ErrContentTooLarge), ErrInvalidArgument},
		{"bad content id", blob.ErrInvalidContentID, ErrIllegalState},
		{"already translated", newError(ErrUnsupported, "x", "nope"), ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate(tt.err, "x")
			requireCode(t, tt.want, err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestTranslatePassesThroughUnknownErrors(t *testing.T) {
	assert.NoError(t, translate(nil, "x"))

	err := translate(context.Canceled, "x")
	assert.Same(t, context.Canceled, err)
	_, ok := CodeOf(err)
	assert.False(t, ok)
}

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("op: %w", newError(ErrConflict, "doc-1", "checked out"))

	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
	assert.True(t, errors.Is(err, &Error{Code: ErrConflict}))
	assert.False(t, errors.Is(err, &Error{Code: ErrNotFound}))
	assert.Equal(t, "checked out: doc-1", errors.Unwrap(err).Error())

	cause := errors.New("disk on fire")
	wrapped := &Error{Code: ErrIllegalState, Message: "save failed", ID: "doc-1", Err: cause}
	assert.Equal(t, "save failed: doc-1: disk on fire", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "objectNotFound", ErrNotFound.String())
	assert.Equal(t, "invalidArgument", ErrInvalidArgument.String())
	assert.Equal(t, "conflict", ErrConflict.String())
	assert.Equal(t, "illegalState", ErrIllegalState.String())
	assert.Equal(t, "notSupported", ErrUnsupported.String())
	assert.Equal(t, "unknown", ErrorCode(42).String())
}
