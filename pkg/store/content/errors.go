package content

import (
	"errors"
	"fmt"
	"strings"
)

// Standard content store errors.
//
// Implementations wrap these with the offending id so callers can use
// errors.Is:
//
//	return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
var (
	// ErrContentNotFound indicates the requested blob does not exist.
	//
	// The bridge reports it as a NotFound error.
	ErrContentNotFound = errors.New("content not found")

	// ErrInvalidContentID indicates an id that cannot be mapped onto the
	// backend's key space (empty, or containing path separators).
	ErrInvalidContentID = errors.New("invalid content id")
)

// ValidateContentID rejects ids that are empty or could escape a
// filesystem root or key prefix.
func ValidateContentID(id ContentID) error {
	s := string(id)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%q: %w", s, ErrInvalidContentID)
	}
	return nil
}
