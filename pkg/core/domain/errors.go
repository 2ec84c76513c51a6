package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	switch target.(type) {
	case NotFoundError, *NotFoundError:
		return true
	}
	return false
}

var (
	// ErrNotFound is the sentinel error for missing resources.
	ErrNotFound = NotFoundError{}

	ErrInvalidInput = errors.New("invalid input")
)

// NotFound builds a NotFoundError for the named resource.
func NotFound(resource string) error {
	return NotFoundError{Resource: resource}
}

// Invalid wraps ErrInvalidInput with a reason.
func Invalid(reason string) error {
	return errors.Wrap(ErrInvalidInput, reason)
}
