package post

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("post not found")
	// ErrContentNotFound means the metadata exists but the body artifact does not.
	ErrContentNotFound = fmt.Errorf("%w: post content not found", ErrNotFound)
	ErrUnauthorized    = errors.New("authentication required")
	ErrForbidden       = errors.New("not the owner of this post")
	ErrStorage         = errors.New("storage failure")
)

// ValidationError describes a field-level validation failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageFault wraps an underlying I/O or database error so that it matches
// ErrStorage while keeping the cause inspectable.
func StorageFault(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
