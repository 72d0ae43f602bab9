package store

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds returned by a Backend and by Client. Test with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrTransient  = errors.New("backend unavailable")
)

// Classify returns err unchanged if it already carries a kind, and wraps it as
// ErrTransient otherwise. Cancellation by the caller is passed through as is.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict),
		errors.Is(err, ErrValidation), errors.Is(err, ErrTransient):
		return err
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
}

// Retryable reports whether another attempt could succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) && !errors.Is(err, context.Canceled)
}
