package workflow

import (
	"errors"
	"fmt"

	"promptui/internal/store"
)

// Failure kinds returned by Service operations. Callers match them with
// errors.Is; anything else is an internal failure.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("authentication required")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// fromStore converts store sentinels into failure kinds. what names the
// missing or conflicting thing. Unrecognized errors pass through unchanged.
func fromStore(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	case errors.Is(err, store.ErrReferenced):
		return fmt.Errorf("%w: %s is still referenced", ErrConflict, what)
	}
	return err
}
