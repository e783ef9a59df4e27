package workflow

import (
	"errors"
	"fmt"

	"github.com/markomanninen/srrd-builder-sub000/internal/storage"
)

// Error kinds. Use errors.Is to test an engine error against them.
var (
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")
)

// Error is returned by engine operations that fail.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workflow: %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// wrap classifies a store error. A missing record maps to ErrNotFound and
// everything else to ErrPersistence.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	kind := ErrPersistence
	if errors.Is(err, storage.ErrNotFound) {
		kind = ErrNotFound
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

func notFound(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrNotFound, Err: fmt.Errorf(format, args...)}
}
