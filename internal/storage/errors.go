package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors matching the taxonomy of spec §7. Constraint violations
// and not-found conditions are distinguished so callers can use errors.Is
// without parsing message text, grounded on the teacher's
// internal/storage/sqlite/errors.go wrapping style.
var (
	ErrTableNotFound    = errors.New("storage: table not found")
	ErrIndexNotFound    = errors.New("storage: index not found")
	ErrColumnNotFound   = errors.New("storage: column not found")
	ErrRowNotFound      = errors.New("storage: row not found")
	ErrUniqueConstraint = errors.New("storage: unique constraint violated")
	ErrNotNull          = errors.New("storage: not-null constraint violated")
	ErrTypeMismatch     = errors.New("storage: column type mismatch")
	ErrDuplicateRowID   = errors.New("storage: duplicate row id")
)

func wrapf(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrTableNotFound) || errors.Is(err, ErrIndexNotFound) ||
		errors.Is(err, ErrColumnNotFound) || errors.Is(err, ErrRowNotFound)
}

func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrUniqueConstraint) || errors.Is(err, ErrNotNull) ||
		errors.Is(err, ErrTypeMismatch)
}
