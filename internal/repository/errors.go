package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// ErrDuplicate is matched by errors.Is when an insert or update hits a unique index.
var ErrDuplicate = errors.New("duplicate key")

// DuplicateKeyError carries the violated constraint.
type DuplicateKeyError struct {
	Constraint string
	Err        error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key on %s", e.Constraint)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicate }

// translateError maps driver errors onto repository sentinels.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return &DuplicateKeyError{Constraint: pqErr.Constraint, Err: err}
	}
	return err
}
