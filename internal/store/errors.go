package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrRoleNotFound is returned when a role name is not present in the roles table.
var ErrRoleNotFound = errors.New("role not found")

// ErrInvalidPagination is returned for negative page or limit values.
var ErrInvalidPagination = errors.New("invalid pagination")

// ErrDuplicate is returned when a write violates a unique constraint.
var ErrDuplicate = errors.New("already exists")

const uniqueViolation = "23505"

func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}
