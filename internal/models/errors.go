package models

import (
	"errors"
	"fmt"

	"github.com/diewo77/recoup/validation"
)

var (
	// ErrDivisionByZero is returned when an end-user service linked to a
	// division has no users across all of its divisions.
	ErrDivisionByZero = errors.New("division_by_zero")
	// ErrNoFinancialYear is returned when a percentage is requested and no
	// reference year exists.
	ErrNoFinancialYear = errors.New("no_financial_year")
	// ErrProtected matches every *ProtectedError through errors.Is.
	ErrProtected = errors.New("protected_reference")
)

// ValidationError rejects a write before anything is persisted.
type ValidationError struct {
	Entity     string
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Entity, e.Violations.String())
}

func invalid(entity string, v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Entity: entity, Violations: v}
}

// ProtectedError rejects the delete of a row still referenced by dependents.
type ProtectedError struct {
	Entity    string
	ID        uint
	Dependent string
	Count     int64
}

func (e *ProtectedError) Error() string {
	return fmt.Sprintf("cannot delete %s %d: referenced by %d %s", e.Entity, e.ID, e.Count, e.Dependent)
}

func (e *ProtectedError) Is(target error) bool { return target == ErrProtected }

// ZeroUsersError names the service whose total user count is zero.
type ZeroUsersError struct {
	ServiceID   uint
	ServiceName string
}

func (e *ZeroUsersError) Error() string {
	return fmt.Sprintf("end-user service %q (%d) has a total user count of 0", e.ServiceName, e.ServiceID)
}

func (e *ZeroUsersError) Unwrap() error { return ErrDivisionByZero }
