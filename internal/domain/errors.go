package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Closed error set shared by every service. Handlers map these to HTTP codes;
// services never surface anything else across a module boundary except a
// wrapped DependencyError.

var (
	// ErrNotFound means the entity id is unknown.
	ErrNotFound = errors.New("entity not found")

	// ErrConflictingWrite means an optimistic version check lost; the caller
	// may retry the whole operation.
	ErrConflictingWrite = errors.New("conflicting write")

	// ErrCancelled means the caller aborted via context.
	ErrCancelled = errors.New("operation cancelled")
)

// IllegalTransitionError is returned when the state machine kernel refuses a
// transition.
type IllegalTransitionError struct {
	From string
	To   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition from %q to %q", e.From, e.To)
}

// ConstraintViolationError covers uniqueness, non-empty, range and
// role-compatibility failures.
type ConstraintViolationError struct {
	Field  string
	Reason string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint violation on %s: %s", e.Field, e.Reason)
}

// CannotProceedError is returned when an allocation is blocked by conflicts.
type CannotProceedError struct {
	Reasons []string
}

func (e *CannotProceedError) Error() string {
	return "cannot proceed: " + strings.Join(e.Reasons, ", ")
}

// DependencyError wraps a downstream store or sink failure unchanged.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency failure in %s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }
