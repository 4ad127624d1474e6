/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages return these (or wrap them) so the HTTP layer can map
  every failure to a status code without knowing domain details.

ERROR CATEGORIES:
  1. NotFound      - Referenced worker/payment/benchmark/bonus does not exist
  2. InvalidState  - Operation not allowed in the record's current state
  3. Validation    - Malformed amount/date/id input, rejected at the boundary
  4. Store errors  - Database-level failures (wrapped with %w, not classified)

USAGE:
  if errors.Is(err, generic.ErrInvalidState) {
      // 409, caller must change state before retrying
  }

  var nf *generic.NotFoundError
  if errors.As(err, &nf) {
      log.Printf("missing %s %s", nf.Kind, nf.ID)
  }

SEE ALSO:
  - api/handlers.go: writeDomainError maps these to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation is not allowed in the
	// record's current state (approving a paid payment, paying nothing).
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the kind and ID of the missing record.
type NotFoundError struct {
	Kind string // "worker", "payment", "benchmark", "bonus", "entry"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// InvalidStateError describes a rejected state transition.
type InvalidStateError struct {
	Op     string // operation attempted, e.g. "approve"
	State  string // current state of the record
	Reason string
}

func (e *InvalidStateError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("cannot %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("cannot %s in state %q: %s", e.Op, e.State, e.Reason)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// InvalidState builds an InvalidStateError.
func InvalidState(op, state, reason string) error {
	return &InvalidStateError{Op: op, State: state, Reason: reason}
}

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidState returns true if the error is a rejected transition.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsClientError returns true if the error is due to invalid client input
// or state, i.e. retrying without changes will fail again.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrValidation)
}
