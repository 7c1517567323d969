/*
errors.go - Centralized error types for the sick-day engine

PURPOSE:
  All engine error types in one place for consistency and discoverability.
  Callers (HTTP handlers, poll driver) match with errors.Is.

ERROR CATEGORIES:
  1. NotFound errors - unresolved person, empty mapping, no active record.
     These reject the operation with no partial mutation.
  2. Control failures - a single automation's state query or on/off command
     failing. These are recorded per automation inside the operation result
     and NEVER abort the whole operation.
  3. Store failures - the state document could not be written. Corrupt or
     missing documents on load are handled inside the store (empty document),
     so they never surface here.

SEE ALSO:
  - engine.go: Returns these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package sickday

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPersonNotFound is returned when a person reference (ID or display
	// name) cannot be resolved against the mapping.
	ErrPersonNotFound = errors.New("person not found")

	// ErrNoAutomationsMapped is returned when activating a person whose
	// mapping entry is absent or empty. Nothing is mutated.
	ErrNoAutomationsMapped = errors.New("no automations mapped")

	// ErrNoActiveSickDay is returned when cancelling or extending a person
	// with no active record.
	ErrNoActiveSickDay = errors.New("no active sick day")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PersonNotFoundError reports an unresolvable person reference.
type PersonNotFoundError struct {
	Ref string
}

func (e *PersonNotFoundError) Error() string {
	return fmt.Sprintf("person not found: %q", e.Ref)
}

func (e *PersonNotFoundError) Unwrap() error { return ErrPersonNotFound }

// NoAutomationsError reports an activation against an empty mapping entry.
type NoAutomationsError struct {
	Person PersonID
}

func (e *NoAutomationsError) Error() string {
	return fmt.Sprintf("no automations mapped for %s", e.Person)
}

func (e *NoAutomationsError) Unwrap() error { return ErrNoAutomationsMapped }

// NoActiveSickDayError reports a cancel/extend against an inactive person.
type NoActiveSickDayError struct {
	Person PersonID
}

func (e *NoActiveSickDayError) Error() string {
	return fmt.Sprintf("no active sick day for %s", e.Person)
}

func (e *NoActiveSickDayError) Unwrap() error { return ErrNoActiveSickDay }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error rejects the operation because its
// target doesn't exist (person, mapping entry, or active record).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPersonNotFound) ||
		errors.Is(err, ErrNoAutomationsMapped) ||
		errors.Is(err, ErrNoActiveSickDay)
}
