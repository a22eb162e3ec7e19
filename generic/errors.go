/*
errors.go - Centralized error types for the analysis engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Source errors - upstream fetch/store failures (abort the whole run)
  2. Request errors - invalid project, series or version selection
  3. Range errors - malformed schedule dates

WHAT IS NOT AN ERROR:
  - An unresolvable parent link (the item becomes a root)
  - Missing or non-numeric monetary fields (read as 0)
  - Zero denominators (the computation yields 0)

USAGE:
    if generic.IsNotFound(err) {
        writeError(w, http.StatusNotFound, ...)
    }

SEE ALSO:
  - store.go: Source interface returning these errors
  - api/handlers.go: maps these errors to HTTP status codes
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
	// ErrProjectNotFound is returned when no record matches a project/version.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidVersion is returned for negative or unknown version numbers.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrInvalidSeries is returned when a series name is neither contract nor cost.
	ErrInvalidSeries = errors.New("invalid series")

	// ErrInvalidRange is returned when a schedule range is malformed.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidCoefficient is returned when coefK is not a positive number.
	ErrInvalidCoefficient = errors.New("invalid coefficient")

	// ErrSourceUnavailable is returned when the upstream store cannot be read.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SourceError wraps an upstream failure with the operation and project that
// triggered it. The engine never retries; the caller decides.
type SourceError struct {
	Op      string
	Project string
	Err     error
}

func (e *SourceError) Error() string {
	if e.Project == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s (project %s): %v", e.Op, e.Project, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// WrapSource is a shorthand for returning *SourceError, passing nil through.
func WrapSource(op, project string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Op: op, Project: project, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidVersion) ||
		errors.Is(err, ErrInvalidSeries) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidCoefficient)
}

// IsNotFound returns true if the error indicates a missing project.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound)
}
