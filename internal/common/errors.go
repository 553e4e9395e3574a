// Package common defines shared constants and sentinel errors used across
// the store layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks input the caller must fix before retrying
	// (typically a missing owner id).
	ErrValidation = errors.New("validation error")

	// ErrConstraintConflict marks a unique-constraint violation on write.
	// Where a repair path exists it is handled internally; otherwise it
	// propagates to the caller.
	ErrConstraintConflict = errors.New("constraint conflict")

	// ErrMigration marks a single failed migration step. Steps are logged
	// and skipped rather than aborting schema initialization.
	ErrMigration = errors.New("migration error")

	// ErrStoreClosed is returned when an operation is attempted after
	// Close and before reinitialization.
	ErrStoreClosed = errors.New("store is closed")
)
