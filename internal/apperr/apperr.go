// Package apperr defines the error taxonomy raised by the pipeline
// orchestrator. The HTTP layer maps each type to exactly one status
// code; nothing below the orchestrator returns these.
package apperr

// ValidationError reports a malformed identifier or a missing required
// field, detected before any state is touched.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports that a referenced job, application or profile
// does not exist.
type NotFoundError struct{ Msg string }

func (e *NotFoundError) Error() string { return e.Msg }

// ConflictError reports a duplicate application or a concurrent-write
// collision surfaced by the repository. Conflicts are retryable.
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

// InvalidColumnError reports an unrecognised pipeline column name.
type InvalidColumnError struct{ Msg string }

func (e *InvalidColumnError) Error() string { return e.Msg }

// InvalidOperationError reports a drag-and-drop move the lifecycle graph
// disallows. Reason is the state machine's human-readable denial.
type InvalidOperationError struct{ Reason string }

func (e *InvalidOperationError) Error() string { return e.Reason }
