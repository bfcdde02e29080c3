package task

import (
	"errors"
	"fmt"
)

// ConflictError is returned by the launcher when a task of a conflicting
// kind is already running. Recoverable: the user should stop it or wait.
type ConflictError struct {
	// Kind is the kind that was requested.
	Kind Kind

	// Running is the record of the task blocking the launch.
	Running Record
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("a %s task is already running (pid %d, started %s)",
		e.Running.Kind, e.Running.PID, e.Running.StartedAt.Format("15:04:05"))
}

// SpawnError is returned when the OS refuses to create the process.
// Fatal for the invocation; the underlying cause is surfaced verbatim.
type SpawnError struct {
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s task: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying OS error.
func (e *SpawnError) Unwrap() error { return e.Err }

// NotRunningError is returned when stop or tail is requested for a task that
// is not running. Recoverable, informational.
type NotRunningError struct {
	Kind   Kind
	Status Status
}

// Error implements the error interface.
func (e *NotRunningError) Error() string {
	return fmt.Sprintf("no running %s task (status: %s)", e.Kind, e.Status)
}

// NotFoundError is returned by the store when no record exists for an id,
// and by the supervisor when a kind has no current record.
type NotFoundError struct {
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no task record found for %q", e.ID)
}

// MissingDependencyError is returned by the environment precheck when a tool
// the command needs is absent. A failing precheck blocks the launch and never
// creates a record.
type MissingDependencyError struct {
	// Tool is the missing executable or path.
	Tool string

	// Required describes the required version, if any.
	Required string
}

// Error implements the error interface.
func (e *MissingDependencyError) Error() string {
	if e.Required != "" {
		return fmt.Sprintf("missing dependency: %s (need %s)", e.Tool, e.Required)
	}
	return fmt.Sprintf("missing dependency: %s", e.Tool)
}

// StaleRecordError is returned alongside an unknown-status record when
// liveness could not be proven. Recoverable: surfaced as a warning requiring
// operator reconciliation, never silently resolved to success or failure.
type StaleRecordError struct {
	Record Record
}

// Error implements the error interface.
func (e *StaleRecordError) Error() string {
	return fmt.Sprintf("cannot verify %s task (pid %d gone or recycled); resolve with 'tectl resolve %s'",
		e.Record.Kind, e.Record.PID, e.Record.Kind)
}

// UnsupportedKindError is returned for task kinds the command builder does
// not recognize.
type UnsupportedKindError struct {
	Kind Kind
}

// Error implements the error interface.
func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported task kind: %q", e.Kind)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
