package main

import (
	"errors"

	"github.com/te-tools/tectl/internal/task"
)

// Exit codes are part of the scripting contract and must stay stable across
// releases.
const (
	// exitOK: the operation succeeded.
	exitOK = 0

	// exitFailure: the operation itself failed (spawn error, I/O error).
	exitFailure = 1

	// exitConflict: a conflicting task is running, or the current record
	// is unresolved; nothing was changed.
	exitConflict = 2

	// exitNotFound: no such task, or the task is not running.
	exitNotFound = 3

	// exitMissingDep: the environment precheck failed; nothing launched.
	exitMissingDep = 4
)

// exitCodeFor maps an error from the task layer to the exit-code taxonomy.
func exitCodeFor(err error) int {
	var (
		conflict   *task.ConflictError
		stale      *task.StaleRecordError
		notFound   *task.NotFoundError
		notRunning *task.NotRunningError
		missing    *task.MissingDependencyError
	)
	switch {
	case errors.As(err, &conflict), errors.As(err, &stale):
		return exitConflict
	case errors.As(err, &notFound), errors.As(err, &notRunning):
		return exitNotFound
	case errors.As(err, &missing):
		return exitMissingDep
	}
	return exitFailure
}
