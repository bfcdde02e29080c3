package task

import (
	"time"

	"github.com/charmbracelet/log"
)

// Terminator stops running tasks with escalating signals. Builds and tests
// fork compiler and worker children, so signals always target the entire
// process group: killing only the leader would orphan the rest.
type Terminator struct {
	store *Store
	probe *Probe
}

// NewTerminator creates a terminator.
func NewTerminator(store *Store, probe *Probe) *Terminator {
	return &Terminator{store: store, probe: probe}
}

// killPoll is how often the terminator re-checks the group during the grace
// period.
const killPoll = 100 * time.Millisecond

// Stop terminates a task's process group and updates its record.
//
// The record is probe-refreshed first; a NotRunningError is returned if it
// is not actually running. Otherwise the group receives the graceful signal,
// gets up to timeout to exit, and any survivors receive the forceful kill.
// The record transitions to StatusKilled with the captured exit code, or -1
// when none was recorded.
//
// Parameters:
//   - rec: The record to stop.
//   - timeout: How long to wait between the graceful and forceful signals.
//
// Returns:
//   - Record: The killed record.
//   - error: NotRunningError, or any signalling/store error.
func (t *Terminator) Stop(rec Record, timeout time.Duration) (Record, error) {
	rec, err := t.probe.Refresh(rec)
	if err != nil {
		return rec, err
	}
	if rec.Status != StatusRunning {
		return rec, &NotRunningError{Kind: rec.Kind, Status: rec.Status}
	}

	log.Debug("Stopping task group", "id", rec.ID, "pid", rec.PID, "timeout", timeout)
	if err := signalGroup(rec.PID, terminateSignal); err != nil {
		// Group already gone between refresh and signal; settle below.
		log.Debug("Process group already exited", "pid", rec.PID)
	}

	deadline := time.Now().Add(timeout)
	for groupAlive(rec.PID) && time.Now().Before(deadline) {
		time.Sleep(killPoll)
	}

	if groupAlive(rec.PID) {
		log.Warn("Group did not exit after graceful signal, escalating", "pid", rec.PID)
		_ = signalGroup(rec.PID, killSignal)
		// Give the kernel a moment to tear the group down.
		for i := 0; i < 10 && groupAlive(rec.PID); i++ {
			time.Sleep(killPoll)
		}
	}

	code := -1
	if c, ok := readExitStatus(rec.ExitPath); ok {
		code = c
	}
	rec.Status = StatusKilled
	rec.ExitCode = &code
	now := time.Now().UTC()
	rec.EndedAt = &now
	if err := t.store.Put(rec); err != nil {
		return rec, err
	}
	return rec, nil
}
