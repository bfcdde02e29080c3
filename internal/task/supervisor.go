package task

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// CommandSource maps a task kind to the concrete command to execute. It is a
// pure lookup with no side effects.
type CommandSource interface {
	// Command returns the argument vector and working directory for a
	// kind, or an UnsupportedKindError.
	Command(kind Kind) (argv []string, workDir string, err error)
}

// Prechecker validates the environment before a launch. A failing precheck
// must prevent spawning entirely: no process, no record.
type Prechecker interface {
	// Precheck returns nil if the environment can run the kind, or a
	// MissingDependencyError describing what is absent.
	Precheck(kind Kind) error
}

// Supervisor is the task orchestrator: it translates user intents into
// launches, owns the single-active-task-per-kind invariant, and drives the
// launcher, probe, and terminator. Every CLI invocation builds a fresh
// Supervisor; no state is cached across calls, everything is re-read from
// the store.
type Supervisor struct {
	store      *Store
	probe      *Probe
	launcher   *Launcher
	terminator *Terminator
	commands   CommandSource
	precheck   Prechecker
}

// NewSupervisor wires a supervisor over a store and its collaborators.
//
// Parameters:
//   - store: The task record store.
//   - commands: The command builder for task kinds.
//   - precheck: The environment prechecker.
//
// Returns:
//   - *Supervisor: The supervisor.
func NewSupervisor(store *Store, commands CommandSource, precheck Prechecker) *Supervisor {
	probe := NewProbe(store)
	return &Supervisor{
		store:      store,
		probe:      probe,
		launcher:   NewLauncher(store, probe),
		terminator: NewTerminator(store, probe),
		commands:   commands,
		precheck:   precheck,
	}
}

// Store exposes the underlying record store for cleanup operations.
func (s *Supervisor) Store() *Store { return s.store }

// Start launches a task of the given kind in the background.
//
// Order matters: the precheck runs before anything is spawned or recorded,
// and the launcher re-verifies conflicts with a fresh probe so a stale
// running status never blocks (or permits) a launch incorrectly.
//
// Parameters:
//   - kind: The task kind to start.
//
// Returns:
//   - Record: The running record.
//   - error: MissingDependencyError, UnsupportedKindError, ConflictError,
//     StaleRecordError, or SpawnError.
func (s *Supervisor) Start(kind Kind) (Record, error) {
	if err := s.precheck.Precheck(kind); err != nil {
		return Record{}, err
	}
	argv, workDir, err := s.commands.Command(kind)
	if err != nil {
		return Record{}, err
	}
	log.Debug("Starting task", "kind", kind, "dir", workDir)
	return s.launcher.Launch(kind, argv, workDir)
}

// List returns all records, newest first, each refreshed against the OS.
func (s *Supervisor) List() ([]Record, error) {
	records, err := s.store.List()
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		refreshed, err := s.probe.Refresh(rec)
		if err != nil {
			return nil, err
		}
		records[i] = refreshed
	}
	return records, nil
}

// Current returns the refreshed current record for a kind.
//
// Parameters:
//   - kind: The task kind.
//
// Returns:
//   - Record: The kind's current record, probe-refreshed.
//   - error: NotFoundError if the kind has never been launched (or was
//     cleaned).
func (s *Supervisor) Current(kind Kind) (Record, error) {
	rec, err := s.store.FindKind(kind)
	if err != nil {
		return Record{}, err
	}
	return s.probe.Refresh(rec)
}

// Stop terminates the current task of a kind with graceful-then-forceful
// escalation.
//
// Parameters:
//   - kind: The task kind to stop.
//   - timeout: Grace period before the forceful kill.
//
// Returns:
//   - Record: The killed record.
//   - error: NotFoundError or NotRunningError.
func (s *Supervisor) Stop(kind Kind, timeout time.Duration) (Record, error) {
	rec, err := s.store.FindKind(kind)
	if err != nil {
		return Record{}, err
	}
	return s.terminator.Stop(rec, timeout)
}

// Resolve reconciles an unknown record to a terminal status. This is the
// operator's escape hatch when liveness could not be proven: the probe never
// guesses, so somebody who looked at the log gets to decide.
//
// Parameters:
//   - kind: The task kind to resolve.
//   - target: StatusCompleted, StatusFailed, or StatusKilled.
//
// Returns:
//   - Record: The resolved record.
//   - error: NotFoundError, or an error if the record is not unknown or the
//     target is not terminal.
func (s *Supervisor) Resolve(kind Kind, target Status) (Record, error) {
	if !target.Terminal() {
		return Record{}, fmt.Errorf("cannot resolve to non-terminal status %q", target)
	}
	rec, err := s.store.FindKind(kind)
	if err != nil {
		return Record{}, err
	}
	rec, err = s.probe.Refresh(rec)
	if err != nil {
		return rec, err
	}
	if rec.Status != StatusUnknown {
		return rec, fmt.Errorf("%s task is %s, only unknown tasks can be resolved", kind, rec.Status)
	}

	rec.Status = target
	if rec.ExitCode == nil {
		code := map[Status]int{StatusCompleted: 0, StatusFailed: 1, StatusKilled: -1}[target]
		rec.ExitCode = &code
	}
	if rec.EndedAt == nil {
		now := time.Now().UTC()
		rec.EndedAt = &now
	}
	if err := s.store.Put(rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// InferOutcome inspects the tail of a record's log for the completion
// markers the build scripts print, giving 'tectl resolve' a suggestion when
// the operator does not pass one explicitly.
//
// Parameters:
//   - rec: The record whose log to inspect.
//
// Returns:
//   - Status: The inferred terminal status.
//   - bool: False if the log is inconclusive.
func (s *Supervisor) InferOutcome(rec Record) (Status, bool) {
	f, err := os.Open(rec.LogPath)
	if err != nil {
		return "", false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", false
	}
	const window = 4096
	offset := info.Size() - window
	if offset < 0 {
		offset = 0
	}
	buf := make([]byte, info.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return "", false
	}

	tail := string(buf)
	switch {
	case strings.Contains(tail, "Completed (Duration:"):
		return StatusCompleted, true
	case strings.Contains(tail, "Build Failed") || strings.Contains(tail, "build failed"):
		return StatusFailed, true
	}
	return "", false
}
