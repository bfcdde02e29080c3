package task

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
)

// Launcher spawns detached task processes and creates their records.
type Launcher struct {
	store *Store
	probe *Probe
}

// NewLauncher creates a launcher writing records through the given store and
// re-verifying conflicts through the given probe.
func NewLauncher(store *Store, probe *Probe) *Launcher {
	return &Launcher{store: store, probe: probe}
}

// newTaskID builds a unique task id from the kind, the creation time, and a
// short random suffix. IDs are never reused; the suffix keeps two launches in
// the same second distinct.
func newTaskID(kind Kind) string {
	return fmt.Sprintf("%s-%s-%s",
		kind,
		time.Now().UTC().Format("20060102-150405"),
		uuid.NewString()[:8])
}

// lockWait bounds how long a launch waits for a concurrent launch of the
// same family to finish its check-spawn-persist window.
const lockWait = 2 * time.Second

// lockPoll is the retry interval while the lock is held.
const lockPoll = 50 * time.Millisecond

// lockStale is the age past which a leftover lock file is treated as debris
// from a crashed invocation. The guarded window is milliseconds.
const lockStale = 30 * time.Second

// lockPath returns the launch lock file for a kind. Kinds in the same
// conflict family share one lock so family conflicts serialize too.
func (l *Launcher) lockPath(kind Kind) string {
	name := kind.family()
	if name == "" {
		name = string(kind)
	}
	return filepath.Join(l.store.Dir(), ".launch-"+name+".lock")
}

// acquireLaunchLock serializes the conflict check against the record write.
// Without it two simultaneous launches of the same kind both pass the check
// and both persist running records. O_EXCL creation in the shared state dir
// is the mutual exclusion; the winner's record lands before the loser gets
// to re-check, so the loser sees a proper ConflictError.
//
// Returns:
//   - func(): Releases the lock. Never nil on success.
//   - error: ConflictError if the wait expired and a conflicting task is now
//     running, or a filesystem error.
func (l *Launcher) acquireLaunchLock(kind Kind) (func(), error) {
	path := l.lockPath(kind)
	deadline := time.Now().Add(lockWait)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create launch lock: %w", err)
		}
		if info, serr := os.Stat(path); serr == nil && time.Since(info.ModTime()) > lockStale {
			log.Warn("Removing stale launch lock", "path", path, "age", time.Since(info.ModTime()))
			os.Remove(path)
			continue
		}
		if time.Now().After(deadline) {
			// Whoever held the lock has almost certainly persisted their
			// record by now; surface that as the conflict it is.
			if _, cerr := l.checkConflicts(kind); cerr != nil {
				return nil, cerr
			}
			return nil, fmt.Errorf("another %s launch is in progress", kind)
		}
		time.Sleep(lockPoll)
	}
}

// Launch starts a detached process for the given command and persists a
// running record before returning. The call is non-blocking: it returns as
// soon as the child is known to have started.
//
// The child runs in its own session so it survives this CLI invocation
// exiting, and its combined stdout/stderr goes to a fresh per-task log file.
// Because a detached child is reparented to init once we exit, no later
// invocation can wait(2) on it; the command is therefore wrapped in a shell
// that records the exit status to a sidecar file the probe reads back.
//
// Parameters:
//   - kind: The task kind to launch.
//   - argv: The exact argument vector to execute.
//   - workDir: The directory to execute in.
//
// Returns:
//   - Record: The persisted running record.
//   - error: ConflictError if a conflicting task is still running,
//     StaleRecordError if the kind's current record is unresolved,
//     SpawnError if the OS refused to create the process.
func (l *Launcher) Launch(kind Kind, argv []string, workDir string) (Record, error) {
	if len(argv) == 0 {
		return Record{}, &SpawnError{Kind: kind, Err: fmt.Errorf("empty command")}
	}

	release, err := l.acquireLaunchLock(kind)
	if err != nil {
		return Record{}, err
	}
	defer release()

	prior, err := l.checkConflicts(kind)
	if err != nil {
		return Record{}, err
	}

	id := newTaskID(kind)
	logPath := filepath.Join(l.store.Dir(), id+".log")
	exitPath := filepath.Join(l.store.Dir(), id+".exit")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Record{}, &SpawnError{Kind: kind, Err: fmt.Errorf("failed to create log file: %w", err)}
	}
	defer logFile.Close()

	script := fmt.Sprintf("%s; status=$?; echo $status > %s; exit $status",
		shellquote.Join(argv...), shellquote.Join(exitPath))

	cmd := exec.Command("/bin/sh", "-c", script)
	cmd.Dir = workDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setDetached(cmd)

	if err := cmd.Start(); err != nil {
		os.Remove(logPath)
		return Record{}, &SpawnError{Kind: kind, Err: err}
	}

	pid := cmd.Process.Pid
	signature, err := processStartTime(pid)
	if err != nil {
		// The child may already have exited; the probe will settle the
		// record from the exit file.
		log.Debug("Could not capture start signature", "pid", pid, "error", err)
		signature = ""
	}

	// Reap the child if it exits while this invocation is still alive;
	// once we exit, init adopts and reaps it instead.
	go func() { _ = cmd.Wait() }()

	rec := Record{
		ID:             id,
		Kind:           kind,
		Command:        argv,
		PID:            pid,
		StartSignature: signature,
		LogPath:        logPath,
		ExitPath:       exitPath,
		WorkDir:        workDir,
		StartedAt:      time.Now().UTC(),
		Status:         StatusRunning,
	}
	if err := l.store.Put(rec); err != nil {
		// The process is already running; kill the group rather than
		// leak an untracked task.
		_ = signalGroup(pid, killSignal)
		return Record{}, fmt.Errorf("failed to persist task record: %w", err)
	}

	l.supersede(kind, id, prior)

	log.Debug("Launched task", "id", id, "pid", pid, "log", logPath)
	return rec, nil
}

// checkConflicts re-verifies liveness of every record that conflicts with
// kind. Stale running statuses are not trusted: each candidate goes through
// a fresh probe refresh first. Returns the ids of superseded same-kind
// records so Launch can prune them once the new record has landed.
func (l *Launcher) checkConflicts(kind Kind) ([]string, error) {
	records, err := l.store.List()
	if err != nil {
		return nil, err
	}

	var prior []string
	for _, rec := range records {
		if !kind.ConflictsWith(rec.Kind) {
			continue
		}
		if rec.Status == StatusRunning {
			refreshed, err := l.probe.Refresh(rec)
			if err != nil {
				return nil, err
			}
			rec = refreshed
		}
		switch rec.Status {
		case StatusRunning:
			return nil, &ConflictError{Kind: kind, Running: rec}
		case StatusUnknown:
			// Launching over an unresolved record would silently
			// bury it; make the operator decide first.
			return nil, &StaleRecordError{Record: rec}
		}
		if rec.Kind == kind {
			prior = append(prior, rec.ID)
		}
	}
	return prior, nil
}

// supersede deletes the previous terminal records of the same kind, keeping
// exactly one current record per kind. Their log files stay on disk for
// postmortem inspection until 'tectl clean --logs'.
func (l *Launcher) supersede(kind Kind, newID string, prior []string) {
	for _, id := range prior {
		if id == newID {
			continue
		}
		if err := l.store.Delete(id); err != nil {
			log.Warn("Failed to prune superseded record", "id", id, "error", err)
		}
	}
}
