package task

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Probe re-evaluates the liveness of running task records. It may be invoked
// by any CLI invocation at any time and is safe to call redundantly: records
// not in StatusRunning are returned unchanged.
type Probe struct {
	store *Store
}

// NewProbe creates a probe writing status transitions through the store.
func NewProbe(store *Store) *Probe {
	return &Probe{store: store}
}

// Refresh re-evaluates a record against the OS and persists any status
// transition.
//
// A pid alone proves nothing: the OS may have recycled it for an unrelated
// process after ours exited. The probe therefore trusts StatusRunning only
// when the pid is alive AND its start time matches the signature captured at
// spawn. A dead or unverifiable pid is settled from the exit sidecar file
// the launch wrapper writes; if that file is absent too, the record becomes
// StatusUnknown rather than silently reporting success or failure.
//
// Parameters:
//   - rec: The record to refresh.
//
// Returns:
//   - Record: The up-to-date record (possibly transitioned).
//   - error: Any store error persisting a transition.
func (p *Probe) Refresh(rec Record) (Record, error) {
	if rec.Status != StatusRunning {
		return rec, nil
	}

	if processAlive(rec.PID) && !processIsZombie(rec.PID) {
		sig, err := processStartTime(rec.PID)
		if err == nil && rec.StartSignature != "" && sig == rec.StartSignature {
			return rec, nil
		}
		// Alive pid that is not provably ours. Either the pid was
		// recycled, or we never captured a signature. The exit file is
		// the tiebreaker.
		log.Debug("Start signature mismatch", "id", rec.ID, "pid", rec.PID,
			"recorded", rec.StartSignature, "observed", sig)
	}

	if code, ok := readExitStatus(rec.ExitPath); ok {
		return p.settle(rec, code)
	}

	// No live process and no captured exit status: the record is stale or
	// the pid was recycled. Conservatively unknown; the operator resolves
	// it via reconciliation.
	rec.Status = StatusUnknown
	if err := p.store.Put(rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// settle transitions a record to completed or failed based on the captured
// exit code and persists it.
func (p *Probe) settle(rec Record, code int) (Record, error) {
	rec.ExitCode = &code
	if code == 0 {
		rec.Status = StatusCompleted
	} else {
		rec.Status = StatusFailed
	}
	now := time.Now().UTC()
	rec.EndedAt = &now
	if err := p.store.Put(rec); err != nil {
		return rec, err
	}
	log.Debug("Task settled", "id", rec.ID, "status", rec.Status, "exit_code", code)
	return rec, nil
}

// readExitStatus reads the exit sidecar file written by the launch wrapper.
//
// Parameters:
//   - path: The sidecar file path.
//
// Returns:
//   - int: The recorded exit code.
//   - bool: False if the file does not exist or holds no parseable code.
func readExitStatus(path string) (int, bool) {
	if path == "" {
		return 0, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	code, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return code, true
}
