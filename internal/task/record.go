// Package task implements supervision of detached build and test
// subprocesses across independent CLI invocations.
//
// There is no long-lived daemon: every invocation is short-lived, and all
// coordination happens through durable on-disk task records. The package
// provides the record store, the process launcher, the liveness probe, the
// terminator, and the Supervisor that ties them together.
package task

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of a launched task.
type Status string

const (
	// StatusRunning indicates the task's process is believed to be alive.
	StatusRunning Status = "running"

	// StatusCompleted indicates the process exited with code 0.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the process exited with a nonzero code.
	StatusFailed Status = "failed"

	// StatusKilled indicates the process was stopped by the terminator.
	StatusKilled Status = "killed"

	// StatusUnknown indicates liveness could not be proven: the recorded
	// pid is gone (or recycled by an unrelated process) and no exit status
	// was captured. Requires operator reconciliation.
	StatusUnknown Status = "unknown"
)

// Terminal returns true if the status indicates the task has ended.
// StatusUnknown is not terminal: it is a recoverable side-state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusKilled:
		return true
	}
	return false
}

// Kind is a fixed category of long-running operation: one specific build
// variant or test suite. At most one task per kind may be running at a time.
type Kind string

const (
	KindBuildPythonIncremental Kind = "build-python-incremental"
	KindBuildPythonClean       Kind = "build-python-clean"
	KindBuildCppTests          Kind = "build-cpp-tests"
	KindRebuild                Kind = "rebuild"
	KindBuildAll               Kind = "build-all"
	KindTestL0Cpp              Kind = "test-l0-cpp"
	KindTestL0PyTorch          Kind = "test-l0-pytorch"
	KindTestL1Distributed      Kind = "test-l1-distributed"
)

// Kinds lists all supported task kinds in display order.
func Kinds() []Kind {
	return []Kind{
		KindBuildPythonIncremental,
		KindBuildPythonClean,
		KindBuildCppTests,
		KindRebuild,
		KindBuildAll,
		KindTestL0Cpp,
		KindTestL0PyTorch,
		KindTestL1Distributed,
	}
}

// ParseKind converts a string to a known Kind.
//
// Parameters:
//   - s: The kind name as stored or typed by the user.
//
// Returns:
//   - Kind: The matching kind.
//   - error: An UnsupportedKindError if the name is not recognized.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &UnsupportedKindError{Kind: Kind(s)}
}

// ConflictsWith reports whether launching kind k must be blocked while a task
// of kind other is running. A kind always conflicts with itself. Beyond that,
// kinds that drive the same build tree conflict as a family: both Python
// build variants share one pip invocation and one source tree, and the
// rebuild/full-build kinds subsume the Python and C++ builds.
func (k Kind) ConflictsWith(other Kind) bool {
	if k == other {
		return true
	}
	return k.family() != "" && k.family() == other.family()
}

// family groups kinds that contend for the same build tree. Test kinds have
// no family: distinct suites run concurrently.
func (k Kind) family() string {
	switch k {
	case KindBuildPythonIncremental, KindBuildPythonClean, KindRebuild, KindBuildAll:
		return "build-python"
	case KindBuildCppTests:
		return "build-cpp"
	}
	return ""
}

// IsBuild returns true for build kinds (as opposed to test-suite kinds).
func (k Kind) IsBuild() bool {
	return k.family() != ""
}

// Record is the durable metadata for one launched task instance.
//
// A record is created by the launcher, mutated by the probe and the
// terminator (always through the store, never in place on disk), and removed
// only by an explicit cleanup. The pid is meaningful only while Status is
// StatusRunning; afterwards the OS may have recycled it, which is why
// StartSignature must corroborate the pid before it is trusted.
type Record struct {
	// ID is the stable, unique task identifier. Never reused.
	ID string `json:"id"`

	// Kind is the task category.
	Kind Kind `json:"kind"`

	// Command is the exact argument vector that was executed.
	Command []string `json:"command"`

	// PID is the process id of the detached group leader.
	PID int `json:"pid"`

	// StartSignature is the leader's start time as reported by the OS at
	// spawn. A later probe requires it to match before trusting PID.
	StartSignature string `json:"start_signature"`

	// LogPath is the absolute path of the combined stdout/stderr log.
	LogPath string `json:"log_path"`

	// ExitPath is the file the detached wrapper writes its exit status to.
	ExitPath string `json:"exit_path"`

	// WorkDir is the directory the command executed in.
	WorkDir string `json:"work_dir"`

	// StartedAt is the record creation time.
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when the task reached a terminal status. Nil while the
	// task is running or unknown.
	EndedAt *time.Time `json:"ended_at,omitempty"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// ExitCode is populated once Status leaves StatusRunning. It is nil
	// while running and may be nil for StatusUnknown. The terminator uses
	// -1 when the real code could not be captured.
	ExitCode *int `json:"exit_code,omitempty"`
}

// Elapsed returns how long the task has been (or was) running. For ended
// tasks the duration is fixed at EndedAt; it does not keep growing with now.
func (r Record) Elapsed(now time.Time) time.Duration {
	end := now
	if r.EndedAt != nil {
		end = *r.EndedAt
	}
	return end.Sub(r.StartedAt).Truncate(time.Second)
}

// String returns a short human-readable summary, used in debug logs.
func (r Record) String() string {
	return fmt.Sprintf("%s [%s] pid=%d status=%s", r.ID, r.Kind, r.PID, r.Status)
}
