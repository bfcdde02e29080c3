//go:build !windows

package task

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// stubCommands serves a fixed script for every kind.
type stubCommands struct {
	script  string
	workDir string
}

func (s stubCommands) Command(kind Kind) ([]string, string, error) {
	return []string{"/bin/sh", "-c", s.script}, s.workDir, nil
}

// stubChecker returns a fixed precheck result.
type stubChecker struct {
	err error
}

func (s stubChecker) Precheck(kind Kind) error { return s.err }

func newTestSupervisor(t *testing.T, store *Store, script string) *Supervisor {
	t.Helper()
	return NewSupervisor(store, stubCommands{script: script, workDir: t.TempDir()}, stubChecker{})
}

func cleanupKind(t *testing.T, sup *Supervisor, kind Kind) {
	t.Helper()
	t.Cleanup(func() {
		if rec, err := sup.Store().FindKind(kind); err == nil {
			_ = signalGroup(rec.PID, killSignal)
		}
	})
}

// A launch must be observable as running, with matching command and an
// existing log file, from a second store over the same directory — the
// moral equivalent of a different CLI invocation.
func TestStartVisibleFromOtherProcess(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	sup := newTestSupervisor(t, store, "sleep 10")
	cleanupKind(t, sup, KindBuildCppTests)

	rec, err := sup.Start(KindBuildCppTests)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if rec.Status != StatusRunning {
		t.Fatalf("Start() status = %s, want running", rec.Status)
	}

	other, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	seen, err := other.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get() from second store error: %v", err)
	}
	if seen.Status != StatusRunning {
		t.Fatalf("second store sees status %s, want running", seen.Status)
	}
	if len(seen.Command) != 3 || seen.Command[2] != "sleep 10" {
		t.Fatalf("second store sees command %v", seen.Command)
	}
	if _, err := os.Stat(seen.LogPath); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
}

// Spec scenario: a second launch of the same kind conflicts; a different
// kind launches concurrently.
func TestStartConflictSameKindOnly(t *testing.T) {
	store := newTestStore(t)
	sup := newTestSupervisor(t, store, "sleep 10")
	cleanupKind(t, sup, KindBuildCppTests)
	cleanupKind(t, sup, KindTestL0Cpp)

	if _, err := sup.Start(KindBuildCppTests); err != nil {
		t.Fatalf("first Start() error: %v", err)
	}

	_, err := sup.Start(KindBuildCppTests)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("second Start() error = %v, want ConflictError", err)
	}

	if _, err := sup.Start(KindTestL0Cpp); err != nil {
		t.Fatalf("Start() of different kind error: %v", err)
	}
}

// Family conflicts: a clean Python build must not start while the
// incremental one runs.
func TestStartConflictAcrossFamily(t *testing.T) {
	store := newTestStore(t)
	sup := newTestSupervisor(t, store, "sleep 10")
	cleanupKind(t, sup, KindBuildPythonIncremental)

	if _, err := sup.Start(KindBuildPythonIncremental); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	_, err := sup.Start(KindBuildPythonClean)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("family Start() error = %v, want ConflictError", err)
	}
}

// A stale running record whose process is gone must not block a relaunch:
// the launcher re-probes before deciding. Here the prior task completed.
func TestStartSupersedesCompletedRecord(t *testing.T) {
	store := newTestStore(t)
	sup := newTestSupervisor(t, store, "exit 0")

	first, err := sup.Start(KindRebuild)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Let the task finish and settle it.
	waitForStatus(t, sup, KindRebuild, StatusCompleted)

	sup2 := newTestSupervisor(t, store, "sleep 10")
	cleanupKind(t, sup2, KindRebuild)
	second, err := sup2.Start(KindRebuild)
	if err != nil {
		t.Fatalf("relaunch Start() error: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("relaunch reused task id %s", first.ID)
	}

	// One current record per kind: the completed one is gone, its log stays.
	if _, err := store.Get(first.ID); !IsNotFound(err) {
		t.Fatalf("Get(superseded) error = %v, want NotFoundError", err)
	}
	if _, err := os.Stat(first.LogPath); err != nil {
		t.Fatalf("superseded log was removed: %v", err)
	}
}

func TestStartPrecheckFailureCreatesNothing(t *testing.T) {
	store := newTestStore(t)
	precheckErr := &MissingDependencyError{Tool: "cmake"}
	sup := NewSupervisor(store, stubCommands{script: "sleep 10"}, stubChecker{err: precheckErr})

	_, err := sup.Start(KindBuildCppTests)
	var missing *MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("Start() error = %v, want MissingDependencyError", err)
	}

	records, err := store.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("failed precheck still created %d record(s)", len(records))
	}
}

// A short-lived task probes to completed, and its exit code round-trips.
func TestCurrentSettlesFinishedTask(t *testing.T) {
	store := newTestStore(t)
	sup := newTestSupervisor(t, store, "exit 3")

	if _, err := sup.Start(KindTestL1Distributed); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	rec := waitForStatus(t, sup, KindTestL1Distributed, StatusFailed)
	if rec.ExitCode == nil || *rec.ExitCode != 3 {
		t.Fatalf("exit code = %v, want 3", rec.ExitCode)
	}
}

func TestResolveUnknownRecord(t *testing.T) {
	store := newTestStore(t)
	sup := newTestSupervisor(t, store, "true")

	rec := runningRecord("unk-1", deadPID(t), "gone", filepath.Join(t.TempDir(), "no.exit"))
	rec.Kind = KindBuildAll
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := sup.Resolve(KindBuildAll, StatusFailed)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("Resolve() status = %s, want failed", got.Status)
	}
	if got.ExitCode == nil || *got.ExitCode != 1 {
		t.Fatalf("Resolve() exit code = %v, want 1", got.ExitCode)
	}
}

func TestResolveRejectsRunningTask(t *testing.T) {
	store := newTestStore(t)
	sup := newTestSupervisor(t, store, "sleep 10")
	cleanupKind(t, sup, KindBuildPythonClean)

	if _, err := sup.Start(KindBuildPythonClean); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if _, err := sup.Resolve(KindBuildPythonClean, StatusCompleted); err == nil {
		t.Fatalf("Resolve() of a running task succeeded")
	}
}

func TestInferOutcomeFromLogMarkers(t *testing.T) {
	store := newTestStore(t)
	sup := newTestSupervisor(t, store, "true")

	logPath := filepath.Join(t.TempDir(), "done.log")
	content := "lots of output\nRebuild Completed (Duration: 412s)\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	rec := Record{ID: "io-1", LogPath: logPath}

	status, ok := sup.InferOutcome(rec)
	if !ok || status != StatusCompleted {
		t.Fatalf("InferOutcome() = %s, %v; want completed, true", status, ok)
	}

	if err := os.WriteFile(logPath, []byte("Python Build Failed\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	status, ok = sup.InferOutcome(rec)
	if !ok || status != StatusFailed {
		t.Fatalf("InferOutcome() = %s, %v; want failed, true", status, ok)
	}

	if err := os.WriteFile(logPath, []byte("still compiling...\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if _, ok := sup.InferOutcome(rec); ok {
		t.Fatalf("InferOutcome() decided on an inconclusive log")
	}
}

// waitForStatus polls Current until the kind reaches the wanted status.
func waitForStatus(t *testing.T, sup *Supervisor, kind Kind, want Status) Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := sup.Current(kind)
		if err == nil && rec.Status == want {
			return rec
		}
		time.Sleep(50 * time.Millisecond)
	}
	rec, err := sup.Current(kind)
	t.Fatalf("kind %s never reached %s (last: %+v, err: %v)", kind, want, rec, err)
	return Record{}
}
