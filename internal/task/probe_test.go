//go:build !windows

package task

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// spawnSleeper starts a short-lived real process the tests can probe, and
// guarantees it is gone by the end of the test.
func spawnSleeper(t *testing.T, seconds string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sleep", seconds)
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start sleeper: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})
	return cmd
}

// deadPID returns the pid of a process that has already exited and been
// reaped.
func deadPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("failed to run true: %v", err)
	}
	return cmd.Process.Pid
}

func writeExitFile(t *testing.T, dir, code string) string {
	t.Helper()
	path := filepath.Join(dir, "task.exit")
	if err := os.WriteFile(path, []byte(code+"\n"), 0o644); err != nil {
		t.Fatalf("failed to write exit file: %v", err)
	}
	return path
}

func runningRecord(id string, pid int, sig, exitPath string) Record {
	return Record{
		ID:             id,
		Kind:           KindBuildPythonIncremental,
		Command:        []string{"/bin/bash", "-c", "true"},
		PID:            pid,
		StartSignature: sig,
		ExitPath:       exitPath,
		StartedAt:      time.Now().UTC(),
		Status:         StatusRunning,
	}
}

func TestProbeLeavesTerminalRecordsAlone(t *testing.T) {
	store := newTestStore(t)
	probe := NewProbe(store)

	code := 1
	rec := sampleRecord("term-1", KindRebuild, time.Now().UTC())
	rec.Status = StatusFailed
	rec.ExitCode = &code

	got, err := probe.Refresh(rec)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if got.Status != StatusFailed || *got.ExitCode != 1 {
		t.Fatalf("Refresh() changed a terminal record: %+v", got)
	}
}

func TestProbeSettlesCompletedFromExitFile(t *testing.T) {
	store := newTestStore(t)
	probe := NewProbe(store)
	exitPath := writeExitFile(t, t.TempDir(), "0")

	rec := runningRecord("done-1", deadPID(t), "gone", exitPath)
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := probe.Refresh(rec)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("Refresh() status = %s, want completed", got.Status)
	}
	if got.ExitCode == nil || *got.ExitCode != 0 {
		t.Fatalf("Refresh() exit code = %v, want 0", got.ExitCode)
	}
	if got.EndedAt == nil {
		t.Fatalf("Refresh() settled without an end time")
	}

	// The transition must be durable for the next invocation.
	stored, err := store.Get("done-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if stored.Status != StatusCompleted {
		t.Fatalf("stored status = %s, want completed", stored.Status)
	}
}

func TestProbeSettlesFailedFromExitFile(t *testing.T) {
	store := newTestStore(t)
	probe := NewProbe(store)
	exitPath := writeExitFile(t, t.TempDir(), "2")

	rec := runningRecord("fail-1", deadPID(t), "gone", exitPath)
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := probe.Refresh(rec)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("Refresh() status = %s, want failed", got.Status)
	}
	if got.ExitCode == nil || *got.ExitCode != 2 {
		t.Fatalf("Refresh() exit code = %v, want 2", got.ExitCode)
	}
}

func TestProbeDeadPidWithoutExitFileIsUnknown(t *testing.T) {
	store := newTestStore(t)
	probe := NewProbe(store)

	rec := runningRecord("stale-1", deadPID(t), "gone", filepath.Join(t.TempDir(), "never-written.exit"))
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := probe.Refresh(rec)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if got.Status != StatusUnknown {
		t.Fatalf("Refresh() status = %s, want unknown", got.Status)
	}
	if got.ExitCode != nil {
		t.Fatalf("Refresh() exit code = %v, want nil", *got.ExitCode)
	}
}

// A live pid whose start time does not match the recorded signature belongs
// to an unrelated process. That must never read as completed or failed.
func TestProbeRecycledPidIsUnknown(t *testing.T) {
	store := newTestStore(t)
	probe := NewProbe(store)
	sleeper := spawnSleeper(t, "30")

	rec := runningRecord("recycled-1", sleeper.Process.Pid,
		"Mon Jan  2 15:04:05 2006", // injected mismatching signature
		filepath.Join(t.TempDir(), "never-written.exit"))
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := probe.Refresh(rec)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if got.Status != StatusUnknown {
		t.Fatalf("Refresh() status = %s, want unknown (pid recycled)", got.Status)
	}
}

func TestProbeMatchingSignatureStaysRunning(t *testing.T) {
	store := newTestStore(t)
	probe := NewProbe(store)
	sleeper := spawnSleeper(t, "30")

	sig, err := processStartTime(sleeper.Process.Pid)
	if err != nil {
		t.Fatalf("processStartTime() error: %v", err)
	}
	rec := runningRecord("live-1", sleeper.Process.Pid, sig, filepath.Join(t.TempDir(), "x.exit"))
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := probe.Refresh(rec)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if got.Status != StatusRunning {
		t.Fatalf("Refresh() status = %s, want running", got.Status)
	}
}
