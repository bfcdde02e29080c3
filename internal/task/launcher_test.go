//go:build !windows

package task

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestLaunchEmptyCommand(t *testing.T) {
	store := newTestStore(t)
	launcher := NewLauncher(store, NewProbe(store))

	_, err := launcher.Launch(KindBuildAll, nil, "")
	var spawn *SpawnError
	if !errors.As(err, &spawn) {
		t.Fatalf("Launch(nil) error = %v, want SpawnError", err)
	}
}

// An unresolved unknown record must block the launch instead of being
// silently buried by a new record of the same kind.
func TestLaunchBlockedByUnknownRecord(t *testing.T) {
	store := newTestStore(t)
	launcher := NewLauncher(store, NewProbe(store))

	rec := runningRecord("blk-1", deadPID(t), "gone", filepath.Join(t.TempDir(), "no.exit"))
	rec.Kind = KindTestL0Cpp
	if err := store.Put(rec); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	_, err := launcher.Launch(KindTestL0Cpp, []string{"/bin/sh", "-c", "true"}, "")
	var stale *StaleRecordError
	if !errors.As(err, &stale) {
		t.Fatalf("Launch() error = %v, want StaleRecordError", err)
	}

	// The record must have transitioned durably to unknown on the way.
	stored, err := store.Get("blk-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if stored.Status != StatusUnknown {
		t.Fatalf("stored status = %s, want unknown", stored.Status)
	}
}

// Two invocations racing to launch the same kind over one state dir: exactly
// one may win, the other must get a ConflictError. Each goroutine gets its
// own Store and Launcher, the moral equivalent of two CLI processes.
func TestLaunchConcurrentSameKindOneWins(t *testing.T) {
	dir := t.TempDir()

	start := make(chan struct{})
	type outcome struct {
		rec Record
		err error
	}
	results := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			store, err := NewStore(dir)
			if err != nil {
				results <- outcome{err: err}
				return
			}
			launcher := NewLauncher(store, NewProbe(store))
			<-start
			rec, err := launcher.Launch(KindBuildCppTests, []string{"/bin/sh", "-c", "sleep 10"}, "")
			results <- outcome{rec: rec, err: err}
		}()
	}
	close(start)

	var winners []Record
	conflicts := 0
	for i := 0; i < 2; i++ {
		got := <-results
		if got.err == nil {
			winners = append(winners, got.rec)
			continue
		}
		var conflict *ConflictError
		if !errors.As(got.err, &conflict) {
			t.Fatalf("concurrent Launch() error = %v, want ConflictError", got.err)
		}
		conflicts++
	}
	t.Cleanup(func() {
		for _, rec := range winners {
			_ = signalGroup(rec.PID, killSignal)
		}
	})

	if len(winners) != 1 || conflicts != 1 {
		t.Fatalf("concurrent launches: %d succeeded, %d conflicted; want exactly one of each", len(winners), conflicts)
	}

	// The store must hold a single running record for the kind.
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	records, err := store.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	running := 0
	for _, rec := range records {
		if rec.Kind == KindBuildCppTests && rec.Status == StatusRunning {
			running++
		}
	}
	if running != 1 {
		t.Fatalf("store holds %d running %s records, want 1", running, KindBuildCppTests)
	}
}

func TestLaunchWritesLogUnderStateDir(t *testing.T) {
	store := newTestStore(t)
	launcher := NewLauncher(store, NewProbe(store))

	rec, err := launcher.Launch(KindTestL1Distributed, []string{"/bin/sh", "-c", "echo out; echo err >&2"}, "")
	if err != nil {
		t.Fatalf("Launch() error: %v", err)
	}
	t.Cleanup(func() { _ = signalGroup(rec.PID, killSignal) })

	if filepath.Dir(rec.LogPath) != store.Dir() {
		t.Fatalf("log path %s not under state dir %s", rec.LogPath, store.Dir())
	}
	if filepath.Dir(rec.ExitPath) != store.Dir() {
		t.Fatalf("exit path %s not under state dir %s", rec.ExitPath, store.Dir())
	}
	if rec.ID == "" || rec.PID <= 0 {
		t.Fatalf("incomplete record: %+v", rec)
	}
}
