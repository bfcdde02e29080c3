package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// Store is the durable task record store: one JSON file per task id under a
// state directory. It is the only component that touches the on-disk
// representation; everything else works on copies and writes back via Put.
//
// Concurrent CLI invocations may read and write the store at the same time,
// so Put is crash-consistent: the record is written to a temp file in the
// same directory and moved into place with an atomic rename. A reader sees
// either the old record or the new one, never a partial write. Concurrent
// writers for the same id resolve last-writer-wins.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating the directory if needed.
//
// Parameters:
//   - dir: The state directory holding record files.
//
// Returns:
//   - *Store: The store.
//   - error: Any error creating the directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the state directory the store is rooted at.
func (s *Store) Dir() string { return s.dir }

// recordPath derives the record file path from a task id. The mapping is
// deterministic so concurrent processes resolve the same path without any
// extra coordination.
func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Get returns the record for an id.
//
// Parameters:
//   - id: The task id.
//
// Returns:
//   - Record: The stored record.
//   - error: A NotFoundError if no record file exists.
func (s *Store) Get(id string) (Record, error) {
	data, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, &NotFoundError{ID: id}
		}
		return Record{}, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("corrupt record %s: %w", id, err)
	}
	return rec, nil
}

// Put atomically creates or replaces a record. The write either fully lands
// or is not visible at all.
//
// Parameters:
//   - rec: The record to persist. rec.ID must be set.
//
// Returns:
//   - error: Any error during the write.
func (s *Store) Put(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("cannot store record without an id")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+rec.ID+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp record file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush record %s: %w", rec.ID, err)
	}
	if err := os.Rename(tmpName, s.recordPath(rec.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit record %s: %w", rec.ID, err)
	}
	log.Debug("Stored task record", "id", rec.ID, "status", rec.Status)
	return nil
}

// Delete removes a record. Deleting a record does not delete its log file:
// logs are retained for postmortem inspection until explicitly cleared.
// Deleting a missing record is not an error.
//
// Parameters:
//   - id: The task id.
//
// Returns:
//   - error: Any filesystem error other than the record being absent.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.recordPath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

// List returns all records, most recently started first. Temp files and
// unreadable entries are skipped: a concurrent Put must not break a reader.
//
// Returns:
//   - []Record: All stored records, newest first.
//   - error: Any error reading the state directory.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var records []Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		rec, err := s.Get(strings.TrimSuffix(name, ".json"))
		if err != nil {
			// A record deleted or half-renamed between ReadDir and
			// ReadFile is not our problem; skip it.
			log.Debug("Skipping unreadable record", "file", name, "error", err)
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}

// FindKind returns the current record for a kind, or a NotFoundError.
// Because a successful launch supersedes the previous record of the same
// kind, at most one record per kind normally exists; if several are present
// the newest wins.
//
// Parameters:
//   - kind: The task kind.
//
// Returns:
//   - Record: The newest record of that kind.
//   - error: A NotFoundError if the kind has no record.
func (s *Store) FindKind(kind Kind) (Record, error) {
	records, err := s.List()
	if err != nil {
		return Record{}, err
	}
	for _, rec := range records {
		if rec.Kind == kind {
			return rec, nil
		}
	}
	return Record{}, &NotFoundError{ID: string(kind)}
}
