// Package logtail reads and follows task log files.
//
// Log files are single-writer (the detached task) and multi-reader: any
// number of concurrent tails may run while the task is still appending.
package logtail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// appearTimeout is how long Tail and Follow wait for a log file that does
// not exist yet. Right after a launch there is a window where the record is
// visible but the child has not produced the file's first write.
const appearTimeout = 2 * time.Second

// appearPoll is the polling interval while waiting for the file to appear.
const appearPoll = 100 * time.Millisecond

// pollInterval is the fallback read interval in follow mode, for
// filesystems where fsnotify misses events.
const pollInterval = 500 * time.Millisecond

// waitForFile polls until the file exists or the timeout expires.
func waitForFile(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("log file %s does not exist", path)
		}
		time.Sleep(appearPoll)
	}
}

// Tail returns the last n lines of the file at call time. It tolerates the
// file being concurrently appended, and waits briefly for a file that does
// not exist yet rather than failing outright.
//
// Parameters:
//   - path: The log file path.
//   - n: Maximum number of lines to return.
//
// Returns:
//   - []string: At most n lines, the last n written so far.
//   - error: Any error opening or reading the file.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	if err := waitForFile(path, appearTimeout); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return lastLines(f, info.Size(), n)
}

// lastLines scans backwards from size in fixed-size chunks until it has seen
// n newlines (or the start of the file), then splits the remainder.
func lastLines(r io.ReaderAt, size int64, n int) ([]string, error) {
	const chunk = 8192

	var collected []byte
	offset := size
	newlines := 0
	for offset > 0 && newlines <= n {
		readLen := int64(chunk)
		if offset < readLen {
			readLen = offset
		}
		offset -= readLen
		buf := make([]byte, readLen)
		if _, err := r.ReadAt(buf, offset); err != nil {
			return nil, err
		}
		collected = append(buf, collected...)
		newlines = bytes.Count(collected, []byte{'\n'})
	}

	// Drop a trailing newline so it does not count as an empty final line.
	trimmed := bytes.TrimSuffix(collected, []byte{'\n'})
	if len(trimmed) == 0 {
		return nil, nil
	}
	lines := bytes.Split(trimmed, []byte{'\n'})
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l)
	}
	return out, nil
}

// Follow streams the file to w: first the last n lines, then every newly
// appended byte until ctx is cancelled. Cancellation only stops reading; it
// never touches the process writing the log.
//
// New content is detected with fsnotify, with a polling fallback. If the
// file shrinks (rotated or truncated underneath us), reading restarts from
// the beginning.
//
// Parameters:
//   - ctx: Cancellation context (e.g. wired to SIGINT).
//   - path: The log file path.
//   - n: Number of trailing lines to print before following.
//   - w: Destination writer.
//
// Returns:
//   - error: Any error reading the file; nil on cancellation.
func Follow(ctx context.Context, path string, n int, w io.Writer) error {
	lines, err := Tail(path, n)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		// Watch the directory: events for a recreated file would be
		// missed with a watch on the file itself.
		if werr := watcher.Add(filepath.Dir(path)); werr != nil {
			log.Debug("Falling back to polling", "path", path, "error", werr)
		}
	} else {
		log.Debug("fsnotify unavailable, polling instead", "error", err)
		watcher = nil
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		offset, err = copyNew(f, w, offset)
		if err != nil {
			return err
		}

		if watcher != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			case ev := <-watcher.Events:
				if ev.Name != path {
					continue
				}
			case werr := <-watcher.Errors:
				log.Debug("Watcher error, continuing on poll", "error", werr)
			}
		} else {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}

// copyNew copies any bytes appended past offset to w and returns the new
// offset. A shrunken file resets the offset to zero.
func copyNew(f *os.File, w io.Writer, offset int64) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return offset, err
	}
	size := info.Size()
	if size < offset {
		offset = 0
	}
	if size == offset {
		return offset, nil
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, err
	}
	copied, err := io.Copy(w, f)
	offset += copied
	if err != nil {
		return offset, err
	}
	return offset, nil
}
