//go:build windows

package task

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// setDetached configures the command to run in its own process group.
// CREATE_NEW_PROCESS_GROUP is the closest Windows equivalent of a Unix
// session; full detachment semantics differ, and the supervised builds are
// Linux-targeted, so this path is best-effort.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// signalGroup terminates the process tree on Windows. There is no direct
// group-signal equivalent; taskkill /T approximates it, and any signal other
// than kill degrades to tree termination.
func signalGroup(pid int, _ syscall.Signal) error {
	cmd := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("taskkill failed for pid %d: %w", pid, err)
	}
	return nil
}

// groupAlive checks whether the leader process is still running.
func groupAlive(pid int) bool {
	return processAlive(pid)
}

// processAlive checks whether the process with the given pid exists.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// FindProcess always succeeds on Windows; Signal(0) checks liveness.
	return p.Signal(syscall.Signal(0)) == nil
}

// processStartTime returns an empty signature on Windows; the probe then
// falls back to pid-only liveness and conservative unknown handling.
func processStartTime(pid int) (string, error) {
	return "", nil
}

// processIsZombie always reports false: Windows has no zombie state.
func processIsZombie(pid int) bool {
	return false
}

const terminateSignal = syscall.SIGTERM

const killSignal = syscall.SIGKILL
