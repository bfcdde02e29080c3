//go:build !windows

package task

import (
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// setDetached configures the command to start in a new session, making it
// the leader of its own process group and detaching it from the invoking
// CLI's terminal and lifetime. Builds and tests fork freely, so every signal
// we later send targets the whole group, not just the leader.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// signalGroup sends a signal to the entire process group led by pid.
func signalGroup(pid int, sig syscall.Signal) error {
	return syscall.Kill(-pid, sig)
}

// groupAlive checks whether any process in the group is still running.
func groupAlive(pid int) bool {
	return syscall.Kill(-pid, syscall.Signal(0)) == nil
}

// processAlive checks whether the process with the given pid exists. EPERM
// means the pid exists but belongs to another user, which still counts as
// alive for pid-reuse purposes.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}

// processStartTime returns the process start time as reported by ps, e.g.
// "Mon Aug 29 10:14:03 2026". The string is stored at spawn and compared on
// probe: pid plus matching start time is the evidence that the pid has not
// been recycled by an unrelated process.
func processStartTime(pid int) (string, error) {
	out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "lstart=").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// processIsZombie reports whether the process is an exited-but-unreaped
// child. A zombie still answers signal 0, so liveness checks must exclude it.
func processIsZombie(pid int) bool {
	out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "stat=").Output()
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(string(out)), "Z")
}

// terminateSignal is the graceful signal sent first by the terminator.
const terminateSignal = syscall.SIGTERM

// killSignal is the forceful fallback once the grace period expires.
const killSignal = syscall.SIGKILL
