package daemon

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const (
	// daemonEnvVar marks the re-executed child process.
	daemonEnvVar = "CACTUS_DAEMONIZED"

	// socketWaitTimeout is how long the parent waits for the child's socket.
	socketWaitTimeout = 2 * time.Second

	// socketCheckInterval is how often to check for socket availability.
	socketCheckInterval = 50 * time.Millisecond
)

// Daemonize re-executes the current command as a detached background process.
// It returns shouldExit=true in the parent once the child has been spawned,
// and shouldExit=false in the child, which carries on as the daemon.
//
// The parent waits up to two seconds for socketPath to accept connections
// and reports the child PID on out.
func Daemonize(socketPath string, out io.Writer) (shouldExit bool, pid int, err error) {
	if IsDaemonized() {
		return false, os.Getpid(), nil
	}

	executable, err := os.Executable()
	if err != nil {
		return false, 0, fmt.Errorf("get executable path: %w", err)
	}

	cmd := exec.Command(executable, os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonEnvVar+"=1")
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return false, 0, fmt.Errorf("start daemon: %w", err)
	}
	childPID := cmd.Process.Pid
	// The child outlives us; don't leave a zombie entry if it exits first.
	_ = cmd.Process.Release()

	if out == nil {
		out = io.Discard
	}
	if err := waitForSocketReady(socketPath, socketWaitTimeout); err != nil {
		_, _ = fmt.Fprintf(out, "Started cactus (pid %d) - socket not yet available\n", childPID)
	} else {
		_, _ = fmt.Fprintf(out, "Started cactus (pid %d)\n", childPID)
	}
	return true, childPID, nil
}

// IsDaemonized returns true if the current process is running as a daemonized child.
func IsDaemonized() bool {
	return os.Getenv(daemonEnvVar) == "1"
}

// waitForSocketReady waits for the socket to accept connections.
func waitForSocketReady(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("unix", socketPath, socketCheckInterval)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(socketCheckInterval)
	}
	return fmt.Errorf("socket not available after %v", timeout)
}
