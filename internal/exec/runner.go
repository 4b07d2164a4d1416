// Package exec runs external helper programs, such as the desktop file
// opener, behind an injectable runner.
package exec

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// CommandRunner abstracts command execution for dependency injection.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner executes real commands using os/exec.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner for production use.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes a command and returns its combined output. A failing
// command's output is folded into the error.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := execCommand(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// execCommand is a variable to allow testing.
var execCommand = execCommandImpl

func execCommandImpl(ctx context.Context, name string, args ...string) execCmd {
	return exec.CommandContext(ctx, name, args...)
}

// execCmd is the part of *exec.Cmd the runner uses.
type execCmd interface {
	CombinedOutput() ([]byte, error)
}

// OpenCommand returns the program that opens path in the desktop file
// manager on goos.
func OpenCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "explorer", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}

// Open shows path in the desktop file manager.
func Open(ctx context.Context, runner CommandRunner, path string) error {
	name, args := OpenCommand(runtime.GOOS, path)
	if _, err := runner.Run(ctx, name, args...); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	return nil
}
