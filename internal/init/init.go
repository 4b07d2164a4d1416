// Package initcmd writes a starter config.yaml for cactus.
package initcmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aymanbagabas/go-udiff"

	"github.com/npratt/cactus/internal/config"
)

// Options configures the init command behavior.
type Options struct {
	DryRun  bool
	Force   bool
	Minimal bool
	Global  bool
	Writer  io.Writer // Output writer (defaults to os.Stdout)
}

// Status describes what happened, or would happen, to the config file.
type Status string

// File statuses.
const (
	StatusCreated     Status = "created"
	StatusUnchanged   Status = "unchanged"
	StatusChanged     Status = "changed"
	StatusOverwritten Status = "overwritten"
)

// Result contains the outcome of the init operation.
type Result struct {
	Path   string
	Status Status
	Backup string // set when an existing file was moved aside
	Diff   string // unified diff against the existing file, if any
}

// TargetPath returns where init writes: the project .cactus/config.yaml
// or, with global, the XDG config directory.
func TargetPath(global bool) (string, error) {
	if !global {
		return filepath.Join(config.ProjectConfigDir, config.ProjectConfigFile), nil
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, config.GlobalConfigDir, config.GlobalConfigFile), nil
}

// Run executes the init command with the given options.
func Run(opts Options) (*Result, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	path, err := TargetPath(opts.Global)
	if err != nil {
		return nil, err
	}
	content, err := Template(opts.Minimal)
	if err != nil {
		return nil, err
	}

	result := &Result{Path: path, Status: StatusCreated}
	existing, err := os.ReadFile(path)
	switch {
	case err == nil && string(existing) == content:
		result.Status = StatusUnchanged
	case err == nil:
		result.Status = StatusChanged
		result.Diff = udiff.Unified("existing", "new", string(existing), content)
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if opts.DryRun {
		return showDryRun(w, result, content), nil
	}

	switch result.Status {
	case StatusUnchanged:
		_, _ = fmt.Fprintf(w, "Already up to date: %s\n", path)
		return result, nil
	case StatusChanged:
		if !opts.Force {
			_, _ = fmt.Fprintf(w, "%s has changes:\n\n", path)
			_, _ = fmt.Fprintln(w, result.Diff)
			_, _ = fmt.Fprintln(w, "Use --force to overwrite (the current file is backed up).")
			return result, fmt.Errorf("config has changes (use --force to overwrite)")
		}
		backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("2006-01-02T15-04-05"))
		if err := os.Rename(path, backup); err != nil {
			return result, fmt.Errorf("back up %s: %w", path, err)
		}
		result.Backup = backup
		result.Status = StatusOverwritten
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return result, fmt.Errorf("create directory %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return result, fmt.Errorf("write %s: %w", path, err)
	}

	if result.Backup != "" {
		_, _ = fmt.Fprintf(w, "Overwritten: %s (previous saved to %s)\n", path, result.Backup)
	} else {
		_, _ = fmt.Fprintf(w, "Created: %s\n", path)
	}
	_, _ = fmt.Fprintln(w, "Run 'cactus start' to launch the timer.")
	return result, nil
}

// showDryRun displays what would be changed without making changes.
func showDryRun(w io.Writer, result *Result, content string) *Result {
	_, _ = fmt.Fprintln(w, "DRY RUN - No changes will be made")
	_, _ = fmt.Fprintln(w)

	switch result.Status {
	case StatusUnchanged:
		_, _ = fmt.Fprintf(w, "Already up to date: %s\n", result.Path)
	case StatusChanged:
		_, _ = fmt.Fprintf(w, "Would overwrite (has changes): %s\n", result.Path)
		_, _ = fmt.Fprintln(w, result.Diff)
	default:
		_, _ = fmt.Fprintf(w, "Would create: %s\n", result.Path)
		_, _ = fmt.Fprintln(w, "--- BEGIN FILE ---")
		_, _ = fmt.Fprint(w, content)
		_, _ = fmt.Fprintln(w, "--- END FILE ---")
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Run without --dry-run to apply changes.")
	return result
}
