package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the burst of events editors produce on save.
const DefaultWatchDebounce = 200 * time.Millisecond

// Watcher reloads configuration when any of its source files change.
type Watcher struct {
	files    map[string]bool
	reload   func() (*Config, error)
	onChange func(*Config)
	logger   *slog.Logger
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// NewWatcher watches files. Directories are watched rather than the files
// themselves so atomic-rename saves are seen.
func NewWatcher(files []string, reload func() (*Config, error), onChange func(*Config), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		files:    make(map[string]bool),
		reload:   reload,
		onChange: onChange,
		logger:   logger,
		debounce: DefaultWatchDebounce,
		fsw:      fsw,
	}
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// SetDebounce changes the quiet period before a reload. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run processes file events until ctx is cancelled. A reload error is
// logged and the previous configuration stays in effect.
func (w *Watcher) Run(ctx context.Context) {
	defer func() { _ = w.fsw.Close() }()

	var fire <-chan time.Time
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(ev.Name)] {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("config file changed", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		case <-fire:
			fire = nil
			cfg, err := w.reload()
			if err != nil {
				w.logger.Error("config reload failed", "error", err)
				continue
			}
			w.logger.Info("config reloaded")
			w.onChange(cfg)
		}
	}
}
