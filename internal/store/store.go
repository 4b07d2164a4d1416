// Package store reads and writes the {settings, state} document.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/npratt/cactus/internal/model"
)

// backupPrefix names the daily backup files: cactus-YYYY-MM-DD.json.
const backupPrefix = "cactus-"

const backupDateLayout = "2006-01-02"

// Options configures a Store.
type Options struct {
	// Path of the JSON document.
	Path string
	// BackupDir receives one copy of the document per calendar day.
	// Empty disables daily backups.
	BackupDir string
	// MaxBackupAge prunes backups older than this many days. Zero keeps all.
	MaxBackupAgeDays int
	Logger           *slog.Logger
}

// Store persists snapshots to a single JSON file.
type Store struct {
	path       string
	backupDir  string
	maxAgeDays int
	logger     *slog.Logger
	now        func() time.Time

	mu             sync.Mutex
	lastBackupDate string
}

// New creates a Store.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:       opts.Path,
		backupDir:  opts.BackupDir,
		maxAgeDays: opts.MaxBackupAgeDays,
		logger:     logger,
		now:        time.Now,
	}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document, merging it over defaults field by field.
// A missing file is created with defaults. A malformed file is moved to
// <path>.backup and defaults are returned. Only I/O errors other than
// "not exist" are returned.
func (s *Store) Load() (model.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		snap := model.DefaultSnapshot()
		if err := s.Save(snap); err != nil {
			s.logger.Warn("failed to write default state", "path", s.path, "error", err)
		}
		return snap, nil
	}
	if err != nil {
		return model.DefaultSnapshot(), fmt.Errorf("read state: %w", err)
	}

	snap := model.DefaultSnapshot()
	if err := json.Unmarshal(data, &snap); err != nil {
		if backupErr := os.Rename(s.path, s.path+".backup"); backupErr != nil {
			s.logger.Warn("state file corrupted, failed to backup",
				"path", s.path,
				"error", err,
				"backup_error", backupErr)
		} else {
			s.logger.Warn("state file corrupted, backed up and starting fresh",
				"path", s.path,
				"error", err)
		}
		return model.DefaultSnapshot(), nil
	}

	return s.sanitize(snap), nil
}

// sanitize repairs values that would violate timer invariants.
func (s *Store) sanitize(snap model.Snapshot) model.Snapshot {
	if err := snap.Settings.Validate(); err != nil {
		s.logger.Warn("stored settings invalid, using defaults for bad fields", "error", err)
		def := model.DefaultSettings()
		if snap.Settings.Durations.WorkMinutes <= 0 {
			snap.Settings.Durations.WorkMinutes = def.Durations.WorkMinutes
		}
		if snap.Settings.Durations.BreakMinutes <= 0 {
			snap.Settings.Durations.BreakMinutes = def.Durations.BreakMinutes
		}
		if snap.Settings.SoundVolume < 0 || snap.Settings.SoundVolume > 100 {
			snap.Settings.SoundVolume = def.SoundVolume
		}
	}

	t := &snap.State.Timer
	if t.RemainingSeconds < 0 {
		t.RemainingSeconds = 0
	}
	if t.InitialSeconds < 0 {
		t.InitialSeconds = 0
	}
	if t.Running != (t.EndTimestamp != 0) {
		t.Running = false
		t.EndTimestamp = 0
	}
	return snap
}

// Save writes the document atomically and then takes the daily backup.
func (s *Store) Save(snap model.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}

	s.maybeBackupDaily()
	return nil
}

// maybeBackupDaily copies the document into the backup directory once per
// calendar day. Failures are logged and never affect the save.
func (s *Store) maybeBackupDaily() {
	if s.backupDir == "" {
		return
	}

	today := s.now().Format(backupDateLayout)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastBackupDate == today {
		return
	}

	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		s.logger.Warn("create backup directory failed", "dir", s.backupDir, "error", err)
		return
	}

	dest := filepath.Join(s.backupDir, backupPrefix+today+".json")
	err := copyFileExclusive(s.path, dest)
	switch {
	case err == nil:
		s.logger.Debug("daily backup written", "path", dest)
	case errors.Is(err, fs.ErrExist):
	default:
		s.logger.Warn("daily backup failed", "path", dest, "error", err)
		return
	}
	s.lastBackupDate = today

	if err := s.pruneLocked(); err != nil {
		s.logger.Warn("backup prune failed", "dir", s.backupDir, "error", err)
	}
}

func copyFileExclusive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// Backups lists daily backup files, oldest first.
func (s *Store) Backups() ([]string, error) {
	if s.backupDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.backupDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if _, ok := backupDate(e.Name()); ok && !e.IsDir() {
			names = append(names, filepath.Join(s.backupDir, e.Name()))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) pruneLocked() error {
	if s.maxAgeDays <= 0 {
		return nil
	}
	names, err := s.Backups()
	if err != nil {
		return err
	}

	cutoff := s.now().AddDate(0, 0, -s.maxAgeDays)
	for _, name := range names {
		date, _ := backupDate(filepath.Base(name))
		if date.Before(cutoff) {
			if err := os.Remove(name); err != nil {
				return err
			}
			s.logger.Debug("pruned backup", "path", name)
		}
	}
	return nil
}

func backupDate(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, ".json") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, backupPrefix), ".json")
	date, err := time.ParseInLocation(backupDateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
