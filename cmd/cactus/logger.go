package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/npratt/cactus/internal/config"
)

// FileLoggerResult contains the results of setting up file logging.
type FileLoggerResult struct {
	Logger   *slog.Logger
	LogFile  io.WriteCloser
	FilePath string
}

// Close closes the log file if it was opened.
func (r *FileLoggerResult) Close() error {
	if r.LogFile != nil {
		return r.LogFile.Close()
	}
	return nil
}

// SetupFileLogger creates a JSON logger writing to a rotating file. Used by
// the detached daemon, which has no terminal, and by the dashboard, where
// stderr output would corrupt the screen.
func SetupFileLogger(path string, level slog.Leveler, rotationCfg config.LogRotationConfig) *FileLoggerResult {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotationCfg.MaxSizeMB,
		MaxBackups: rotationCfg.MaxBackups,
		MaxAge:     rotationCfg.MaxAgeDays,
		Compress:   rotationCfg.Compress,
	}

	return &FileLoggerResult{
		Logger:   slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})),
		LogFile:  writer,
		FilePath: path,
	}
}

// NewConsoleLogger logs to w, as text when w is a terminal and as JSON
// otherwise.
func NewConsoleLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
