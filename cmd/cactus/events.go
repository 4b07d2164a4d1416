package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/cactus/internal/daemon"
	"github.com/npratt/cactus/internal/events"
	"github.com/npratt/cactus/internal/model"
	"github.com/npratt/cactus/internal/tui"
)

func newEventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "View recent timer events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logPath := cfg.Paths.Log
			if !cmd.Flags().Changed(FlagLogFile) {
				if info, err := daemon.FindDaemonInfo(cfg.Paths.DataDir); err == nil && info.LogPath != "" {
					logPath = info.LogPath
				}
			}

			out := cmd.OutOrStdout()
			if viper.GetBool(FlagFollow) {
				return tailFollow(cmd.Context(), out, logPath)
			}
			return tailLast(out, logPath, viper.GetInt(FlagCount))
		},
	}

	eventsCmd.Flags().Bool(FlagFollow, false, "Follow event stream (like tail -f)")
	eventsCmd.Flags().Int(FlagCount, 20, "Number of recent events to show")
	eventsCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})
	return eventsCmd
}

// tailLast prints the last n lines from the log file.
func tailLast(w io.Writer, path string, n int) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(w, "No events yet (log file does not exist)")
			return nil
		}
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log file: %w", err)
	}

	if len(lines) == 0 {
		fmt.Fprintln(w, "No events yet")
		return nil
	}

	start := 0
	if n > 0 && len(lines) > n {
		start = len(lines) - n
	}
	for _, line := range lines[start:] {
		printEventLine(w, line)
	}
	return nil
}

// waitForFile waits for a file to be created and returns the opened file.
func waitForFile(ctx context.Context, path string) (*os.File, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
			file, err := os.Open(path)
			if err == nil {
				return file, nil
			}
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("open file: %w", err)
			}
		}
	}
}

// tailFollow prints new lines as the daemon appends them.
func tailFollow(ctx context.Context, w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("open log file: %w", err)
		}
		fmt.Fprintln(w, "Waiting for log file to be created...")
		file, err = waitForFile(ctx, path)
		if err != nil {
			return err
		}
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	fmt.Fprintln(w, "Following events (Ctrl+C to stop)...")
	reader := bufio.NewReader(file)
	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		chunk, err := reader.ReadString('\n')
		partial += chunk
		if err == io.EOF {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if err != nil {
			return fmt.Errorf("read log: %w", err)
		}
		printEventLine(w, strings.TrimSuffix(partial, "\n"))
		partial = ""
	}
}

// printEventLine prints a single event line in a human-readable format.
// Lines that are not events are printed as-is.
func printEventLine(w io.Writer, line string) {
	entry, err := events.ParseLogLine([]byte(line))
	if err != nil {
		fmt.Fprintln(w, line)
		return
	}

	timestamp := entry.Timestamp.Local().Format("15:04:05")

	var detail string
	switch entry.Type {
	case events.EventState, events.EventTimerEnded:
		var snap model.Snapshot
		if err := json.Unmarshal(entry.Payload, &snap); err == nil {
			detail = fmt.Sprintf("%s %s", tui.PhaseLabel(snap), tui.FormatClock(snap.State.Timer.RemainingSeconds))
		}
	case events.EventDaemonStart:
		if entry.PID != 0 {
			detail = fmt.Sprintf("pid=%d", entry.PID)
		}
	case events.EventDaemonStop:
		detail = entry.Reason
	}

	if detail != "" {
		fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, entry.Type, detail)
	} else {
		fmt.Fprintf(w, "[%s] %s\n", timestamp, entry.Type)
	}
}
