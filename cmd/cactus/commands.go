package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/cactus/internal/daemon"
	"github.com/npratt/cactus/internal/glyph"
	initcmd "github.com/npratt/cactus/internal/init"
	"github.com/npratt/cactus/internal/model"
	"github.com/npratt/cactus/internal/tui"
)

// printSnapshot writes a one-line summary of the timer.
func printSnapshot(w io.Writer, snap model.Snapshot) {
	fmt.Fprintf(w, "%s  %s\n", tui.PhaseLabel(snap), tui.FormatClock(snap.State.Timer.RemainingSeconds))
}

// snapshotCmd builds a command that sends one RPC and prints the result.
func snapshotCmd(use, short string, call func(*daemon.Client) (model.Snapshot, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient(cmd)
			if err != nil {
				return err
			}
			snap, err := call(client)
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func newWorkCmd() *cobra.Command {
	return snapshotCmd("work", "Start a work countdown", (*daemon.Client).StartWork)
}

func newBreakCmd() *cobra.Command {
	return snapshotCmd("break", "Start a break countdown", (*daemon.Client).StartBreak)
}

func newPauseCmd() *cobra.Command {
	return snapshotCmd("pause", "Pause the running countdown", (*daemon.Client).Pause)
}

func newResumeCmd() *cobra.Command {
	return snapshotCmd("resume", "Resume a paused countdown", (*daemon.Client).Resume)
}

func newStopCmd() *cobra.Command {
	return snapshotCmd("stop", "Stop the countdown, keeping the remaining time", (*daemon.Client).Stop)
}

func newExtendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extend <seconds>",
		Short: "Add (or with a negative value, remove) time from the countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid seconds %q: %w", args[0], err)
			}
			client, err := getDaemonClient(cmd)
			if err != nil {
				return err
			}
			snap, err := client.Extend(seconds)
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient(cmd)
			if err != nil {
				return err
			}

			status, err := client.Status()
			if err != nil {
				return err
			}

			if viper.GetBool(FlagJSON) {
				data, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal status: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
	statusCmd.Flags().Bool(FlagJSON, false, "Output status as JSON")
	_ = viper.BindPFlag(FlagJSON, statusCmd.Flags().Lookup(FlagJSON))
	return statusCmd
}

func printStatus(w io.Writer, status *daemon.StatusResponse) {
	mode := "work"
	if status.IsBreak {
		mode = "break"
	}
	fmt.Fprintf(w, "Phase: %s\n", status.Phase)
	fmt.Fprintf(w, "Mode: %s\n", mode)
	fmt.Fprintf(w, "Remaining: %s\n", tui.FormatClock(status.RemainingSeconds))
	fmt.Fprintf(w, "PID: %d\n", status.PID)
	fmt.Fprintf(w, "Uptime: %s\n", status.Uptime)
	fmt.Fprintf(w, "Started: %s\n", status.StartTime)
}

// settingsPatch builds a partial settings document from the flags the
// user set. ok is false when no setting flag was given.
func settingsPatch(flags *pflag.FlagSet) (patch json.RawMessage, ok bool, err error) {
	doc := map[string]any{}
	durations := map[string]any{}

	if flags.Changed(FlagWork) {
		v, _ := flags.GetFloat64(FlagWork)
		durations["workMinutes"] = v
	}
	if flags.Changed(FlagBreak) {
		v, _ := flags.GetFloat64(FlagBreak)
		durations["breakMinutes"] = v
	}
	if len(durations) > 0 {
		doc["durations"] = durations
	}
	if flags.Changed(FlagTheme) {
		v, _ := flags.GetString(FlagTheme)
		if !glyph.IsTheme(v) {
			return nil, false, fmt.Errorf("unknown theme %q (choose from %v)", v, glyph.Themes())
		}
		doc["theme"] = v
	}
	if flags.Changed(FlagVolume) {
		v, _ := flags.GetInt(FlagVolume)
		doc["soundVolume"] = v
	}

	if len(doc) == 0 {
		return nil, false, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, false, fmt.Errorf("marshal settings: %w", err)
	}
	return data, true, nil
}

func printSettings(w io.Writer, s model.Settings) {
	fmt.Fprintf(w, "Work: %g min\n", s.Durations.WorkMinutes)
	fmt.Fprintf(w, "Break: %g min\n", s.Durations.BreakMinutes)
	fmt.Fprintf(w, "Theme: %s\n", s.Theme)
	fmt.Fprintf(w, "Volume: %d\n", s.SoundVolume)
}

func newSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change timer settings",
		Long: `Show the current timer settings, or change them with flags.
Only the flags given are changed; the rest keep their values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, ok, err := settingsPatch(cmd.Flags())
			if err != nil {
				return err
			}
			client, err := getDaemonClient(cmd)
			if err != nil {
				return err
			}

			var snap model.Snapshot
			if ok {
				snap, err = client.SaveSettings(patch)
			} else {
				snap, err = client.GetState()
			}
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), snap.Settings)
			return nil
		},
	}
	settingsCmd.Flags().Float64(FlagWork, 0, "Work duration in minutes")
	settingsCmd.Flags().Float64(FlagBreak, 0, "Break duration in minutes")
	settingsCmd.Flags().String(FlagTheme, "", "Icon theme")
	settingsCmd.Flags().Int(FlagVolume, 0, "Sound volume (0-100)")
	return settingsCmd
}

func newQuitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Save state and shut the daemon down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient(cmd)
			if err != nil {
				return err
			}
			if err := client.Quit(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Quit requested - daemon saving state and exiting")
			return nil
		},
	}
}

func newTUICmd(logLevel slog.Leveler) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getDaemonClient(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logResult := SetupFileLogger(cfg.Paths.DebugLog, logLevel, cfg.LogRotation)
			defer func() { _ = logResult.Close() }()
			slog.SetDefault(logResult.Logger)

			return tui.New(client).Run()
		},
	}
}

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config.yaml",
		Long: `Write the default configuration to .cactus/config.yaml, or with --global
to ~/.config/cactus/config.yaml.

An existing file that differs is left alone and its diff is shown; use
--force to replace it (the old file is kept as a timestamped .bak).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			opts := initcmd.Options{Writer: cmd.OutOrStdout()}
			opts.DryRun, _ = flags.GetBool(FlagDryRun)
			opts.Force, _ = flags.GetBool(FlagForce)
			opts.Minimal, _ = flags.GetBool(FlagMinimal)
			opts.Global, _ = flags.GetBool(FlagGlobal)

			_, err := initcmd.Run(opts)
			return err
		},
	}

	initCmd.Flags().Bool(FlagDryRun, false, "Show what would be changed without making changes")
	initCmd.Flags().Bool(FlagForce, false, "Overwrite a changed file (creates a timestamped backup)")
	initCmd.Flags().Bool(FlagMinimal, false, "Write only the sound, notify and mqtt sections")
	initCmd.Flags().Bool(FlagGlobal, false, "Write to ~/.config/cactus/ instead of ./.cactus/")
	return initCmd
}
