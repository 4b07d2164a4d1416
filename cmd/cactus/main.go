package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/cactus/internal/config"
	"github.com/npratt/cactus/internal/daemon"
)

var version = "dev"

// envReplacer maps flag and nested config keys to CACTUS_* names.
var envReplacer = strings.NewReplacer("-", "_", ".", "_")

// loadConfig reads layered config and applies explicitly set path flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed(FlagLogFile) {
		cfg.Paths.Log = viper.GetString(FlagLogFile)
	}
	if flags.Changed(FlagStateFile) {
		cfg.Paths.State = viper.GetString(FlagStateFile)
	}
	if flags.Changed(FlagSocketPath) {
		cfg.Paths.Socket = viper.GetString(FlagSocketPath)
	}
	if err := cfg.ResolvePaths(); err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	return cfg, nil
}

// getDaemonClient finds the running daemon through daemon.json, falling
// back to the configured socket.
func getDaemonClient(cmd *cobra.Command) (*daemon.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	socket := cfg.Paths.Socket
	if !cmd.Flags().Changed(FlagSocketPath) {
		socket = daemon.ResolveSocket(cfg.Paths.DataDir, socket)
	}
	client := daemon.NewClient(socket)
	if !client.IsRunning() {
		return nil, fmt.Errorf("daemon not running (socket: %s)", socket)
	}
	return client, nil
}

func newRootCmd(logLevel *slog.LevelVar) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cactus",
		Short: "Work/break interval timer for the system tray",
		Long: `cactus runs a work/break countdown in the background, shows its progress
as a filling heart in the system tray, and plays a sound when time is up.

Start the daemon with "cactus start" and control it from any terminal with
the work, break, pause, resume, stop and extend commands, or open the
dashboard with "cactus tui".`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if viper.GetBool(FlagVerbose) {
				logLevel.Set(slog.LevelDebug)
			}
		},
	}

	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .cactus/config.yaml)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Event log path")
	rootCmd.PersistentFlags().String(FlagStateFile, "", "State file path")
	rootCmd.PersistentFlags().String(FlagSocketPath, "", "Unix socket path for daemon control")

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	rootCmd.AddCommand(
		newVersionCmd(),
		newStartCmd(logLevel),
		newStatusCmd(),
		newWorkCmd(),
		newBreakCmd(),
		newPauseCmd(),
		newResumeCmd(),
		newStopCmd(),
		newExtendCmd(),
		newSettingsCmd(),
		newQuitCmd(),
		newEventsCmd(),
		newTUICmd(logLevel),
		newRenderCmd(),
		newInitCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cactus %s\n", version)
		},
	}
}

func newStartCmd(logLevel *slog.LevelVar) *cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the cactus daemon",
		Long: `Start the timer daemon. It restores the saved countdown, serves the
control socket, and shows the tray icon.

Use --daemon to run in the background and --headless to run without a tray.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if viper.GetBool(FlagDaemon) {
				client := daemon.NewClient(cfg.Paths.Socket)
				if client.IsRunning() {
					return fmt.Errorf("daemon already running (socket: %s)", cfg.Paths.Socket)
				}

				shouldExit, _, err := daemon.Daemonize(cfg.Paths.Socket, cmd.OutOrStdout())
				if err != nil {
					return fmt.Errorf("daemonize: %w", err)
				}
				if shouldExit {
					return nil
				}
			}

			logger := NewConsoleLogger(os.Stderr, logLevel)
			if daemon.IsDaemonized() {
				logResult := SetupFileLogger(cfg.Paths.DebugLog, logLevel, cfg.LogRotation)
				defer func() { _ = logResult.Close() }()
				logger = logResult.Logger
			}
			slog.SetDefault(logger)

			a, err := newApp(cfg, viper.GetBool(FlagHeadless), logger)
			if err != nil {
				return err
			}
			a.reload = configReloader(viper.GetString(FlagConfig))
			a.configFiles = config.SourceFiles(viper.GetViper())

			return a.run(cmd.Context())
		},
	}

	startCmd.Flags().Bool(FlagDaemon, false, "Run as a background daemon")
	startCmd.Flags().Bool(FlagHeadless, false, "Run without a tray icon")
	startCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})
	return startCmd
}

func main() {
	logLevel := &slog.LevelVar{}
	logger := NewConsoleLogger(os.Stderr, logLevel)

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(envReplacer)
	viper.AutomaticEnv()

	if err := newRootCmd(logLevel).ExecuteContext(context.Background()); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
