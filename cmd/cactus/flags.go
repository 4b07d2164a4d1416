package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose    = "verbose"
	FlagConfig     = "config"
	FlagLogFile    = "log-file"
	FlagStateFile  = "state-file"
	FlagSocketPath = "socket-path"

	// Start command flags
	FlagDaemon   = "daemon"
	FlagHeadless = "headless"

	// Events command flags
	FlagFollow = "follow"
	FlagCount  = "count"

	// Output format flags
	FlagJSON = "json"

	// Settings command flags
	FlagWork   = "work"
	FlagBreak  = "break"
	FlagTheme  = "theme"
	FlagVolume = "volume"

	// Init command flags
	FlagDryRun  = "dry-run"
	FlagForce   = "force"
	FlagMinimal = "minimal"
	FlagGlobal  = "global"

	// Render command flags
	FlagFraction = "fraction"
	FlagOut      = "out"
	FlagCanvas   = "canvas"
)
