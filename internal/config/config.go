// Package config provides configuration types and defaults for cactus.
//
// Timer preferences the user edits (durations, theme, volume) live in the
// state document, not here. This package covers where files go and how the
// daemon behaves.
package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for cactus.
type Config struct {
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	Timer       TimerConfig       `yaml:"timer" mapstructure:"timer"`
	Persistence PersistenceConfig `yaml:"persistence" mapstructure:"persistence"`
	Backup      BackupConfig      `yaml:"backup" mapstructure:"backup"`
	Sound       SoundConfig       `yaml:"sound" mapstructure:"sound"`
	Notify      NotifyConfig      `yaml:"notify" mapstructure:"notify"`
	Tray        TrayConfig        `yaml:"tray" mapstructure:"tray"`
	MQTT        MQTTConfig        `yaml:"mqtt" mapstructure:"mqtt"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
}

// PathsConfig holds file locations. Relative paths are resolved against
// DataDir, which defaults to the per-user data directory.
type PathsConfig struct {
	DataDir  string `yaml:"data_dir" mapstructure:"data_dir"`
	State    string `yaml:"state" mapstructure:"state"`
	Log      string `yaml:"log" mapstructure:"log"`             // JSONL event log
	DebugLog string `yaml:"debug_log" mapstructure:"debug_log"` // daemon slog output
	Socket   string `yaml:"socket" mapstructure:"socket"`
	PID      string `yaml:"pid" mapstructure:"pid"`
	Backups  string `yaml:"backups" mapstructure:"backups"`
}

// TimerConfig holds countdown driver settings.
type TimerConfig struct {
	TickInterval  time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`
	EndFlushDelay time.Duration `yaml:"end_flush_delay" mapstructure:"end_flush_delay"`
}

// PersistenceConfig controls how often state reaches disk.
type PersistenceConfig struct {
	MinSaveDelay     time.Duration `yaml:"min_save_delay" mapstructure:"min_save_delay"`
	AutosaveInterval time.Duration `yaml:"autosave_interval" mapstructure:"autosave_interval"`
}

// BackupConfig holds daily backup rotation settings.
type BackupConfig struct {
	Enabled    bool `yaml:"enabled" mapstructure:"enabled"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"` // 0 keeps every backup
}

// SoundConfig holds end-of-countdown sound settings.
type SoundConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	File    string `yaml:"file" mapstructure:"file"` // .mp3 or .wav; empty uses the alert tone
}

// NotifyConfig holds desktop notification settings.
type NotifyConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// TrayConfig sizes the tray icon.
type TrayConfig struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	PointHeight int  `yaml:"point_height" mapstructure:"point_height"`
	Scale       int  `yaml:"scale" mapstructure:"scale"`
	HeartSize   int  `yaml:"heart_size" mapstructure:"heart_size"`
	MinWidth    int  `yaml:"min_width" mapstructure:"min_width"`
}

// MQTTConfig holds optional broker publishing settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker      string `yaml:"broker" mapstructure:"broker"` // e.g. tcp://localhost:1883
	ClientID    string `yaml:"client_id" mapstructure:"client_id"`
	TopicPrefix string `yaml:"topic_prefix" mapstructure:"topic_prefix"`
}

// LogRotationConfig holds settings for the daemon debug log
// (lumberjack-based automatic rotation).
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			State:    "cactus.json",
			Log:      "events.log",
			DebugLog: "cactus-debug.log",
			Socket:   "cactus.sock",
			PID:      "cactus.pid",
			Backups:  "config_backups",
		},
		Timer: TimerConfig{
			TickInterval:  time.Second,
			EndFlushDelay: 250 * time.Millisecond,
		},
		Persistence: PersistenceConfig{
			MinSaveDelay:     5 * time.Second,
			AutosaveInterval: 2 * time.Minute,
		},
		Backup: BackupConfig{
			Enabled:    true,
			MaxAgeDays: 30,
		},
		Sound: SoundConfig{
			Enabled: true,
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
		Tray: TrayConfig{
			Enabled:     true,
			PointHeight: 26,
			Scale:       2,
			HeartSize:   18,
			MinWidth:    32,
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			ClientID:    "cactus",
			TopicPrefix: "cactus",
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Validate reports configuration values that would break the daemon.
func (c *Config) Validate() error {
	if c.Timer.TickInterval <= 0 {
		return fmt.Errorf("timer.tick_interval must be positive, got %v", c.Timer.TickInterval)
	}
	if c.Timer.EndFlushDelay < 0 {
		return fmt.Errorf("timer.end_flush_delay must not be negative, got %v", c.Timer.EndFlushDelay)
	}
	if c.Persistence.MinSaveDelay < 0 || c.Persistence.AutosaveInterval < 0 {
		return fmt.Errorf("persistence intervals must not be negative")
	}
	if c.Backup.MaxAgeDays < 0 {
		return fmt.Errorf("backup.max_age_days must not be negative, got %d", c.Backup.MaxAgeDays)
	}
	t := c.Tray
	if t.PointHeight <= 0 || t.Scale <= 0 || t.HeartSize <= 0 || t.MinWidth <= 0 {
		return fmt.Errorf("tray sizes must be positive, got %+v", t)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt.enabled is true")
	}
	return nil
}
