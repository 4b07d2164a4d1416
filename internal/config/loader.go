package config

import (
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ConfigPaths defines the search locations for config files.
const (
	// GlobalConfigDir is the XDG config directory name
	GlobalConfigDir = "cactus"
	// GlobalConfigFile is the global config file name
	GlobalConfigFile = "config.yaml"
	// ProjectConfigDir is the project-local config directory
	ProjectConfigDir = ".cactus"
	// ProjectConfigFile is the project-local config file name
	ProjectConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides (CACTUS_*).
	EnvPrefix = "CACTUS"
)

// LoadConfig loads configuration from files and viper settings.
// Precedence (later overrides earlier):
//  1. Default() values
//  2. ~/.config/cactus/config.yaml (global)
//  3. .cactus/config.yaml (project)
//  4. Explicit --config file
//  5. Environment variables (CACTUS_*)
//  6. CLI flags (already bound to viper)
//
// Missing config files are silently ignored. Relative paths in the result
// are resolved against Paths.DataDir.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := Default()

	defaultMap, err := structToMap(cfg)
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(defaultMap); err != nil {
		return nil, err
	}

	// Explicit config (from --config flag or CACTUS_CONFIG) must exist
	if explicitPath := v.GetString("config"); explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return nil, err
		}
	}

	for _, path := range SourceFiles(v) {
		if err := loadConfigFile(v, path); err != nil {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg, viperDecodeHook()); err != nil {
		return nil, err
	}

	if err := cfg.ResolvePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SourceFiles returns the config files LoadConfig reads, in precedence
// order. Only existing global and project files are listed; the explicit
// file is listed whenever it is set.
func SourceFiles(v *viper.Viper) []string {
	var files []string
	if p := globalConfigPath(); p != "" {
		files = append(files, p)
	}
	if p := projectConfigPath(); p != "" {
		files = append(files, p)
	}
	if v != nil {
		if p := v.GetString("config"); p != "" {
			files = append(files, p)
		}
	}
	return files
}

// DefaultDataDir returns $XDG_DATA_HOME/cactus, falling back to
// ~/.local/share/cactus.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, GlobalConfigDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", GlobalConfigDir), nil
}

// ResolvePaths fills in DataDir and makes every relative path absolute
// under it.
func (c *Config) ResolvePaths() error {
	if c.Paths.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return err
		}
		c.Paths.DataDir = dir
	}
	for _, p := range []*string{
		&c.Paths.State,
		&c.Paths.Log,
		&c.Paths.DebugLog,
		&c.Paths.Socket,
		&c.Paths.PID,
		&c.Paths.Backups,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.Paths.DataDir, *p)
		}
	}
	return nil
}

// globalConfigPath returns the global config file path if it exists.
func globalConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}

	path := filepath.Join(configDir, GlobalConfigDir, GlobalConfigFile)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// projectConfigPath returns the project config file path if it exists.
func projectConfigPath() string {
	path := filepath.Join(ProjectConfigDir, ProjectConfigFile)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// loadConfigFile loads a YAML config file and merges it into viper.
// Returns nil if the file doesn't exist.
func loadConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	fileViper := viper.New()
	fileViper.SetConfigType("yaml")
	if err := fileViper.ReadConfig(file); err != nil {
		return err
	}

	return v.MergeConfigMap(fileViper.AllSettings())
}

// viperDecodeHook returns the decoder config with duration hook.
func viperDecodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// structToMap converts a struct to a map for viper.MergeConfigMap.
func structToMap(cfg *Config) (map[string]interface{}, error) {
	result := make(map[string]interface{})

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "mapstructure",
		Result:  &result,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			durationToStringHook(),
		),
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(cfg); err != nil {
		return nil, err
	}

	return result, nil
}

// durationToStringHook converts time.Duration to string for YAML compatibility.
func durationToStringHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if from != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return data.(time.Duration).String(), nil
	}
}
