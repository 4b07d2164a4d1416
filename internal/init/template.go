package initcmd

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/npratt/cactus/internal/config"
)

const templateHeader = `# cactus configuration
#
# Values here override the built-in defaults. Relative paths are resolved
# against paths.data_dir (default: $XDG_DATA_HOME/cactus). Environment
# variables such as CACTUS_SOUND_ENABLED override this file.
#
# Timer durations, theme and volume are not set here: change them with
# "cactus settings" or from the tray menu.

`

// minimalConfig holds the sections most people change.
type minimalConfig struct {
	Sound  config.SoundConfig  `yaml:"sound"`
	Notify config.NotifyConfig `yaml:"notify"`
	MQTT   config.MQTTConfig   `yaml:"mqtt"`
}

// Template renders the default configuration as commented YAML.
func Template(minimal bool) (string, error) {
	def := config.Default()

	var doc any = def
	if minimal {
		doc = minimalConfig{Sound: def.Sound, Notify: def.Notify, MQTT: def.MQTT}
	}

	var buf bytes.Buffer
	buf.WriteString(templateHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode config template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode config template: %w", err)
	}
	return buf.String(), nil
}
