package config

import (
	"errors"
	"fmt"
	"os"

	"todoperf/pkg/logging"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads the YAML file at path on top of DefaultConfig.
// An empty path or a missing file yields the defaults.
func LoadConfig(path string) (HarnessConfig, error) {
	config := DefaultConfig()
	if path == "" {
		logging.Debug("Config", "No configuration file given, using defaults")
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No configuration found at %s, using defaults", path)
			return config, nil
		}
		return HarnessConfig{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return HarnessConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return HarnessConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}

	logging.Info("Config", "Loaded configuration from %s", path)
	return config, nil
}

// Entity returns the configuration of kind.
func (c HarnessConfig) Entity(kind string) (EntityConfig, error) {
	entity, ok := c.Entities[kind]
	if !ok {
		return EntityConfig{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	return entity, nil
}
