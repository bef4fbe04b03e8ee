package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// LoadEnv reads configuration from environment variables.
func LoadEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// Resolve combines the optional config file with the environment: file values win over
// environment values, and package defaults fill whatever is left.
func Resolve(path string) (Config, error) {
	envCfg, err := LoadEnv()
	if err != nil {
		return Config{}, err
	}

	fileCfg := &Config{}
	if path != "" {
		if fileCfg, err = LoadConfig(path); err != nil {
			return Config{}, err
		}
	}

	merged := fileCfg.MergeWithDefaults(*envCfg)
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}
	return merged, nil
}
