// Package config loads the CLI's project-level defaults (import roots,
// default resolve mode, strict-merge) from a "facet.yaml"/"facet.yml" file,
// adapted from the teacher's internal/cli/config.Load.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the facet CLI's project configuration.
type Config struct {
	ResolveMode string   `mapstructure:"resolve_mode"`
	ImportRoots []string `mapstructure:"import_roots"`
	StrictMerge bool     `mapstructure:"strict_merge"`
}

// Load reads facet.yaml/facet.yml from the current directory, falling back
// to defaults when no config file is present.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("resolve_mode", "host")
	v.SetDefault("import_roots", []string{})
	v.SetDefault("strict_merge", false)

	v.SetConfigName("facet")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.ResolveMode != "host" && cfg.ResolveMode != "all" {
		return nil, fmt.Errorf("resolve_mode must be \"host\" or \"all\", got: %s", cfg.ResolveMode)
	}
	return &cfg, nil
}
