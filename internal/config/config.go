// Package config loads server configuration from the environment.
//
// Everything is optional: PORT selects the listen port, DATA_DIR points at
// the root of the client data tree, and PUBLIC_DIR overrides the embedded
// SPA assets with a directory on disk (useful during web client development).
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Default values for Config.
const (
	DefaultPort    = 3001
	DefaultDataDir = "../data"
)

// Config holds the resolved server configuration.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port int

	// DataDir is the absolute path to the root of the client data tree.
	DataDir string

	// PublicDir optionally overrides the embedded SPA assets.
	// Empty means serve the embedded build.
	PublicDir string
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Load reads configuration from the environment, applying defaults for
// anything unset. DataDir is made absolute so that client data roots can be
// compared and joined safely.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("port", DefaultPort)
	v.SetDefault("data_dir", DefaultDataDir)

	// Bind the documented environment variables explicitly rather than using
	// an env prefix: these names predate this implementation.
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("data_dir", "DATA_DIR")
	_ = v.BindEnv("public_dir", "PUBLIC_DIR")

	cfg := &Config{
		Port:      v.GetInt("port"),
		DataDir:   v.GetString("data_dir"),
		PublicDir: v.GetString("public_dir"),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}
	cfg.DataDir = abs

	return cfg, nil
}

// Validate checks that all config values are valid.
func Validate(cfg *Config) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return ValidationError{Field: "port", Message: "must be between 0 and 65535"}
	}
	if cfg.DataDir == "" {
		return ValidationError{Field: "data_dir", Message: "required field is empty"}
	}
	return nil
}
