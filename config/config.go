package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config path is given. It may be absent.
const DefaultPath = "library.yaml"

// EnvPrefix is prepended to every environment override, e.g. LIBRARY_DB_PATH.
const EnvPrefix = "LIBRARY_"

// Config holds the runtime settings of the CLI and the seed tool.
type Config struct {
	DBPath        string `yaml:"dbPath" env:"DB_PATH"`
	LogLevel      string `yaml:"logLevel" env:"LOG_LEVEL"`
	LogFormat     string `yaml:"logFormat" env:"LOG_FORMAT"`
	BusyTimeoutMs int    `yaml:"busyTimeoutMs" env:"BUSY_TIMEOUT_MS"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		DBPath:        "library.db",
		LogLevel:      "info",
		LogFormat:     "text",
		BusyTimeoutMs: 5000,
	}
}

// BusyTimeout is BusyTimeoutMs as a duration.
func (c Config) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMs) * time.Millisecond
}

// Load reads config from path (defaults to DefaultPath), then applies
// LIBRARY_* environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("env config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("config: dbPath is required (set in library.yaml or LIBRARY_DB_PATH)")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown logLevel %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: logFormat must be text or json, got %q", cfg.LogFormat)
	}
	if cfg.BusyTimeoutMs < 0 {
		return errors.New("config: busyTimeoutMs must not be negative")
	}
	return nil
}
