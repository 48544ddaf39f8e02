// Package config loads operator settings from flags, environment, .env
// files and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "TIMINGSHADOW"

// Defaults.
const (
	DefaultDatabase    = "slomix.db"
	DefaultArtifactDir = "debug/timing_shadow"
	DefaultLogLevel    = "info"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Config file actually read, empty when none was found.
	ConfigFile string

	// Storage
	Driver      string
	Database    string
	DatabaseURL string

	// Debug artifacts
	ArtifactDir    string
	WriteArtifacts bool

	// Logging configuration
	LogLevel  string
	LogFormat string

	// MetricsAddr serves /metrics when non-empty.
	MetricsAddr string
}

// Load loads configuration from all sources in order of precedence:
// 1. Command-line flags (applied by the caller after Load)
// 2. Environment variables (TIMINGSHADOW_*, plus DATABASE_URL)
// 3. .env files (.env.local overrides .env)
// 4. Config file (path, or ./timingshadow.yaml when path is empty)
// 5. Defaults
//
// The returned config is not validated; callers apply flag overrides and
// then call Validate.
func Load(path string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind database_url: %w", err)
	}

	v.SetDefault("driver", DriverSQLite)
	v.SetDefault("database", DefaultDatabase)
	v.SetDefault("artifact_dir", DefaultArtifactDir)
	v.SetDefault("write_artifacts", true)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", LogFormatText)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("timingshadow")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		ConfigFile:     v.ConfigFileUsed(),
		Driver:         strings.ToLower(v.GetString("driver")),
		Database:       v.GetString("database"),
		DatabaseURL:    v.GetString("database_url"),
		ArtifactDir:    v.GetString("artifact_dir"),
		WriteArtifacts: v.GetBool("write_artifacts"),
		LogLevel:       strings.ToLower(v.GetString("log_level")),
		LogFormat:      strings.ToLower(v.GetString("log_format")),
		MetricsAddr:    v.GetString("metrics_addr"),
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Database == "" {
			return fmt.Errorf("invalid config: database path is required for driver %q", c.Driver)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("invalid config: database_url (or DATABASE_URL) is required for driver %q", c.Driver)
		}
	default:
		return fmt.Errorf("invalid config: driver %q must be %q or %q", c.Driver, DriverSQLite, DriverPostgres)
	}

	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("invalid config: log_format %q must be %q or %q", c.LogFormat, LogFormatText, LogFormatJSON)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid config: log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// loadEnvFiles loads environment variables from .env files.
// Variables already present in the environment are not overridden.
func loadEnvFiles() {
	// .env.local is loaded first so its values win over .env
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
