package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty working directory with no
// TIMINGSHADOW_* or DATABASE_URL variables inherited from the host.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range []string{
		"DATABASE_URL",
		"TIMINGSHADOW_DRIVER",
		"TIMINGSHADOW_DATABASE",
		"TIMINGSHADOW_DATABASE_URL",
		"TIMINGSHADOW_ARTIFACT_DIR",
		"TIMINGSHADOW_WRITE_ARTIFACTS",
		"TIMINGSHADOW_LOG_LEVEL",
		"TIMINGSHADOW_LOG_FORMAT",
		"TIMINGSHADOW_METRICS_ADDR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Equal(t, DefaultArtifactDir, cfg.ArtifactDir)
	assert.True(t, cfg.WriteArtifacts)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database: stats.db
artifact_dir: out/shadow
write_artifacts: false
log_level: debug
log_format: json
metrics_addr: ":9102"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "stats.db", cfg.Database)
	assert.Equal(t, "out/shadow", cfg.ArtifactDir)
	assert.False(t, cfg.WriteArtifacts)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
}

func TestLoad_DiscoversDefaultConfigName(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "timingshadow.yaml"), []byte("database: found.db\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "found.db", cfg.Database)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: file.db\n"), 0o644))
	t.Setenv("TIMINGSHADOW_DATABASE", "env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database)
}

func TestLoad_PostgresFromDatabaseURL(t *testing.T) {
	isolate(t)
	t.Setenv("TIMINGSHADOW_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://bot@localhost:5432/etlegacy")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "postgres://bot@localhost:5432/etlegacy", cfg.DatabaseURL)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TIMINGSHADOW_ARTIFACT_DIR=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("TIMINGSHADOW_ARTIFACT_DIR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.ArtifactDir)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Driver: DriverSQLite, Database: "x.db", LogLevel: "info", LogFormat: LogFormatText}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Driver = "mysql" }, `driver "mysql"`},
		{"sqlite without path", func(c *Config) { c.Database = "" }, "database path is required"},
		{"postgres without url", func(c *Config) { c.Driver = DriverPostgres }, "database_url"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	c := valid()
	assert.NoError(t, c.Validate())
}

func TestSlogLevel(t *testing.T) {
	c := Config{LogLevel: "warn"}
	level, err := c.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoad_DefersValidation(t *testing.T) {
	isolate(t)
	t.Setenv("TIMINGSHADOW_DRIVER", "postgres")

	cfg, err := Load("")
	require.NoError(t, err, "overrides may still supply database_url")
	assert.Error(t, cfg.Validate())

	cfg.DatabaseURL = "postgres://localhost/etlegacy"
	assert.NoError(t, cfg.Validate())
}
