package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FLOWGRAPH_DB_PATH", "FLOWGRAPH_LOG_LEVEL", "FLOWGRAPH_EXPRESSION_DIALECT",
		"FLOWGRAPH_HISTORY_LIMIT", "FLOWGRAPH_SNAPSHOT_RETENTION", "FLOWGRAPH_PRUNE_SCHEDULE",
		"FLOWGRAPH_PANEL_ADDR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.NoError(t, cfg.validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "cel", cfg.ExpressionDialect)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, "720h0m0s", cfg.SnapshotRetention)
	assert.Equal(t, "0 * * * *", cfg.PruneSchedule)
	assert.Equal(t, "flowgraph.db", filepath.Base(cfg.DBPath))
	assert.Empty(t, cfg.PanelAddr)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"db_path":"/tmp/a.db","expression_dialect":"expr","history_limit":5}`), 0o644))
	t.Setenv("FLOWGRAPH_DB_PATH", "/tmp/b.db")
	t.Setenv("FLOWGRAPH_HISTORY_LIMIT", "7")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/b.db", cfg.DBPath)
	assert.Equal(t, "expr", cfg.ExpressionDialect)
	assert.Equal(t, 7, cfg.HistoryLimit)
	assert.Equal(t, "file:/tmp/b.db", cfg.dsn())
}

func TestLoadConfig_BadJSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	_, err := loadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad retention", func(c *Config) { c.SnapshotRetention = "soon" }, "snapshot_retention"},
		{"zero retention", func(c *Config) { c.SnapshotRetention = "0s" }, "must be positive"},
		{"bad schedule", func(c *Config) { c.PruneSchedule = "every day" }, ""},
		{"bad dialect", func(c *Config) { c.ExpressionDialect = "lua" }, "unknown expression dialect"},
		{"negative history", func(c *Config) { c.HistoryLimit = -1 }, "history_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			require.Error(t, err)
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}
