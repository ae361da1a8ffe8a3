package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zyztek/suna-sub010/internal/expressions"
	"github.com/zyztek/suna-sub010/internal/scheduler"
)

// Config holds all flowgraph configuration.
// Priority: flags > env vars > settings.json > defaults.
type Config struct {
	DBPath            string `json:"db_path"`
	LogLevel          string `json:"log_level"`
	ExpressionDialect string `json:"expression_dialect"`
	HistoryLimit      int    `json:"history_limit"`
	SnapshotRetention string `json:"snapshot_retention"`
	PruneSchedule     string `json:"prune_schedule"`
	PanelAddr         string `json:"panel_addr"`
}

func defaultConfig() Config {
	return Config{
		DBPath:            filepath.Join(flowgraphDir(), "flowgraph.db"),
		LogLevel:          "info",
		ExpressionDialect: string(expressions.DialectCEL),
		HistoryLimit:      50,
		SnapshotRetention: scheduler.DefaultRetention.String(),
		PruneSchedule:     scheduler.DefaultSchedule,
	}
}

func flowgraphDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowgraph"
	}
	return filepath.Join(home, ".flowgraph")
}

func settingsPath() string {
	return filepath.Join(flowgraphDir(), "settings.json")
}

// loadConfig layers settings.json at path (ignored if missing) and
// FLOWGRAPH_* env vars over the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if v := os.Getenv("FLOWGRAPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FLOWGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLOWGRAPH_EXPRESSION_DIALECT"); v != "" {
		cfg.ExpressionDialect = v
	}
	if v := os.Getenv("FLOWGRAPH_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistoryLimit = n
		}
	}
	if v := os.Getenv("FLOWGRAPH_SNAPSHOT_RETENTION"); v != "" {
		cfg.SnapshotRetention = v
	}
	if v := os.Getenv("FLOWGRAPH_PRUNE_SCHEDULE"); v != "" {
		cfg.PruneSchedule = v
	}
	if v := os.Getenv("FLOWGRAPH_PANEL_ADDR"); v != "" {
		cfg.PanelAddr = v
	}

	return cfg, nil
}

func (c Config) validate() error {
	if _, err := c.retention(); err != nil {
		return err
	}
	if _, err := scheduler.ParseSchedule(c.PruneSchedule); err != nil {
		return err
	}
	if _, err := expressions.NewChecker(expressions.Dialect(c.ExpressionDialect)); err != nil {
		return err
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative, got %d", c.HistoryLimit)
	}
	return nil
}

func (c Config) retention() (time.Duration, error) {
	d, err := time.ParseDuration(c.SnapshotRetention)
	if err != nil {
		return 0, fmt.Errorf("parse snapshot_retention %q: %w", c.SnapshotRetention, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("snapshot_retention must be positive, got %s", d)
	}
	return d, nil
}

// dsn turns the configured path into a libSQL file URI.
func (c Config) dsn() string {
	return "file:" + c.DBPath
}
