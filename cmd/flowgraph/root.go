package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zyztek/suna-sub010/internal/expressions"
	"github.com/zyztek/suna-sub010/internal/logging"
	"github.com/zyztek/suna-sub010/internal/store"
	"github.com/zyztek/suna-sub010/internal/validation"
)

// app carries the resolved configuration and shared services into the
// subcommands. It is filled in by the root PersistentPreRunE.
type app struct {
	settings string
	dbPath   string
	logLevel string
	dialect  string

	cfg    Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "flowgraph",
		Short:        "Convert, lay out, validate and edit conditional workflow graphs",
		Long:         `flowgraph turns persisted step trees (sequential steps with if/else if/else branch groups) into editable node/edge graphs and back, lays them out, validates their structure and applies scripted edits.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.settings, "config", settingsPath(), "settings file")
	pf.StringVar(&a.dbPath, "db", "", "database path (overrides db_path)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.dialect, "dialect", "", "expression dialect: cel, expr, none")

	root.AddCommand(newConvertCmd(a))
	root.AddCommand(newLayoutCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newAutoFixCmd(a))
	root.AddCommand(newApplyCmd(a))
	root.AddCommand(newDiagramCmd(a))
	root.AddCommand(newQueryCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newVersionCmd())

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.settings)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.dialect != "" {
		cfg.ExpressionDialect = a.dialect
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.NewWriter(cmd.ErrOrStderr(), logging.ParseLevel(cfg.LogLevel))
	return nil
}

// validator builds the graph validator for the configured dialect.
func (a *app) validator() (*validation.Validator, error) {
	checker, err := expressions.NewChecker(expressions.Dialect(a.cfg.ExpressionDialect))
	if err != nil {
		return nil, err
	}
	if checker == nil {
		return validation.NewValidator(nil), nil
	}
	return validation.NewValidator(checker), nil
}

// openStore opens and migrates the configured database.
func (a *app) openStore(ctx context.Context) (*store.LibSQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	st, err := store.NewLibSQLStore(a.cfg.dsn())
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate %s: %w", a.cfg.DBPath, err)
	}
	return st, nil
}
