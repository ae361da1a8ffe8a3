package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zyztek/suna-sub010/internal/expressions"
	"github.com/zyztek/suna-sub010/internal/panel"
	"github.com/zyztek/suna-sub010/internal/scheduler"
	"github.com/zyztek/suna-sub010/internal/streaming"
	"github.com/zyztek/suna-sub010/internal/validation"
	flowmcp "github.com/zyztek/suna-sub010/pkg/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	var panelAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workflow graph tools over MCP stdio",
		Long: `Serve exposes conversion, layout, validation, editing, diagrams and
persistence as MCP tools on stdin/stdout. Old snapshots are pruned on the
configured cron schedule while the server runs.

With --panel-addr, a web panel listing stored workflows and streaming edit
events over SSE is served on that address as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if panelAddr == "" {
				panelAddr = a.cfg.PanelAddr
			}

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			retention, err := a.cfg.retention()
			if err != nil {
				return err
			}
			pruner, err := scheduler.NewPruner(st, a.cfg.PruneSchedule, retention, a.logger)
			if err != nil {
				return err
			}
			if err := pruner.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = pruner.Stop() }()

			checker, err := expressions.NewChecker(expressions.Dialect(a.cfg.ExpressionDialect))
			if err != nil {
				return err
			}
			docs, err := validation.NewDocumentValidator()
			if err != nil {
				return err
			}
			hub := streaming.NewMemoryHub()

			deps := flowmcp.FlowServerDeps{
				Store:        st,
				Documents:    docs,
				Query:        expressions.NewQuery(),
				Hub:          hub,
				HistoryLimit: a.cfg.HistoryLimit,
				Version:      version,
				Logger:       a.logger,
			}
			if checker != nil {
				deps.Checker = checker
			}

			if panelAddr != "" {
				v, err := a.validator()
				if err != nil {
					return err
				}
				srv := &http.Server{
					Addr: panelAddr,
					Handler: panel.NewPanelServer(panel.PanelDeps{
						Store:        st,
						Hub:          hub,
						Validator:    v,
						HistoryLimit: a.cfg.HistoryLimit,
						Logger:       a.logger,
					}).Handler(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					a.logger.Info("panel listening", slog.String("addr", panelAddr))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("panel server", slog.Any("error", err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			a.logger.Info("flowgraph MCP server starting",
				slog.String("db", a.cfg.DBPath),
				slog.String("dialect", a.cfg.ExpressionDialect),
				slog.String("prune_schedule", a.cfg.PruneSchedule),
			)
			err = flowmcp.NewFlowServer(deps).Serve(ctx)
			a.logger.Info("flowgraph MCP server stopped")
			return err
		},
	}

	cmd.Flags().StringVar(&panelAddr, "panel-addr", "", "serve the web panel on this address, e.g. :8080 (overrides panel_addr)")
	return cmd
}
