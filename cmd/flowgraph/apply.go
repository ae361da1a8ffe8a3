package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zyztek/suna-sub010/internal/session"
	"github.com/zyztek/suna-sub010/internal/streaming"
)

func newApplyCmd(a *app) *cobra.Command {
	var (
		scriptPath   string
		workflowID   string
		outputFormat string
		events       bool
		output       string
	)

	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Apply a YAML or JSON edit script to a workflow",
		Long: `Apply runs an edit script (insert_step, insert_condition, delete_node,
move_node, update_node, connect, disconnect, auto_fix, relayout, undo) against
a step list or graph and writes the result.

With --workflow, the starting point is the stored workflow when no input file
is given, and a snapshot is recorded after every operation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if scriptPath == "" {
				return fmt.Errorf("--script is required")
			}
			if outputFormat != "graph" && outputFormat != "tree" {
				return fmt.Errorf("--output-format must be graph or tree, got %q", outputFormat)
			}

			data, err := readInput(cmd, scriptPath)
			if err != nil {
				return err
			}
			ops, err := session.ParseScript(data)
			if err != nil {
				return err
			}

			v, err := a.validator()
			if err != nil {
				return err
			}
			hub := streaming.NewMemoryHub()
			opts := session.Options{
				WorkflowID:   workflowID,
				HistoryLimit: a.cfg.HistoryLimit,
				Hub:          hub,
				Validator:    v,
				Logger:       a.logger,
			}

			var doc document
			if workflowID != "" {
				st, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer st.Close()
				opts.Sink = st

				if len(args) == 0 {
					wf, err := st.GetWorkflow(ctx, workflowID)
					if err != nil {
						return err
					}
					doc = document{steps: wf.Steps}
				}
			}
			if len(args) > 0 || workflowID == "" {
				if doc, err = loadDocument(cmd, args); err != nil {
					return err
				}
			}

			var (
				sub    <-chan streaming.Event
				cancel = func() {}
			)
			if events {
				sub, cancel, err = hub.Subscribe(ctx, streaming.Filter{})
				if err != nil {
					return err
				}
			}
			defer cancel()

			editor := session.New(doc.asGraph(), opts)
			results, applyErr := editor.Apply(ctx, ops)
			if events {
				drainEvents(cmd, sub)
			}
			if applyErr != nil {
				return fmt.Errorf("apply script: %w", applyErr)
			}
			for _, r := range results {
				a.logger.Debug("operation applied", slog.String("op", r.Op), slog.Any("node_ids", r.NodeIDs))
			}

			report := editor.Validate().Report()
			for _, msg := range report.Errors {
				a.logger.Warn("edited workflow has errors", slog.String("issue", msg))
			}

			if outputFormat == "tree" {
				return writeJSON(cmd, output, editor.Steps())
			}
			return writeJSON(cmd, output, editor.Graph())
		},
	}

	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "edit script file, YAML or JSON (\"-\" for stdin)")
	cmd.Flags().StringVar(&workflowID, "workflow", "", "stored workflow to edit and snapshot")
	cmd.Flags().StringVar(&outputFormat, "output-format", "graph", "output form: graph or tree")
	cmd.Flags().BoolVar(&events, "events", false, "print change events to stderr as JSON lines")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

// drainEvents writes every buffered event to stderr without blocking.
func drainEvents(cmd *cobra.Command, sub <-chan streaming.Event) {
	enc := json.NewEncoder(cmd.ErrOrStderr())
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			_ = enc.Encode(ev)
		default:
			return
		}
	}
}
