package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zyztek/suna-sub010/internal/layout"
	"github.com/zyztek/suna-sub010/internal/validation"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		to       string
		relayout bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a step tree to a graph or a graph to a step tree",
		Long: `Convert reads a step list (JSON array) or a graph (JSON object with nodes
and edges) and writes the other form. Use --to to force the output form.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args)
			if err != nil {
				return err
			}
			if to == "" {
				to = "graph"
				if doc.isGraph {
					to = "tree"
				}
			}
			switch to {
			case "graph":
				g := doc.asGraph()
				if relayout {
					g = layout.Apply(g)
				}
				a.logger.Debug("converted to graph", slog.Int("nodes", len(g.Nodes)), slog.Int("edges", len(g.Edges)))
				return writeJSON(cmd, output, g)
			case "tree":
				return writeJSON(cmd, output, doc.asSteps())
			}
			return fmt.Errorf("--to must be graph or tree, got %q", to)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "output form: graph or tree (default: the other form)")
	cmd.Flags().BoolVar(&relayout, "layout", false, "recompute positions when producing a graph")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newLayoutCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "layout [file]",
		Short: "Recompute node positions level by level",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args)
			if err != nil {
				return err
			}
			return writeJSON(cmd, output, layout.Apply(doc.asGraph()))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a workflow's structural well-formedness",
		Long: `Validate reports errors and warnings for a step list or graph. It exits
non-zero when the workflow has errors; warnings alone keep it valid.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args)
			if err != nil {
				return err
			}
			v, err := a.validator()
			if err != nil {
				return err
			}

			report := v.Validate(doc.asGraph()).Report()
			if asJSON {
				if err := writeJSON(cmd, "", report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, msg := range report.Errors {
					fmt.Fprintf(out, "error: %s\n", msg)
				}
				for _, msg := range report.Warnings {
					fmt.Fprintf(out, "warning: %s\n", msg)
				}
				if report.IsValid {
					fmt.Fprintln(out, "workflow is valid")
				}
			}
			if !report.IsValid {
				return fmt.Errorf("workflow is invalid: %d error(s)", len(report.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newAutoFixCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "autofix [file]",
		Short: "Reset invalid positions and drop duplicate edges",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args)
			if err != nil {
				return err
			}
			g := doc.asGraph()
			res := validation.AutoFix(g.Nodes, g.Edges)
			for _, fix := range res.Fixes {
				a.logger.Info("auto-fix applied", slog.String("fix", fix))
			}
			g.Nodes, g.Edges = res.Nodes, res.Edges
			return writeJSON(cmd, output, g)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
