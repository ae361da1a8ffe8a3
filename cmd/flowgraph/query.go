package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zyztek/suna-sub010/internal/expressions"
)

func newQueryCmd(a *app) *cobra.Command {
	var graphInput bool

	cmd := &cobra.Command{
		Use:   "query <program> [file]",
		Short: "Run a jq program over a step tree",
		Long: `Query evaluates a jq program over the step tree form of the input and
prints one JSON value per line. Use --graph to query the graph form instead.

Example:
  flowgraph query '[.. | objects | select(.hasIssues) | .id]' workflow.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args[1:])
			if err != nil {
				return err
			}

			q := expressions.NewQuery()
			var out []any
			if graphInput {
				out, err = q.Run(cmd.Context(), args[0], doc.asGraph())
			} else {
				out, err = q.Steps(cmd.Context(), args[0], doc.asSteps())
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, v := range out {
				if err := enc.Encode(v); err != nil {
					return fmt.Errorf("encode result: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&graphInput, "graph", false, "query the graph form instead of the step tree")
	return cmd
}
