package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zyztek/suna-sub010/internal/diagram"
)

func newDiagramCmd(a *app) *cobra.Command {
	var (
		format string
		title  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "diagram [file]",
		Short: "Render a workflow as Mermaid, ASCII, PNG or SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadDocument(cmd, args)
			if err != nil {
				return err
			}
			model := diagram.Build(title, doc.asGraph())

			switch format {
			case "mermaid":
				return writeOutput(cmd, output, []byte(diagram.RenderMermaid(model)))
			case "ascii":
				return writeOutput(cmd, output, []byte(diagram.RenderASCII(model)))
			}

			imgFormat, err := diagram.ParseFormat(format)
			if err != nil {
				return fmt.Errorf("--format must be mermaid, ascii, png or svg: %w", err)
			}
			img, err := diagram.RenderImage(cmd.Context(), model, imgFormat)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, img)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "mermaid", "output format: mermaid, ascii, png, svg")
	cmd.Flags().StringVar(&title, "title", "", "diagram title")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
