// gen-diagrams generates sample diagram outputs for README documentation.
// Run: go run ./cmd/gen-diagrams
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zyztek/suna-sub010/internal/convert"
	"github.com/zyztek/suna-sub010/internal/diagram"
	"github.com/zyztek/suna-sub010/pkg/schema"
)

func main() {
	// Order routing: fetch → check stock → (in stock: charge → ship | else: notify) with one disabled step.
	steps := []schema.Step{
		{ID: "fetch-order", Name: "Fetch order", Type: schema.StepTypeInstruction, Enabled: true,
			Config: map[string]any{"tool": "http.request"}},
		{ID: "check-stock", Name: "Check stock", Type: schema.StepTypeInstruction, Enabled: true, Order: 1,
			Children: []schema.Step{
				{ID: "in-stock", Name: "In stock", Type: schema.StepTypeCondition, Enabled: true,
					Conditions: &schema.Conditions{Type: schema.ConditionIf, Expression: "input.quantity > 0"},
					Children: []schema.Step{
						{ID: "charge", Name: "Charge card", Type: schema.StepTypeInstruction, Enabled: true},
						{ID: "ship", Name: "Ship", Type: schema.StepTypeInstruction, Enabled: true, Order: 1},
					}},
				{ID: "backorder", Name: "Backorder", Type: schema.StepTypeCondition, Enabled: true, Order: 1,
					Conditions: &schema.Conditions{Type: schema.ConditionElseIf, Expression: "input.backorder"},
					Children: []schema.Step{
						{ID: "notify-restock", Name: "Notify restock", Type: schema.StepTypeInstruction, Enabled: false},
					}},
				{ID: "otherwise", Name: "Otherwise", Type: schema.StepTypeCondition, Enabled: true, Order: 2,
					Conditions: &schema.Conditions{Type: schema.ConditionElse},
					Children: []schema.Step{
						{ID: "cancel", Name: "Cancel order", Type: schema.StepTypeInstruction, Enabled: true, HasIssues: true},
					}},
			}},
	}

	model := diagram.Build("Order routing", convert.ToGraph(steps))

	outDir := filepath.Join("docs", "assets")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}

	ascii := diagram.RenderASCII(model)
	write(filepath.Join(outDir, "diagram-ascii.txt"), []byte(ascii))
	fmt.Println("=== ASCII ===")
	fmt.Println(ascii)

	mermaid := diagram.RenderMermaid(model)
	write(filepath.Join(outDir, "diagram-mermaid.md"), []byte("```mermaid\n"+mermaid+"\n```\n"))
	fmt.Println("=== Mermaid ===")
	fmt.Println(mermaid)

	for _, format := range []diagram.Format{diagram.FormatPNG, diagram.FormatSVG} {
		img, err := diagram.RenderImage(context.Background(), model, format)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s error: %v\n", format, err)
			continue
		}
		path := filepath.Join(outDir, "diagram-sample."+string(format))
		write(path, img)
		fmt.Printf("=== Image (%s) ===\nWritten: %s (%d bytes)\n", format, path, len(img))
	}
}

func write(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
	}
}
