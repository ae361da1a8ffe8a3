package diagram

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
)

// Format selects the image encoding produced by RenderImage.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "png" or "svg", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", fmt.Errorf("diagram: unsupported image format %q", s)
}

// unitsPerInch maps editor coordinates onto graphviz inches.
const unitsPerInch = 100.0

// ToDOT converts a DiagramModel to Graphviz DOT. Every node is pinned at its
// editor position (y flipped, since graphviz grows upwards) so the neato
// layout reproduces the editor's arrangement.
func ToDOT(model *DiagramModel) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	if model.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", model.Title)
	}
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, n := range model.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(dotAttrs(n), ", "))
	}

	buf.WriteString("\n")
	for _, e := range model.Edges {
		if e.Label != "" {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, e.Label)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func dotAttrs(n *Node) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", firstLine(n.Label)),
		fmt.Sprintf("pos=\"%.2f,%.2f!\"", n.Position.X/unitsPerInch, 0-n.Position.Y/unitsPerInch),
	}
	if n.Kind == NodeKindCondition {
		attrs = append(attrs, "shape=diamond", "style=filled", "fillcolor=\"#fdf2d0\"")
	}
	switch {
	case n.HasIssues:
		attrs = append(attrs, "color=\"#8b1a1a\"", "penwidth=2")
	case n.Disabled:
		attrs = append(attrs, "fontcolor=\"#888888\"", "style=\"rounded,filled,dashed\"", "fillcolor=\"#e8e8e8\"")
	}
	return attrs
}

// RenderImage renders a DiagramModel as PNG or SVG bytes using graphviz.
func RenderImage(ctx context.Context, model *DiagramModel, format Format) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatPNG, "":
		gvFormat = graphviz.PNG
	case FormatSVG:
		gvFormat = graphviz.SVG
	default:
		return nil, fmt.Errorf("diagram: unsupported image format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.NEATO)

	graph, err := graphviz.ParseBytes([]byte(ToDOT(model)))
	if err != nil {
		return nil, fmt.Errorf("diagram: parse DOT: %w", err)
	}
	defer graph.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
