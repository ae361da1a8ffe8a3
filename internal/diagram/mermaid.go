package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string.
// Condition nodes are diamonds and branch labels ride on the edges.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", mermaidEscapeLabel(edge.Label))
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n",
			mermaidSafeID(edge.From), label, mermaidSafeID(edge.To)))
	}

	var issues, disabled []string
	for _, node := range model.Nodes {
		if node.HasIssues {
			issues = append(issues, mermaidSafeID(node.ID))
		}
		if node.Disabled {
			disabled = append(disabled, mermaidSafeID(node.ID))
		}
	}
	if len(issues) == 0 && len(disabled) == 0 {
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString("    classDef issues fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef disabled fill:#4a4a4a,stroke:#333,color:#aaa,stroke-dasharray:5 5\n")
	if len(issues) > 0 {
		b.WriteString(fmt.Sprintf("    class %s issues\n", strings.Join(issues, ",")))
	}
	if len(disabled) > 0 {
		b.WriteString(fmt.Sprintf("    class %s disabled\n", strings.Join(disabled, ",")))
	}
	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	id := mermaidSafeID(node.ID)
	label := mermaidEscapeLabel(firstLine(node.Label))

	if node.Kind == NodeKindCondition {
		return fmt.Sprintf("%s{%q}", id, label)
	}
	return fmt.Sprintf("%s[%q]", id, label)
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_", ">", "_")
	return r.Replace(id)
}

// mermaidEscapeLabel replaces characters that terminate Mermaid labels.
func mermaidEscapeLabel(s string) string {
	r := strings.NewReplacer(`"`, "#quot;", "|", "#124;")
	return r.Replace(s)
}
