package diagram

import (
	"cmp"
	"slices"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// Build converts a graph into a DiagramModel. Edges whose endpoints are
// missing are dropped. Levels group nodes sharing a y coordinate, ordered by x.
func Build(title string, g schema.Graph) *DiagramModel {
	model := &DiagramModel{Title: title}

	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if known[n.ID] {
			continue
		}
		known[n.ID] = true
		model.Nodes = append(model.Nodes, graphNodeToNode(n))
	}

	for _, e := range g.Edges {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		model.Edges = append(model.Edges, Edge{From: e.Source, To: e.Target, Label: e.Label})
	}

	model.Levels = buildLevels(model.Nodes)
	return model
}

func graphNodeToNode(n schema.GraphNode) *Node {
	node := &Node{
		ID:       n.ID,
		Label:    nodeLabel(n),
		Kind:     NodeKindStep,
		Position: n.Position,
	}
	if n.IsCondition() {
		node.Kind = NodeKindCondition
	}
	if n.Data != nil {
		node.HasIssues = n.Data.HasIssues
		node.Disabled = !n.Data.Enabled
	} else {
		node.HasIssues = true
	}
	return node
}

func nodeLabel(n schema.GraphNode) string {
	if n.Data == nil {
		return n.ID
	}
	if n.IsCondition() {
		label := n.Data.ConditionType.Label()
		if label == "" {
			label = "condition"
		}
		if n.Data.Expression != "" {
			return label + ": " + n.Data.Expression
		}
		return label
	}
	if n.Data.Name != "" {
		return n.Data.Name
	}
	return n.ID
}

func buildLevels(nodes []*Node) [][]string {
	sorted := slices.Clone(nodes)
	slices.SortStableFunc(sorted, func(a, b *Node) int {
		if c := cmp.Compare(a.Position.Y, b.Position.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.Position.X, b.Position.X)
	})

	var levels [][]string
	for i, n := range sorted {
		if i == 0 || n.Position.Y != sorted[i-1].Position.Y {
			levels = append(levels, nil)
		}
		levels[len(levels)-1] = append(levels[len(levels)-1], n.ID)
	}
	return levels
}

// findNode looks up a node by ID in the model's node list.
func findNode(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
