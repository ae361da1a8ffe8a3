package validation

import (
	"fmt"
	"math"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// MaxCoordinate bounds both axes of a valid position.
const MaxCoordinate = 10000.0

// ValidPosition reports whether p is finite and inside the canvas bounds.
func ValidPosition(p schema.Position) bool {
	return p.Finite() && math.Abs(p.X) <= MaxCoordinate && math.Abs(p.Y) <= MaxCoordinate
}

// AutoFixResult holds the repaired graph and one message per fix applied.
type AutoFixResult struct {
	Nodes []schema.GraphNode `json:"nodes"`
	Edges []schema.GraphEdge `json:"edges"`
	Fixes []string           `json:"fixes"`
}

// AutoFix resets invalid positions to the origin and drops edges repeating
// an earlier source and target. Nothing else is changed; nodes are never
// removed. The input slices are not modified.
func AutoFix(nodes []schema.GraphNode, edges []schema.GraphEdge) AutoFixResult {
	res := AutoFixResult{
		Nodes: make([]schema.GraphNode, len(nodes)),
		Edges: make([]schema.GraphEdge, 0, len(edges)),
		Fixes: []string{},
	}

	for i, n := range nodes {
		res.Nodes[i] = n.Clone()
		if !ValidPosition(n.Position) {
			res.Nodes[i].Position = schema.Position{}
			res.Fixes = append(res.Fixes, fmt.Sprintf("Reset invalid position of node %s", n.ID))
		}
	}

	seen := make(map[[2]string]bool, len(edges))
	for _, e := range edges {
		key := [2]string{e.Source, e.Target}
		if seen[key] {
			res.Fixes = append(res.Fixes, fmt.Sprintf("Removed duplicate edge %s -> %s", e.Source, e.Target))
			continue
		}
		seen[key] = true
		res.Edges = append(res.Edges, e)
	}
	return res
}
