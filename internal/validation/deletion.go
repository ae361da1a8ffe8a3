package validation

import (
	"fmt"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// DeletionCheck is the verdict of CanDelete.
type DeletionCheck struct {
	CanDelete bool   `json:"canDelete"`
	Reason    string `json:"reason,omitempty"`
}

// CanDelete reports whether removing nodeID keeps the graph recoverable.
// It refuses to remove the last node, and refuses to remove a node without
// incoming edges when one of its children has no other incoming edge.
func CanDelete(nodeID string, nodes []schema.GraphNode, edges []schema.GraphEdge) DeletionCheck {
	found := false
	for _, n := range nodes {
		if n.ID == nodeID {
			found = true
			break
		}
	}
	if !found {
		return DeletionCheck{Reason: fmt.Sprintf("node %s not found", nodeID)}
	}
	if len(nodes) == 1 {
		return DeletionCheck{Reason: "cannot delete the only node in the workflow"}
	}

	incoming := make(map[string]int, len(nodes))
	var children []string
	for _, e := range edges {
		incoming[e.Target]++
		if e.Source == nodeID {
			children = append(children, e.Target)
		}
	}
	if incoming[nodeID] > 0 {
		return DeletionCheck{CanDelete: true}
	}

	for _, child := range children {
		if child == nodeID {
			continue
		}
		if incoming[child]-countEdges(edges, nodeID, child) == 0 {
			return DeletionCheck{
				Reason: fmt.Sprintf("deleting %s would disconnect node %s", nodeID, child),
			}
		}
	}
	return DeletionCheck{CanDelete: true}
}

func countEdges(edges []schema.GraphEdge, source, target string) int {
	n := 0
	for _, e := range edges {
		if e.Source == source && e.Target == target {
			n++
		}
	}
	return n
}
