// Package edit implements the graph mutations offered by the editor.
// Every operation returns a new graph and leaves its input untouched.
package edit

import (
	"github.com/zyztek/suna-sub010/internal/convert"
	"github.com/zyztek/suna-sub010/pkg/schema"
)

// NewStepName is the placeholder name of an inserted step.
const NewStepName = "New Step"

// Spacing used when fanning out inserted condition nodes.
const (
	HorizontalSpacing = convert.HorizontalSpacing
	VerticalSpacing   = convert.VerticalSpacing
)

// InsertStepOnEdge splits edgeID into source -> new -> target. The new step
// takes the target's position and is flagged until renamed. A branch label
// on the split edge stays on the edge entering the target.
func InsertStepOnEdge(g schema.Graph, edgeID string) (schema.Graph, string, error) {
	e, ok := g.Edge(edgeID)
	if !ok {
		return g, "", schema.NewErrorf(schema.ErrCodeNotFound, "edge %s not found", edgeID)
	}
	target, ok := g.Node(e.Target)
	if !ok {
		return g, "", schema.NewErrorf(schema.ErrCodeNotFound, "edge %s points at missing node %s", edgeID, e.Target)
	}

	out := g.Clone()
	id := convert.NewID()
	out.Nodes = append(out.Nodes, schema.GraphNode{
		ID:       id,
		Type:     schema.NodeTypeStep,
		Position: target.Position,
		Data: &schema.NodeData{
			Name:      NewStepName,
			StepType:  schema.StepTypeInstruction,
			Enabled:   true,
			HasIssues: true,
		},
	})

	edges := make([]schema.GraphEdge, 0, len(out.Edges)+1)
	for _, x := range out.Edges {
		if x.ID != edgeID {
			edges = append(edges, x)
			continue
		}
		in := schema.NewEdge(x.Source, id, "")
		in.Type = x.Type
		onward := schema.NewEdge(id, x.Target, x.Label)
		onward.Type = x.Type
		edges = append(edges, in, onward)
	}
	out.Edges = edges
	return out, id, nil
}

// DeleteNode removes nodeID and every edge touching it. It does not consult
// any safety check; see validation.CanDelete.
func DeleteNode(g schema.Graph, nodeID string) schema.Graph {
	out := schema.Graph{
		Nodes: make([]schema.GraphNode, 0, len(g.Nodes)),
		Edges: make([]schema.GraphEdge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		if n.ID != nodeID {
			out.Nodes = append(out.Nodes, n.Clone())
		}
	}
	for _, e := range g.Edges {
		if e.Source != nodeID && e.Target != nodeID {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// MoveNode sets the position of nodeID.
func MoveNode(g schema.Graph, nodeID string, pos schema.Position) (schema.Graph, error) {
	idx, ok := g.NodeIndex()[nodeID]
	if !ok {
		return g, schema.NewErrorf(schema.ErrCodeNotFound, "node %s not found", nodeID)
	}
	if !pos.Finite() {
		return g, schema.NewErrorf(schema.ErrCodeInvalidArgument, "position of node %s must be finite", nodeID)
	}
	out := g.Clone()
	out.Nodes[idx].Position = pos
	return out, nil
}

// UpdateNode applies fn to a copy of the node's data. A node without data
// receives an empty payload first.
func UpdateNode(g schema.Graph, nodeID string, fn func(*schema.NodeData)) (schema.Graph, error) {
	idx, ok := g.NodeIndex()[nodeID]
	if !ok {
		return g, schema.NewErrorf(schema.ErrCodeNotFound, "node %s not found", nodeID)
	}
	out := g.Clone()
	if out.Nodes[idx].Data == nil {
		out.Nodes[idx].Data = &schema.NodeData{Enabled: true}
	}
	fn(out.Nodes[idx].Data)
	return out, nil
}

// Connect adds an edge from source to target unless one already exists.
func Connect(g schema.Graph, source, target, label string) (schema.Graph, error) {
	idx := g.NodeIndex()
	if _, ok := idx[source]; !ok {
		return g, schema.NewErrorf(schema.ErrCodeNotFound, "node %s not found", source)
	}
	if _, ok := idx[target]; !ok {
		return g, schema.NewErrorf(schema.ErrCodeNotFound, "node %s not found", target)
	}
	out := g.Clone()
	id := schema.EdgeID(source, target)
	if _, exists := out.Edge(id); exists {
		return out, nil
	}
	out.Edges = append(out.Edges, schema.NewEdge(source, target, label))
	return out, nil
}

// Disconnect removes the edge with the given id.
func Disconnect(g schema.Graph, edgeID string) (schema.Graph, error) {
	if _, ok := g.Edge(edgeID); !ok {
		return g, schema.NewErrorf(schema.ErrCodeNotFound, "edge %s not found", edgeID)
	}
	out := g.Clone()
	edges := out.Edges[:0]
	for _, e := range out.Edges {
		if e.ID != edgeID {
			edges = append(edges, e)
		}
	}
	out.Edges = edges
	return out, nil
}
