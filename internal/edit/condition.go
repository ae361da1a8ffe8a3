package edit

import (
	"github.com/zyztek/suna-sub010/internal/convert"
	"github.com/zyztek/suna-sub010/pkg/schema"
)

// GroupType selects which branches InsertCondition creates.
type GroupType string

const (
	GroupIf           GroupType = "if"
	GroupIfElse       GroupType = "if-else"
	GroupIfElseIfElse GroupType = "if-elseif-else"
)

// Branches returns the condition types of the group in order.
func (t GroupType) Branches() ([]schema.ConditionType, bool) {
	switch t {
	case GroupIf:
		return []schema.ConditionType{schema.ConditionIf}, true
	case GroupIfElse:
		return []schema.ConditionType{schema.ConditionIf, schema.ConditionElse}, true
	case GroupIfElseIfElse:
		return []schema.ConditionType{schema.ConditionIf, schema.ConditionElseIf, schema.ConditionElse}, true
	}
	return nil, false
}

// Anchor is where a condition group is inserted: on an edge, replacing it,
// or below a node. Exactly one field is set.
type Anchor struct {
	EdgeID string `json:"edgeId,omitempty"`
	NodeID string `json:"nodeId,omitempty"`
}

// InsertCondition adds a condition group below the anchor. The anchor node
// is connected to every branch with its label. Only the branches listed in
// connect are wired on to the anchor's original downstream node; the others
// stay open for manual wiring. When anchored on an edge, that edge is
// replaced. It returns the ids of the new condition nodes in branch order.
func InsertCondition(g schema.Graph, anchor Anchor, group GroupType, connect []schema.ConditionType) (schema.Graph, []string, error) {
	types, ok := group.Branches()
	if !ok {
		return g, nil, schema.NewErrorf(schema.ErrCodeInvalidArgument, "unknown condition group type %q", group)
	}

	parentID, downstream, replaced, err := resolveAnchor(g, anchor)
	if err != nil {
		return g, nil, err
	}
	parent, _ := g.Node(parentID)

	wire := make(map[schema.ConditionType]bool, len(connect))
	for _, ct := range connect {
		wire[ct] = true
	}

	out := g.Clone()
	if replaced != "" {
		edges := out.Edges[:0]
		for _, e := range out.Edges {
			if e.ID != replaced {
				edges = append(edges, e)
			}
		}
		out.Edges = edges
	}

	ids := make([]string, len(types))
	n := len(types)
	for i, ct := range types {
		id := convert.NewID()
		ids[i] = id
		out.Nodes = append(out.Nodes, schema.GraphNode{
			ID:   id,
			Type: schema.NodeTypeCondition,
			Position: schema.Position{
				X: parent.Position.X + (float64(i)-float64(n-1)/2)*HorizontalSpacing,
				Y: parent.Position.Y + VerticalSpacing,
			},
			Data: &schema.NodeData{
				Name:          "Condition",
				StepType:      schema.StepTypeCondition,
				Order:         i,
				Enabled:       true,
				HasIssues:     ct.NeedsExpression(),
				ConditionType: ct,
			},
		})
		out.Edges = append(out.Edges, schema.NewEdge(parentID, id, ct.Label()))
		if downstream != "" && wire[ct] {
			out.Edges = append(out.Edges, schema.NewEdge(id, downstream, ""))
		}
	}
	return out, ids, nil
}

// resolveAnchor returns the node the group hangs from, the node its wired
// branches continue to, and the id of the edge being replaced, if any.
func resolveAnchor(g schema.Graph, a Anchor) (parent, downstream, replaced string, err error) {
	switch {
	case a.EdgeID != "" && a.NodeID != "":
		return "", "", "", schema.NewError(schema.ErrCodeInvalidArgument, "anchor must name an edge or a node, not both")
	case a.EdgeID != "":
		e, ok := g.Edge(a.EdgeID)
		if !ok {
			return "", "", "", schema.NewErrorf(schema.ErrCodeNotFound, "edge %s not found", a.EdgeID)
		}
		if _, ok := g.Node(e.Source); !ok {
			return "", "", "", schema.NewErrorf(schema.ErrCodeNotFound, "edge %s starts at missing node %s", a.EdgeID, e.Source)
		}
		if _, ok := g.Node(e.Target); !ok {
			return "", "", "", schema.NewErrorf(schema.ErrCodeNotFound, "edge %s points at missing node %s", a.EdgeID, e.Target)
		}
		return e.Source, e.Target, e.ID, nil
	case a.NodeID != "":
		if _, ok := g.Node(a.NodeID); !ok {
			return "", "", "", schema.NewErrorf(schema.ErrCodeNotFound, "node %s not found", a.NodeID)
		}
		// The first unlabeled outgoing edge is the node's continuation.
		for _, e := range g.Edges {
			if e.Source == a.NodeID && e.Label == "" {
				if _, ok := g.Node(e.Target); ok {
					return a.NodeID, e.Target, e.ID, nil
				}
			}
		}
		return a.NodeID, "", "", nil
	}
	return "", "", "", schema.NewError(schema.ErrCodeInvalidArgument, "anchor must name an edge or a node")
}

// ParseConditionTypes converts branch names such as "if", "else if" or
// "else" into condition types.
func ParseConditionTypes(names []string) ([]schema.ConditionType, error) {
	out := make([]schema.ConditionType, 0, len(names))
	for _, name := range names {
		ct, ok := schema.ParseConditionLabel(name)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeInvalidArgument, "unknown branch %q", name)
		}
		out = append(out, ct)
	}
	return out, nil
}
