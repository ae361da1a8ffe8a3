package schema

import "math"

// EdgeTypeWorkflow is the only edge type the editor produces.
const EdgeTypeWorkflow = "workflow"

// NodeType classifies a graph node.
type NodeType string

const (
	NodeTypeStep      NodeType = "step"
	NodeTypeCondition NodeType = "condition"
)

// Position is a point in the editor's planar coordinate space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are finite numbers.
func (p Position) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// NodeData is the type-specific payload of a graph node. Step nodes use the
// name/description/tool fields, condition nodes use ConditionType/Expression.
type NodeData struct {
	Name          string         `json:"name,omitempty"`
	Description   string         `json:"description,omitempty"`
	Tool          string         `json:"tool,omitempty"`
	Config        map[string]any `json:"config,omitempty"`
	StepType      StepType       `json:"stepType,omitempty"`
	Order         int            `json:"order,omitempty"`
	Enabled       bool           `json:"enabled"`
	HasIssues     bool           `json:"hasIssues,omitempty"`
	ConditionType ConditionType  `json:"conditionType,omitempty"`
	Expression    string         `json:"expression,omitempty"`
}

// GraphNode is the editable representation of one step.
// A nil Data is reported by validation as missing data.
type GraphNode struct {
	ID       string    `json:"id"`
	Type     NodeType  `json:"type"`
	Position Position  `json:"position"`
	Data     *NodeData `json:"data,omitempty"`
}

// IsCondition reports whether the node is a condition branch.
func (n GraphNode) IsCondition() bool {
	return n.Type == NodeTypeCondition
}

// Clone returns a deep copy of the node.
func (n GraphNode) Clone() GraphNode {
	if n.Data != nil {
		d := *n.Data
		d.Config = CloneConfig(n.Data.Config)
		n.Data = &d
	}
	return n
}

// GraphEdge connects two nodes. Label is only set on edges leaving the
// parent of a condition group.
type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Label  string `json:"label,omitempty"`
}

// EdgeID derives the id of the edge from source to target.
func EdgeID(source, target string) string {
	return source + "->" + target
}

// NewEdge builds a workflow edge with a derived id.
func NewEdge(source, target, label string) GraphEdge {
	return GraphEdge{
		ID:     EdgeID(source, target),
		Source: source,
		Target: target,
		Type:   EdgeTypeWorkflow,
		Label:  label,
	}
}

// Graph is the node/edge value threaded through mutation, layout and validation.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]GraphNode, len(g.Nodes)),
		Edges: make([]GraphEdge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	copy(out.Edges, g.Edges)
	return out
}

// NodeIndex maps node ids to their slice index. Later duplicates win.
func (g Graph) NodeIndex() map[string]int {
	idx := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		idx[n.ID] = i
	}
	return idx
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (GraphNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return GraphNode{}, false
}

// Edge returns the edge with the given id.
func (g Graph) Edge(id string) (GraphEdge, bool) {
	for _, e := range g.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return GraphEdge{}, false
}
