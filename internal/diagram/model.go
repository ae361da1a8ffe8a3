package diagram

import "github.com/zyztek/suna-sub010/pkg/schema"

// NodeKind classifies a diagram node.
type NodeKind string

const (
	NodeKindStep      NodeKind = "step"
	NodeKindCondition NodeKind = "condition"
)

// DiagramModel is the intermediate representation used by all renderers.
type DiagramModel struct {
	Title  string
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string // node ids grouped by row, top to bottom
}

// Node is one graph node prepared for rendering.
type Node struct {
	ID        string
	Label     string
	Kind      NodeKind
	Position  schema.Position
	HasIssues bool
	Disabled  bool
}

// Edge represents a connection between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
}
