package convert

import (
	"sort"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// Spacing between siblings of a fan-out and between vertical levels.
const (
	HorizontalSpacing = 200.0
	VerticalSpacing   = 150.0
)

// fragment is the converted form of one subtree. bottom is the largest y of
// any node in it and is only meaningful when nodes is non-empty.
type fragment struct {
	nodes  []schema.GraphNode
	edges  []schema.GraphEdge
	bottom float64
}

func (f *fragment) add(o fragment) {
	if len(o.nodes) > 0 && (len(f.nodes) == 0 || o.bottom > f.bottom) {
		f.bottom = o.bottom
	}
	f.nodes = append(f.nodes, o.nodes...)
	f.edges = append(f.edges, o.edges...)
}

func single(n schema.GraphNode) fragment {
	return fragment{nodes: []schema.GraphNode{n}, bottom: n.Position.Y}
}

// chain is a converted sibling list. last is the node the next sibling
// connects from and next is where that sibling is placed.
type chain struct {
	fragment
	last string
	next schema.Position
}

// ToGraph converts a step tree into a positioned graph. The first step is
// placed at the origin. Edge ids are unique in the result.
func ToGraph(steps []schema.Step) schema.Graph {
	if len(steps) == 0 {
		return schema.Graph{Nodes: []schema.GraphNode{}, Edges: []schema.GraphEdge{}}
	}
	c := sequence(withIDs(steps), "", schema.Position{})
	return schema.Graph{Nodes: c.nodes, Edges: dedupeEdges(c.edges)}
}

// sequence converts a sibling list hanging below prev. Condition runs fan
// out from the current chain end without advancing it.
func sequence(steps []schema.Step, prev string, at schema.Position) chain {
	out := chain{last: prev, next: at}
	ordered := byOrder(steps)

	for i := 0; i < len(ordered); {
		if ordered[i].IsCondition() {
			j := i
			for j < len(ordered) && ordered[j].IsCondition() {
				j++
			}
			g := group(ordered[i:j], out.last, out.next)
			out.add(g)
			out.next = schema.Position{X: out.next.X, Y: g.bottom + VerticalSpacing}
			i = j
			continue
		}

		s := ordered[i]
		n := stepNode(s, out.next)
		out.add(single(n))
		if out.last != "" {
			out.edges = append(out.edges, schema.NewEdge(out.last, n.ID, ""))
		}
		out.last = n.ID
		out.next = schema.Position{X: n.Position.X, Y: n.Position.Y + VerticalSpacing}

		if len(s.Children) > 0 {
			sub := sequence(s.Children, n.ID, out.next)
			out.add(sub.fragment)
			out.last = sub.last
			out.next = sub.next
		}
		i++
	}
	return out
}

// group lays a condition group out on one level centered under at.X and
// converts each branch body below its condition node.
func group(conds []schema.Step, parent string, at schema.Position) fragment {
	var f fragment
	n := len(conds)
	for i, c := range conds {
		offset := (float64(i) - float64(n-1)/2) * HorizontalSpacing
		ctype := branchType(c, i)
		node := conditionNode(c, ctype, schema.Position{X: at.X + offset, Y: at.Y})
		f.add(single(node))
		if parent != "" {
			f.edges = append(f.edges, schema.NewEdge(parent, node.ID, ctype.Label()))
		}
		if len(c.Children) > 0 {
			below := schema.Position{X: node.Position.X, Y: node.Position.Y + VerticalSpacing}
			f.add(sequence(c.Children, node.ID, below).fragment)
		}
	}
	return f
}

// branchType returns the declared condition type, or if for the first
// branch and elseif for the rest when none is declared.
func branchType(s schema.Step, index int) schema.ConditionType {
	if s.Conditions != nil && s.Conditions.Type.Valid() {
		return s.Conditions.Type
	}
	if index == 0 {
		return schema.ConditionIf
	}
	return schema.ConditionElseIf
}

func stepNode(s schema.Step, at schema.Position) schema.GraphNode {
	st := s.Type
	if !st.Valid() || st == schema.StepTypeCondition {
		st = schema.StepTypeInstruction
	}
	return schema.GraphNode{
		ID:       s.ID,
		Type:     schema.NodeTypeStep,
		Position: placed(s, at),
		Data: &schema.NodeData{
			Name:        s.Name,
			Description: s.Description,
			Tool:        s.Tool(),
			Config:      schema.CloneConfig(s.Config),
			StepType:    st,
			Order:       s.Order,
			Enabled:     s.Enabled,
			HasIssues:   s.HasIssues,
		},
	}
}

func conditionNode(s schema.Step, ctype schema.ConditionType, at schema.Position) schema.GraphNode {
	expr := ""
	if s.Conditions != nil {
		expr = s.Conditions.Expression
	}
	return schema.GraphNode{
		ID:       s.ID,
		Type:     schema.NodeTypeCondition,
		Position: placed(s, at),
		Data: &schema.NodeData{
			Name:          s.Name,
			Description:   s.Description,
			Config:        schema.CloneConfig(s.Config),
			StepType:      schema.StepTypeCondition,
			Order:         s.Order,
			Enabled:       s.Enabled,
			HasIssues:     s.HasIssues,
			ConditionType: ctype,
			Expression:    expr,
		},
	}
}

// placed prefers a stored finite position over the computed one.
func placed(s schema.Step, computed schema.Position) schema.Position {
	if s.Position != nil && s.Position.Finite() {
		return *s.Position
	}
	if !computed.Finite() {
		return schema.Position{}
	}
	return computed
}

func byOrder(steps []schema.Step) []schema.Step {
	out := make([]schema.Step, len(steps))
	copy(out, steps)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// dedupeEdges drops edges whose id was already seen, keeping the first.
func dedupeEdges(edges []schema.GraphEdge) []schema.GraphEdge {
	seen := make(map[string]bool, len(edges))
	out := make([]schema.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}
