package convert

import (
	"sort"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// defaultConditionName is used for condition nodes that carry no name.
const defaultConditionName = "Condition"

// ToTree rebuilds a step tree from a graph. The root chain comes first;
// nodes the root cannot reach are converted on their own and appended.
// Sibling order is renumbered from zero in every reconstructed list.
func ToTree(nodes []schema.GraphNode, edges []schema.GraphEdge) []schema.Step {
	if len(nodes) == 0 {
		return []schema.Step{}
	}
	b := newTreeBuilder(nodes, edges)
	steps := b.build()
	renumber(steps)
	return steps
}

// treeBuilder holds the adjacency derived from the graph and the visited
// set that keeps the walk finite on cyclic or multi-parent input.
type treeBuilder struct {
	nodes    []schema.GraphNode
	byID     map[string]schema.GraphNode
	children map[string][]string
	parent   map[string]string
	label    map[string]string
	visited  map[string]bool
}

func newTreeBuilder(nodes []schema.GraphNode, edges []schema.GraphEdge) *treeBuilder {
	b := &treeBuilder{
		nodes:    nodes,
		byID:     make(map[string]schema.GraphNode, len(nodes)),
		children: make(map[string][]string, len(nodes)),
		parent:   make(map[string]string, len(nodes)),
		label:    make(map[string]string, len(nodes)),
		visited:  make(map[string]bool, len(nodes)),
	}
	for _, n := range nodes {
		if _, dup := b.byID[n.ID]; !dup {
			b.byID[n.ID] = n
		}
	}

	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		_, okSrc := b.byID[e.Source]
		_, okDst := b.byID[e.Target]
		if !okSrc || !okDst {
			continue // dangling
		}
		key := schema.EdgeID(e.Source, e.Target)
		if seen[key] {
			continue
		}
		seen[key] = true
		b.children[e.Source] = append(b.children[e.Source], e.Target)
		b.parent[e.Target] = e.Source
		if e.Label != "" {
			b.label[e.Target] = e.Label
		}
	}
	return b
}

func (b *treeBuilder) build() []schema.Step {
	root := ""
	for _, n := range b.nodes {
		if _, hasParent := b.parent[n.ID]; !hasParent {
			root = n.ID
			break
		}
	}
	if root == "" {
		// Every node has a parent, so the graph is one or more cycles.
		root = b.nodes[0].ID
	}

	out := b.walk(root)

	// Orphans: first those whose parent was reached (or absent), then the
	// remainder, which can only be cycles unreachable from anywhere else.
	for pass := 0; pass < 2; pass++ {
		for _, n := range b.nodes {
			if b.visited[n.ID] {
				continue
			}
			if p, ok := b.parent[n.ID]; pass == 0 && ok && !b.visited[p] {
				continue
			}
			out = append(out, b.walk(n.ID)...)
		}
	}
	return out
}

// walk follows the non-condition chain starting at id. Condition children
// of each step become that step's condition group.
func (b *treeBuilder) walk(id string) []schema.Step {
	if b.visited[id] {
		return nil
	}
	if b.byID[id].IsCondition() {
		return b.group([]string{id})
	}

	var out []schema.Step
	for cur := id; cur != "" && !b.visited[cur]; {
		b.visited[cur] = true
		step := stepFromNode(b.byID[cur])
		conds, next := b.split(cur)
		if len(conds) > 0 {
			step.Children = b.group(conds)
		}
		out = append(out, step)
		cur = next
	}
	return out
}

// split partitions the unvisited children of id into condition nodes and
// the first non-condition node, which continues the chain.
func (b *treeBuilder) split(id string) (conds []string, next string) {
	for _, c := range b.children[id] {
		if b.visited[c] {
			continue
		}
		if b.byID[c].IsCondition() {
			conds = append(conds, c)
		} else if next == "" {
			next = c
		}
	}
	return conds, next
}

// group converts sibling condition nodes into one condition group ordered
// if, elseif, else. Each branch body becomes the condition's children.
func (b *treeBuilder) group(ids []string) []schema.Step {
	type branch struct {
		id    string
		ctype schema.ConditionType
	}
	branches := make([]branch, 0, len(ids))
	for i, id := range ids {
		branches = append(branches, branch{id: id, ctype: b.conditionType(id, i)})
	}
	sort.SliceStable(branches, func(i, j int) bool {
		return branches[i].ctype.Rank() < branches[j].ctype.Rank()
	})

	out := make([]schema.Step, 0, len(branches))
	for _, br := range branches {
		if b.visited[br.id] {
			continue
		}
		b.visited[br.id] = true
		step := conditionFromNode(b.byID[br.id], br.ctype)
		step.Children = b.branchBody(br.id)
		out = append(out, step)
	}
	return out
}

// branchBody converts what hangs below a condition node: a nested condition
// group first, then the chain starting at its first non-condition child.
func (b *treeBuilder) branchBody(id string) []schema.Step {
	conds, next := b.split(id)
	var body []schema.Step
	if len(conds) > 0 {
		body = append(body, b.group(conds)...)
	}
	if next != "" {
		body = append(body, b.walk(next)...)
	}
	return body
}

// conditionType resolves a branch type from the incoming edge label, then
// the node data, then its position among its siblings.
func (b *treeBuilder) conditionType(id string, index int) schema.ConditionType {
	if ct, ok := schema.ParseConditionLabel(b.label[id]); ok {
		return ct
	}
	if d := b.byID[id].Data; d != nil && d.ConditionType.Valid() {
		return d.ConditionType
	}
	if index == 0 {
		return schema.ConditionIf
	}
	return schema.ConditionElseIf
}

func stepFromNode(n schema.GraphNode) schema.Step {
	pos := n.Position
	s := schema.Step{
		ID:       n.ID,
		Type:     schema.StepTypeInstruction,
		Enabled:  true,
		Position: &pos,
	}
	d := n.Data
	if d == nil {
		return s
	}
	s.Name = d.Name
	s.Description = d.Description
	s.Enabled = d.Enabled
	s.HasIssues = d.HasIssues
	s.Config = schema.CloneConfig(d.Config)
	if d.StepType.Valid() && d.StepType != schema.StepTypeCondition {
		s.Type = d.StepType
	}
	if d.Tool != "" {
		if s.Config == nil {
			s.Config = make(map[string]any, 1)
		}
		s.Config["tool"] = d.Tool
	}
	return s
}

func conditionFromNode(n schema.GraphNode, ctype schema.ConditionType) schema.Step {
	pos := n.Position
	s := schema.Step{
		ID:         n.ID,
		Name:       defaultConditionName,
		Type:       schema.StepTypeCondition,
		Conditions: &schema.Conditions{Type: ctype},
		Enabled:    true,
		Position:   &pos,
	}
	d := n.Data
	if d == nil {
		return s
	}
	if d.Name != "" {
		s.Name = d.Name
	}
	s.Description = d.Description
	s.Enabled = d.Enabled
	s.HasIssues = d.HasIssues
	s.Config = schema.CloneConfig(d.Config)
	s.Conditions.Expression = d.Expression
	return s
}

func renumber(steps []schema.Step) {
	for i := range steps {
		steps[i].Order = i
		renumber(steps[i].Children)
	}
}
