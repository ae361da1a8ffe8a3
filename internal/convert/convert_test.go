package convert

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

func instr(id, name string, order int, children ...schema.Step) schema.Step {
	return schema.Step{
		ID:          id,
		Name:        name,
		Description: name + " description",
		Type:        schema.StepTypeInstruction,
		Order:       order,
		Enabled:     true,
		Children:    children,
	}
}

func cond(id string, ct schema.ConditionType, expr string, order int, children ...schema.Step) schema.Step {
	return schema.Step{
		ID:         id,
		Name:       "Condition",
		Type:       schema.StepTypeCondition,
		Conditions: &schema.Conditions{Type: ct, Expression: expr},
		Order:      order,
		Enabled:    true,
		Children:   children,
	}
}

// preorder flattens a step tree into "id" or "id:type:expr" entries.
func preorder(steps []schema.Step) []string {
	var out []string
	for _, s := range steps {
		if s.Conditions != nil {
			out = append(out, fmt.Sprintf("%s:%s:%s", s.ID, s.Conditions.Type, s.Conditions.Expression))
		} else {
			out = append(out, s.ID)
		}
		out = append(out, preorder(s.Children)...)
	}
	return out
}

func TestToGraph_Empty(t *testing.T) {
	g := ToGraph(nil)
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Edges)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestToGraph_LinearChain(t *testing.T) {
	g := ToGraph([]schema.Step{
		instr("c", "third", 2),
		instr("a", "first", 0),
		instr("b", "second", 1),
	})

	require.Len(t, g.Nodes, 3)
	assert.Equal(t, "a", g.Nodes[0].ID)
	assert.Equal(t, schema.Position{X: 0, Y: 0}, g.Nodes[0].Position)
	assert.Equal(t, schema.Position{X: 0, Y: VerticalSpacing}, g.Nodes[1].Position)
	assert.Equal(t, schema.Position{X: 0, Y: 2 * VerticalSpacing}, g.Nodes[2].Position)

	require.Len(t, g.Edges, 2)
	assert.Equal(t, "a->b", g.Edges[0].ID)
	assert.Equal(t, "b->c", g.Edges[1].ID)
	assert.Equal(t, schema.EdgeTypeWorkflow, g.Edges[0].Type)
	assert.Empty(t, g.Edges[0].Label)
}

func TestToGraph_ConditionFanOut(t *testing.T) {
	g := ToGraph([]schema.Step{
		instr("start", "Start", 0,
			cond("c1", schema.ConditionIf, "x > 1", 0, instr("yes", "Yes", 0)),
			cond("c2", schema.ConditionElseIf, "x > 0", 1),
			cond("c3", schema.ConditionElse, "", 2),
		),
		instr("end", "End", 1),
	})

	byID := map[string]schema.GraphNode{}
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	require.Len(t, byID, 6)

	c1, c2, c3 := byID["c1"], byID["c2"], byID["c3"]
	assert.Equal(t, schema.NodeTypeCondition, c1.Type)
	assert.Equal(t, -HorizontalSpacing, c1.Position.X)
	assert.Equal(t, 0.0, c2.Position.X)
	assert.Equal(t, HorizontalSpacing, c3.Position.X)
	assert.Equal(t, c1.Position.Y, c2.Position.Y)
	assert.Equal(t, c2.Position.Y, c3.Position.Y)
	assert.Equal(t, VerticalSpacing, c1.Position.Y)

	// The continuation sits below the deepest branch body.
	assert.Greater(t, byID["end"].Position.Y, byID["yes"].Position.Y)

	labels := map[string]string{}
	for _, e := range g.Edges {
		labels[e.ID] = e.Label
	}
	assert.Equal(t, "if", labels["start->c1"])
	assert.Equal(t, "else if", labels["start->c2"])
	assert.Equal(t, "else", labels["start->c3"])
	assert.Equal(t, "", labels["c1->yes"])
	assert.Equal(t, "", labels["start->end"])
}

func TestToGraph_GeneratesMissingIDs(t *testing.T) {
	g := ToGraph([]schema.Step{
		instr("", "one", 0),
		instr("dup", "two", 1),
		instr("dup", "three", 2),
	})
	require.Len(t, g.Nodes, 3)
	seen := map[string]bool{}
	for _, n := range g.Nodes {
		assert.NotEmpty(t, n.ID)
		assert.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
	}
	assert.Equal(t, "dup", g.Nodes[1].ID)
}

func TestToGraph_StoredPositionWins(t *testing.T) {
	s := instr("a", "A", 0)
	s.Position = &schema.Position{X: 42, Y: 7}
	g := ToGraph([]schema.Step{s})
	assert.Equal(t, schema.Position{X: 42, Y: 7}, g.Nodes[0].Position)
}

func TestToTree_Empty(t *testing.T) {
	steps := ToTree(nil, nil)
	assert.NotNil(t, steps)
	assert.Empty(t, steps)
}

func TestToTree_DanglingEdgeIgnored(t *testing.T) {
	nodes := []schema.GraphNode{
		{ID: "a", Type: schema.NodeTypeStep, Data: &schema.NodeData{Name: "A", Enabled: true}},
		{ID: "b", Type: schema.NodeTypeStep, Data: &schema.NodeData{Name: "B", Enabled: true}},
	}
	edges := []schema.GraphEdge{
		schema.NewEdge("a", "b", ""),
		schema.NewEdge("a", "ghost", ""),
		schema.NewEdge("ghost", "a", ""),
	}

	var steps []schema.Step
	require.NotPanics(t, func() { steps = ToTree(nodes, edges) })
	assert.Equal(t, []string{"a", "b"}, preorder(steps))
}

func TestToTree_ConditionGroupFromLabels(t *testing.T) {
	nodes := []schema.GraphNode{
		{ID: "p", Type: schema.NodeTypeStep, Data: &schema.NodeData{Name: "P", Tool: "search", Enabled: true}},
		{ID: "e", Type: schema.NodeTypeCondition, Data: &schema.NodeData{Enabled: true}},
		{ID: "i", Type: schema.NodeTypeCondition, Data: &schema.NodeData{Expression: "ok", Enabled: true}},
		{ID: "body", Type: schema.NodeTypeStep, Data: &schema.NodeData{Name: "Body", Enabled: true}},
	}
	edges := []schema.GraphEdge{
		schema.NewEdge("p", "e", "else"),
		schema.NewEdge("p", "i", "if"),
		schema.NewEdge("i", "body", ""),
	}

	steps := ToTree(nodes, edges)
	require.Len(t, steps, 1)
	p := steps[0]
	assert.Equal(t, "search", p.Tool())
	require.Len(t, p.Children, 2)

	assert.Equal(t, "i", p.Children[0].ID)
	assert.Equal(t, schema.ConditionIf, p.Children[0].Conditions.Type)
	assert.Equal(t, "ok", p.Children[0].Conditions.Expression)
	assert.Equal(t, 0, p.Children[0].Order)
	require.Len(t, p.Children[0].Children, 1)
	assert.Equal(t, "body", p.Children[0].Children[0].ID)

	assert.Equal(t, "e", p.Children[1].ID)
	assert.Equal(t, schema.ConditionElse, p.Children[1].Conditions.Type)
	assert.Equal(t, "Condition", p.Children[1].Name)
	assert.Equal(t, 1, p.Children[1].Order)
}

func TestToTree_OrphansAppended(t *testing.T) {
	nodes := []schema.GraphNode{
		{ID: "a", Type: schema.NodeTypeStep, Data: &schema.NodeData{Name: "A"}},
		{ID: "b", Type: schema.NodeTypeStep, Data: &schema.NodeData{Name: "B"}},
		{ID: "x", Type: schema.NodeTypeStep, Data: &schema.NodeData{Name: "X"}},
		{ID: "y", Type: schema.NodeTypeStep, Data: &schema.NodeData{Name: "Y"}},
	}
	edges := []schema.GraphEdge{
		schema.NewEdge("a", "b", ""),
		schema.NewEdge("x", "y", ""),
	}
	steps := ToTree(nodes, edges)
	assert.Equal(t, []string{"a", "b", "x", "y"}, preorder(steps))
}

func TestToTree_CycleTerminates(t *testing.T) {
	nodes := []schema.GraphNode{
		{ID: "a", Type: schema.NodeTypeStep},
		{ID: "b", Type: schema.NodeTypeStep},
		{ID: "c", Type: schema.NodeTypeStep},
	}
	edges := []schema.GraphEdge{
		schema.NewEdge("a", "b", ""),
		schema.NewEdge("b", "c", ""),
		schema.NewEdge("c", "a", ""),
	}
	steps := ToTree(nodes, edges)
	assert.Equal(t, 3, schema.CountSteps(steps))
	assert.Equal(t, schema.StepTypeInstruction, steps[0].Type)
	assert.True(t, steps[0].Enabled)
}

func TestRoundTrip_Fixed(t *testing.T) {
	steps := []schema.Step{
		instr("start", "Start", 0,
			cond("c1", schema.ConditionIf, "a == 1", 0,
				instr("inner", "Inner", 0,
					cond("n1", schema.ConditionIf, "b", 0),
					cond("n2", schema.ConditionElse, "", 1),
				),
			),
			cond("c2", schema.ConditionElse, "", 1, instr("fallback", "Fallback", 0)),
		),
		instr("finish", "Finish", 1),
	}

	g := ToGraph(steps)
	back := ToTree(g.Nodes, g.Edges)
	assert.Equal(t, preorder(steps), preorder(back))
	assert.Equal(t, schema.CountSteps(steps), schema.CountSteps(back))

	again := ToGraph(back)
	assert.Len(t, again.Nodes, len(g.Nodes))
	assert.Len(t, again.Edges, len(g.Edges))
}

// genSequence draws a list of non-condition steps; each may branch into a
// well-formed condition group or carry a nested continuation.
func genSequence(t *rapid.T, prefix string, depth int) []schema.Step {
	n := rapid.IntRange(1, 3).Draw(t, prefix+"len")
	steps := make([]schema.Step, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s%d", prefix, i)
		s := instr(id, "step "+id, i)
		if depth > 0 {
			switch rapid.IntRange(0, 2).Draw(t, id+"kind") {
			case 1:
				s.Children = genGroup(t, id+".", depth-1)
			case 2:
				s.Children = genSequence(t, id+".", depth-1)
			}
		}
		steps = append(steps, s)
	}
	return steps
}

func genGroup(t *rapid.T, prefix string, depth int) []schema.Step {
	types := []schema.ConditionType{schema.ConditionIf}
	for i := rapid.IntRange(0, 2).Draw(t, prefix+"elseifs"); i > 0; i-- {
		types = append(types, schema.ConditionElseIf)
	}
	if rapid.Bool().Draw(t, prefix+"else") {
		types = append(types, schema.ConditionElse)
	}

	out := make([]schema.Step, 0, len(types))
	for i, ct := range types {
		id := fmt.Sprintf("%sc%d", prefix, i)
		expr := ""
		if ct.NeedsExpression() {
			expr = "input." + id
		}
		c := cond(id, ct, expr, i)
		if depth > 0 && rapid.Bool().Draw(t, id+"body") {
			c.Children = genSequence(t, id+".", depth-1)
		}
		out = append(out, c)
	}
	return out
}

func TestRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		steps := genSequence(t, "s", 3)

		g := ToGraph(steps)
		back := ToTree(g.Nodes, g.Edges)

		if got, want := schema.CountSteps(back), schema.CountSteps(steps); got != want {
			t.Fatalf("step count: got %d want %d", got, want)
		}
		if got, want := fmt.Sprint(preorder(back)), fmt.Sprint(preorder(steps)); got != want {
			t.Fatalf("preorder mismatch:\n got %s\nwant %s", got, want)
		}

		again := ToGraph(back)
		if len(again.Nodes) != len(g.Nodes) || len(again.Edges) != len(g.Edges) {
			t.Fatalf("idempotence: %d/%d nodes, %d/%d edges",
				len(again.Nodes), len(g.Nodes), len(again.Edges), len(g.Edges))
		}
		for _, n := range g.Nodes {
			if !n.Position.Finite() {
				t.Fatalf("node %s has non-finite position", n.ID)
			}
		}
	})
}
