package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyztek/suna-sub010/internal/edit"
	"github.com/zyztek/suna-sub010/internal/streaming"
	"github.com/zyztek/suna-sub010/pkg/schema"
)

func sampleSteps() []schema.Step {
	return []schema.Step{
		{ID: "a", Name: "Fetch", Description: "fetch data", Type: schema.StepTypeInstruction, Enabled: true},
		{ID: "b", Name: "Store", Description: "store data", Type: schema.StepTypeInstruction, Enabled: true, Order: 1},
	}
}

type recordingSink struct {
	ops []string
	err error
}

func (s *recordingSink) SaveSnapshot(_ context.Context, workflowID, op string, g schema.Graph) error {
	s.ops = append(s.ops, workflowID+":"+op)
	return s.err
}

func drain(ch <-chan streaming.Event) []string {
	var types []string
	for {
		select {
		case evt := <-ch:
			types = append(types, evt.Type)
		case <-time.After(20 * time.Millisecond):
			return types
		}
	}
}

func TestEditor_InsertStepRelayoutsAndUndoes(t *testing.T) {
	ctx := context.Background()
	hub := streaming.NewMemoryHub()
	ch, cancel, err := hub.Subscribe(ctx, streaming.Filter{})
	require.NoError(t, err)
	defer cancel()

	e := FromSteps(sampleSteps(), Options{ID: "s1", Hub: hub})
	assert.Equal(t, "s1", e.ID())
	assert.False(t, e.CanUndo())

	id, err := e.InsertStep(ctx, "a->b")
	require.NoError(t, err)

	g := e.Graph()
	require.Len(t, g.Nodes, 3)
	n, _ := g.Node(id)
	assert.Equal(t, edit.NewStepName, n.Data.Name)
	// Node count changed, so the chain was laid out on three levels.
	b, _ := g.Node("b")
	assert.Equal(t, 240.0, b.Position.Y)

	assert.Equal(t, []string{streaming.EventGraphChanged, streaming.EventGraphLaidOut}, drain(ch))
	assert.False(t, e.Validate().Valid())

	require.NoError(t, e.Undo(ctx))
	assert.Len(t, e.Graph().Nodes, 2)
	assert.Equal(t, []string{streaming.EventGraphUndone}, drain(ch))
	assert.True(t, e.Validate().Valid())

	err = e.Undo(ctx)
	var fe *schema.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, schema.ErrCodeInvalidArgument, fe.Code)
}

func TestEditor_MoveDoesNotRelayout(t *testing.T) {
	ctx := context.Background()
	e := FromSteps(sampleSteps(), Options{})

	require.NoError(t, e.MoveNode(ctx, "b", schema.Position{X: 333, Y: 444}))
	b, _ := e.Graph().Node("b")
	assert.Equal(t, schema.Position{X: 333, Y: 444}, b.Position)

	// An edge change keeps the count, so positions survive.
	require.NoError(t, e.Disconnect(ctx, "a->b"))
	require.NoError(t, e.Connect(ctx, "a", "b", ""))
	b, _ = e.Graph().Node("b")
	assert.Equal(t, schema.Position{X: 333, Y: 444}, b.Position)

	err := e.MoveNode(ctx, "b", schema.Position{X: 1e6})
	var fe *schema.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, schema.ErrCodeInvalidArgument, fe.Code)
}

func TestEditor_DeleteGuard(t *testing.T) {
	ctx := context.Background()
	e := FromSteps(sampleSteps(), Options{})

	err := e.DeleteNode(ctx, "a")
	var fe *schema.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, schema.ErrCodeDeleteRefused, fe.Code)
	assert.Equal(t, "a", fe.NodeID)

	err = e.DeleteNode(ctx, "ghost")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, schema.ErrCodeNotFound, fe.Code)

	require.NoError(t, e.DeleteNode(ctx, "b"))
	err = e.DeleteNode(ctx, "a")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, schema.ErrCodeDeleteRefused, fe.Code)
	assert.Len(t, e.Graph().Nodes, 1)
}

func TestEditor_HistoryLimit(t *testing.T) {
	ctx := context.Background()
	e := FromSteps(sampleSteps(), Options{HistoryLimit: 3})
	for i := 0; i < 10; i++ {
		require.NoError(t, e.MoveNode(ctx, "a", schema.Position{X: float64(i)}))
	}
	assert.Equal(t, 3, e.HistoryLen())
	for e.CanUndo() {
		require.NoError(t, e.Undo(ctx))
	}
	a, _ := e.Graph().Node("a")
	assert.Equal(t, 6.0, a.Position.X)
}

func TestEditor_SnapshotSink(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	e := FromSteps(sampleSteps(), Options{WorkflowID: "wf", Sink: sink})

	_, err := e.InsertStep(ctx, "a->b")
	require.NoError(t, err)
	require.NoError(t, e.Undo(ctx))
	assert.Equal(t, []string{"wf:insert_step", "wf:undo"}, sink.ops)

	sink.err = errors.New("disk full")
	require.NoError(t, e.MoveNode(ctx, "a", schema.Position{X: 1}))
	a, _ := e.Graph().Node("a")
	assert.Equal(t, 1.0, a.Position.X)
}

func TestEditor_StepsRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := FromSteps(sampleSteps(), Options{})
	ids, err := e.InsertCondition(ctx, edit.Anchor{EdgeID: "a->b"}, edit.GroupIfElse,
		[]schema.ConditionType{schema.ConditionIf, schema.ConditionElse})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	steps := e.Steps()
	require.Len(t, steps, 1)
	assert.Equal(t, "a", steps[0].ID)
	require.Len(t, steps[0].Children, 2)
	assert.Equal(t, schema.ConditionIf, steps[0].Children[0].Conditions.Type)
	assert.Equal(t, schema.ConditionElse, steps[0].Children[1].Conditions.Type)

	r := e.Validate()
	assert.True(t, r.HasCode(schema.IssueMultipleParents))
	assert.True(t, r.HasCode(schema.IssueMissingExpression))
}

func TestEditor_AutoFix(t *testing.T) {
	ctx := context.Background()
	g := schema.Graph{
		Nodes: []schema.GraphNode{
			{ID: "a", Type: schema.NodeTypeStep, Position: schema.Position{X: 50000}, Data: &schema.NodeData{Name: "A", Description: "a"}},
			{ID: "b", Type: schema.NodeTypeStep, Data: &schema.NodeData{Name: "B", Description: "b"}},
		},
		Edges: []schema.GraphEdge{schema.NewEdge("a", "b", ""), schema.NewEdge("a", "b", "")},
	}
	e := New(g, Options{})
	fixes := e.AutoFix(ctx)
	assert.Len(t, fixes, 2)
	assert.Len(t, e.Graph().Edges, 1)
	assert.True(t, e.CanUndo())

	assert.Empty(t, e.AutoFix(ctx))
	assert.Equal(t, 1, e.HistoryLen())
}

func TestEditor_LayoutOnLoad(t *testing.T) {
	g := schema.Graph{
		Nodes: []schema.GraphNode{
			{ID: "a", Type: schema.NodeTypeStep, Position: schema.Position{X: 900, Y: 900}},
			{ID: "b", Type: schema.NodeTypeStep, Position: schema.Position{X: 900, Y: 900}},
		},
		Edges: []schema.GraphEdge{schema.NewEdge("a", "b", "")},
	}
	kept := New(g, Options{})
	a, _ := kept.Graph().Node("a")
	assert.Equal(t, 900.0, a.Position.X)

	laid := New(g, Options{LayoutOnLoad: true})
	b, _ := laid.Graph().Node("b")
	assert.Equal(t, schema.Position{X: 0, Y: 120}, b.Position)
}

func TestEditor_EmptyGraphSerializesArrays(t *testing.T) {
	e := New(schema.Graph{}, Options{})
	g := e.Graph()
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Edges)
	assert.Empty(t, e.Steps())
}
