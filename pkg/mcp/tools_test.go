package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyztek/suna-sub010/internal/convert"
	"github.com/zyztek/suna-sub010/internal/expressions"
	"github.com/zyztek/suna-sub010/internal/store"
	"github.com/zyztek/suna-sub010/internal/streaming"
	"github.com/zyztek/suna-sub010/internal/validation"
	"github.com/zyztek/suna-sub010/pkg/schema"
)

// --- Mock Store ---

type mockStore struct {
	store.Store // embed for unimplemented methods

	workflows map[string]*store.Workflow
	snapshots []*store.Snapshot
}

func newMockStore() *mockStore {
	return &mockStore{workflows: make(map[string]*store.Workflow)}
}

func (m *mockStore) SaveWorkflow(_ context.Context, wf *store.Workflow) error {
	if wf.ID == "" {
		wf.ID = "wf-generated"
	}
	if prev, ok := m.workflows[wf.ID]; ok {
		wf.Version = prev.Version + 1
	} else {
		wf.Version = 1
	}
	cp := *wf
	m.workflows[wf.ID] = &cp
	return nil
}

func (m *mockStore) GetWorkflow(_ context.Context, id string) (*store.Workflow, error) {
	wf, ok := m.workflows[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "workflow %q not found", id)
	}
	return wf, nil
}

func (m *mockStore) SaveSnapshot(_ context.Context, workflowID, operation string, g schema.Graph) error {
	m.snapshots = append(m.snapshots, &store.Snapshot{
		WorkflowID: workflowID,
		Sequence:   int64(len(m.snapshots) + 1),
		Operation:  operation,
		Graph:      g,
	})
	return nil
}

func (m *mockStore) LatestSnapshot(_ context.Context, workflowID string) (*store.Snapshot, error) {
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].WorkflowID == workflowID {
			return m.snapshots[i], nil
		}
	}
	return nil, schema.NewErrorf(schema.ErrCodeNotFound, "snapshot of workflow %q not found", workflowID)
}

// --- Helpers ---

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func sampleSteps() []schema.Step {
	return []schema.Step{
		{ID: "a", Name: "Fetch", Description: "load the order", Type: schema.StepTypeInstruction, Enabled: true},
		{
			ID: "b", Name: "Route", Description: "pick a path", Type: schema.StepTypeInstruction, Order: 1, Enabled: true,
			Children: []schema.Step{
				{ID: "c1", Name: "Big", Type: schema.StepTypeCondition, Enabled: true,
					Conditions: &schema.Conditions{Type: schema.ConditionIf, Expression: "input.total > 100"}},
				{ID: "c2", Name: "Small", Type: schema.StepTypeCondition, Order: 1, Enabled: true, HasIssues: true,
					Conditions: &schema.Conditions{Type: schema.ConditionElse}},
			},
		},
	}
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func sampleGraphJSON(t *testing.T) string {
	return toJSON(t, convert.ToGraph(sampleSteps()))
}

func newTestServer(t *testing.T, ms *mockStore) *FlowServer {
	t.Helper()
	docs, err := validation.NewDocumentValidator()
	require.NoError(t, err)
	checker, err := expressions.NewChecker(expressions.DialectCEL)
	require.NoError(t, err)

	deps := FlowServerDeps{
		Checker:   checker,
		Documents: docs,
		Hub:       streaming.NewMemoryHub(),
	}
	if ms != nil {
		deps.Store = ms
	}
	return NewFlowServer(deps)
}

// --- Conversion ---

func TestToGraphTool(t *testing.T) {
	s := newTestServer(t, nil)

	req := buildRequest("flowgraph.to_graph", map[string]any{
		"steps":  toJSON(t, sampleSteps()),
		"layout": true,
	})
	result, err := s.handleToGraph(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var g schema.Graph
	unmarshalResult(t, result, &g)
	assert.Len(t, g.Nodes, 4)
	assert.Len(t, g.Edges, 3)

	root, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, schema.Position{}, root.Position)
}

func TestToGraphToolRejectsInvalidSteps(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	result, err := s.handleToGraph(ctx, buildRequest("flowgraph.to_graph", map[string]any{"steps": "not json"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	bad := `[{"id":"x","name":"X","type":"condition"}]`
	result, err = s.handleToGraph(ctx, buildRequest("flowgraph.to_graph", map[string]any{"steps": bad}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "condition without conditions violates the document schema")

	result, err = s.handleToGraph(ctx, buildRequest("flowgraph.to_graph", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestToTreeTool(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleToTree(context.Background(),
		buildRequest("flowgraph.to_tree", map[string]any{"graph": sampleGraphJSON(t)}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var steps []schema.Step
	unmarshalResult(t, result, &steps)
	require.Len(t, steps, 2)
	assert.Equal(t, "a", steps[0].ID)
	require.Len(t, steps[1].Children, 2)
	assert.Equal(t, schema.ConditionIf, steps[1].Children[0].Conditions.Type)
	assert.Equal(t, schema.ConditionElse, steps[1].Children[1].Conditions.Type)
}

func TestToTreeToolEmptyGraph(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleToTree(context.Background(),
		buildRequest("flowgraph.to_tree", map[string]any{"graph": `{}`}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	var steps []schema.Step
	unmarshalResult(t, result, &steps)
	assert.NotNil(t, steps)
	assert.Empty(t, steps)
}

func TestLayoutTool(t *testing.T) {
	s := newTestServer(t, nil)
	g := schema.Graph{
		Nodes: []schema.GraphNode{
			{ID: "a", Type: schema.NodeTypeStep, Position: schema.Position{X: 999, Y: 999}},
			{ID: "b", Type: schema.NodeTypeStep},
		},
		Edges: []schema.GraphEdge{schema.NewEdge("a", "b", "")},
	}

	result, err := s.handleLayout(context.Background(),
		buildRequest("flowgraph.layout", map[string]any{"graph": toJSON(t, g)}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out schema.Graph
	unmarshalResult(t, result, &out)
	assert.Equal(t, schema.Position{X: 0, Y: 0}, out.Nodes[0].Position)
	assert.Equal(t, schema.Position{X: 0, Y: 120}, out.Nodes[1].Position)
}

// --- Validation ---

func TestValidateTool(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	result, err := s.handleValidate(ctx,
		buildRequest("flowgraph.validate", map[string]any{"graph": sampleGraphJSON(t)}))
	require.NoError(t, err)
	var ok validateResponse
	unmarshalResult(t, result, &ok)
	assert.True(t, ok.IsValid, "errors: %v", ok.Errors)

	cyclic := schema.Graph{
		Nodes: []schema.GraphNode{
			{ID: "a", Type: schema.NodeTypeStep, Data: &schema.NodeData{Name: "A", Description: "a"}},
			{ID: "b", Type: schema.NodeTypeStep, Data: &schema.NodeData{Name: "B", Description: "b"}},
		},
		Edges: []schema.GraphEdge{schema.NewEdge("a", "b", ""), schema.NewEdge("b", "a", "")},
	}
	result, err = s.handleValidate(ctx,
		buildRequest("flowgraph.validate", map[string]any{"graph": toJSON(t, cyclic)}))
	require.NoError(t, err)
	var bad validateResponse
	unmarshalResult(t, result, &bad)
	assert.False(t, bad.IsValid)
	assert.Contains(t, bad.Errors, "Workflow contains circular dependencies")
	require.NotNil(t, bad.Issues)
	assert.NotEmpty(t, bad.Issues.Errors)
}

func TestValidateToolReportsBadExpression(t *testing.T) {
	s := newTestServer(t, nil)
	steps := sampleSteps()
	steps[1].Children[0].Conditions.Expression = "input.total >"

	result, err := s.handleValidate(context.Background(),
		buildRequest("flowgraph.validate", map[string]any{"graph": toJSON(t, convert.ToGraph(steps))}))
	require.NoError(t, err)

	var resp validateResponse
	unmarshalResult(t, result, &resp)
	assert.True(t, resp.IsValid, "expression problems are warnings")
	require.NotNil(t, resp.Issues)
	assert.True(t, resp.Issues.HasCode("INVALID_EXPRESSION"))
}

func TestAutoFixTool(t *testing.T) {
	s := newTestServer(t, nil)
	g := schema.Graph{
		Nodes: []schema.GraphNode{
			{ID: "a", Type: schema.NodeTypeStep, Position: schema.Position{X: 50000}},
			{ID: "b", Type: schema.NodeTypeStep},
		},
		Edges: []schema.GraphEdge{schema.NewEdge("a", "b", ""), schema.NewEdge("a", "b", "")},
	}

	result, err := s.handleAutoFix(context.Background(),
		buildRequest("flowgraph.autofix", map[string]any{"graph": toJSON(t, g)}))
	require.NoError(t, err)

	var fixed validation.AutoFixResult
	unmarshalResult(t, result, &fixed)
	assert.Len(t, fixed.Edges, 1)
	assert.Len(t, fixed.Fixes, 2)
	assert.Equal(t, schema.Position{}, fixed.Nodes[0].Position)
}

func TestCanDeleteTool(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	result, err := s.handleCanDelete(ctx, buildRequest("flowgraph.can_delete", map[string]any{
		"graph":   sampleGraphJSON(t),
		"node_id": "c2",
	}))
	require.NoError(t, err)
	var leaf validation.DeletionCheck
	unmarshalResult(t, result, &leaf)
	assert.True(t, leaf.CanDelete)

	result, err = s.handleCanDelete(ctx, buildRequest("flowgraph.can_delete", map[string]any{
		"graph":   sampleGraphJSON(t),
		"node_id": "a",
	}))
	require.NoError(t, err)
	var root validation.DeletionCheck
	unmarshalResult(t, result, &root)
	assert.False(t, root.CanDelete)
	assert.NotEmpty(t, root.Reason)

	result, err = s.handleCanDelete(ctx, buildRequest("flowgraph.can_delete", map[string]any{"graph": sampleGraphJSON(t)}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- Editing ---

func TestEditTool(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)

	ops := `
- op: insert_step
  edgeId: a->b
  name: Transform
  description: reshape the order
- op: move_node
  nodeId: a
  position: {x: 40, y: 0}
`
	result, err := s.handleEdit(context.Background(), buildRequest("flowgraph.edit", map[string]any{
		"graph":       sampleGraphJSON(t),
		"operations":  ops,
		"workflow_id": "wf-1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	var resp editResponse
	unmarshalResult(t, result, &resp)
	assert.Len(t, resp.Graph.Nodes, 5)
	require.Len(t, resp.Results, 2)
	require.Len(t, resp.Results[0].NodeIDs, 1)

	inserted, ok := resp.Graph.Node(resp.Results[0].NodeIDs[0])
	require.True(t, ok)
	assert.Equal(t, "Transform", inserted.Data.Name)

	moved, _ := resp.Graph.Node("a")
	assert.Equal(t, 40.0, moved.Position.X)

	require.Len(t, ms.snapshots, 2)
	assert.Equal(t, "wf-1", ms.snapshots[0].WorkflowID)
}

func TestEditToolFailure(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	result, err := s.handleEdit(ctx, buildRequest("flowgraph.edit", map[string]any{
		"graph":      sampleGraphJSON(t),
		"operations": `[{"op":"delete_node","nodeId":"ghost"}]`,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(t, result), "operation 0 (delete_node)")

	result, err = s.handleEdit(ctx, buildRequest("flowgraph.edit", map[string]any{
		"graph":      sampleGraphJSON(t),
		"operations": `[{"nodeId":"a"}]`,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleEdit(ctx, buildRequest("flowgraph.edit", map[string]any{"graph": sampleGraphJSON(t)}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- Diagram ---

func TestDiagramTool(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	result, err := s.handleDiagram(ctx, buildRequest("flowgraph.diagram", map[string]any{
		"graph":  sampleGraphJSON(t),
		"format": "mermaid",
		"title":  "orders",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	text := extractText(t, result)
	assert.True(t, strings.HasPrefix(text, "graph TD"))
	assert.Contains(t, text, "b -->|if| c1")

	result, err = s.handleDiagram(ctx, buildRequest("flowgraph.diagram", map[string]any{
		"steps":  toJSON(t, sampleSteps()),
		"format": "ascii",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, extractText(t, result), "Fetch")
}

func TestDiagramToolPNG(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleDiagram(context.Background(), buildRequest("flowgraph.diagram", map[string]any{
		"graph":  sampleGraphJSON(t),
		"format": "png",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))

	png, err := base64.StdEncoding.DecodeString(extractText(t, result))
	require.NoError(t, err)
	require.True(t, len(png) > 4)
	assert.Equal(t, byte(0x89), png[0])
	assert.Equal(t, byte('P'), png[1])
}

func TestDiagramToolErrors(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	result, err := s.handleDiagram(ctx, buildRequest("flowgraph.diagram", map[string]any{"format": "mermaid"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleDiagram(ctx, buildRequest("flowgraph.diagram", map[string]any{
		"graph":  sampleGraphJSON(t),
		"format": "gif",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- Query ---

func TestQueryTool(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)
	ctx := context.Background()

	result, err := s.handleQuery(ctx, buildRequest("flowgraph.query", map[string]any{
		"program": `[.. | objects | select(.hasIssues == true) | .id]`,
		"steps":   toJSON(t, sampleSteps()),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	var out []any
	unmarshalResult(t, result, &out)
	assert.Equal(t, []any{[]any{"c2"}}, out)

	result, err = s.handleQuery(ctx, buildRequest("flowgraph.query", map[string]any{
		"program": `.nodes | length`,
		"graph":   sampleGraphJSON(t),
	}))
	require.NoError(t, err)
	unmarshalResult(t, result, &out)
	assert.Equal(t, []any{float64(4)}, out)

	require.NoError(t, ms.SaveWorkflow(ctx, &store.Workflow{ID: "wf-1", Name: "orders", Steps: sampleSteps()}))
	result, err = s.handleQuery(ctx, buildRequest("flowgraph.query", map[string]any{
		"program":     `.[0].name`,
		"workflow_id": "wf-1",
	}))
	require.NoError(t, err)
	unmarshalResult(t, result, &out)
	assert.Equal(t, []any{"Fetch"}, out)
}

func TestQueryToolErrors(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	result, err := s.handleQuery(ctx, buildRequest("flowgraph.query", map[string]any{"program": "."}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleQuery(ctx, buildRequest("flowgraph.query", map[string]any{
		"program": ".[",
		"steps":   "[]",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleQuery(ctx, buildRequest("flowgraph.query", map[string]any{
		"program":     ".",
		"workflow_id": "wf-1",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "no store configured")
}

// --- Persistence ---

func TestSaveAndLoadTools(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)
	ctx := context.Background()

	result, err := s.handleSave(ctx, buildRequest("flowgraph.save", map[string]any{
		"name":  "orders",
		"steps": toJSON(t, sampleSteps()),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	var saved store.Workflow
	unmarshalResult(t, result, &saved)
	assert.Equal(t, "wf-generated", saved.ID)
	assert.Equal(t, 1, saved.Version)

	result, err = s.handleSave(ctx, buildRequest("flowgraph.save", map[string]any{
		"name":        "orders",
		"workflow_id": saved.ID,
		"graph":       sampleGraphJSON(t),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	unmarshalResult(t, result, &saved)
	assert.Equal(t, 2, saved.Version)

	result, err = s.handleLoad(ctx, buildRequest("flowgraph.load", map[string]any{"workflow_id": saved.ID}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	var loaded loadResponse
	unmarshalResult(t, result, &loaded)
	assert.Equal(t, "orders", loaded.Workflow.Name)
	assert.Len(t, loaded.Graph.Nodes, 4)
	assert.Zero(t, loaded.Snapshot)
}

func TestLoadFromSnapshot(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)
	ctx := context.Background()

	require.NoError(t, ms.SaveWorkflow(ctx, &store.Workflow{ID: "wf-1", Name: "orders", Steps: sampleSteps()}))

	req := buildRequest("flowgraph.load", map[string]any{"workflow_id": "wf-1", "from_snapshot": true})
	result, err := s.handleLoad(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.IsError, "no snapshot yet")

	_, err = s.handleEdit(ctx, buildRequest("flowgraph.edit", map[string]any{
		"graph":       sampleGraphJSON(t),
		"operations":  `[{"op":"delete_node","nodeId":"c2"}]`,
		"workflow_id": "wf-1",
	}))
	require.NoError(t, err)

	result, err = s.handleLoad(ctx, req)
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	var loaded loadResponse
	unmarshalResult(t, result, &loaded)
	assert.Equal(t, int64(1), loaded.Snapshot)
	assert.Len(t, loaded.Graph.Nodes, 3)
}

func TestSaveToolErrors(t *testing.T) {
	ctx := context.Background()

	noStore := newTestServer(t, nil)
	result, err := noStore.handleSave(ctx, buildRequest("flowgraph.save", map[string]any{
		"name":  "orders",
		"steps": "[]",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	s := newTestServer(t, newMockStore())
	result, err = s.handleSave(ctx, buildRequest("flowgraph.save", map[string]any{"name": "orders"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleLoad(ctx, buildRequest("flowgraph.load", map[string]any{"workflow_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// --- Test helpers ---

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	text := extractText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target))
}
