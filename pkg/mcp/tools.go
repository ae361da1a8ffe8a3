package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/zyztek/suna-sub010/internal/convert"
	"github.com/zyztek/suna-sub010/internal/diagram"
	"github.com/zyztek/suna-sub010/internal/layout"
	"github.com/zyztek/suna-sub010/internal/session"
	"github.com/zyztek/suna-sub010/internal/store"
	"github.com/zyztek/suna-sub010/internal/validation"
	"github.com/zyztek/suna-sub010/pkg/schema"
)

// handleToGraph converts a step tree to a graph.
func (s *FlowServer) handleToGraph(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	steps, err := s.decodeSteps(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g := convert.ToGraph(steps)
	if req.GetBool("layout", false) {
		g = layout.Apply(g)
	}
	return marshalResult(g)
}

// handleToTree converts a graph back to a step tree.
func (s *FlowServer) handleToTree(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := decodeGraph(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return marshalResult(convert.ToTree(g.Nodes, g.Edges))
}

func (s *FlowServer) handleLayout(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := decodeGraph(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return marshalResult(layout.Apply(g))
}

// validateResponse carries both the display report and the coded issues.
type validateResponse struct {
	schema.ValidationReport
	Issues *schema.ValidationResult `json:"issues"`
}

func (s *FlowServer) handleValidate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := decodeGraph(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.validator.Validate(g)
	return marshalResult(validateResponse{ValidationReport: res.Report(), Issues: res})
}

func (s *FlowServer) handleAutoFix(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := decodeGraph(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return marshalResult(validation.AutoFix(g.Nodes, g.Edges))
}

func (s *FlowServer) handleCanDelete(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, err := req.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError("node_id is required"), nil
	}
	g, err := decodeGraph(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return marshalResult(validation.CanDelete(nodeID, g.Nodes, g.Edges))
}

// editResponse is the outcome of an edit script.
type editResponse struct {
	Graph      schema.Graph            `json:"graph"`
	Results    []session.Result        `json:"results"`
	Validation schema.ValidationReport `json:"validation"`
}

// handleEdit runs an edit script in a throwaway session. Operations before a
// failing one are not returned; the call fails as a whole.
func (s *FlowServer) handleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := decodeGraph(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	script, err := req.RequireString("operations")
	if err != nil {
		return mcp.NewToolResultError("operations is required"), nil
	}
	ops, err := session.ParseScript([]byte(script))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := session.Options{
		WorkflowID:   req.GetString("workflow_id", ""),
		HistoryLimit: s.historyLimit,
		Hub:          s.hub,
		Validator:    s.validator,
		Logger:       s.logger,
	}
	if opts.WorkflowID != "" && s.store != nil {
		if sink, ok := s.store.(session.SnapshotSink); ok {
			opts.Sink = sink
		}
	}

	editor := session.New(g, opts)
	results, err := editor.Apply(ctx, ops)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("edit failed: %v", err)), nil
	}
	return marshalResult(editResponse{
		Graph:      editor.Graph(),
		Results:    results,
		Validation: editor.Validate().Report(),
	})
}

// handleDiagram renders a graph, or a step tree converted to one.
func (s *FlowServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}

	var g schema.Graph
	switch {
	case req.GetString("graph", "") != "":
		g, err = decodeGraph(req)
	case req.GetString("steps", "") != "":
		var steps []schema.Step
		steps, err = s.decodeSteps(req)
		g = convert.ToGraph(steps)
	default:
		return mcp.NewToolResultError("one of graph or steps is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	model := diagram.Build(req.GetString("title", ""), g)
	switch format {
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
	case "png", "svg":
		img, imgErr := diagram.RenderImage(ctx, model, diagram.Format(format))
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		if format == "svg" {
			return mcp.NewToolResultText(string(img)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(img)), nil
	default:
		return mcp.NewToolResultError("format must be mermaid, ascii, png, or svg"), nil
	}
}

// handleQuery runs a jq program over steps, a graph, or a stored workflow.
func (s *FlowServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	program, err := req.RequireString("program")
	if err != nil {
		return mcp.NewToolResultError("program is required"), nil
	}

	var out []any
	switch {
	case req.GetString("steps", "") != "":
		steps, decErr := s.decodeSteps(req)
		if decErr != nil {
			return mcp.NewToolResultError(decErr.Error()), nil
		}
		out, err = s.query.Steps(ctx, program, steps)
	case req.GetString("graph", "") != "":
		g, decErr := decodeGraph(req)
		if decErr != nil {
			return mcp.NewToolResultError(decErr.Error()), nil
		}
		out, err = s.query.Run(ctx, program, g)
	case req.GetString("workflow_id", "") != "":
		wf, getErr := s.getWorkflow(ctx, req.GetString("workflow_id", ""))
		if getErr != nil {
			return mcp.NewToolResultError(getErr.Error()), nil
		}
		out, err = s.query.Steps(ctx, program, wf.Steps)
	default:
		return mcp.NewToolResultError("one of steps, graph, or workflow_id is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return marshalResult(out)
}

// handleSave persists a step tree. A graph argument is converted first.
func (s *FlowServer) handleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("no store configured"), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}

	var steps []schema.Step
	switch {
	case req.GetString("steps", "") != "":
		steps, err = s.decodeSteps(req)
	case req.GetString("graph", "") != "":
		var g schema.Graph
		g, err = decodeGraph(req)
		steps = convert.ToTree(g.Nodes, g.Edges)
	default:
		return mcp.NewToolResultError("one of steps or graph is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.documents != nil {
		if vErr := s.documents.ValidateSteps(steps); vErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid step document: %v", vErr)), nil
		}
	}

	wf := &store.Workflow{
		ID:          req.GetString("workflow_id", ""),
		Name:        name,
		Description: req.GetString("description", ""),
		Steps:       steps,
	}
	if saveErr := s.store.SaveWorkflow(ctx, wf); saveErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save workflow: %v", saveErr)), nil
	}
	s.logger.Info("workflow saved",
		slog.String("workflow_id", wf.ID),
		slog.Int("version", wf.Version),
	)
	return marshalResult(wf)
}

// loadResponse pairs a stored workflow with its editable graph.
type loadResponse struct {
	Workflow *store.Workflow `json:"workflow"`
	Graph    schema.Graph    `json:"graph"`
	Snapshot int64           `json:"snapshot,omitempty"`
}

func (s *FlowServer) handleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	wf, err := s.getWorkflow(ctx, workflowID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := loadResponse{Workflow: wf}
	if req.GetBool("from_snapshot", false) {
		snap, snapErr := s.store.LatestSnapshot(ctx, workflowID)
		if snapErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("snapshot lookup failed: %v", snapErr)), nil
		}
		resp.Graph = snap.Graph
		resp.Snapshot = snap.Sequence
	} else {
		resp.Graph = convert.ToGraph(wf.Steps)
	}
	return marshalResult(resp)
}

// --- Helpers ---

func (s *FlowServer) getWorkflow(ctx context.Context, id string) (*store.Workflow, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no store configured")
	}
	wf, err := s.store.GetWorkflow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("workflow lookup failed: %w", err)
	}
	return wf, nil
}

// decodeSteps reads the "steps" argument, checking it against the step
// document schema when one is configured.
func (s *FlowServer) decodeSteps(req mcp.CallToolRequest) ([]schema.Step, error) {
	raw, err := req.RequireString("steps")
	if err != nil {
		return nil, fmt.Errorf("steps is required")
	}
	if s.documents != nil {
		steps, vErr := s.documents.ValidateDocument([]byte(raw))
		if vErr != nil {
			return nil, fmt.Errorf("invalid steps: %w", vErr)
		}
		return steps, nil
	}
	var steps []schema.Step
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, fmt.Errorf("invalid steps: %w", err)
	}
	return steps, nil
}

// decodeGraph reads the "graph" argument.
func decodeGraph(req mcp.CallToolRequest) (schema.Graph, error) {
	raw, err := req.RequireString("graph")
	if err != nil {
		return schema.Graph{}, fmt.Errorf("graph is required")
	}
	var g schema.Graph
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return schema.Graph{}, fmt.Errorf("invalid graph: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = []schema.GraphNode{}
	}
	if g.Edges == nil {
		g.Edges = []schema.GraphEdge{}
	}
	return g, nil
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
