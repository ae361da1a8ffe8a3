package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zyztek/suna-sub010/internal/expressions"
	"github.com/zyztek/suna-sub010/internal/store"
	"github.com/zyztek/suna-sub010/internal/streaming"
	"github.com/zyztek/suna-sub010/internal/validation"
)

// FlowServerDeps holds the dependencies for creating a FlowServer.
// Store may be nil, in which case save and load report an error.
type FlowServerDeps struct {
	Store        store.Store
	Checker      validation.ExpressionChecker
	Documents    *validation.DocumentValidator
	Query        *expressions.Query
	Hub          streaming.Hub
	HistoryLimit int
	Version      string
	Logger       *slog.Logger
}

// FlowServer wraps an MCP server with the workflow graph tools.
type FlowServer struct {
	store        store.Store
	validator    *validation.Validator
	documents    *validation.DocumentValidator
	query        *expressions.Query
	hub          streaming.Hub
	historyLimit int
	logger       *slog.Logger
	mcpServer    *server.MCPServer
}

// NewFlowServer creates a FlowServer with all tools registered.
func NewFlowServer(deps FlowServerDeps) *FlowServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	query := deps.Query
	if query == nil {
		query = expressions.NewQuery()
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &FlowServer{
		store:        deps.Store,
		validator:    validation.NewValidator(deps.Checker),
		documents:    deps.Documents,
		query:        query,
		hub:          deps.Hub,
		historyLimit: deps.HistoryLimit,
		logger:       logger,
	}

	mcpSrv := server.NewMCPServer(
		"flowgraph",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("flowgraph converts conditional workflow step trees to editable node/edge graphs and back. "+
			"Graphs and step lists are passed as JSON strings. Use flowgraph.to_graph and flowgraph.to_tree to convert, "+
			"flowgraph.edit to apply edit operations, flowgraph.validate before saving, and flowgraph.save/flowgraph.load for persistence."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *FlowServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FlowServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *FlowServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: toGraphTool(), Handler: s.handleToGraph},
		{Tool: toTreeTool(), Handler: s.handleToTree},
		{Tool: layoutTool(), Handler: s.handleLayout},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: autoFixTool(), Handler: s.handleAutoFix},
		{Tool: canDeleteTool(), Handler: s.handleCanDelete},
		{Tool: editTool(), Handler: s.handleEdit},
		{Tool: diagramTool(), Handler: s.handleDiagram},
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: saveTool(), Handler: s.handleSave},
		{Tool: loadTool(), Handler: s.handleLoad},
	}
}

// --- Tool definitions ---

func toGraphTool() mcp.Tool {
	return mcp.NewTool("flowgraph.to_graph",
		mcp.WithDescription("Convert a step tree into a positioned node/edge graph"),
		mcp.WithString("steps", mcp.Required(), mcp.Description("JSON array of steps")),
		mcp.WithBoolean("layout", mcp.Description("Recompute positions with the auto-layout (default: false)")),
	)
}

func toTreeTool() mcp.Tool {
	return mcp.NewTool("flowgraph.to_tree",
		mcp.WithDescription("Convert a node/edge graph back into a step tree"),
		mcp.WithString("graph", mcp.Required(), mcp.Description("JSON object with nodes and edges")),
	)
}

func layoutTool() mcp.Tool {
	return mcp.NewTool("flowgraph.layout",
		mcp.WithDescription("Recompute node positions by level"),
		mcp.WithString("graph", mcp.Required(), mcp.Description("JSON object with nodes and edges")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("flowgraph.validate",
		mcp.WithDescription("Check a graph's structural well-formedness"),
		mcp.WithString("graph", mcp.Required(), mcp.Description("JSON object with nodes and edges")),
	)
}

func autoFixTool() mcp.Tool {
	return mcp.NewTool("flowgraph.autofix",
		mcp.WithDescription("Reset invalid positions and drop duplicate edges"),
		mcp.WithString("graph", mcp.Required(), mcp.Description("JSON object with nodes and edges")),
	)
}

func canDeleteTool() mcp.Tool {
	return mcp.NewTool("flowgraph.can_delete",
		mcp.WithDescription("Report whether a node can be deleted without orphaning its children"),
		mcp.WithString("graph", mcp.Required(), mcp.Description("JSON object with nodes and edges")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("ID of the node to delete")),
	)
}

func editTool() mcp.Tool {
	return mcp.NewTool("flowgraph.edit",
		mcp.WithDescription("Apply a script of edit operations to a graph"),
		mcp.WithString("graph", mcp.Required(), mcp.Description("JSON object with nodes and edges")),
		mcp.WithString("operations", mcp.Required(),
			mcp.Description("JSON or YAML list of operations: insert_step, insert_condition, delete_node, move_node, update_node, connect, disconnect, auto_fix, relayout, undo")),
		mcp.WithString("workflow_id", mcp.Description("Persist a snapshot per operation under this workflow")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("flowgraph.diagram",
		mcp.WithDescription("Render a graph as Mermaid, ASCII, base64 PNG or SVG"),
		mcp.WithString("graph", mcp.Description("JSON object with nodes and edges")),
		mcp.WithString("steps", mcp.Description("JSON array of steps (used when graph is absent)")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("mermaid", "ascii", "png", "svg"),
			mcp.Description("Output format"),
		),
		mcp.WithString("title", mcp.Description("Diagram title")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("flowgraph.query",
		mcp.WithDescription("Run a jq program over a step tree, a graph, or a stored workflow"),
		mcp.WithString("program", mcp.Required(), mcp.Description("jq program, e.g. [.. | objects | select(.hasIssues)]")),
		mcp.WithString("steps", mcp.Description("JSON array of steps")),
		mcp.WithString("graph", mcp.Description("JSON object with nodes and edges")),
		mcp.WithString("workflow_id", mcp.Description("Query the steps of a stored workflow")),
	)
}

func saveTool() mcp.Tool {
	return mcp.NewTool("flowgraph.save",
		mcp.WithDescription("Persist a workflow's step tree"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Workflow name")),
		mcp.WithString("workflow_id", mcp.Description("Existing workflow ID (new ID when empty)")),
		mcp.WithString("description", mcp.Description("Workflow description")),
		mcp.WithString("steps", mcp.Description("JSON array of steps")),
		mcp.WithString("graph", mcp.Description("JSON graph, converted to steps when steps is absent")),
	)
}

func loadTool() mcp.Tool {
	return mcp.NewTool("flowgraph.load",
		mcp.WithDescription("Load a stored workflow and its graph"),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("Workflow ID")),
		mcp.WithBoolean("from_snapshot", mcp.Description("Return the latest edit snapshot instead of converting the saved steps")),
	)
}
