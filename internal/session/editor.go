// Package session owns a graph while it is being edited. Each change runs
// mutation, then layout when the node count changed, then validation, and
// can be undone by restoring the previous whole-graph snapshot.
package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/zyztek/suna-sub010/internal/convert"
	"github.com/zyztek/suna-sub010/internal/edit"
	"github.com/zyztek/suna-sub010/internal/layout"
	"github.com/zyztek/suna-sub010/internal/logging"
	"github.com/zyztek/suna-sub010/internal/streaming"
	"github.com/zyztek/suna-sub010/internal/validation"
	"github.com/zyztek/suna-sub010/pkg/schema"
)

// DefaultHistoryLimit bounds the undo stack when Options leaves it unset.
const DefaultHistoryLimit = 50

// SnapshotSink persists the graph after each change.
type SnapshotSink interface {
	SaveSnapshot(ctx context.Context, workflowID, operation string, g schema.Graph) error
}

// Options configures an Editor. Every field is optional.
type Options struct {
	ID           string
	WorkflowID   string
	HistoryLimit int
	LayoutOnLoad bool
	Hub          streaming.Hub
	Sink         SnapshotSink
	Validator    *validation.Validator
	Logger       *slog.Logger
}

// Editor is the single owner of one graph. It is not safe for concurrent
// use; callers serialize access.
type Editor struct {
	id         string
	workflowID string
	limit      int

	graph   schema.Graph
	history []schema.Graph
	trigger layout.Trigger

	hub       streaming.Hub
	sink      SnapshotSink
	validator *validation.Validator
	logger    *slog.Logger
}

// New starts a session on a copy of g.
func New(g schema.Graph, opts Options) *Editor {
	e := &Editor{
		id:         opts.ID,
		workflowID: opts.WorkflowID,
		limit:      opts.HistoryLimit,
		graph:      normalize(g.Clone()),
		hub:        opts.Hub,
		sink:       opts.Sink,
		validator:  opts.Validator,
		logger:     opts.Logger,
	}
	if e.id == "" {
		e.id = uuid.NewString()
	}
	if e.limit <= 0 {
		e.limit = DefaultHistoryLimit
	}
	if e.validator == nil {
		e.validator = validation.NewValidator(nil)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	e.logger = e.logger.With(slog.String("session_id", e.id))

	e.trigger.ShouldLayout(len(e.graph.Nodes))
	if opts.LayoutOnLoad {
		e.graph = layout.Apply(e.graph)
	}
	return e
}

// FromSteps starts a session on the graph form of a step tree.
func FromSteps(steps []schema.Step, opts Options) *Editor {
	return New(convert.ToGraph(steps), opts)
}

// ID returns the session id.
func (e *Editor) ID() string { return e.id }

// WorkflowID returns the id of the workflow being edited, if any.
func (e *Editor) WorkflowID() string { return e.workflowID }

// Graph returns a copy of the current graph.
func (e *Editor) Graph() schema.Graph { return e.graph.Clone() }

// Steps converts the current graph back into a step tree.
func (e *Editor) Steps() []schema.Step {
	return convert.ToTree(e.graph.Nodes, e.graph.Edges)
}

// Validate checks the current graph.
func (e *Editor) Validate() *schema.ValidationResult {
	return e.validator.Validate(e.graph)
}

// CanUndo reports whether a previous snapshot exists.
func (e *Editor) CanUndo() bool { return len(e.history) > 0 }

// HistoryLen returns the number of snapshots Undo can restore.
func (e *Editor) HistoryLen() int { return len(e.history) }

// InsertStep splits edgeID with a new placeholder step and returns its id.
func (e *Editor) InsertStep(ctx context.Context, edgeID string) (string, error) {
	next, id, err := edit.InsertStepOnEdge(e.graph, edgeID)
	if err != nil {
		return "", err
	}
	e.commit(ctx, "insert_step", id, next)
	return id, nil
}

// InsertCondition adds a condition group at anchor and returns the new
// condition node ids.
func (e *Editor) InsertCondition(ctx context.Context, anchor edit.Anchor, group edit.GroupType, connect []schema.ConditionType) ([]string, error) {
	next, ids, err := edit.InsertCondition(e.graph, anchor, group, connect)
	if err != nil {
		return nil, err
	}
	e.commit(ctx, "insert_condition", anchor.NodeID, next)
	return ids, nil
}

// DeleteNode removes a node after consulting validation.CanDelete.
func (e *Editor) DeleteNode(ctx context.Context, nodeID string) error {
	check := validation.CanDelete(nodeID, e.graph.Nodes, e.graph.Edges)
	if !check.CanDelete {
		code := schema.ErrCodeDeleteRefused
		if _, ok := e.graph.Node(nodeID); !ok {
			code = schema.ErrCodeNotFound
		}
		return schema.NewError(code, check.Reason).WithNode(nodeID)
	}
	e.commit(ctx, "delete_node", nodeID, edit.DeleteNode(e.graph, nodeID))
	return nil
}

// MoveNode records a drag. Moving never triggers a relayout.
func (e *Editor) MoveNode(ctx context.Context, nodeID string, pos schema.Position) error {
	if !validation.ValidPosition(pos) {
		return schema.NewErrorf(schema.ErrCodeInvalidArgument,
			"position (%g, %g) is outside the canvas", pos.X, pos.Y).WithNode(nodeID)
	}
	next, err := edit.MoveNode(e.graph, nodeID, pos)
	if err != nil {
		return err
	}
	e.commit(ctx, "move_node", nodeID, next)
	return nil
}

// UpdateNode edits the data of a node.
func (e *Editor) UpdateNode(ctx context.Context, nodeID string, fn func(*schema.NodeData)) error {
	next, err := edit.UpdateNode(e.graph, nodeID, fn)
	if err != nil {
		return err
	}
	e.commit(ctx, "update_node", nodeID, next)
	return nil
}

// Connect adds an edge.
func (e *Editor) Connect(ctx context.Context, source, target, label string) error {
	next, err := edit.Connect(e.graph, source, target, label)
	if err != nil {
		return err
	}
	e.commit(ctx, "connect", target, next)
	return nil
}

// Disconnect removes an edge.
func (e *Editor) Disconnect(ctx context.Context, edgeID string) error {
	next, err := edit.Disconnect(e.graph, edgeID)
	if err != nil {
		return err
	}
	e.commit(ctx, "disconnect", "", next)
	return nil
}

// AutoFix applies validation.AutoFix and returns the fixes made. Nothing is
// recorded when there was nothing to fix.
func (e *Editor) AutoFix(ctx context.Context) []string {
	res := validation.AutoFix(e.graph.Nodes, e.graph.Edges)
	if len(res.Fixes) == 0 {
		return res.Fixes
	}
	e.commit(ctx, "auto_fix", "", schema.Graph{Nodes: res.Nodes, Edges: res.Edges})
	e.publish(ctx, streaming.EventGraphAutoFixed, "auto_fix", "", res.Fixes)
	return res.Fixes
}

// Relayout lays the graph out regardless of the node-count trigger.
func (e *Editor) Relayout(ctx context.Context) {
	e.push()
	e.graph = layout.Apply(e.graph)
	e.publish(ctx, streaming.EventGraphLaidOut, "relayout", "", nil)
	e.persist(ctx, "relayout")
}

// Undo restores the snapshot taken before the last change.
func (e *Editor) Undo(ctx context.Context) error {
	if len(e.history) == 0 {
		return schema.NewError(schema.ErrCodeInvalidArgument, "nothing to undo")
	}
	last := len(e.history) - 1
	e.graph = e.history[last]
	e.history = e.history[:last]
	// The restored positions are the user's; do not lay them out again.
	e.trigger.ShouldLayout(len(e.graph.Nodes))

	e.publish(ctx, streaming.EventGraphUndone, "undo", "", nil)
	e.persist(ctx, "undo")
	return nil
}

func (e *Editor) commit(ctx context.Context, op, nodeID string, next schema.Graph) {
	e.push()
	laidOut := false
	if e.trigger.ShouldLayout(len(next.Nodes)) {
		next = layout.Apply(next)
		laidOut = true
	}
	e.graph = next

	ctx = logging.WithNodeID(ctx, nodeID)
	e.logger.DebugContext(ctx, "graph changed",
		slog.String("operation", op),
		slog.Int("nodes", len(next.Nodes)),
		slog.Int("edges", len(next.Edges)),
		slog.Bool("laid_out", laidOut))

	e.publish(ctx, streaming.EventGraphChanged, op, nodeID, nil)
	if laidOut {
		e.publish(ctx, streaming.EventGraphLaidOut, op, nodeID, nil)
	}
	e.persist(ctx, op)
}

func (e *Editor) push() {
	e.history = append(e.history, e.graph)
	if over := len(e.history) - e.limit; over > 0 {
		e.history = append(e.history[:0:0], e.history[over:]...)
	}
}

func (e *Editor) publish(ctx context.Context, typ, op, nodeID string, payload any) {
	if e.hub == nil {
		return
	}
	evt := streaming.Event{
		SessionID:  e.id,
		WorkflowID: e.workflowID,
		NodeID:     nodeID,
		Type:       typ,
		Operation:  op,
		NodeCount:  len(e.graph.Nodes),
		EdgeCount:  len(e.graph.Edges),
		Valid:      e.Validate().Valid(),
		Payload:    payload,
	}
	if err := e.hub.Publish(ctx, evt); err != nil {
		e.logger.WarnContext(ctx, "publish session event", slog.String("type", typ), slog.Any("error", err))
	}
}

// persist hands the graph to the sink. A failing sink is logged and does
// not roll back the edit.
func (e *Editor) persist(ctx context.Context, op string) {
	if e.sink == nil || e.workflowID == "" {
		return
	}
	if err := e.sink.SaveSnapshot(ctx, e.workflowID, op, e.graph); err != nil {
		e.logger.WarnContext(ctx, "save snapshot", slog.String("operation", op), slog.Any("error", err))
	}
}

// normalize replaces nil slices so the graph always serializes as arrays.
func normalize(g schema.Graph) schema.Graph {
	if g.Nodes == nil {
		g.Nodes = []schema.GraphNode{}
	}
	if g.Edges == nil {
		g.Edges = []schema.GraphEdge{}
	}
	return g
}
