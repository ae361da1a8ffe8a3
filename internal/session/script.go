package session

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/zyztek/suna-sub010/internal/edit"
	"github.com/zyztek/suna-sub010/pkg/schema"
)

// Operation is one scripted edit. Op selects which fields are read.
type Operation struct {
	Op          string           `json:"op" yaml:"op"`
	EdgeID      string           `json:"edgeId,omitempty" yaml:"edgeId,omitempty"`
	NodeID      string           `json:"nodeId,omitempty" yaml:"nodeId,omitempty"`
	Group       string           `json:"group,omitempty" yaml:"group,omitempty"`
	Connect     []string         `json:"connect,omitempty" yaml:"connect,omitempty"`
	Position    *schema.Position `json:"position,omitempty" yaml:"position,omitempty"`
	Source      string           `json:"source,omitempty" yaml:"source,omitempty"`
	Target      string           `json:"target,omitempty" yaml:"target,omitempty"`
	Label       string           `json:"label,omitempty" yaml:"label,omitempty"`
	Name        *string          `json:"name,omitempty" yaml:"name,omitempty"`
	Description *string          `json:"description,omitempty" yaml:"description,omitempty"`
	Tool        *string          `json:"tool,omitempty" yaml:"tool,omitempty"`
	Expression  *string          `json:"expression,omitempty" yaml:"expression,omitempty"`
	Enabled     *bool            `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Operation names accepted by Apply.
const (
	OpInsertStep      = "insert_step"
	OpInsertCondition = "insert_condition"
	OpDeleteNode      = "delete_node"
	OpMoveNode        = "move_node"
	OpUpdateNode      = "update_node"
	OpConnect         = "connect"
	OpDisconnect      = "disconnect"
	OpAutoFix         = "auto_fix"
	OpRelayout        = "relayout"
	OpUndo            = "undo"
)

// Result reports what one operation did.
type Result struct {
	Op      string   `json:"op"`
	NodeIDs []string `json:"nodeIds,omitempty"`
	Fixes   []string `json:"fixes,omitempty"`
}

// Script is the mapping form of an edit script.
type Script struct {
	Operations []Operation `json:"operations" yaml:"operations"`
}

// ParseScript decodes a YAML or JSON edit script. The document is either a
// list of operations or a mapping with an "operations" list.
func ParseScript(data []byte) ([]Operation, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, schema.NewError(schema.ErrCodeInvalidArgument, "malformed edit script").WithCause(err)
	}
	if len(doc.Content) == 0 {
		return []Operation{}, nil
	}

	var ops []Operation
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		if err := root.Decode(&ops); err != nil {
			return nil, schema.NewError(schema.ErrCodeInvalidArgument, "malformed edit script").WithCause(err)
		}
	} else {
		var script Script
		if err := root.Decode(&script); err != nil {
			return nil, schema.NewError(schema.ErrCodeInvalidArgument, "malformed edit script").WithCause(err)
		}
		ops = script.Operations
	}

	for i, op := range ops {
		if op.Op == "" {
			return nil, schema.NewErrorf(schema.ErrCodeInvalidArgument, "operation %d has no op", i)
		}
	}
	if ops == nil {
		ops = []Operation{}
	}
	return ops, nil
}

// Apply runs ops in order and stops at the first failure. The error names
// the index of the failing operation; earlier operations stay applied.
func (e *Editor) Apply(ctx context.Context, ops []Operation) ([]Result, error) {
	results := make([]Result, 0, len(ops))
	for i, op := range ops {
		res, err := e.apply(ctx, op)
		if err != nil {
			return results, fmt.Errorf("operation %d (%s): %w", i, op.Op, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Editor) apply(ctx context.Context, op Operation) (Result, error) {
	res := Result{Op: op.Op}
	switch op.Op {
	case OpInsertStep:
		id, err := e.InsertStep(ctx, op.EdgeID)
		if err != nil {
			return res, err
		}
		res.NodeIDs = []string{id}
		if op.hasData() {
			return res, e.UpdateNode(ctx, id, op.applyData)
		}

	case OpInsertCondition:
		connect, err := edit.ParseConditionTypes(op.Connect)
		if err != nil {
			return res, err
		}
		group := edit.GroupType(op.Group)
		if group == "" {
			group = edit.GroupIfElse
		}
		ids, err := e.InsertCondition(ctx, edit.Anchor{EdgeID: op.EdgeID, NodeID: op.NodeID}, group, connect)
		if err != nil {
			return res, err
		}
		res.NodeIDs = ids

	case OpDeleteNode:
		res.NodeIDs = []string{op.NodeID}
		return res, e.DeleteNode(ctx, op.NodeID)

	case OpMoveNode:
		if op.Position == nil {
			return res, schema.NewError(schema.ErrCodeInvalidArgument, "move_node requires a position")
		}
		res.NodeIDs = []string{op.NodeID}
		return res, e.MoveNode(ctx, op.NodeID, *op.Position)

	case OpUpdateNode:
		res.NodeIDs = []string{op.NodeID}
		return res, e.UpdateNode(ctx, op.NodeID, op.applyData)

	case OpConnect:
		return res, e.Connect(ctx, op.Source, op.Target, op.Label)

	case OpDisconnect:
		edgeID := op.EdgeID
		if edgeID == "" {
			edgeID = schema.EdgeID(op.Source, op.Target)
		}
		return res, e.Disconnect(ctx, edgeID)

	case OpAutoFix:
		res.Fixes = e.AutoFix(ctx)

	case OpRelayout:
		e.Relayout(ctx)

	case OpUndo:
		return res, e.Undo(ctx)

	default:
		return res, schema.NewErrorf(schema.ErrCodeInvalidArgument, "unknown operation %q", op.Op)
	}
	return res, nil
}

func (op Operation) hasData() bool {
	return op.Name != nil || op.Description != nil || op.Tool != nil || op.Expression != nil || op.Enabled != nil
}

// applyData copies the set data fields onto d. Renaming a step clears its
// issue flag.
func (op Operation) applyData(d *schema.NodeData) {
	if op.Name != nil {
		d.Name = *op.Name
		if d.Name != "" && d.Name != edit.NewStepName {
			d.HasIssues = false
		}
	}
	if op.Description != nil {
		d.Description = *op.Description
	}
	if op.Tool != nil {
		d.Tool = *op.Tool
	}
	if op.Expression != nil {
		d.Expression = *op.Expression
		if d.ConditionType.NeedsExpression() && d.Expression != "" {
			d.HasIssues = false
		}
	}
	if op.Enabled != nil {
		d.Enabled = *op.Enabled
	}
}
