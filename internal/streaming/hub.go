package streaming

import "context"

// Event types published by an editing session.
const (
	EventGraphChanged   = "graph.changed"
	EventGraphLaidOut   = "graph.laid_out"
	EventGraphUndone    = "graph.undone"
	EventGraphAutoFixed = "graph.auto_fixed"
)

// Event is a change notification for the rendering surface.
type Event struct {
	SessionID  string `json:"session_id"`
	WorkflowID string `json:"workflow_id,omitempty"`
	NodeID     string `json:"node_id,omitempty"`
	Type       string `json:"type"`
	Operation  string `json:"operation,omitempty"`
	NodeCount  int    `json:"node_count"`
	EdgeCount  int    `json:"edge_count"`
	Valid      bool   `json:"valid"`
	Payload    any    `json:"payload,omitempty"`
}

// Filter selects which events a subscriber receives. Empty fields match all.
type Filter struct {
	SessionID  string   `json:"session_id,omitempty"`
	WorkflowID string   `json:"workflow_id,omitempty"`
	Types      []string `json:"types,omitempty"`
}

// Hub provides pub/sub for session events.
type Hub interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, func(), error)
}
