package store

import (
	"time"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// Workflow is a persisted step document.
// Version is bumped on every save of an existing id.
type Workflow struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Steps       []schema.Step `json:"steps"`
	Version     int           `json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// WorkflowFilter narrows ListWorkflows.
type WorkflowFilter struct {
	NameContains string
	Since        *time.Time
	Limit        int
	Offset       int
}

// Snapshot is one recorded state of a workflow's graph.
type Snapshot struct {
	ID         int64        `json:"id"`
	WorkflowID string       `json:"workflow_id"`
	Sequence   int64        `json:"sequence"`
	Operation  string       `json:"operation"`
	Graph      schema.Graph `json:"graph"`
	NodeCount  int          `json:"node_count"`
	EdgeCount  int          `json:"edge_count"`
	CreatedAt  time.Time    `json:"created_at"`
}

// SnapshotFilter narrows ListSnapshots. Since is an exclusive sequence bound.
type SnapshotFilter struct {
	Since int64
	Limit int
}
