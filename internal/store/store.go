package store

import (
	"context"
	"time"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Workflows
	SaveWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, id string) (*Workflow, error)
	ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]*Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error

	// Snapshots (append-only, per-workflow sequence)
	AppendSnapshot(ctx context.Context, snap *Snapshot) error
	ListSnapshots(ctx context.Context, workflowID string, filter SnapshotFilter) ([]*Snapshot, error)
	LatestSnapshot(ctx context.Context, workflowID string) (*Snapshot, error)
	PruneSnapshots(ctx context.Context, olderThan time.Time) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error
	Close() error
}
