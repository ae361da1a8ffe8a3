package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// AppendSnapshot stores a graph snapshot with the next per-workflow sequence.
// snap.Sequence, snap.ID and the counts are filled in on success.
func (s *LibSQLStore) AppendSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.WorkflowID == "" {
		return schema.NewError(schema.ErrCodeInvalidArgument, "snapshot requires a workflow id")
	}
	doc, err := json.Marshal(snap.Graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM snapshots WHERE workflow_id = ?`, snap.WorkflowID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("next snapshot sequence: %w", err)
	}

	snap.CreatedAt = timeOrNow(snap.CreatedAt)
	snap.NodeCount = len(snap.Graph.Nodes)
	snap.EdgeCount = len(snap.Graph.Edges)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (workflow_id, sequence, operation, graph, node_count, edge_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.WorkflowID, seq, snap.Operation, string(doc), snap.NodeCount, snap.EdgeCount, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("snapshot id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	snap.ID = id
	snap.Sequence = seq
	return nil
}

// SaveSnapshot lets the store act as an editing session's snapshot sink.
func (s *LibSQLStore) SaveSnapshot(ctx context.Context, workflowID, operation string, g schema.Graph) error {
	return s.AppendSnapshot(ctx, &Snapshot{
		WorkflowID: workflowID,
		Operation:  operation,
		Graph:      g,
	})
}

// ListSnapshots returns snapshots with sequence > filter.Since in ascending order.
func (s *LibSQLStore) ListSnapshots(ctx context.Context, workflowID string, filter SnapshotFilter) ([]*Snapshot, error) {
	query := `SELECT id, workflow_id, sequence, operation, graph, node_count, edge_count, created_at
		 FROM snapshots WHERE workflow_id = ? AND sequence > ? ORDER BY sequence ASC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, workflowID, filter.Since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *LibSQLStore) LatestSnapshot(ctx context.Context, workflowID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workflow_id, sequence, operation, graph, node_count, edge_count, created_at
		 FROM snapshots WHERE workflow_id = ? ORDER BY sequence DESC LIMIT 1`, workflowID)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("snapshot of workflow", workflowID)
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// PruneSnapshots deletes snapshots created before olderThan. The latest
// snapshot of every workflow survives regardless of age.
func (s *LibSQLStore) PruneSnapshots(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots
		 WHERE created_at < ?
		   AND sequence < (SELECT MAX(latest.sequence) FROM snapshots latest
		                   WHERE latest.workflow_id = snapshots.workflow_id)`,
		olderThan.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	snap := &Snapshot{}
	var doc string
	if err := row.Scan(&snap.ID, &snap.WorkflowID, &snap.Sequence, &snap.Operation, &doc,
		&snap.NodeCount, &snap.EdgeCount, &snap.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(doc), &snap.Graph); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot graph: %w", err)
	}
	return snap, nil
}
