package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/relations"
)

// CreateRelationship links parent to child. Creating an existing edge is a
// no-op.
func (s *Store) CreateRelationship(ctx context.Context, parentID, childID int64, kind goal.EdgeKind) error {
	e := goal.Edge{From: parentID, To: childID, Kind: kind}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("create relationship: %w", err)
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		parent, err := getGoal(ctx, tx, parentID)
		if err != nil {
			return err
		}
		child, err := getGoal(ctx, tx, childID)
		if err != nil {
			return err
		}
		if err := relations.ValidateEdge(parent.GoalType, child.GoalType); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO relationships (from_id, to_id, relationship_type)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, parentID, childID, string(kind))
		return err
	})
	if err != nil {
		return fmt.Errorf("create relationship %s: %w", e, err)
	}
	return nil
}

// DeleteRelationship removes the edge parent→child. Removing a missing edge
// is a no-op.
func (s *Store) DeleteRelationship(ctx context.Context, parentID, childID int64, kind goal.EdgeKind) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM relationships
		WHERE from_id = ? AND to_id = ? AND relationship_type = ?
	`, parentID, childID, string(kind))
	if err != nil {
		return fmt.Errorf("delete relationship %d->%d: %w", parentID, childID, err)
	}
	return nil
}

// FetchRelationshipEdges returns every edge ordered by (from, to).
func (s *Store) FetchRelationshipEdges(ctx context.Context) ([]goal.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_id, to_id, relationship_type
		FROM relationships
		ORDER BY from_id ASC, to_id ASC, relationship_type ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("fetch relationships: %w", err)
	}
	defer rows.Close()

	edges := []goal.Edge{}
	for rows.Next() {
		var e goal.Edge
		var kind string
		if err := rows.Scan(&e.From, &e.To, &kind); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		e.Kind = goal.EdgeKind(kind)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relationships: %w", err)
	}
	return edges, nil
}
