package store

import (
	"context"
	"fmt"

	"github.com/roach88/goalctl/internal/goal"
)

// GetGoal returns goal id.
func (s *Store) GetGoal(ctx context.Context, id int64) (goal.Goal, error) {
	return getGoal(ctx, s.db, id)
}

// FetchAllGoals returns every goal that has not been deleted, ordered by id.
func (s *Store) FetchAllGoals(ctx context.Context) ([]goal.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+goalColumns+`
		FROM goals
		WHERE is_deleted = 0
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("fetch goals: %w", err)
	}
	return scanGoals(rows)
}

// FetchGoalsByType returns the live goals of type t, ordered by id.
func (s *Store) FetchGoalsByType(ctx context.Context, t goal.Type) ([]goal.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+goalColumns+`
		FROM goals
		WHERE is_deleted = 0 AND goal_type = ?
		ORDER BY id ASC
	`, string(t))
	if err != nil {
		return nil, fmt.Errorf("fetch %s goals: %w", t, err)
	}
	return scanGoals(rows)
}

// FetchOccurrences returns the live occurrences of a routine in schedule
// order.
func (s *Store) FetchOccurrences(ctx context.Context, routineID int64) ([]goal.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+goalColumns+`
		FROM goals
		WHERE parent_id = ? AND goal_type = 'event' AND is_deleted = 0
		ORDER BY scheduled_ms ASC, id ASC
	`, routineID)
	if err != nil {
		return nil, fmt.Errorf("fetch occurrences of %d: %w", routineID, err)
	}
	return scanGoals(rows)
}

// FetchGoalEventsAndTotalDuration returns a task's live events in schedule
// order with the sum of their durations.
func (s *Store) FetchGoalEventsAndTotalDuration(ctx context.Context, taskID int64) (goal.TaskEvents, error) {
	events, err := s.FetchOccurrences(ctx, taskID)
	if err != nil {
		return goal.TaskEvents{}, fmt.Errorf("fetch task events: %w", err)
	}
	res := goal.TaskEvents{TaskID: taskID, Events: events}
	for _, e := range events {
		res.TotalDuration += e.Duration
	}
	return res, nil
}
