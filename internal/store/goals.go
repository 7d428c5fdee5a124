package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/goalctl/internal/goal"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateGoal inserts a non-event goal. Creating a routine also generates its
// occurrences up to the horizon.
func (s *Store) CreateGoal(ctx context.Context, g goal.Goal) (goal.Goal, error) {
	if g.GoalType == goal.TypeEvent {
		return goal.Goal{}, fmt.Errorf("create goal: events are created with CreateEvent")
	}
	if _, err := goal.ParseType(string(g.GoalType)); err != nil {
		return goal.Goal{}, fmt.Errorf("create goal: %w", err)
	}

	var created goal.Goal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := s.insertGoal(ctx, tx, g)
		if err != nil {
			return err
		}
		created, err = getGoal(ctx, tx, id)
		if err != nil {
			return err
		}
		if created.GoalType == goal.TypeRoutine && created.StartTimestamp != nil {
			now := s.now().UTC()
			if _, err := s.generate(ctx, tx, created, *created.StartTimestamp, s.until(created, now), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return goal.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return created, nil
}

// UpdateGoal overwrites the mutable fields of goal id. The goal type is kept.
func (s *Store) UpdateGoal(ctx context.Context, id int64, g goal.Goal) (goal.Goal, error) {
	var updated goal.Goal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getGoal(ctx, tx, id); err != nil {
			return err
		}
		if err := s.writeGoal(ctx, tx, id, g); err != nil {
			return err
		}
		var err error
		updated, err = getGoal(ctx, tx, id)
		return err
	})
	if err != nil {
		return goal.Goal{}, fmt.Errorf("update goal %d: %w", id, err)
	}
	return updated, nil
}

// DeleteGoal removes goal id, its relationships, and the events it owns.
func (s *Store) DeleteGoal(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getGoal(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE parent_id = ? AND goal_type = 'event'`, id); err != nil {
			return fmt.Errorf("delete events: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete goal: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	return nil
}

// CompleteGoal sets the completion state of goal id and returns it. A task
// carries its events along.
func (s *Store) CompleteGoal(ctx context.Context, id int64, completed bool) (bool, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		g, err := getGoal(ctx, tx, id)
		if err != nil {
			return err
		}
		var when sql.NullInt64
		if completed {
			when = sql.NullInt64{Int64: s.nowMillis(), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE goals SET completed = ?, completion_ms = ?, updated_ms = ?
			WHERE id = ?
		`, boolInt(completed), when, s.nowMillis(), id); err != nil {
			return err
		}
		if g.GoalType == goal.TypeTask {
			if _, err := tx.ExecContext(ctx, `
				UPDATE goals SET completed = ?, completion_ms = ?, updated_ms = ?
				WHERE parent_id = ? AND goal_type = 'event' AND is_deleted = 0
			`, boolInt(completed), when, s.nowMillis(), id); err != nil {
				return fmt.Errorf("sync task events: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("complete goal %d: %w", id, err)
	}
	return completed, nil
}

func (s *Store) insertGoal(ctx context.Context, q querier, g goal.Goal) (int64, error) {
	now := s.nowMillis()
	res, err := q.ExecContext(ctx, `
		INSERT INTO goals
		(goal_type, name, description, priority, completed,
		 start_ms, end_ms, scheduled_ms, completion_ms, duration,
		 frequency, routine_time_ms, routine_type, timezone_mode,
		 parent_id, parent_type, routine_instance_id, created_ms, updated_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(g.GoalType), g.Name, g.Description, string(g.Priority), boolInt(g.Completed),
		toMillis(g.StartTimestamp), toMillis(g.EndTimestamp), toMillis(g.ScheduledTimestamp), toMillis(g.CompletionDate), g.Duration,
		goal.CanonicalFrequency(g.Frequency), toMillis(g.RoutineTime), g.RoutineType, string(goal.TimezoneUTC),
		nullID(g.ParentID), string(g.ParentType), g.RoutineInstanceID, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) writeGoal(ctx context.Context, q querier, id int64, g goal.Goal) error {
	_, err := q.ExecContext(ctx, `
		UPDATE goals SET
			name = ?, description = ?, priority = ?, completed = ?,
			start_ms = ?, end_ms = ?, scheduled_ms = ?, completion_ms = ?, duration = ?,
			frequency = ?, routine_time_ms = ?, routine_type = ?, updated_ms = ?
		WHERE id = ?
	`,
		g.Name, g.Description, string(g.Priority), boolInt(g.Completed),
		toMillis(g.StartTimestamp), toMillis(g.EndTimestamp), toMillis(g.ScheduledTimestamp), toMillis(g.CompletionDate), g.Duration,
		goal.CanonicalFrequency(g.Frequency), toMillis(g.RoutineTime), g.RoutineType, s.nowMillis(),
		id,
	)
	if err != nil {
		return fmt.Errorf("write goal: %w", err)
	}
	return nil
}

// getGoal loads a goal that has not been soft-deleted.
func getGoal(ctx context.Context, q querier, id int64) (goal.Goal, error) {
	row := q.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ? AND is_deleted = 0`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return goal.Goal{}, fmt.Errorf("goal %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return goal.Goal{}, fmt.Errorf("read goal %d: %w", id, err)
	}
	return g, nil
}
