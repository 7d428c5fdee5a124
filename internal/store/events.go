package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/relations"
)

// CreateEvent inserts an event under a task or routine.
//
// An event outside its task's date range is rejected with a
// *goal.ConflictError carrying the bounds that would accept it. Name,
// description, and priority default to the parent's.
func (s *Store) CreateEvent(ctx context.Context, req goal.EventRequest) (goal.Goal, error) {
	var created goal.Goal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		parent, err := getGoal(ctx, tx, req.ParentID)
		if err != nil {
			return err
		}
		if !relations.ValidEventParent(parent.GoalType) {
			return fmt.Errorf("parent %d is a %s, events need a task or routine", parent.ID, parent.GoalType)
		}
		if ce := checkTaskRange(parent, req.ScheduledTime); ce != nil {
			return ce
		}

		ev := goal.Goal{
			GoalType:           goal.TypeEvent,
			Name:               req.Name,
			Description:        req.Description,
			Priority:           req.Priority,
			ScheduledTimestamp: goal.TimePtr(req.ScheduledTime.UTC()),
			Duration:           req.Duration,
			ParentID:           parent.ID,
			ParentType:         parent.GoalType,
		}
		if ev.Name == "" {
			ev.Name = parent.Name
		}
		if ev.Description == "" {
			ev.Description = parent.Description
		}
		if ev.Priority == "" {
			ev.Priority = parent.Priority
		}
		if ev.Duration <= 0 {
			ev.Duration = goal.DefaultDurationMinutes
		}

		id, err := s.insertGoal(ctx, tx, ev)
		if err != nil {
			return err
		}
		created, err = getGoal(ctx, tx, id)
		return err
	})
	if err != nil {
		return goal.Goal{}, fmt.Errorf("create event: %w", err)
	}
	return created, nil
}

// UpdateEvent applies a partial update to one event. Moving a task's event
// outside the task's range is a conflict.
func (s *Store) UpdateEvent(ctx context.Context, id int64, fields goal.EventFields) (goal.Goal, error) {
	if fields.IsEmpty() {
		return goal.Goal{}, fmt.Errorf("update event %d: no fields to update", id)
	}
	var updated goal.Goal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ev, err := getEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if fields.ScheduledTimestamp != nil && ev.ParentType == goal.TypeTask {
			parent, err := getGoal(ctx, tx, ev.ParentID)
			if err != nil {
				return err
			}
			if ce := checkTaskRange(parent, *fields.ScheduledTimestamp); ce != nil {
				return ce
			}
		}
		fields.ApplyTo(&ev)
		if err := s.writeGoal(ctx, tx, id, ev); err != nil {
			return err
		}
		updated, err = getGoal(ctx, tx, id)
		return err
	})
	if err != nil {
		return goal.Goal{}, fmt.Errorf("update event %d: %w", id, err)
	}
	return updated, nil
}

// DeleteEvent soft-deletes an event. With deleteFuture, every later
// occurrence of the same routine goes too and the routine is ended just
// before this one.
func (s *Store) DeleteEvent(ctx context.Context, id int64, deleteFuture bool) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ev, err := getEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if !deleteFuture {
			_, err := tx.ExecContext(ctx, `UPDATE goals SET is_deleted = 1, updated_ms = ? WHERE id = ?`, s.nowMillis(), id)
			return err
		}

		if !ev.IsRoutineOccurrence() || ev.ScheduledTimestamp == nil {
			return fmt.Errorf("event %d is not a routine occurrence", id)
		}
		cutoff := ev.ScheduledTimestamp.UTC().UnixMilli()
		if _, err := tx.ExecContext(ctx, `
			UPDATE goals SET is_deleted = 1, updated_ms = ?
			WHERE parent_id = ? AND goal_type = 'event' AND scheduled_ms >= ? AND is_deleted = 0
		`, s.nowMillis(), ev.ParentID, cutoff); err != nil {
			return fmt.Errorf("delete future occurrences: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE goals SET end_ms = ?, updated_ms = ?
			WHERE id = ? AND (end_ms IS NULL OR end_ms >= ?)
		`, cutoff-1, s.nowMillis(), ev.ParentID, cutoff); err != nil {
			return fmt.Errorf("end routine: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return nil
}

// CompleteEvent marks an event complete. When the event belongs to an open
// task and no later open event of that task remains, the result asks for the
// task to be completed too.
func (s *Store) CompleteEvent(ctx context.Context, id int64) (goal.CompletionResult, error) {
	var res goal.CompletionResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ev, err := getEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		now := s.nowMillis()
		if _, err := tx.ExecContext(ctx, `
			UPDATE goals SET completed = 1, completion_ms = ?, updated_ms = ? WHERE id = ?
		`, now, now, id); err != nil {
			return err
		}
		if ev.ParentType != goal.TypeTask {
			return nil
		}

		parent, err := getGoal(ctx, tx, ev.ParentID)
		if err != nil {
			return err
		}
		var later int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM goals
			WHERE parent_id = ? AND goal_type = 'event' AND id != ?
			AND is_deleted = 0 AND completed = 0 AND scheduled_ms > ?
		`, parent.ID, id, toMillis(ev.ScheduledTimestamp)).Scan(&later); err != nil {
			return fmt.Errorf("count open events: %w", err)
		}
		res = goal.CompletionResult{
			ShouldPromptParentCompletion: !parent.Completed && later == 0,
			ParentTaskID:                 parent.ID,
			ParentTaskName:               parent.Name,
		}
		return nil
	})
	if err != nil {
		return goal.CompletionResult{}, fmt.Errorf("complete event %d: %w", id, err)
	}
	return res, nil
}

func getEvent(ctx context.Context, q querier, id int64) (goal.Goal, error) {
	ev, err := getGoal(ctx, q, id)
	if err != nil {
		return goal.Goal{}, err
	}
	if ev.GoalType != goal.TypeEvent {
		return goal.Goal{}, fmt.Errorf("goal %d is a %s, not an event", id, ev.GoalType)
	}
	return ev, nil
}

// checkTaskRange returns a conflict when at falls outside task's range.
// Only tasks are checked.
func checkTaskRange(task goal.Goal, at time.Time) *goal.ConflictError {
	if task.GoalType != goal.TypeTask {
		return nil
	}
	at = at.UTC()
	v := goal.DateRangeViolation{
		EventTimestamp: at,
		TaskID:         task.ID,
		TaskStart:      task.StartTimestamp,
		TaskEnd:        task.EndTimestamp,
		SuggestedStart: task.StartTimestamp,
		SuggestedEnd:   task.EndTimestamp,
	}
	var bound string
	switch {
	case task.StartTimestamp != nil && at.Before(*task.StartTimestamp):
		v.Type = "before_start"
		v.SuggestedStart = goal.TimePtr(at)
		bound = "starts on " + task.StartTimestamp.Format(time.DateOnly)
	case task.EndTimestamp != nil && at.After(*task.EndTimestamp):
		v.Type = "after_end"
		v.SuggestedEnd = goal.TimePtr(at)
		bound = "ends on " + task.EndTimestamp.Format(time.DateOnly)
	default:
		return nil
	}

	side := "before"
	if v.Type == "after_end" {
		side = "after"
	}
	return &goal.ConflictError{
		Code:      goal.ConflictTaskDateRange,
		Message:   fmt.Sprintf("Event is scheduled %s the task's date range. The event is at %s but the task %s.", side, at.Format("2006-01-02 15:04"), bound),
		Violation: v,
	}
}
