package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/schedule"
	"github.com/roach88/goalctl/internal/scope"
)

// UpdateRoutineEvent moves a routine occurrence to t.
//
// single moves only this occurrence. future and all keep each affected
// occurrence on its own date and move it to t's time of day; the routine's
// routine_time follows so later generation agrees.
func (s *Store) UpdateRoutineEvent(ctx context.Context, id int64, t time.Time, sc scope.Scope) ([]goal.Goal, error) {
	var out []goal.Goal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ev, err := getOccurrence(ctx, tx, id)
		if err != nil {
			return err
		}
		if sc == scope.Single {
			ev.ScheduledTimestamp = goal.TimePtr(t.UTC())
			if err := s.writeGoal(ctx, tx, id, ev); err != nil {
				return err
			}
			moved, err := getGoal(ctx, tx, id)
			out = []goal.Goal{moved}
			return err
		}

		affected, err := occurrencesInScope(ctx, tx, ev, sc)
		if err != nil {
			return err
		}
		tod := schedule.TimeOfDay(t)
		for _, o := range affected {
			o.ScheduledTimestamp = goal.TimePtr(schedule.SetTimeOfDay(*o.ScheduledTimestamp, tod))
			if err := s.writeGoal(ctx, tx, o.ID, o); err != nil {
				return err
			}
			moved, err := getGoal(ctx, tx, o.ID)
			if err != nil {
				return err
			}
			out = append(out, moved)
		}
		anchor := time.UnixMilli(0).UTC().Add(tod)
		if _, err := tx.ExecContext(ctx, `
			UPDATE goals SET routine_time_ms = ?, updated_ms = ? WHERE id = ?
		`, anchor.UnixMilli(), s.nowMillis(), ev.ParentID); err != nil {
			return fmt.Errorf("re-anchor routine time: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update routine event %d: %w", id, err)
	}
	return out, nil
}

// UpdateRoutineEventProperties applies fields to the occurrences in scope.
// The scheduled time is only honoured for single.
func (s *Store) UpdateRoutineEventProperties(ctx context.Context, id int64, fields goal.EventFields, sc scope.Scope) ([]goal.Goal, error) {
	var out []goal.Goal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		ev, err := getOccurrence(ctx, tx, id)
		if err != nil {
			return err
		}
		if sc == scope.Single {
			fields.ApplyTo(&ev)
			if err := s.writeGoal(ctx, tx, id, ev); err != nil {
				return err
			}
			updated, err := getGoal(ctx, tx, id)
			out = []goal.Goal{updated}
			return err
		}

		bulk := fields
		bulk.ScheduledTimestamp = nil
		if bulk.IsEmpty() {
			return fmt.Errorf("no properties to update")
		}
		affected, err := occurrencesInScope(ctx, tx, ev, sc)
		if err != nil {
			return err
		}
		for _, o := range affected {
			bulk.ApplyTo(&o)
			if err := s.writeGoal(ctx, tx, o.ID, o); err != nil {
				return err
			}
		}
		out, err = occurrencesInScope(ctx, tx, ev, sc)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update routine event properties %d: %w", id, err)
	}
	return out, nil
}

// RecomputeRoutineFuture deletes every occurrence of a routine from now on,
// completed ones included, and generates them again from the routine's
// current schedule.
func (s *Store) RecomputeRoutineFuture(ctx context.Context, routineID int64) error {
	var n int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		routine, err := getGoal(ctx, tx, routineID)
		if err != nil {
			return err
		}
		if routine.GoalType != goal.TypeRoutine {
			return fmt.Errorf("goal %d is a %s, not a routine", routineID, routine.GoalType)
		}
		now := s.now().UTC()
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM goals
			WHERE parent_id = ? AND goal_type = 'event' AND scheduled_ms >= ?
		`, routineID, now.UnixMilli()); err != nil {
			return fmt.Errorf("delete future occurrences: %w", err)
		}
		if routine.StartTimestamp == nil {
			return nil
		}
		from := now
		if routine.StartTimestamp.After(from) {
			from = *routine.StartTimestamp
		}
		n, err = s.generate(ctx, tx, routine, from, s.until(routine, now), nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("recompute routine %d: %w", routineID, err)
	}
	slog.Info("routine recomputed", "routine_id", routineID, "occurrences", n)
	return nil
}

// GenerateRoutineEvents tops up every active routine's occurrences to the
// horizon. Generation resumes after the latest occurrence, deleted ones
// included, so a deleted occurrence is never brought back. It returns the
// number of occurrences created.
func (s *Store) GenerateRoutineEvents(ctx context.Context) (int, error) {
	now := s.now().UTC()
	routines, err := s.FetchGoalsByType(ctx, goal.TypeRoutine)
	if err != nil {
		return 0, fmt.Errorf("generate routine events: %w", err)
	}

	total := 0
	for _, r := range routines {
		if r.StartTimestamp == nil || (r.EndTimestamp != nil && !r.EndTimestamp.After(now)) {
			continue
		}
		var n int
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			var last sql.NullInt64
			if err := tx.QueryRowContext(ctx, `
				SELECT MAX(scheduled_ms) FROM goals WHERE parent_id = ? AND goal_type = 'event'
			`, r.ID).Scan(&last); err != nil {
				return fmt.Errorf("latest occurrence: %w", err)
			}
			from := *r.StartTimestamp
			if last.Valid {
				from = time.UnixMilli(last.Int64 + 1).UTC()
			}
			var err error
			n, err = s.generate(ctx, tx, r, from, s.until(r, now), nil)
			return err
		})
		if err != nil {
			return total, fmt.Errorf("generate routine events for %d: %w", r.ID, err)
		}
		if n > 0 {
			slog.Debug("routine occurrences generated", "routine_id", r.ID, "occurrences", n)
		}
		total += n
	}
	return total, nil
}

// generate inserts the routine's occurrences in [from, until] that are not in
// existing, tagged with one instance id per call.
func (s *Store) generate(ctx context.Context, q querier, routine goal.Goal, from, until time.Time, existing []time.Time) (int, error) {
	times, err := schedule.Expand(routine, from, until, existing)
	if err != nil {
		return 0, err
	}
	if len(times) == 0 {
		return 0, nil
	}
	batch := s.newID()
	for _, at := range times {
		ev := goal.Goal{
			GoalType:           goal.TypeEvent,
			Name:               routine.Name,
			Description:        routine.Description,
			Priority:           routine.Priority,
			ScheduledTimestamp: goal.TimePtr(at),
			Duration:           routine.Duration,
			ParentID:           routine.ID,
			ParentType:         goal.TypeRoutine,
			RoutineInstanceID:  batch,
		}
		if ev.Duration <= 0 {
			ev.Duration = goal.DefaultDurationMinutes
		}
		if _, err := s.insertGoal(ctx, q, ev); err != nil {
			return 0, fmt.Errorf("insert occurrence: %w", err)
		}
	}
	return len(times), nil
}

// until is the end of the generation window for routine at now.
func (s *Store) until(routine goal.Goal, now time.Time) time.Time {
	limit := now.Add(s.horizon)
	if routine.EndTimestamp != nil && routine.EndTimestamp.Before(limit) {
		return routine.EndTimestamp.UTC()
	}
	return limit
}

func getOccurrence(ctx context.Context, q querier, id int64) (goal.Goal, error) {
	ev, err := getEvent(ctx, q, id)
	if err != nil {
		return goal.Goal{}, err
	}
	if !ev.IsRoutineOccurrence() || ev.ScheduledTimestamp == nil {
		return goal.Goal{}, fmt.Errorf("event %d is not a routine occurrence", id)
	}
	return ev, nil
}

// occurrencesInScope lists the live occurrences of ev's routine that sc
// covers: all of them, or those at or after ev for future.
func occurrencesInScope(ctx context.Context, q querier, ev goal.Goal, sc scope.Scope) ([]goal.Goal, error) {
	var cutoff int64
	switch sc {
	case scope.All:
		cutoff = -1 << 62
	case scope.Future:
		cutoff = ev.ScheduledTimestamp.UTC().UnixMilli()
	default:
		return nil, fmt.Errorf("invalid scope %q", sc)
	}
	rows, err := q.QueryContext(ctx, `
		SELECT `+goalColumns+`
		FROM goals
		WHERE parent_id = ? AND goal_type = 'event' AND is_deleted = 0 AND scheduled_ms >= ?
		ORDER BY scheduled_ms ASC, id ASC
	`, ev.ParentID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	return scanGoals(rows)
}
