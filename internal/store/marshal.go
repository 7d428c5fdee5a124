package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/goalctl/internal/goal"
)

// goalColumns is the SELECT list matched by scanGoal.
const goalColumns = `id, goal_type, name, description, priority, completed,
	start_ms, end_ms, scheduled_ms, completion_ms, duration,
	frequency, routine_time_ms, routine_type, timezone_mode,
	parent_id, parent_type, routine_instance_id`

type scanner interface {
	Scan(dest ...any) error
}

// scanGoal reads one row selected with goalColumns.
func scanGoal(row scanner) (goal.Goal, error) {
	var g goal.Goal
	var goalType, priority, tzMode, parentType string
	var completed int
	var start, end, scheduled, completion, rtime, parentID sql.NullInt64
	err := row.Scan(
		&g.ID, &goalType, &g.Name, &g.Description, &priority, &completed,
		&start, &end, &scheduled, &completion, &g.Duration,
		&g.Frequency, &rtime, &g.RoutineType, &tzMode,
		&parentID, &parentType, &g.RoutineInstanceID,
	)
	if err != nil {
		return goal.Goal{}, err
	}
	g.GoalType = goal.Type(goalType)
	g.Priority = goal.Priority(priority)
	g.TimezoneMode = goal.TimezoneMode(tzMode)
	g.ParentType = goal.Type(parentType)
	g.ParentID = parentID.Int64
	g.Completed = completed != 0
	g.StartTimestamp = fromMillis(start)
	g.EndTimestamp = fromMillis(end)
	g.ScheduledTimestamp = fromMillis(scheduled)
	g.CompletionDate = fromMillis(completion)
	g.RoutineTime = fromMillis(rtime)
	return g, nil
}

func scanGoals(rows *sql.Rows) ([]goal.Goal, error) {
	defer rows.Close()
	goals := []goal.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

// toMillis converts an optional timestamp to a nullable UTC millisecond
// column value.
func toMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func newInstanceID() string {
	return uuid.Must(uuid.NewV7()).String()
}
