package goal

import (
	"fmt"
	"time"
)

// Type identifies the kind of a Goal.
type Type string

const (
	TypeDirective   Type = "directive"
	TypeProject     Type = "project"
	TypeAchievement Type = "achievement"
	TypeRoutine     Type = "routine"
	TypeTask        Type = "task"
	TypeEvent       Type = "event"
)

// ValidTypes lists every goal type in display order.
var ValidTypes = []Type{
	TypeDirective,
	TypeProject,
	TypeAchievement,
	TypeRoutine,
	TypeTask,
	TypeEvent,
}

// ParseType converts a string into a Type.
func ParseType(s string) (Type, error) {
	for _, t := range ValidTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid goal type %q", s)
}

// Priority is the importance of a goal.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority converts a string into a Priority. Empty input is allowed and
// returns the empty Priority.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow, "":
		return Priority(s), nil
	default:
		return "", fmt.Errorf("invalid priority %q: must be high, medium, or low", s)
	}
}

// TimezoneMode tells the store how to interpret a payload's timestamps.
type TimezoneMode string

const (
	// TimezoneUser means timestamps are interpreted in the viewer's zone.
	TimezoneUser TimezoneMode = "user"
	// TimezoneUTC means timestamps are already normalized to UTC.
	TimezoneUTC TimezoneMode = "utc"
)

const (
	// AllDayMinutes is the duration sentinel for an all-day item.
	AllDayMinutes = 1440

	// DefaultDurationMinutes is restored when all-day is switched off.
	DefaultDurationMinutes = 60
)

// Goal is the universal entity of the goal model.
type Goal struct {
	ID          int64    `json:"id,omitempty"`
	GoalType    Type     `json:"goal_type"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	Completed   bool     `json:"completed"`

	StartTimestamp     *time.Time `json:"start_timestamp,omitempty"`
	EndTimestamp       *time.Time `json:"end_timestamp,omitempty"`
	ScheduledTimestamp *time.Time `json:"scheduled_timestamp,omitempty"`
	CompletionDate     *time.Time `json:"completion_date,omitempty"`

	// Duration in minutes. AllDayMinutes disables time-of-day editing.
	Duration int `json:"duration,omitempty"`

	Frequency   string     `json:"frequency,omitempty"`
	RoutineTime *time.Time `json:"routine_time,omitempty"`
	RoutineType string     `json:"routine_type,omitempty"`

	TimezoneMode TimezoneMode `json:"timezone_mode,omitempty"`

	// Events only.
	ParentID          int64  `json:"parent_id,omitempty"`
	ParentType        Type   `json:"parent_type,omitempty"`
	RoutineInstanceID string `json:"routine_instance_id,omitempty"`
}

// IsDraft reports whether the goal has not been persisted yet.
func (g Goal) IsDraft() bool {
	return g.ID == 0
}

// IsAllDay reports whether the goal carries the all-day duration sentinel.
func (g Goal) IsAllDay() bool {
	return g.Duration == AllDayMinutes
}

// IsRoutineOccurrence reports whether g is an event generated by a routine.
func (g Goal) IsRoutineOccurrence() bool {
	return g.GoalType == TypeEvent && g.ParentType == TypeRoutine
}

// Clone returns a deep copy of g. Timestamp pointers are not shared.
func (g Goal) Clone() Goal {
	c := g
	c.StartTimestamp = cloneTime(g.StartTimestamp)
	c.EndTimestamp = cloneTime(g.EndTimestamp)
	c.ScheduledTimestamp = cloneTime(g.ScheduledTimestamp)
	c.CompletionDate = cloneTime(g.CompletionDate)
	c.RoutineTime = cloneTime(g.RoutineTime)
	return c
}

// Merge overlays the server's record on top of local edits.
// Non-zero server fields win; fields the server omitted keep the local value.
func Merge(local, server Goal) Goal {
	out := local.Clone()
	if server.ID != 0 {
		out.ID = server.ID
	}
	if server.GoalType != "" {
		out.GoalType = server.GoalType
	}
	if server.Name != "" {
		out.Name = server.Name
	}
	if server.Description != "" {
		out.Description = server.Description
	}
	if server.Priority != "" {
		out.Priority = server.Priority
	}
	if server.ID != 0 {
		out.Completed = server.Completed
	}
	if server.StartTimestamp != nil {
		out.StartTimestamp = cloneTime(server.StartTimestamp)
	}
	if server.EndTimestamp != nil {
		out.EndTimestamp = cloneTime(server.EndTimestamp)
	}
	if server.ScheduledTimestamp != nil {
		out.ScheduledTimestamp = cloneTime(server.ScheduledTimestamp)
	}
	if server.CompletionDate != nil {
		out.CompletionDate = cloneTime(server.CompletionDate)
	}
	if server.Duration != 0 {
		out.Duration = server.Duration
	}
	if server.Frequency != "" {
		out.Frequency = server.Frequency
	}
	if server.RoutineTime != nil {
		out.RoutineTime = cloneTime(server.RoutineTime)
	}
	if server.RoutineType != "" {
		out.RoutineType = server.RoutineType
	}
	if server.TimezoneMode != "" {
		out.TimezoneMode = server.TimezoneMode
	}
	if server.ParentID != 0 {
		out.ParentID = server.ParentID
	}
	if server.ParentType != "" {
		out.ParentType = server.ParentType
	}
	if server.RoutineInstanceID != "" {
		out.RoutineInstanceID = server.RoutineInstanceID
	}
	return out
}

// Index maps goal IDs to goals.
type Index map[int64]Goal

// NewIndex builds an Index from a slice of goals.
func NewIndex(goals []Goal) Index {
	idx := make(Index, len(goals))
	for _, g := range goals {
		idx[g.ID] = g
	}
	return idx
}

// TimePtr returns a pointer to a copy of t.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// SameInstant reports whether a and b are both nil or refer to the same
// epoch millisecond.
func SameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UnixMilli() == b.UnixMilli()
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
