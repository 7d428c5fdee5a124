package goal

import (
	"errors"
	"fmt"
	"time"
)

// EventRequest is the payload for creating a standalone or task event.
type EventRequest struct {
	ParentID      int64     `json:"parent_id"`
	ParentType    Type      `json:"parent_type"`
	ScheduledTime time.Time `json:"scheduled_timestamp"`
	Duration      int       `json:"duration"`
	Priority      Priority  `json:"priority,omitempty"`

	// Name and Description default to the parent's when empty.
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// EventFields is a partial update of an event. Nil fields are left untouched.
type EventFields struct {
	ScheduledTimestamp *time.Time `json:"scheduled_timestamp,omitempty"`
	Duration           *int       `json:"duration,omitempty"`
	Name               *string    `json:"name,omitempty"`
	Description        *string    `json:"description,omitempty"`
	Priority           *Priority  `json:"priority,omitempty"`
}

// IsEmpty reports whether no field is set.
func (f EventFields) IsEmpty() bool {
	return f.ScheduledTimestamp == nil &&
		f.Duration == nil &&
		f.Name == nil &&
		f.Description == nil &&
		f.Priority == nil
}

// ApplyTo copies the set fields onto g.
func (f EventFields) ApplyTo(g *Goal) {
	if f.ScheduledTimestamp != nil {
		g.ScheduledTimestamp = TimePtr(f.ScheduledTimestamp.UTC())
	}
	if f.Duration != nil {
		g.Duration = *f.Duration
	}
	if f.Name != nil {
		g.Name = *f.Name
	}
	if f.Description != nil {
		g.Description = *f.Description
	}
	if f.Priority != nil {
		g.Priority = *f.Priority
	}
}

// CompletionResult is returned after completing an event.
type CompletionResult struct {
	ShouldPromptParentCompletion bool   `json:"should_prompt_task_completion"`
	ParentTaskID                 int64  `json:"parent_task_id,omitempty"`
	ParentTaskName               string `json:"parent_task_name,omitempty"`
}

// TaskEvents lists the events scheduled under a task.
type TaskEvents struct {
	TaskID        int64  `json:"task_id"`
	Events        []Goal `json:"events"`
	TotalDuration int    `json:"total_duration"`
}

// ConflictTaskDateRange is reported when an event is scheduled outside its
// parent task's start/end bounds.
const ConflictTaskDateRange = "task_date_range_violation"

// DateRangeViolation describes how an event falls outside its task's range and
// which bounds would accommodate it.
type DateRangeViolation struct {
	Type           string     `json:"violation_type"` // "before_start" or "after_end"
	EventTimestamp time.Time  `json:"event_timestamp"`
	TaskID         int64      `json:"task_id"`
	TaskStart      *time.Time `json:"task_start,omitempty"`
	TaskEnd        *time.Time `json:"task_end,omitempty"`
	SuggestedStart *time.Time `json:"suggested_task_start,omitempty"`
	SuggestedEnd   *time.Time `json:"suggested_task_end,omitempty"`
}

// ConflictError is a domain conflict reported by the store. It carries a
// structured code and can be resolved by retrying with an override.
type ConflictError struct {
	Code      string
	Message   string
	Violation DateRangeViolation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsConflict extracts a ConflictError from err's chain.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
