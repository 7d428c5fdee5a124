package session

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/schedule"
	"github.com/roach88/goalctl/internal/timefmt"
)

// Change is one transition of a session's state.
type Change interface {
	apply(s *State, n *timefmt.Normalizer) error
}

type (
	SetName        string
	SetDescription string
	SetPriority    goal.Priority
	SetGoalType    goal.Type
	SetDuration    int
	SetFrequency   string
	SetRoutineType string
	SetAllDay      bool
	SetCompleted   bool

	// SetStart and SetEnd take editable date strings. An empty string clears
	// the field.
	SetStart string
	SetEnd   string

	// SetRoutineTime takes an editable time-of-day string.
	SetRoutineTime string

	SetParents  []int64
	SetChildren []int64

	// UnstageEvent drops the staged event at the given index.
	UnstageEvent int

	SetError string

	// MarkCompleted records a completion the store confirmed, on both the
	// draft and the original, leaving other edits in place.
	MarkCompleted bool
)

// SetScheduled sets the scheduled instant from separate date and time inputs.
type SetScheduled struct {
	Date  string
	Clock string
}

// StageEvent adds an unsaved event to a task draft.
type StageEvent struct {
	Date     string
	Clock    string
	Duration int
}

// SetRange replaces the start and end instants directly, e.g. when a
// conflict override widens a task's range. Nil leaves a bound unchanged.
type SetRange struct {
	Start *time.Time
	End   *time.Time
}

// LoadedRelationships records the parents and children read from the edge
// graph and clears the loading flag.
type LoadedRelationships struct {
	Parents  []int64
	Children []int64
}

// Saved replaces the draft with the server record merged over local edits.
// Staged events are kept; they are dropped one by one with UnstageEvent as
// the store confirms them.
type Saved struct {
	Goal goal.Goal
}

func (c SetName) apply(s *State, _ *timefmt.Normalizer) error {
	s.Draft.Name = string(c)
	return nil
}

func (c SetDescription) apply(s *State, _ *timefmt.Normalizer) error {
	s.Draft.Description = string(c)
	return nil
}

func (c SetPriority) apply(s *State, _ *timefmt.Normalizer) error {
	p, err := goal.ParsePriority(string(c))
	if err != nil {
		return err
	}
	s.Draft.Priority = p
	return nil
}

func (c SetGoalType) apply(s *State, _ *timefmt.Normalizer) error {
	if s.Mode != ModeCreate {
		return fmt.Errorf("goal type can only be chosen when creating")
	}
	t, err := goal.ParseType(string(c))
	if err != nil {
		return err
	}
	s.Draft.GoalType = t
	if t == goal.TypeRoutine && s.Draft.Frequency == "" {
		s.Draft.Frequency = goal.DefaultFrequency
	}
	return nil
}

func (c SetDuration) apply(s *State, _ *timefmt.Normalizer) error {
	if c < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	s.Draft.Duration = int(c)
	return nil
}

func (c SetFrequency) apply(s *State, _ *timefmt.Normalizer) error {
	f, err := goal.ParseFrequency(string(c))
	if err != nil {
		return err
	}
	s.Draft.Frequency = f.String()
	return nil
}

func (c SetRoutineType) apply(s *State, _ *timefmt.Normalizer) error {
	s.Draft.RoutineType = string(c)
	return nil
}

func (c SetAllDay) apply(s *State, n *timefmt.Normalizer) error {
	n.SetAllDay(&s.Draft, bool(c))
	return nil
}

func (c SetCompleted) apply(s *State, _ *timefmt.Normalizer) error {
	s.Draft.Completed = bool(c)
	return nil
}

func (c SetStart) apply(s *State, n *timefmt.Normalizer) error {
	ts, err := n.FromEditable(string(c), timefmt.Date)
	if err != nil {
		return err
	}
	s.Draft.StartTimestamp = ts
	return nil
}

func (c SetEnd) apply(s *State, n *timefmt.Normalizer) error {
	ts, err := n.FromEditable(string(c), timefmt.EndDate)
	if err != nil {
		return err
	}
	s.Draft.EndTimestamp = ts
	return nil
}

func (c SetRoutineTime) apply(s *State, n *timefmt.Normalizer) error {
	ts, err := n.FromEditable(string(c), timefmt.Time)
	if err != nil {
		return err
	}
	s.Draft.RoutineTime = ts
	return nil
}

func (c SetScheduled) apply(s *State, n *timefmt.Normalizer) error {
	return n.ScheduledFromEditable(&s.Draft, c.Date, c.Clock)
}

func (c SetParents) apply(s *State, _ *timefmt.Normalizer) error {
	s.Parents = dedupe(c)
	return nil
}

func (c SetChildren) apply(s *State, _ *timefmt.Normalizer) error {
	s.Children = dedupe(c)
	return nil
}

func (c StageEvent) apply(s *State, n *timefmt.Normalizer) error {
	if s.Draft.GoalType != goal.TypeTask {
		return fmt.Errorf("events can only be staged on a task")
	}
	ev := goal.Goal{
		GoalType:   goal.TypeEvent,
		Duration:   c.Duration,
		ParentType: goal.TypeTask,
		Priority:   s.Draft.Priority,
	}
	if ev.Duration == 0 {
		ev.Duration = goal.DefaultDurationMinutes
	}
	if err := n.ScheduledFromEditable(&ev, c.Date, c.Clock); err != nil {
		return err
	}
	if ev.ScheduledTimestamp == nil {
		return fmt.Errorf("staged event needs a date")
	}
	s.StagedEvents = append(s.StagedEvents, ev)
	return nil
}

func (c UnstageEvent) apply(s *State, _ *timefmt.Normalizer) error {
	i := int(c)
	if i < 0 || i >= len(s.StagedEvents) {
		return fmt.Errorf("no staged event at index %d", i)
	}
	s.StagedEvents = slices.Delete(s.StagedEvents, i, i+1)
	return nil
}

func (c MarkCompleted) apply(s *State, _ *timefmt.Normalizer) error {
	s.Draft.Completed = bool(c)
	s.Original.Completed = bool(c)
	return nil
}

func (c SetError) apply(s *State, _ *timefmt.Normalizer) error {
	s.Error = string(c)
	return nil
}

func (c SetRange) apply(s *State, _ *timefmt.Normalizer) error {
	if c.Start != nil {
		s.Draft.StartTimestamp = goal.TimePtr(c.Start.UTC())
	}
	if c.End != nil {
		s.Draft.EndTimestamp = goal.TimePtr(c.End.UTC())
	}
	return nil
}

func (c LoadedRelationships) apply(s *State, _ *timefmt.Normalizer) error {
	s.Parents = dedupe(c.Parents)
	s.Children = dedupe(c.Children)
	s.RelationshipsLoading = false
	return nil
}

func (c Saved) apply(s *State, _ *timefmt.Normalizer) error {
	merged := goal.Merge(s.Draft, c.Goal)
	s.Draft = merged
	s.Original = merged.Clone()
	s.Error = ""
	if s.Mode == ModeCreate {
		s.Mode = ModeEdit
	}
	if merged.GoalType == goal.TypeRoutine {
		b := schedule.Capture(merged)
		s.Baseline = &b
	}
	return nil
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
