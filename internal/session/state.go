package session

import (
	"slices"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/schedule"
)

// Mode is how the editor was opened.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
	ModeView   Mode = "view"
)

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeCreate, ModeEdit, ModeView:
		return Mode(s), true
	}
	return "", false
}

// State is a snapshot of an editing session.
type State struct {
	Mode Mode

	// Draft is the working copy.
	Draft goal.Goal
	// Original is the server copy the draft was opened from. Zero in create
	// mode until the first save.
	Original goal.Goal

	// Parents and Children are the desired relationship selection. They are
	// kept across failed saves so the next save retries the same deltas.
	Parents  []int64
	Children []int64

	// StagedEvents are unsaved events for a task draft. They are created
	// against the task's id once the task itself is saved.
	StagedEvents []goal.Goal

	// Baseline is captured once when a routine enters edit mode.
	Baseline *schedule.Baseline

	// RelationshipsLoading is true until the edge graph has been read.
	RelationshipsLoading bool

	// Error is the last user-visible error.
	Error string
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	c.Draft = s.Draft.Clone()
	c.Original = s.Original.Clone()
	c.Parents = slices.Clone(s.Parents)
	c.Children = slices.Clone(s.Children)
	if s.StagedEvents != nil {
		c.StagedEvents = make([]goal.Goal, len(s.StagedEvents))
		for i, e := range s.StagedEvents {
			c.StagedEvents[i] = e.Clone()
		}
	}
	if s.Baseline != nil {
		b := *s.Baseline
		c.Baseline = &b
	}
	return c
}

// IsRoutineEdit reports whether the session edits an existing routine.
func (s State) IsRoutineEdit() bool {
	return s.Mode == ModeEdit && s.Draft.GoalType == goal.TypeRoutine && s.Draft.ID != 0
}

func newState(g goal.Goal, mode Mode) State {
	s := State{
		Mode:                 mode,
		Draft:                g.Clone(),
		RelationshipsLoading: true,
	}
	if mode != ModeCreate {
		s.Original = g.Clone()
	}
	if mode == ModeEdit && g.GoalType == goal.TypeRoutine {
		b := schedule.Capture(g)
		s.Baseline = &b
	}
	return s
}
