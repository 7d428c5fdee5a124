package engine

import (
	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/relations"
	"github.com/roach88/goalctl/internal/session"
)

// validateSubmit runs the checks that gate every submit: range order,
// priority, and parent presence.
func validateSubmit(st session.State, idx goal.Index) error {
	const op = "submit"
	g := st.Draft

	if st.Mode == session.ModeView {
		return validationError(op, "this goal is open read-only")
	}
	if g.GoalType == "" {
		return validationError(op, "goal type is required")
	}
	if g.StartTimestamp != nil && g.EndTimestamp != nil && g.StartTimestamp.After(*g.EndTimestamp) {
		return validationError(op, "start date must be before end date")
	}
	if g.Priority == "" {
		return validationError(op, "priority is required")
	}

	switch g.GoalType {
	case goal.TypeEvent:
		if len(st.Parents) != 1 {
			return validationError(op, "an event needs exactly one parent task or routine, got %d", len(st.Parents))
		}
		pt := parentType(st.Parents[0], g, idx)
		if !relations.ValidEventParent(pt) {
			return validationError(op, "an event's parent must be a task or routine")
		}
		if g.ID != 0 && st.Original.ParentID != 0 && st.Parents[0] != st.Original.ParentID {
			return validationError(op, "an event's parent cannot be changed")
		}
	case goal.TypeDirective:
	default:
		if len(st.Parents) == 0 {
			return validationError(op, "a %s needs at least one parent", g.GoalType)
		}
	}
	return nil
}

// validateFields checks required fields per type and relationship legality.
func validateFields(st session.State, idx goal.Index) error {
	const op = "submit"
	g := st.Draft

	if g.GoalType != goal.TypeEvent && g.Name == "" {
		return validationError(op, "name is required")
	}

	switch g.GoalType {
	case goal.TypeRoutine:
		if _, err := goal.ParseFrequency(g.Frequency); err != nil {
			return validationError(op, "%v", err)
		}
		if g.StartTimestamp == nil {
			return validationError(op, "a routine needs a start date")
		}
	case goal.TypeEvent:
		if g.ScheduledTimestamp == nil {
			return validationError(op, "an event needs a scheduled time")
		}
		if g.Duration <= 0 {
			return validationError(op, "an event needs a positive duration")
		}
		return nil
	}

	for _, p := range st.Parents {
		if p == g.ID && g.ID != 0 {
			return validationError(op, "a goal cannot be its own parent")
		}
		parent, ok := idx[p]
		if !ok {
			return validationError(op, "parent %d not found", p)
		}
		if err := relations.ValidateEdge(parent.GoalType, g.GoalType); err != nil {
			return validationError(op, "%v", err)
		}
	}
	for _, c := range st.Children {
		if c == g.ID && g.ID != 0 {
			return validationError(op, "a goal cannot be its own child")
		}
		child, ok := idx[c]
		if !ok {
			return validationError(op, "child %d not found", c)
		}
		if err := relations.ValidateEdge(g.GoalType, child.GoalType); err != nil {
			return validationError(op, "%v", err)
		}
	}
	return nil
}

func parentType(id int64, ev goal.Goal, idx goal.Index) goal.Type {
	if p, ok := idx[id]; ok {
		return p.GoalType
	}
	if id == ev.ParentID {
		return ev.ParentType
	}
	return ""
}
