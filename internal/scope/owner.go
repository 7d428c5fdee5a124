package scope

import (
	"log/slog"

	"github.com/roach88/goalctl/internal/goal"
)

// Signal names one piece of evidence that an event belongs to a routine.
type Signal string

const (
	SignalParentType Signal = "parent_type"
	SignalSelected   Signal = "selected_parent"
	SignalParentByID Signal = "parent_by_id"
	SignalKnown      Signal = "known_parent"
)

// Evidence is what the caller knows about an event's parents.
type Evidence struct {
	Event goal.Goal
	// Selected are the parents currently selected in the session.
	Selected []goal.Goal
	// Index resolves Event.ParentID.
	Index goal.Index
	// Known are parents discovered through the relationship graph.
	Known []goal.Goal
}

// Ownership is the resolved owner of an event.
type Ownership struct {
	RoutineOwned bool
	RoutineID    int64
	// Source is the first signal that matched.
	Source Signal
	// Agree is false when some signals said routine and others did not.
	Agree bool
}

type vote struct {
	signal    Signal
	present   bool
	routine   bool
	routineID int64
}

// ResolveOwnership checks, in order, the explicit parent_type, the selected
// parents, the parent resolved by id, and any known parent. The first match
// decides. Signals that disagree are logged.
func ResolveOwnership(ev Evidence) Ownership {
	votes := []vote{
		explicitVote(ev.Event),
		routineAmong(SignalSelected, ev.Selected),
		byIDVote(ev.Event, ev.Index),
		routineAmong(SignalKnown, ev.Known),
	}

	out := Ownership{Agree: true}
	seenYes, seenNo := false, false
	for _, v := range votes {
		if !v.present {
			continue
		}
		if !v.routine {
			seenNo = true
			continue
		}
		seenYes = true
		if !out.RoutineOwned {
			out.RoutineOwned = true
			out.RoutineID = v.routineID
			out.Source = v.signal
		} else if out.RoutineID == 0 {
			out.RoutineID = v.routineID
		}
	}

	if seenYes && seenNo {
		out.Agree = false
		attrs := []any{"event_id", ev.Event.ID, "parent_id", ev.Event.ParentID, "decided_by", string(out.Source)}
		for _, v := range votes {
			if v.present {
				attrs = append(attrs, string(v.signal), v.routine)
			}
		}
		slog.Warn("routine ownership signals disagree", attrs...)
	}
	return out
}

func explicitVote(ev goal.Goal) vote {
	v := vote{signal: SignalParentType, present: ev.ParentType != ""}
	if ev.ParentType == goal.TypeRoutine {
		v.routine = true
		v.routineID = ev.ParentID
	}
	return v
}

func byIDVote(ev goal.Goal, idx goal.Index) vote {
	v := vote{signal: SignalParentByID}
	if ev.ParentID == 0 {
		return v
	}
	p, ok := idx[ev.ParentID]
	if !ok {
		return v
	}
	v.present = true
	if p.GoalType == goal.TypeRoutine {
		v.routine = true
		v.routineID = p.ID
	}
	return v
}

func routineAmong(s Signal, parents []goal.Goal) vote {
	v := vote{signal: s, present: len(parents) > 0}
	for _, p := range parents {
		if p.GoalType == goal.TypeRoutine {
			v.routine = true
			v.routineID = p.ID
			break
		}
	}
	return v
}
