package scope

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/goalctl/internal/goal"
)

// StepKind names a store operation a plan asks the orchestrator to run.
type StepKind string

const (
	StepUpdateEvent                  StepKind = "update_event"
	StepUpdateRoutineEvent           StepKind = "update_routine_event"
	StepUpdateRoutineEventProperties StepKind = "update_routine_event_properties"
	StepMirrorRoutine                StepKind = "mirror_routine"
	StepDeleteEvent                  StepKind = "delete_event"
	StepDeleteRoutine                StepKind = "delete_routine"
)

// Step is one store call in a plan.
type Step struct {
	Kind      StepKind
	Scope     Scope
	EventID   int64
	RoutineID int64

	// Time is set for StepUpdateRoutineEvent.
	Time time.Time

	// Fields is set for update steps.
	Fields goal.EventFields

	// Future is set for StepDeleteEvent.
	Future bool
}

// Plan is an ordered list of steps. RefreshOccurrences is true when the
// caller should refresh cached occurrence listings after the steps succeed.
type Plan struct {
	Scope              Scope
	Steps              []Step
	RefreshOccurrences bool
}

// ErrRoutineUnresolved is returned when a plan needs the owning routine and
// none could be found.
var ErrRoutineUnresolved = errors.New("owning routine could not be resolved")

// PlanEdit turns a detected change into store steps.
//
// single updates the one occurrence with every changed field. future and all
// move the series first when the scheduled time changed, then bulk-update the
// remaining fields and mirror them onto the routine.
func PlanEdit(eventID, routineID int64, c Change, s Scope) (Plan, error) {
	if c.IsZero() {
		return Plan{Scope: s}, nil
	}
	if eventID == 0 {
		return Plan{}, fmt.Errorf("plan edit: event has no id")
	}

	if s == Single {
		return Plan{
			Scope: s,
			Steps: []Step{{Kind: StepUpdateEvent, Scope: s, EventID: eventID, Fields: c.Fields}},
		}, nil
	}
	if s != Future && s != All {
		return Plan{}, fmt.Errorf("plan edit: invalid scope %q", s)
	}
	if routineID == 0 {
		return Plan{}, fmt.Errorf("plan edit: %w", ErrRoutineUnresolved)
	}

	p := Plan{Scope: s, RefreshOccurrences: true}
	rest := c.Fields
	if c.Kind == ChangeScheduledTime {
		p.Steps = append(p.Steps, Step{
			Kind:      StepUpdateRoutineEvent,
			Scope:     s,
			EventID:   eventID,
			RoutineID: routineID,
			Time:      *c.Fields.ScheduledTimestamp,
		})
		rest.ScheduledTimestamp = nil
	}
	if !rest.IsEmpty() {
		p.Steps = append(p.Steps,
			Step{Kind: StepUpdateRoutineEventProperties, Scope: s, EventID: eventID, RoutineID: routineID, Fields: rest},
			Step{Kind: StepMirrorRoutine, Scope: s, RoutineID: routineID, Fields: rest},
		)
	}
	return p, nil
}

// PlanDelete turns a delete of an occurrence into store steps.
//
// all deletes the routine itself and therefore requires routineID.
func PlanDelete(eventID, routineID int64, s Scope) (Plan, error) {
	if eventID == 0 {
		return Plan{}, fmt.Errorf("plan delete: event has no id")
	}
	switch s {
	case Single:
		return Plan{Scope: s, Steps: []Step{{Kind: StepDeleteEvent, Scope: s, EventID: eventID}}}, nil
	case Future:
		return Plan{
			Scope:              s,
			Steps:              []Step{{Kind: StepDeleteEvent, Scope: s, EventID: eventID, RoutineID: routineID, Future: true}},
			RefreshOccurrences: true,
		}, nil
	case All:
		if routineID == 0 {
			return Plan{}, fmt.Errorf("plan delete: %w", ErrRoutineUnresolved)
		}
		return Plan{
			Scope:              s,
			Steps:              []Step{{Kind: StepDeleteRoutine, Scope: s, EventID: eventID, RoutineID: routineID}},
			RefreshOccurrences: true,
		}, nil
	default:
		return Plan{}, fmt.Errorf("plan delete: invalid scope %q", s)
	}
}
