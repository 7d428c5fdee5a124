package relations

import (
	"fmt"

	"github.com/roach88/goalctl/internal/goal"
)

// ValidateEdge checks whether a parent of type from may have a child of
// type to.
//
// Tasks and events are leaves. Events hang off their task or routine through
// parent_id and are never edge targets. A routine cannot parent a task.
func ValidateEdge(from, to goal.Type) error {
	switch {
	case from == goal.TypeTask:
		return fmt.Errorf("tasks cannot have children")
	case from == goal.TypeEvent:
		return fmt.Errorf("events cannot have children")
	case to == goal.TypeEvent:
		return fmt.Errorf("events cannot be targets of relationships")
	case from == goal.TypeRoutine && to == goal.TypeTask:
		return fmt.Errorf("tasks cannot be children of routines")
	}
	return nil
}

// ValidEventParent reports whether t may own an event.
func ValidEventParent(t goal.Type) bool {
	return t == goal.TypeTask || t == goal.TypeRoutine
}
