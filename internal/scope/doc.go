// Package scope resolves how an edit or delete of a routine-generated event
// propagates across the routine's series.
//
// The flow for an edit is:
//
//	DetectChange(original, edited) → ChangeNone: submit proceeds normally
//	                               → otherwise: prompt with EditOptions()
//	PlanEdit(change, scope)        → ordered Steps the orchestrator executes
//
// and for a delete:
//
//	DeleteOptions() → PlanDelete(event, routineID, scope)
//
// Plans are values. Nothing in this package performs I/O.
package scope
