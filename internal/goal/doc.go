// Package goal defines the shared data model for goalctl.
//
// A Goal is the universal entity: directives, projects, achievements, routines,
// tasks, and events are all Goals distinguished by GoalType. Hierarchy is
// expressed exclusively through parent→child Edges, except for events, whose
// single owning task or routine is carried in ParentID/ParentType.
//
// # Generated Occurrences
//
// An event whose ParentType is TypeRoutine is a generated occurrence. It is
// materialized by the backing store from the routine's Frequency,
// StartTimestamp, EndTimestamp, RoutineTime, and Duration and is never created
// directly by a user.
//
// # Time
//
// Every persisted instant is UTC. Duration is expressed in minutes and the
// sentinel AllDayMinutes (1440) marks an all-day item whose scheduled time is
// pinned to UTC midnight.
//
// The package also holds the request/response shapes exchanged with the
// backing store so that both the engine and store packages share one contract.
package goal
