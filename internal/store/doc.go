// Package store is the SQLite-backed implementation of engine.Store.
//
// Goals of every type live in one table. Events point at their task or
// routine through parent_id; every other parent/child link is a row in
// relationships. Timestamps are stored as UTC milliseconds.
//
// # Routine occurrences
//
// Routines own generated events. Creating a routine generates occurrences
// from its start up to the horizon (DefaultHorizon, 90 days from now).
// GenerateRoutineEvents tops them up and is meant to run periodically.
// Deleting an occurrence is a soft delete so that generation never brings
// it back. RecomputeRoutineFuture throws away everything from now on and
// generates again after a schedule change.
//
// # Conflicts
//
// Creating or moving an event of a task outside the task's start/end range
// fails with a *goal.ConflictError whose violation carries the bounds that
// would accept it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
