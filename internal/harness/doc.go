// Package harness runs scripted editing flows against the orchestrator.
//
// A scenario seeds an in-memory recording store, drives one or more editing
// sessions through the orchestrator, answers its prompts, and then asserts
// on the store calls that were made and on the data left behind.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: occurrence_edit_future
//	description: "Moving one occurrence later moves the rest of the series"
//	timezone: UTC
//	seed:
//	  goals:
//	    - {id: 7, type: routine, name: Run, priority: medium, frequency: 1D,
//	       start: "2026-01-01T00:00:00Z", routine_time: "07:00", duration: 60}
//	    - {id: 8, type: event, name: Run, priority: medium, parent: 7,
//	       at: "2026-01-12T07:00:00Z", duration: 60}
//	  edges:
//	    - {from: 2, to: 7}
//	flow:
//	  - invoke: open
//	    args: {goal: 8}
//	  - invoke: set
//	    args: {time: "07:30"}
//	  - invoke: submit
//	    expect: {status: prompt, prompt: edit_scope}
//	  - invoke: choose
//	    args: {scope: future}
//	    expect: {status: done, goal: 8}
//	assertions:
//	  - type: call_contains
//	    method: UpdateRoutineEvent
//	    args: "2026-01-12T07:30:00Z, future"
//
// # Steps
//
//   - open {goal, mode}: opens an editor on a seeded goal (mode defaults to edit)
//   - create {type}: opens an editor on a new goal
//   - set {name, priority, date, time, parents, ...}: edits the draft
//   - submit, delete, complete, duplicate, close: orchestrator calls
//   - choose {scope}: answers an edit or delete scope prompt
//   - confirm {yes}: answers a yes/no prompt (yes defaults to true)
//   - cancel: backs out of the pending prompt
//   - fail {method, error}: makes the next store call to method fail
//
// # Assertion Types
//
//   - call_contains: a store call to method with args containing a substring
//   - call_order: store mutations happened in the given order
//   - call_count: a store method was called exactly N times
//   - goal: the stored goal has the given field values
//   - goal_missing: the goal was deleted
//   - edge: a parent-child edge exists (or not, with absent: true)
//
// # Deterministic Testing
//
// Session handles and prompt tokens come from sequential generators and the
// store assigns ids from 100 upward, so traces are identical across runs and
// can be compared against golden files with RunWithGolden.
package harness
