// Package engine reconciles goal edits and deletes with the store.
//
// The Orchestrator owns one editing session at a time. Submit, Delete,
// Duplicate and ToggleComplete each take the session's action lock, run
// their store calls in a fixed order, and release the lock when they finish,
// fail, or are cancelled.
//
// Some operations cannot finish without an answer from the user:
//
//   - editing a routine occurrence asks which occurrences to change
//   - changing a routine's frequency or date range asks before regenerating
//     its future occurrences
//   - deleting a routine or one of its occurrences asks for a scope
//   - a store conflict on a task's date range offers to widen the task
//   - completing the last open event of a task offers to complete the task
//
// These return StatusPrompt with a Prompt carrying a token. The lock stays
// held until the matching continuation (ConfirmScope, ConfirmRecompute,
// ConfirmDelete, RetryWithOverride, ConfirmParentCompletion, CancelPrompt) is
// called with that token. A continuation for a session that was closed in
// the meantime returns an error with ErrCodeSessionClosed and does nothing.
//
// Errors are *Error values with a Code. Transport failures show a generic
// message to the user and keep the session's data for a retry; the detail is
// logged with slog.
//
// Listeners learn about committed changes through the Bus.
package engine
