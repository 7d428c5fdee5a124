package engine

import (
	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/schedule"
	"github.com/roach88/goalctl/internal/scope"
	"github.com/roach88/goalctl/internal/session"
)

// Status is how an orchestrator call ended.
type Status string

const (
	// StatusDone means the mutation was committed.
	StatusDone Status = "done"
	// StatusPrompt means the call is suspended on Outcome.Prompt. The action
	// lock stays held until the prompt is answered or cancelled.
	StatusPrompt Status = "prompt"
	// StatusBusy means another action was in flight and nothing happened.
	StatusBusy Status = "busy"
	// StatusCancelled means the user backed out of a prompt.
	StatusCancelled Status = "cancelled"
	// StatusFailed means the call failed. The returned error says why.
	StatusFailed Status = "failed"
)

// PromptKind identifies which continuation answers a prompt.
type PromptKind string

const (
	// PromptEditScope is answered with ConfirmScope.
	PromptEditScope PromptKind = "edit_scope"
	// PromptRecompute is answered with ConfirmRecompute.
	PromptRecompute PromptKind = "recompute"
	// PromptDeleteScope and PromptDeleteRoutine are answered with ConfirmDelete.
	PromptDeleteScope   PromptKind = "delete_scope"
	PromptDeleteRoutine PromptKind = "delete_routine"
	// PromptConflict is answered with RetryWithOverride.
	PromptConflict PromptKind = "conflict"
	// PromptParentCompletion is answered with ConfirmParentCompletion.
	PromptParentCompletion PromptKind = "parent_completion"
)

// Prompt is a question the user must answer before the operation continues.
type Prompt struct {
	Kind    PromptKind `json:"kind"`
	Token   string     `json:"token"`
	Message string     `json:"message"`

	// Options lists the scopes for edit and delete scope prompts.
	Options []scope.Option `json:"options,omitempty"`
	// Change is the detected change kind for edit scope prompts.
	Change scope.ChangeKind `json:"change,omitempty"`
	// Fields lists the schedule fields that changed for recompute prompts.
	Fields []schedule.Field `json:"fields,omitempty"`
	// Violation is set for conflict prompts.
	Violation *goal.DateRangeViolation `json:"violation,omitempty"`

	ParentTaskID   int64  `json:"parent_task_id,omitempty"`
	ParentTaskName string `json:"parent_task_name,omitempty"`
}

// Outcome is the continuation value of every orchestrator call.
type Outcome struct {
	Status Status  `json:"status"`
	Prompt *Prompt `json:"prompt,omitempty"`

	// Goal is the resulting record after a committed save, completion, or
	// duplicate.
	Goal *goal.Goal `json:"goal,omitempty"`

	// Next is the fresh create session when the caller asked to create
	// another.
	Next *session.Session `json:"-"`
}

func done(g goal.Goal) Outcome {
	return Outcome{Status: StatusDone, Goal: &g}
}

func prompted(p *Prompt) Outcome {
	return Outcome{Status: StatusPrompt, Prompt: p}
}
