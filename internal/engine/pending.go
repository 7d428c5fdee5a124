package engine

import (
	"log/slog"
	"slices"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/session"
)

// pending is a suspended operation waiting for its prompt to be answered.
type pending struct {
	kind  PromptKind
	token string
	opts  submitOptions

	eventID   int64
	routineID int64

	violation    goal.DateRangeViolation
	parentTaskID int64
}

func (o *Orchestrator) suspend(s *session.Session, p *pending, prompt *Prompt) Outcome {
	p.token = o.tokens.Generate()
	prompt.Token = p.token

	o.mu.Lock()
	if t, ok := o.tracked[s.ID()]; ok {
		t.pending = p
	}
	o.mu.Unlock()

	slog.Debug("awaiting confirmation", "session", s.ID(), "prompt", string(p.kind), "token", p.token)
	return prompted(prompt)
}

func (o *Orchestrator) suspendConflict(s *session.Session, ce *goal.ConflictError, so submitOptions) Outcome {
	v := ce.Violation
	_ = s.Apply(session.SetError(ce.Message))
	return o.suspend(s, &pending{kind: PromptConflict, violation: v, opts: so}, &Prompt{
		Kind:      PromptConflict,
		Message:   ce.Message,
		Violation: &v,
	})
}

// resume claims the pending prompt matching token and one of kinds. A closed
// session yields SESSION_CLOSED so late continuations are no-ops.
func (o *Orchestrator) resume(s *session.Session, op, token string, kinds ...PromptKind) (*pending, error) {
	if s.Closed() {
		return nil, closedError(op)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.tracked[s.ID()]
	if !ok {
		return nil, closedError(op)
	}
	p := t.pending
	if p == nil || p.token != token || !slices.Contains(kinds, p.kind) {
		return nil, validationError(op, "no matching confirmation is pending")
	}
	t.pending = nil
	return p, nil
}

func (o *Orchestrator) clearPending(s *session.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if t, ok := o.tracked[s.ID()]; ok {
		t.pending = nil
	}
}

func (o *Orchestrator) cancel(s *session.Session) Outcome {
	o.clearPending(s)
	_ = s.Apply(session.SetError(""))
	s.Lock().End()
	return Outcome{Status: StatusCancelled}
}
