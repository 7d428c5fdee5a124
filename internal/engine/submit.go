package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/schedule"
	"github.com/roach88/goalctl/internal/scope"
	"github.com/roach88/goalctl/internal/session"
)

// SubmitOption configures Submit.
type SubmitOption func(*submitOptions)

type submitOptions struct {
	createAnother bool
}

// CreateAnother opens a fresh create session of the same type and parents
// after a successful save. It is returned as Outcome.Next.
func CreateAnother() SubmitOption {
	return func(o *submitOptions) {
		o.createAnother = true
	}
}

// Submit saves the session's draft.
//
// Routines whose schedule changed and edited routine occurrences suspend on a
// prompt; the save resumes from ConfirmRecompute or ConfirmScope. A busy
// session returns StatusBusy and does nothing.
func (o *Orchestrator) Submit(ctx context.Context, s *session.Session, opts ...SubmitOption) (Outcome, error) {
	const op = "submit"
	var so submitOptions
	for _, opt := range opts {
		opt(&so)
	}

	if s.Closed() || o.track(s) == nil {
		return Outcome{Status: StatusFailed}, closedError(op)
	}
	st := s.State()
	if st.RelationshipsLoading {
		err := &Error{Code: ErrCodeRelationshipsLoading, Op: op, Message: "relationships are still loading, try again in a moment"}
		_ = s.Apply(session.SetError(err.Message))
		return Outcome{Status: StatusFailed}, err
	}
	if !s.Lock().Begin("save") {
		return Outcome{Status: StatusBusy}, nil
	}

	if err := validateSubmit(st, o.index(s)); err != nil {
		return o.fail(s, op, err)
	}

	if st.IsRoutineEdit() && st.Baseline != nil {
		if fields := st.Baseline.Diff(st.Draft); len(fields) > 0 {
			slog.Info("routine schedule changed, confirmation required", "routine_id", st.Draft.ID, "fields", fields)
			return o.suspend(s, &pending{kind: PromptRecompute, opts: so}, &Prompt{
				Kind:    PromptRecompute,
				Message: schedule.ConfirmationText(st.Draft, fields),
				Fields:  fields,
			}), nil
		}
	}

	if st.Mode == session.ModeEdit && st.Draft.GoalType == goal.TypeEvent && st.Draft.ID != 0 {
		if own := o.ownership(ctx, s, st); own.RoutineOwned {
			if c := scope.DetectChange(st.Original, st.Draft); !c.IsZero() {
				return o.suspend(s, &pending{
					kind:      PromptEditScope,
					eventID:   st.Draft.ID,
					routineID: own.RoutineID,
					opts:      so,
				}, &Prompt{
					Kind:    PromptEditScope,
					Message: "This event is part of a routine. Which occurrences should change?",
					Options: scope.EditOptions(),
					Change:  c.Kind,
				}), nil
			}
		}
	}

	return o.save(ctx, s, so)
}

// save runs field validation, persists, and finishes. The caller holds the
// lock.
func (o *Orchestrator) save(ctx context.Context, s *session.Session, so submitOptions) (Outcome, error) {
	const op = "submit"
	st := s.State()
	if err := validateFields(st, o.index(s)); err != nil {
		return o.fail(s, op, err)
	}
	if err := o.checkCycles(ctx, s, st); err != nil {
		return o.fail(s, op, err)
	}

	saved, err := o.persist(ctx, s, st)
	if err != nil {
		if ce, ok := goal.AsConflict(err); ok {
			return o.suspendConflict(s, ce, so), nil
		}
		return o.fail(s, op, err)
	}
	return o.finish(ctx, s, saved, so)
}

// finish merges the server record, releases the lock, and closes the session
// or chains into a new create session.
func (o *Orchestrator) finish(ctx context.Context, s *session.Session, saved goal.Goal, so submitOptions) (Outcome, error) {
	if err := s.Apply(session.Saved{Goal: saved}); err != nil {
		s.Lock().End()
		return Outcome{Status: StatusFailed}, closedError("submit")
	}
	st := s.State()
	o.clearPending(s)
	s.Lock().End()

	o.bus.Publish(NotifyGoalSaved, st.Draft.ID, s.ID())
	slog.Info("goal saved", "goal_id", st.Draft.ID, "goal_type", string(st.Draft.GoalType), "session", s.ID())

	out := done(st.Draft)
	if err := o.Close(s); err != nil {
		return out, err
	}
	if so.createAnother {
		next, err := o.Open(ctx, goal.Goal{GoalType: st.Draft.GoalType, Priority: st.Draft.Priority}, session.ModeCreate)
		if err != nil {
			return out, fmt.Errorf("create another: %w", err)
		}
		if err := next.Apply(session.SetParents(st.Parents)); err != nil {
			return out, fmt.Errorf("create another: %w", err)
		}
		out.Next = next
	}
	return out, nil
}

// fail records err on the session, releases the lock, and keeps the session
// open with its data intact.
func (o *Orchestrator) fail(s *session.Session, op string, err error) (Outcome, error) {
	var e *Error
	if !errors.As(err, &e) {
		e = storeError(op, err)
	}
	if e.Code == ErrCodeTransport {
		slog.Error("store call failed", "op", e.Op, "session", s.ID(), "error", e.Err)
	} else {
		slog.Debug("operation rejected", "op", e.Op, "code", string(e.Code), "message", e.Message)
	}
	_ = s.Apply(session.SetError(e.Message))
	o.clearPending(s)
	s.Lock().End()
	return Outcome{Status: StatusFailed}, e
}

func (o *Orchestrator) ownership(ctx context.Context, s *session.Session, st session.State) scope.Ownership {
	ev := st.Original
	if ev.IsDraft() {
		ev = st.Draft
	}
	return scope.ResolveOwnership(scope.Evidence{
		Event:    ev,
		Selected: o.parentsOf(s, st.Parents),
		Index:    o.index(s),
		Known:    o.knownParents(ctx, s, ev.ID),
	})
}
