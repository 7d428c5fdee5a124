package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/scope"
	"github.com/roach88/goalctl/internal/session"
	"github.com/roach88/goalctl/internal/timefmt"
)

// ConfirmRecompute answers a PromptRecompute. Declining aborts the whole
// save; nothing is written. Confirming saves the routine, regenerates its
// future occurrences, and refreshes occurrence listings.
func (o *Orchestrator) ConfirmRecompute(ctx context.Context, s *session.Session, token string, confirm bool) (Outcome, error) {
	const op = "confirm recompute"
	p, err := o.resume(s, op, token, PromptRecompute)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}
	if !confirm {
		slog.Info("routine recompute declined, save aborted", "session", s.ID())
		return o.cancel(s), nil
	}

	st := s.State()
	if err := validateFields(st, o.index(s)); err != nil {
		return o.fail(s, op, err)
	}
	if err := o.checkCycles(ctx, s, st); err != nil {
		return o.fail(s, op, err)
	}
	saved, err := o.persist(ctx, s, st)
	if err != nil {
		return o.fail(s, op, err)
	}
	if err := o.store.RecomputeRoutineFuture(ctx, saved.ID); err != nil {
		return o.fail(s, op, storeError("recompute routine", err))
	}
	slog.Info("routine occurrences recomputed", "routine_id", saved.ID)
	o.bus.Publish(NotifyOccurrencesRefresh, saved.ID, s.ID())
	return o.finish(ctx, s, saved, p.opts)
}

// ConfirmScope answers a PromptEditScope with the chosen scope.
func (o *Orchestrator) ConfirmScope(ctx context.Context, s *session.Session, token string, sc scope.Scope) (Outcome, error) {
	const op = "confirm scope"
	p, err := o.resume(s, op, token, PromptEditScope)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}

	st := s.State()
	if err := validateFields(st, o.index(s)); err != nil {
		return o.fail(s, op, err)
	}

	draft := st.Draft.Clone()
	timefmt.PrepareForStore(&draft)
	change := scope.DetectChange(st.Original, draft)

	plan, err := scope.PlanEdit(p.eventID, p.routineID, change, sc)
	if errors.Is(err, scope.ErrRoutineUnresolved) {
		return o.fail(s, op, &Error{Code: ErrCodeParentUnresolved, Op: op, Message: "the routine this event belongs to could not be found", Err: err})
	}
	if err != nil {
		return o.fail(s, op, validationError(op, "%v", err))
	}

	saved, err := o.runPlan(ctx, s, draft, plan)
	if err != nil {
		return o.fail(s, op, err)
	}
	if plan.RefreshOccurrences {
		o.bus.Publish(NotifyOccurrencesRefresh, p.routineID, s.ID())
	}
	slog.Info("occurrence edit applied", "event_id", p.eventID, "scope", string(sc), "change", string(change.Kind), "steps", len(plan.Steps))
	return o.finish(ctx, s, saved, p.opts)
}

// runPlan executes an edit plan and returns the edited event as stored.
func (o *Orchestrator) runPlan(ctx context.Context, s *session.Session, draft goal.Goal, plan scope.Plan) (goal.Goal, error) {
	saved := draft
	for _, step := range plan.Steps {
		switch step.Kind {
		case scope.StepUpdateEvent:
			g, err := o.store.UpdateEvent(ctx, step.EventID, step.Fields)
			if err != nil {
				return goal.Goal{}, storeError("update event", err)
			}
			saved = g

		case scope.StepUpdateRoutineEvent:
			evs, err := o.store.UpdateRoutineEvent(ctx, step.EventID, step.Time, step.Scope)
			if err != nil {
				return goal.Goal{}, storeError("update routine event", err)
			}
			saved = pick(evs, step.EventID, saved)

		case scope.StepUpdateRoutineEventProperties:
			evs, err := o.store.UpdateRoutineEventProperties(ctx, step.EventID, step.Fields, step.Scope)
			if err != nil {
				return goal.Goal{}, storeError("update routine events", err)
			}
			saved = pick(evs, step.EventID, saved)

		case scope.StepMirrorRoutine:
			// Earlier steps may have re-anchored routine_time.
			routine, ok, err := o.reload(ctx, s, step.RoutineID)
			if err != nil {
				return goal.Goal{}, storeError("load routine", err)
			}
			if !ok {
				return goal.Goal{}, &Error{Code: ErrCodeParentUnresolved, Op: "update routine", Message: "the routine this event belongs to could not be found"}
			}
			mirrored := routine.Clone()
			fields := step.Fields
			fields.ScheduledTimestamp = nil
			fields.ApplyTo(&mirrored)
			timefmt.PrepareForStore(&mirrored)
			if _, err := o.store.UpdateGoal(ctx, routine.ID, mirrored); err != nil {
				return goal.Goal{}, storeError("update routine", err)
			}
		}
	}
	return saved, nil
}

func pick(evs []goal.Goal, id int64, fallback goal.Goal) goal.Goal {
	for _, e := range evs {
		if e.ID == id {
			return e
		}
	}
	return fallback
}

// RetryWithOverride answers a PromptConflict: the parent task's range is
// widened to the suggested bounds and the save is retried.
func (o *Orchestrator) RetryWithOverride(ctx context.Context, s *session.Session, token string) (Outcome, error) {
	const op = "retry with override"
	p, err := o.resume(s, op, token, PromptConflict)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}

	v := p.violation
	widen := session.SetRange{Start: v.SuggestedStart, End: v.SuggestedEnd}
	st := s.State()

	if v.TaskID == st.Draft.ID {
		// The task being saved is the one in conflict; its own next update
		// carries the wider range.
		if err := s.Apply(widen); err != nil {
			return Outcome{Status: StatusFailed}, closedError(op)
		}
	} else {
		task, ok, err := o.lookup(ctx, s, v.TaskID)
		if err != nil {
			return o.fail(s, op, storeError("load task", err))
		}
		if !ok {
			return o.fail(s, op, validationError(op, "task %d not found", v.TaskID))
		}
		if v.SuggestedStart != nil {
			task.StartTimestamp = goal.TimePtr(v.SuggestedStart.UTC())
		}
		if v.SuggestedEnd != nil {
			task.EndTimestamp = goal.TimePtr(v.SuggestedEnd.UTC())
		}
		timefmt.PrepareForStore(&task)
		if _, err := o.store.UpdateGoal(ctx, task.ID, task); err != nil {
			return o.fail(s, op, storeError("update task", err))
		}
	}
	_ = s.Apply(session.SetError(""))
	slog.Info("task range widened", "task_id", v.TaskID, "violation", v.Type)
	return o.save(ctx, s, p.opts)
}

// CancelPrompt backs out of whichever prompt is pending and releases the
// lock.
func (o *Orchestrator) CancelPrompt(s *session.Session, token string) (Outcome, error) {
	_, err := o.resume(s, "cancel", token,
		PromptEditScope, PromptRecompute, PromptDeleteScope, PromptDeleteRoutine, PromptConflict, PromptParentCompletion)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}
	return o.cancel(s), nil
}
