package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/scope"
	"github.com/roach88/goalctl/internal/session"
	"github.com/roach88/goalctl/internal/timefmt"
)

// DuplicateSuffix is appended to the name of a duplicated goal.
const DuplicateSuffix = " (Copy)"

// Delete deletes the session's goal.
//
// Routine occurrences suspend on a PromptDeleteScope and routines on a
// PromptDeleteRoutine; both are answered with ConfirmDelete. Everything else
// is deleted immediately and the session is closed.
func (o *Orchestrator) Delete(ctx context.Context, s *session.Session) (Outcome, error) {
	const op = "delete"
	if s.Closed() || o.track(s) == nil {
		return Outcome{Status: StatusFailed}, closedError(op)
	}
	st := s.State()
	if st.Draft.ID == 0 {
		return Outcome{Status: StatusFailed}, validationError(op, "nothing to delete, the goal was never saved")
	}
	if !s.Lock().Begin("delete") {
		return Outcome{Status: StatusBusy}, nil
	}

	switch st.Draft.GoalType {
	case goal.TypeEvent:
		if own := o.ownership(ctx, s, st); own.RoutineOwned {
			return o.suspend(s, &pending{kind: PromptDeleteScope, eventID: st.Draft.ID, routineID: own.RoutineID}, &Prompt{
				Kind:    PromptDeleteScope,
				Message: "This event is part of a routine. Which occurrences should be deleted?",
				Options: scope.DeleteOptions(),
			}), nil
		}
		if err := o.store.DeleteEvent(ctx, st.Draft.ID, false); err != nil {
			return o.fail(s, op, storeError("delete event", err))
		}
	case goal.TypeRoutine:
		all, _ := scope.Lookup(scope.DeleteOptions(), scope.All)
		return o.suspend(s, &pending{kind: PromptDeleteRoutine, routineID: st.Draft.ID}, &Prompt{
			Kind:    PromptDeleteRoutine,
			Message: fmt.Sprintf("Delete routine %q? %s", st.Draft.Name, all.Warning),
		}), nil
	default:
		if err := o.store.DeleteGoal(ctx, st.Draft.ID); err != nil {
			return o.fail(s, op, storeError("delete goal", err))
		}
	}
	return o.deleted(s, st.Draft.ID)
}

// ConfirmDelete answers a delete prompt. For a routine occurrence sc selects
// the scope; for a routine it is ignored.
func (o *Orchestrator) ConfirmDelete(ctx context.Context, s *session.Session, token string, sc scope.Scope) (Outcome, error) {
	const op = "confirm delete"
	p, err := o.resume(s, op, token, PromptDeleteScope, PromptDeleteRoutine)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}

	if p.kind == PromptDeleteRoutine {
		if err := o.store.DeleteGoal(ctx, p.routineID); err != nil {
			return o.fail(s, op, storeError("delete routine", err))
		}
		o.bus.Publish(NotifyOccurrencesRefresh, p.routineID, s.ID())
		return o.deleted(s, p.routineID)
	}

	routineID := p.routineID
	if sc == scope.All && routineID == 0 {
		routineID, err = o.recoverRoutine(ctx, s, p.eventID)
		if err != nil {
			return o.fail(s, op, err)
		}
	}

	plan, err := scope.PlanDelete(p.eventID, routineID, sc)
	if err != nil {
		return o.fail(s, op, validationError(op, "%v", err))
	}
	deletedID := p.eventID
	for _, step := range plan.Steps {
		switch step.Kind {
		case scope.StepDeleteEvent:
			if err := o.store.DeleteEvent(ctx, step.EventID, step.Future); err != nil {
				return o.fail(s, op, storeError("delete event", err))
			}
		case scope.StepDeleteRoutine:
			if err := o.store.DeleteGoal(ctx, step.RoutineID); err != nil {
				return o.fail(s, op, storeError("delete routine", err))
			}
			deletedID = step.RoutineID
		}
	}
	if plan.RefreshOccurrences {
		o.bus.Publish(NotifyOccurrencesRefresh, routineID, s.ID())
	}
	slog.Info("occurrence delete applied", "event_id", p.eventID, "scope", string(sc))
	return o.deleted(s, deletedID)
}

// recoverRoutine finds the routine that owns eventID when the session does
// not know it: first from the cached index, then from a fresh fetch.
func (o *Orchestrator) recoverRoutine(ctx context.Context, s *session.Session, eventID int64) (int64, error) {
	const op = "confirm delete"
	unresolved := func(err error) error {
		return &Error{
			Code:    ErrCodeParentUnresolved,
			Op:      op,
			Message: "the routine this event belongs to could not be found, nothing was deleted",
			Err:     err,
		}
	}

	if id, ok := routineParent(o.index(s), eventID); ok {
		return id, nil
	}
	goals, err := o.store.FetchAllGoals(ctx)
	if err != nil {
		return 0, unresolved(err)
	}
	idx := goal.NewIndex(goals)
	o.mu.Lock()
	if t, ok := o.tracked[s.ID()]; ok {
		t.index = idx
	}
	o.mu.Unlock()

	if id, ok := routineParent(idx, eventID); ok {
		slog.Warn("routine recovered by refetch", "event_id", eventID, "routine_id", id)
		return id, nil
	}
	return 0, unresolved(scope.ErrRoutineUnresolved)
}

func routineParent(idx goal.Index, eventID int64) (int64, bool) {
	ev, ok := idx[eventID]
	if !ok || ev.ParentID == 0 {
		return 0, false
	}
	if p, ok := idx[ev.ParentID]; ok && p.GoalType == goal.TypeRoutine {
		return p.ID, true
	}
	if ev.ParentType == goal.TypeRoutine {
		return ev.ParentID, true
	}
	return 0, false
}

func (o *Orchestrator) deleted(s *session.Session, id int64) (Outcome, error) {
	o.clearPending(s)
	s.Lock().End()
	o.bus.Publish(NotifyGoalDeleted, id, s.ID())
	slog.Info("goal deleted", "goal_id", id, "session", s.ID())
	if err := o.Close(s); err != nil {
		return Outcome{Status: StatusDone}, err
	}
	return Outcome{Status: StatusDone}, nil
}

// Duplicate creates a copy of the session's goal with DuplicateSuffix on its
// name. Non-event goals keep their parent links; events keep their parent.
// The session stays open on the original.
func (o *Orchestrator) Duplicate(ctx context.Context, s *session.Session) (Outcome, error) {
	const op = "duplicate"
	if s.Closed() || o.track(s) == nil {
		return Outcome{Status: StatusFailed}, closedError(op)
	}
	st := s.State()
	if st.Draft.ID == 0 {
		return Outcome{Status: StatusFailed}, validationError(op, "save the goal before duplicating it")
	}
	if !s.Lock().Begin("duplicate") {
		return Outcome{Status: StatusBusy}, nil
	}

	src := st.Original
	if src.ID == 0 {
		src = st.Draft
	}
	dup := src.Clone()
	dup.ID = 0
	dup.Name = src.Name + DuplicateSuffix
	dup.Completed = false
	dup.CompletionDate = nil
	dup.RoutineInstanceID = ""
	timefmt.PrepareForStore(&dup)

	var (
		created goal.Goal
		err     error
	)
	if dup.GoalType == goal.TypeEvent {
		if dup.ScheduledTimestamp == nil || len(st.Parents) != 1 {
			return o.fail(s, op, validationError(op, "an event needs a parent and a scheduled time to be duplicated"))
		}
		parentID := st.Parents[0]
		created, err = o.store.CreateEvent(ctx, goal.EventRequest{
			ParentID:      parentID,
			ParentType:    parentType(parentID, dup, o.index(s)),
			ScheduledTime: *dup.ScheduledTimestamp,
			Duration:      dup.Duration,
			Priority:      dup.Priority,
			Name:          dup.Name,
			Description:   dup.Description,
		})
		if err != nil {
			return o.fail(s, op, storeError("create event", err))
		}
	} else {
		created, err = o.store.CreateGoal(ctx, dup)
		if err != nil {
			return o.fail(s, op, storeError("create goal", err))
		}
		changed := false
		for _, p := range st.Parents {
			if err := o.store.CreateRelationship(ctx, p, created.ID, goal.EdgeChild); err != nil {
				return o.fail(s, op, storeError("create relationship", err))
			}
			s.Edges().Confirm(goal.ChildEdge(p, created.ID))
			changed = true
		}
		if changed {
			o.bus.Publish(NotifyRelationshipsChanged, created.ID, s.ID())
		}
	}

	s.Lock().End()
	o.bus.Publish(NotifyGoalSaved, created.ID, s.ID())
	slog.Info("goal duplicated", "source_id", src.ID, "goal_id", created.ID)
	return done(created), nil
}

// ToggleComplete flips the completion state of the session's goal.
//
// Completing an event may suspend on a PromptParentCompletion when it was
// the last open event of its task.
func (o *Orchestrator) ToggleComplete(ctx context.Context, s *session.Session) (Outcome, error) {
	const op = "complete"
	if s.Closed() || o.track(s) == nil {
		return Outcome{Status: StatusFailed}, closedError(op)
	}
	st := s.State()
	if st.Draft.ID == 0 {
		return Outcome{Status: StatusFailed}, validationError(op, "save the goal before completing it")
	}
	if !s.Lock().Begin("complete") {
		return Outcome{Status: StatusBusy}, nil
	}

	updated := st.Draft.Clone()
	if st.Draft.GoalType == goal.TypeEvent && !st.Draft.Completed {
		res, err := o.store.CompleteEvent(ctx, st.Draft.ID)
		if err != nil {
			return o.fail(s, op, storeError("complete event", err))
		}
		updated.Completed = true
		if err := s.Apply(session.MarkCompleted(true)); err != nil {
			s.Lock().End()
			return Outcome{Status: StatusFailed}, closedError(op)
		}
		o.bus.Publish(NotifyGoalCompleted, updated.ID, s.ID())

		if res.ShouldPromptParentCompletion {
			out := o.suspend(s, &pending{kind: PromptParentCompletion, parentTaskID: res.ParentTaskID}, &Prompt{
				Kind:           PromptParentCompletion,
				Message:        fmt.Sprintf("All events of %q are complete. Mark the task complete too?", res.ParentTaskName),
				ParentTaskID:   res.ParentTaskID,
				ParentTaskName: res.ParentTaskName,
			})
			out.Goal = &updated
			return out, nil
		}
		s.Lock().End()
		return done(updated), nil
	}

	completed, err := o.store.CompleteGoal(ctx, st.Draft.ID, !st.Draft.Completed)
	if err != nil {
		return o.fail(s, op, storeError("complete goal", err))
	}
	updated.Completed = completed
	if err := s.Apply(session.MarkCompleted(completed)); err != nil {
		s.Lock().End()
		return Outcome{Status: StatusFailed}, closedError(op)
	}
	s.Lock().End()
	o.bus.Publish(NotifyGoalCompleted, updated.ID, s.ID())
	return done(updated), nil
}

// ConfirmParentCompletion answers a PromptParentCompletion.
func (o *Orchestrator) ConfirmParentCompletion(ctx context.Context, s *session.Session, token string, complete bool) (Outcome, error) {
	const op = "complete task"
	p, err := o.resume(s, op, token, PromptParentCompletion)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}
	if complete {
		if _, err := o.store.CompleteGoal(ctx, p.parentTaskID, true); err != nil {
			return o.fail(s, op, storeError("complete task", err))
		}
		o.bus.Publish(NotifyGoalCompleted, p.parentTaskID, s.ID())
	}
	s.Lock().End()
	draft := s.State().Draft
	return done(draft), nil
}
