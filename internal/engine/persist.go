package engine

import (
	"context"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/relations"
	"github.com/roach88/goalctl/internal/scope"
	"github.com/roach88/goalctl/internal/session"
	"github.com/roach88/goalctl/internal/timefmt"
)

// persist writes the draft, any staged task events, and the edge deltas.
//
// A created goal is committed to the session before its staged events and
// edges are written, so a retry after a partial failure updates the new
// record instead of creating a second one.
func (o *Orchestrator) persist(ctx context.Context, s *session.Session, st session.State) (goal.Goal, error) {
	g := st.Draft.Clone()
	timefmt.PrepareForStore(&g)

	var (
		saved goal.Goal
		err   error
	)
	switch {
	case g.GoalType == goal.TypeEvent && g.IsDraft():
		parentID := st.Parents[0]
		saved, err = o.store.CreateEvent(ctx, goal.EventRequest{
			ParentID:      parentID,
			ParentType:    parentType(parentID, g, o.index(s)),
			ScheduledTime: *g.ScheduledTimestamp,
			Duration:      g.Duration,
			Priority:      g.Priority,
			Name:          g.Name,
			Description:   g.Description,
		})
		if err != nil {
			return goal.Goal{}, storeError("create event", err)
		}
		return saved, nil

	case g.GoalType == goal.TypeEvent:
		c := scope.DetectChange(st.Original, g)
		if c.IsZero() {
			return g, nil
		}
		saved, err = o.store.UpdateEvent(ctx, g.ID, c.Fields)
		if err != nil {
			return goal.Goal{}, storeError("update event", err)
		}
		return saved, nil

	case g.IsDraft():
		saved, err = o.store.CreateGoal(ctx, g)
		if err != nil {
			return goal.Goal{}, storeError("create goal", err)
		}
		if err := s.Apply(session.Saved{Goal: saved}); err != nil {
			return goal.Goal{}, closedError("create goal")
		}

	default:
		saved, err = o.store.UpdateGoal(ctx, g.ID, g)
		if err != nil {
			return goal.Goal{}, storeError("update goal", err)
		}
	}

	if saved.GoalType == goal.TypeTask {
		if err := o.createStaged(ctx, s, saved); err != nil {
			return goal.Goal{}, err
		}
	}
	if err := o.applyEdges(ctx, s, saved.ID, st.Parents, st.Children); err != nil {
		return goal.Goal{}, err
	}
	return saved, nil
}

// createStaged creates the session's staged events under task, dropping each
// one from the session as the store confirms it.
func (o *Orchestrator) createStaged(ctx context.Context, s *session.Session, task goal.Goal) error {
	for {
		staged := s.State().StagedEvents
		if len(staged) == 0 {
			return nil
		}
		ev := staged[0]
		priority := ev.Priority
		if priority == "" {
			priority = task.Priority
		}
		if _, err := o.store.CreateEvent(ctx, goal.EventRequest{
			ParentID:      task.ID,
			ParentType:    goal.TypeTask,
			ScheduledTime: ev.ScheduledTimestamp.UTC(),
			Duration:      ev.Duration,
			Priority:      priority,
		}); err != nil {
			return storeError("create event", err)
		}
		if err := s.Apply(session.UnstageEvent(0)); err != nil {
			return closedError("create event")
		}
	}
}

// applyEdges brings the stored edges of id in line with the desired parents
// and children. The session's edge cache only records deltas the store
// confirmed; the desired selection is left untouched so a failed delta is
// retried by the next save. A failed call may still have reached the store,
// so the cache is dropped and the next save reads the graph again.
func (o *Orchestrator) applyEdges(ctx context.Context, s *session.Session, id int64, parents, children []int64) error {
	graph, err := s.Edges().Load(ctx)
	if err != nil {
		return storeError("load relationships", err)
	}

	toAdd, toRemove := relations.Diff(touching(graph, id), desiredEdges(id, parents, children))
	changed := false
	defer func() {
		if changed {
			o.bus.Publish(NotifyRelationshipsChanged, id, s.ID())
		}
	}()

	for _, e := range toRemove.Sorted() {
		if err := o.store.DeleteRelationship(ctx, e.From, e.To, e.Kind); err != nil {
			s.Edges().Invalidate()
			return storeError("delete relationship", err)
		}
		s.Edges().ConfirmRemoved(e)
		changed = true
	}
	for _, e := range toAdd.Sorted() {
		if err := o.store.CreateRelationship(ctx, e.From, e.To, e.Kind); err != nil {
			s.Edges().Invalidate()
			return storeError("create relationship", err)
		}
		s.Edges().Confirm(e)
		changed = true
	}
	return nil
}

// checkCycles rejects a parent or child selection that would make a goal its
// own ancestor.
func (o *Orchestrator) checkCycles(ctx context.Context, s *session.Session, st session.State) error {
	id := st.Draft.ID
	if id == 0 || st.Draft.GoalType == goal.TypeEvent {
		return nil
	}
	graph, err := s.Edges().Load(ctx)
	if err != nil {
		return storeError("load relationships", err)
	}
	toAdd, toRemove := relations.Diff(touching(graph, id), desiredEdges(id, st.Parents, st.Children))
	if err := relations.CheckCycles(graph, toAdd, toRemove); err != nil {
		return validationError("submit", "%v", err)
	}
	return nil
}

func touching(graph relations.EdgeSet, id int64) relations.EdgeSet {
	edges := graph.Sorted()
	out := relations.Incoming(edges, id)
	for e := range relations.Outgoing(edges, id) {
		out.Add(e)
	}
	return out
}

func desiredEdges(id int64, parents, children []int64) relations.EdgeSet {
	out := relations.ParentEdges(id, parents)
	for e := range relations.ChildEdges(id, children) {
		out.Add(e)
	}
	return out
}
