package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/relations"
	"github.com/roach88/goalctl/internal/session"
)

// Orchestrator is the reconciliation state machine. It owns the session
// manager and drives every mutation against the Store.
//
// Thread-safety model:
//   - One logical actor per session. Calls for the same session are expected
//     to be sequential; the session's action lock rejects overlap.
//   - Open, Close, and calls for different sessions are safe from any
//     goroutine.
type Orchestrator struct {
	store    Store
	sessions *session.Manager
	bus      *Bus
	tokens   TokenGenerator

	sessionOpts []session.ManagerOption

	mu      sync.Mutex
	tracked map[string]*tracked
}

// tracked is orchestrator-side data for one open session.
type tracked struct {
	index   goal.Index
	pending *pending
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBus publishes notifications on b instead of a private bus.
func WithBus(b *Bus) Option {
	return func(o *Orchestrator) {
		o.bus = b
	}
}

// WithTokenGenerator sets the prompt token generator.
//
// Default: UUIDv7Generator. Use NewFixedGenerator in tests.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(o *Orchestrator) {
		o.tokens = g
	}
}

// WithSessionOptions passes options to the session manager.
func WithSessionOptions(opts ...session.ManagerOption) Option {
	return func(o *Orchestrator) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// New creates an Orchestrator backed by st.
func New(st Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   st,
		bus:     NewBus(),
		tokens:  UUIDv7Generator{},
		tracked: make(map[string]*tracked),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.sessions = session.NewManager(st.FetchRelationshipEdges, o.sessionOpts...)
	return o
}

// Bus returns the notification bus.
func (o *Orchestrator) Bus() *Bus {
	return o.bus
}

// Sessions returns the session manager.
func (o *Orchestrator) Sessions() *session.Manager {
	return o.sessions
}

// Open starts an editing session for g and reads its relationships.
//
// When reading fails the session is still returned, marked as loading, and
// Submit refuses it until LoadRelationships succeeds.
func (o *Orchestrator) Open(ctx context.Context, g goal.Goal, mode session.Mode) (*session.Session, error) {
	s, err := o.sessions.Open(g, mode)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	for id := range o.tracked {
		if id != s.ID() {
			delete(o.tracked, id)
		}
	}
	o.tracked[s.ID()] = &tracked{index: goal.Index{}}
	o.mu.Unlock()

	if err := o.LoadRelationships(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// LoadRelationships reads the edge graph and the goal index for s and fills
// in its parent and child selection.
func (o *Orchestrator) LoadRelationships(ctx context.Context, s *session.Session) error {
	const op = "load relationships"
	if s.Closed() {
		return closedError(op)
	}

	edges, err := s.Edges().Load(ctx)
	if err != nil {
		return storeError(op, err)
	}
	goals, err := o.store.FetchAllGoals(ctx)
	if err != nil {
		return storeError(op, err)
	}
	idx := goal.NewIndex(goals)

	t := o.track(s)
	if t == nil {
		return closedError(op)
	}
	o.mu.Lock()
	t.index = idx
	o.mu.Unlock()

	st := s.State()
	id := st.Draft.ID
	parents, children := st.Parents, st.Children
	switch {
	case st.Draft.GoalType == goal.TypeEvent:
		parentID := st.Draft.ParentID
		if parentID == 0 {
			parentID = idx[id].ParentID
		}
		if parentID != 0 {
			parents = []int64{parentID}
		}
	case id != 0:
		parents, children = nil, nil
		all := edges.Sorted()
		for _, e := range relations.Incoming(all, id).Sorted() {
			parents = append(parents, e.From)
		}
		for _, e := range relations.Outgoing(all, id).Sorted() {
			children = append(children, e.To)
		}
	}

	slog.Debug("relationships loaded", "session", s.ID(), "goal_id", id, "parents", len(parents), "children", len(children))
	if err := s.Apply(session.LoadedRelationships{Parents: parents, Children: children}); err != nil {
		return closedError(op)
	}
	return nil
}

// Close closes s. It refuses while an action or prompt is in flight.
func (o *Orchestrator) Close(s *session.Session) error {
	if err := o.sessions.Close(s.ID()); err != nil {
		return err
	}
	o.mu.Lock()
	delete(o.tracked, s.ID())
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) track(s *session.Session) *tracked {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tracked[s.ID()]
}

func (o *Orchestrator) index(s *session.Session) goal.Index {
	o.mu.Lock()
	defer o.mu.Unlock()
	if t, ok := o.tracked[s.ID()]; ok {
		return t.index
	}
	return goal.Index{}
}

// lookup finds a goal in the session index, refetching once on a miss.
func (o *Orchestrator) lookup(ctx context.Context, s *session.Session, id int64) (goal.Goal, bool, error) {
	if g, ok := o.index(s)[id]; ok {
		return g, true, nil
	}
	return o.reload(ctx, s, id)
}

// reload refetches every goal into the session index and returns id as
// stored now.
func (o *Orchestrator) reload(ctx context.Context, s *session.Session, id int64) (goal.Goal, bool, error) {
	goals, err := o.store.FetchAllGoals(ctx)
	if err != nil {
		return goal.Goal{}, false, err
	}
	idx := goal.NewIndex(goals)
	o.mu.Lock()
	if t, ok := o.tracked[s.ID()]; ok {
		t.index = idx
	}
	o.mu.Unlock()
	g, ok := idx[id]
	return g, ok, nil
}

func (o *Orchestrator) parentsOf(s *session.Session, ids []int64) []goal.Goal {
	idx := o.index(s)
	out := make([]goal.Goal, 0, len(ids))
	for _, id := range ids {
		if g, ok := idx[id]; ok {
			out = append(out, g)
		}
	}
	return out
}

// knownParents returns parents of id found in the memoized edge graph.
func (o *Orchestrator) knownParents(ctx context.Context, s *session.Session, id int64) []goal.Goal {
	if !s.Edges().Loaded() {
		return nil
	}
	edges, err := s.Edges().Load(ctx)
	if err != nil {
		return nil
	}
	var ids []int64
	for _, e := range edges.Sorted() {
		if e.To == id && !slices.Contains(ids, e.From) {
			ids = append(ids, e.From)
		}
	}
	return o.parentsOf(s, ids)
}
