package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/scope"
)

// Call is one recorded store call.
type Call struct {
	Method string
	Args   string
}

func (c Call) String() string {
	return c.Method + "(" + c.Args + ")"
}

// RecordingStore is an in-memory store that records every call.
//
// It keeps just enough state for orchestrator tests: goals by id, a set of
// edges, and one-shot failures queued per method. Ids are assigned from 100
// upward so they never collide with seeded fixtures.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingStore struct {
	mu     sync.Mutex
	calls  []Call
	goals  map[int64]goal.Goal
	edges  map[goal.Edge]struct{}
	nextID int64
	fails  map[string][]error

	fetches int

	// FetchGoalsHook, when set, rewrites the result of the n-th (1-based)
	// FetchAllGoals call.
	FetchGoalsHook func(n int, goals []goal.Goal) []goal.Goal

	// Completions overrides CompleteEvent results by event id.
	Completions map[int64]goal.CompletionResult
}

// NewRecordingStore creates an empty store.
func NewRecordingStore() *RecordingStore {
	return &RecordingStore{
		goals:       make(map[int64]goal.Goal),
		edges:       make(map[goal.Edge]struct{}),
		nextID:      100,
		fails:       make(map[string][]error),
		Completions: make(map[int64]goal.CompletionResult),
	}
}

// Seed inserts goals as they are. Seeding is not recorded.
func (s *RecordingStore) Seed(goals ...goal.Goal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range goals {
		s.goals[g.ID] = g.Clone()
	}
}

// SeedEdges inserts edges. Seeding is not recorded.
func (s *RecordingStore) SeedEdges(edges ...goal.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range edges {
		s.edges[e] = struct{}{}
	}
}

// FailNext makes the next call to method return err.
func (s *RecordingStore) FailNext(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[method] = append(s.fails[method], err)
}

// Calls returns the recorded calls in order.
func (s *RecordingStore) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Mutations returns the recorded calls that are not reads.
func (s *RecordingStore) Mutations() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if !strings.HasPrefix(c.Method, "Fetch") {
			out = append(out, c)
		}
	}
	return out
}

// CallsTo returns the recorded calls to method.
func (s *RecordingStore) CallsTo(method string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Trace renders the recorded calls one per line.
func (s *RecordingStore) Trace() string {
	var b strings.Builder
	for _, c := range s.Calls() {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Reset clears the recorded calls but keeps the data.
func (s *RecordingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Goal returns the stored goal with id.
func (s *RecordingStore) Goal(id int64) (goal.Goal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	return g.Clone(), ok
}

// HasEdge reports whether e is stored.
func (s *RecordingStore) HasEdge(e goal.Edge) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.edges[e]
	return ok
}

// record appends a call and pops a queued failure. Caller holds mu.
func (s *RecordingStore) record(method, format string, args ...any) error {
	s.calls = append(s.calls, Call{Method: method, Args: fmt.Sprintf(format, args...)})
	if q := s.fails[method]; len(q) > 0 {
		s.fails[method] = q[1:]
		return q[0]
	}
	return nil
}

func (s *RecordingStore) newID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *RecordingStore) CreateGoal(ctx context.Context, g goal.Goal) (goal.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("CreateGoal", "%s", describe(g)); err != nil {
		return goal.Goal{}, err
	}
	g = g.Clone()
	g.ID = s.newID()
	s.goals[g.ID] = g
	return g.Clone(), nil
}

func (s *RecordingStore) UpdateGoal(ctx context.Context, id int64, g goal.Goal) (goal.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("UpdateGoal", "%d, %s", id, describe(g)); err != nil {
		return goal.Goal{}, err
	}
	if _, ok := s.goals[id]; !ok {
		return goal.Goal{}, fmt.Errorf("goal %d not found", id)
	}
	g = g.Clone()
	g.ID = id
	s.goals[id] = g
	return g.Clone(), nil
}

func (s *RecordingStore) DeleteGoal(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DeleteGoal", "%d", id); err != nil {
		return err
	}
	delete(s.goals, id)
	for e := range s.edges {
		if e.From == id || e.To == id {
			delete(s.edges, e)
		}
	}
	for gid, g := range s.goals {
		if g.GoalType == goal.TypeEvent && g.ParentID == id {
			delete(s.goals, gid)
		}
	}
	return nil
}

func (s *RecordingStore) CompleteGoal(ctx context.Context, id int64, completed bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("CompleteGoal", "%d, %t", id, completed); err != nil {
		return false, err
	}
	g, ok := s.goals[id]
	if !ok {
		return false, fmt.Errorf("goal %d not found", id)
	}
	g.Completed = completed
	s.goals[id] = g
	return completed, nil
}

func (s *RecordingStore) CreateEvent(ctx context.Context, req goal.EventRequest) (goal.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("CreateEvent", "parent=%s:%d at=%s duration=%d priority=%s",
		req.ParentType, req.ParentID, stamp(&req.ScheduledTime), req.Duration, req.Priority); err != nil {
		return goal.Goal{}, err
	}
	ev := goal.Goal{
		ID:                 s.newID(),
		GoalType:           goal.TypeEvent,
		Name:               req.Name,
		Description:        req.Description,
		Priority:           req.Priority,
		ScheduledTimestamp: goal.TimePtr(req.ScheduledTime.UTC()),
		Duration:           req.Duration,
		ParentID:           req.ParentID,
		ParentType:         req.ParentType,
		TimezoneMode:       goal.TimezoneUTC,
	}
	if p, ok := s.goals[req.ParentID]; ok && ev.Name == "" {
		ev.Name = p.Name
	}
	s.goals[ev.ID] = ev
	return ev.Clone(), nil
}

func (s *RecordingStore) UpdateEvent(ctx context.Context, id int64, fields goal.EventFields) (goal.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("UpdateEvent", "%d, %s", id, describeFields(fields)); err != nil {
		return goal.Goal{}, err
	}
	ev, ok := s.goals[id]
	if !ok {
		return goal.Goal{}, fmt.Errorf("event %d not found", id)
	}
	fields.ApplyTo(&ev)
	s.goals[id] = ev
	return ev.Clone(), nil
}

func (s *RecordingStore) DeleteEvent(ctx context.Context, id int64, deleteFuture bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DeleteEvent", "%d, future=%t", id, deleteFuture); err != nil {
		return err
	}
	delete(s.goals, id)
	return nil
}

func (s *RecordingStore) CompleteEvent(ctx context.Context, id int64) (goal.CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("CompleteEvent", "%d", id); err != nil {
		return goal.CompletionResult{}, err
	}
	if ev, ok := s.goals[id]; ok {
		ev.Completed = true
		s.goals[id] = ev
	}
	return s.Completions[id], nil
}

func (s *RecordingStore) UpdateRoutineEvent(ctx context.Context, id int64, t time.Time, sc scope.Scope) ([]goal.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("UpdateRoutineEvent", "%d, %s, %s", id, stamp(&t), sc); err != nil {
		return nil, err
	}
	ev, ok := s.goals[id]
	if !ok {
		return nil, fmt.Errorf("event %d not found", id)
	}
	ev.ScheduledTimestamp = goal.TimePtr(t.UTC())
	s.goals[id] = ev
	if sc != scope.Single {
		if routine, ok := s.goals[ev.ParentID]; ok && routine.GoalType == goal.TypeRoutine {
			u := t.UTC()
			routine.RoutineTime = goal.TimePtr(time.Date(1970, 1, 1, u.Hour(), u.Minute(), u.Second(), 0, time.UTC))
			s.goals[routine.ID] = routine
		}
	}
	return []goal.Goal{ev.Clone()}, nil
}

func (s *RecordingStore) UpdateRoutineEventProperties(ctx context.Context, id int64, fields goal.EventFields, sc scope.Scope) ([]goal.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("UpdateRoutineEventProperties", "%d, %s, %s", id, describeFields(fields), sc); err != nil {
		return nil, err
	}
	ev, ok := s.goals[id]
	if !ok {
		return nil, fmt.Errorf("event %d not found", id)
	}
	fields.ApplyTo(&ev)
	s.goals[id] = ev
	return []goal.Goal{ev.Clone()}, nil
}

func (s *RecordingStore) RecomputeRoutineFuture(ctx context.Context, routineID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record("RecomputeRoutineFuture", "%d", routineID)
}

func (s *RecordingStore) CreateRelationship(ctx context.Context, parentID, childID int64, kind goal.EdgeKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("CreateRelationship", "%d, %d, %s", parentID, childID, kind); err != nil {
		return err
	}
	s.edges[goal.Edge{From: parentID, To: childID, Kind: kind}] = struct{}{}
	return nil
}

func (s *RecordingStore) DeleteRelationship(ctx context.Context, parentID, childID int64, kind goal.EdgeKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DeleteRelationship", "%d, %d, %s", parentID, childID, kind); err != nil {
		return err
	}
	delete(s.edges, goal.Edge{From: parentID, To: childID, Kind: kind})
	return nil
}

func (s *RecordingStore) FetchAllGoals(ctx context.Context) ([]goal.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("FetchAllGoals", ""); err != nil {
		return nil, err
	}
	s.fetches++
	out := make([]goal.Goal, 0, len(s.goals))
	for _, g := range s.goals {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if s.FetchGoalsHook != nil {
		out = s.FetchGoalsHook(s.fetches, out)
	}
	return out, nil
}

func (s *RecordingStore) FetchRelationshipEdges(ctx context.Context) ([]goal.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("FetchRelationshipEdges", ""); err != nil {
		return nil, err
	}
	out := make([]goal.Edge, 0, len(s.edges))
	for e := range s.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out, nil
}

func (s *RecordingStore) FetchGoalEventsAndTotalDuration(ctx context.Context, taskID int64) (goal.TaskEvents, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("FetchGoalEventsAndTotalDuration", "%d", taskID); err != nil {
		return goal.TaskEvents{}, err
	}
	res := goal.TaskEvents{TaskID: taskID}
	for _, g := range s.goals {
		if g.GoalType == goal.TypeEvent && g.ParentID == taskID {
			res.Events = append(res.Events, g.Clone())
			res.TotalDuration += g.Duration
		}
	}
	sort.Slice(res.Events, func(i, j int) bool { return res.Events[i].ID < res.Events[j].ID })
	return res, nil
}

func describe(g goal.Goal) string {
	parts := []string{"type=" + string(g.GoalType), fmt.Sprintf("name=%q", g.Name)}
	if g.Priority != "" {
		parts = append(parts, "priority="+string(g.Priority))
	}
	if g.StartTimestamp != nil {
		parts = append(parts, "start="+stamp(g.StartTimestamp))
	}
	if g.EndTimestamp != nil {
		parts = append(parts, "end="+stamp(g.EndTimestamp))
	}
	if g.ScheduledTimestamp != nil {
		parts = append(parts, "at="+stamp(g.ScheduledTimestamp))
	}
	if g.Duration != 0 {
		parts = append(parts, fmt.Sprintf("duration=%d", g.Duration))
	}
	if g.Frequency != "" {
		parts = append(parts, "frequency="+g.Frequency)
	}
	if g.TimezoneMode != "" {
		parts = append(parts, "tz="+string(g.TimezoneMode))
	}
	return strings.Join(parts, " ")
}

func describeFields(f goal.EventFields) string {
	var parts []string
	if f.ScheduledTimestamp != nil {
		parts = append(parts, "at="+stamp(f.ScheduledTimestamp))
	}
	if f.Duration != nil {
		parts = append(parts, fmt.Sprintf("duration=%d", *f.Duration))
	}
	if f.Name != nil {
		parts = append(parts, fmt.Sprintf("name=%q", *f.Name))
	}
	if f.Description != nil {
		parts = append(parts, fmt.Sprintf("description=%q", *f.Description))
	}
	if f.Priority != nil {
		parts = append(parts, "priority="+string(*f.Priority))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func stamp(t *time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
