package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/scope"
	"github.com/roach88/goalctl/internal/session"
	"github.com/roach88/goalctl/internal/testutil"
	"github.com/roach88/goalctl/internal/timefmt"
)

func at(month time.Month, day, hour int) *time.Time {
	return goal.TimePtr(time.Date(2026, month, day, hour, 0, 0, 0, time.UTC))
}

// seedFixture builds a small tree:
//
//	1 directive ─┬─ 2 project ─┬─ 7 routine ── 8 event (occurrence)
//	3 directive  │             └─ 9 task ───── 10 event
func seedFixture(s *testutil.RecordingStore) {
	s.Seed(
		goal.Goal{ID: 1, GoalType: goal.TypeDirective, Name: "Live well", Priority: goal.PriorityHigh},
		goal.Goal{ID: 2, GoalType: goal.TypeProject, Name: "Fitness", Priority: goal.PriorityMedium},
		goal.Goal{ID: 3, GoalType: goal.TypeDirective, Name: "Work", Priority: goal.PriorityHigh},
		goal.Goal{
			ID: 7, GoalType: goal.TypeRoutine, Name: "Run", Priority: goal.PriorityMedium,
			Frequency: "1D", StartTimestamp: at(1, 1, 0), EndTimestamp: at(1, 31, 23),
			RoutineTime: goal.TimePtr(time.Date(1970, 1, 1, 7, 0, 0, 0, time.UTC)), Duration: 60,
		},
		goal.Goal{
			ID: 8, GoalType: goal.TypeEvent, Name: "Run", Priority: goal.PriorityMedium,
			ScheduledTimestamp: at(1, 12, 7), Duration: 60, ParentID: 7, ParentType: goal.TypeRoutine,
		},
		goal.Goal{
			ID: 9, GoalType: goal.TypeTask, Name: "Write report", Priority: goal.PriorityHigh,
			StartTimestamp: at(1, 1, 0), EndTimestamp: at(1, 31, 23),
		},
		goal.Goal{
			ID: 10, GoalType: goal.TypeEvent, Name: "Write report", Priority: goal.PriorityHigh,
			ScheduledTimestamp: at(1, 5, 10), Duration: 120, ParentID: 9, ParentType: goal.TypeTask,
		},
	)
	s.SeedEdges(goal.ChildEdge(1, 2), goal.ChildEdge(2, 7), goal.ChildEdge(2, 9))
}

type fixture struct {
	o     *Orchestrator
	store *testutil.RecordingStore
	notes []Notification
}

func newFixture(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	st := testutil.NewRecordingStore()
	seedFixture(st)

	f := &fixture{store: st}
	f.o = New(st,
		WithTokenGenerator(testutil.NewSequentialTokens("prompt")),
		WithSessionOptions(
			session.WithIDGenerator(testutil.SequentialIDs("session")),
			session.WithNormalizer(timefmt.New(loc)),
		),
	)
	f.o.Bus().Subscribe(func(n Notification) { f.notes = append(f.notes, n) })
	return f
}

func (f *fixture) open(t *testing.T, id int64, mode session.Mode) *session.Session {
	t.Helper()
	g, ok := f.store.Goal(id)
	require.True(t, ok, "goal %d not seeded", id)
	s, err := f.o.Open(context.Background(), g, mode)
	require.NoError(t, err)
	f.store.Reset()
	return s
}

func (f *fixture) create(t *testing.T, typ goal.Type, changes ...session.Change) *session.Session {
	t.Helper()
	s, err := f.o.Open(context.Background(), goal.Goal{GoalType: typ, Duration: goal.DefaultDurationMinutes}, session.ModeCreate)
	require.NoError(t, err)
	require.NoError(t, s.Apply(changes...))
	f.store.Reset()
	return s
}

func (f *fixture) kinds() []NotificationKind {
	out := make([]NotificationKind, 0, len(f.notes))
	for _, n := range f.notes {
		out = append(out, n.Kind)
	}
	return out
}

func methods(calls []testutil.Call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Method)
	}
	return out
}

func TestOpen_LoadsRelationships(t *testing.T) {
	f := newFixture(t, time.UTC)

	project := f.open(t, 2, session.ModeEdit)
	st := project.State()
	assert.False(t, st.RelationshipsLoading)
	assert.Equal(t, []int64{1}, st.Parents)
	assert.Equal(t, []int64{7, 9}, st.Children)

	ev := f.open(t, 8, session.ModeEdit)
	assert.Equal(t, []int64{7}, ev.State().Parents)
	assert.True(t, project.Closed(), "opening a second editor closes the first")
}

func TestSubmit_CreateTaskWithStagedEvents(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.create(t, goal.TypeTask,
		session.SetName("Draft slides"),
		session.SetPriority("high"),
		session.SetParents{2},
		session.StageEvent{Date: "2026-02-01", Clock: "10:00"},
		session.StageEvent{Date: "2026-02-02", Clock: "14:00", Duration: 30},
	)

	out, err := f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, StatusDone, out.Status)
	assert.Equal(t, int64(100), out.Goal.ID)

	assert.Equal(t, []string{"CreateGoal", "CreateEvent", "CreateEvent", "CreateRelationship"}, methods(f.store.Mutations()))
	events := f.store.CallsTo("CreateEvent")
	assert.Equal(t, "parent=task:100 at=2026-02-01T10:00:00Z duration=60 priority=high", events[0].Args)
	assert.Equal(t, "parent=task:100 at=2026-02-02T14:00:00Z duration=30 priority=high", events[1].Args)
	assert.Equal(t, "2, 100, child", f.store.CallsTo("CreateRelationship")[0].Args)

	assert.Equal(t, []NotificationKind{NotifyRelationshipsChanged, NotifyGoalSaved}, f.kinds())
	assert.True(t, s.Closed())
	assert.False(t, s.Lock().Busy())
}

func TestSubmit_AllDayEventPinnedToUTCMidnight(t *testing.T) {
	for _, offset := range []int{-8, 0, 9} {
		f := newFixture(t, time.FixedZone("X", offset*3600))
		s := f.create(t, goal.TypeEvent,
			session.SetParents{9},
			session.SetPriority("low"),
			session.SetAllDay(true),
			session.SetScheduled{Date: "2026-01-20"},
		)

		_, err := f.o.Submit(context.Background(), s)
		require.NoError(t, err)
		calls := f.store.CallsTo("CreateEvent")
		require.Len(t, calls, 1)
		assert.Equal(t, "parent=task:9 at=2026-01-20T00:00:00Z duration=1440 priority=low", calls[0].Args)
	}
}

func TestSubmit_OccurrenceDurationFutureScope(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 8, session.ModeEdit)
	require.NoError(t, s.Apply(session.SetDuration(90)))

	out, err := f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, StatusPrompt, out.Status)
	assert.Equal(t, PromptEditScope, out.Prompt.Kind)
	assert.Equal(t, scope.ChangeDuration, out.Prompt.Change)
	assert.Len(t, out.Prompt.Options, 3)
	assert.Empty(t, f.store.Mutations(), "nothing is written before the scope is chosen")
	assert.True(t, s.Lock().Busy(), "the prompt inherits the lock")

	out, err = f.o.ConfirmScope(context.Background(), s, out.Prompt.Token, scope.Future)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)

	muts := f.store.Mutations()
	require.Equal(t, []string{"UpdateRoutineEventProperties", "UpdateGoal"}, methods(muts))
	assert.Equal(t, "8, {duration=90}, future", muts[0].Args)

	routine, _ := f.store.Goal(7)
	assert.Equal(t, 90, routine.Duration)
	assert.Equal(t, goal.TimezoneUTC, routine.TimezoneMode)
	assert.Contains(t, f.kinds(), NotifyOccurrencesRefresh)
	assert.False(t, s.Lock().Busy())
}

func TestSubmit_OccurrenceTimeAndDurationAllScope(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 8, session.ModeEdit)
	require.NoError(t, s.Apply(session.SetScheduled{Date: "2026-01-12", Clock: "08:30"}, session.SetDuration(45)))

	out, err := f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, scope.ChangeScheduledTime, out.Prompt.Change)

	_, err = f.o.ConfirmScope(context.Background(), s, out.Prompt.Token, scope.All)
	require.NoError(t, err)

	muts := f.store.Mutations()
	require.Equal(t, []string{"UpdateRoutineEvent", "UpdateRoutineEventProperties", "UpdateGoal"}, methods(muts))
	assert.Equal(t, "8, 2026-01-12T08:30:00Z, all", muts[0].Args)
	assert.Equal(t, "8, {duration=45}, all", muts[1].Args)

	routine, ok := f.store.Goal(7)
	require.True(t, ok)
	require.NotNil(t, routine.RoutineTime)
	assert.Equal(t, time.Date(1970, 1, 1, 8, 30, 0, 0, time.UTC), *routine.RoutineTime, "mirror keeps the re-anchored time")
	assert.Equal(t, 45, routine.Duration)
}

func TestSubmit_OccurrenceSingleScope(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 8, session.ModeEdit)
	require.NoError(t, s.Apply(session.SetName("Long run")))

	out, err := f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, scope.ChangeOther, out.Prompt.Change)

	_, err = f.o.ConfirmScope(context.Background(), s, out.Prompt.Token, scope.Single)
	require.NoError(t, err)

	muts := f.store.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, `UpdateEvent(8, {name="Long run"})`, muts[0].String())
	assert.NotContains(t, f.kinds(), NotifyOccurrencesRefresh)
}

func TestSubmit_UnchangedOccurrenceSkipsPrompt(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 8, session.ModeEdit)

	out, err := f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	assert.Empty(t, f.store.Mutations())
}

func TestSubmit_RoutineScheduleChange(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 7, session.ModeEdit)
	require.NoError(t, s.Apply(session.SetEnd("2026-01-15")))

	out, err := f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, PromptRecompute, out.Prompt.Kind)
	assert.Contains(t, out.Prompt.Message, "including ones already marked complete")

	out, err = f.o.ConfirmRecompute(context.Background(), s, out.Prompt.Token, false)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, out.Status)
	assert.Empty(t, f.store.Mutations(), "declining aborts the whole save")
	assert.False(t, s.Lock().Busy())
	assert.False(t, s.Closed())

	out, err = f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	out, err = f.o.ConfirmRecompute(context.Background(), s, out.Prompt.Token, true)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)

	assert.Equal(t, []string{"UpdateGoal", "RecomputeRoutineFuture"}, methods(f.store.Mutations()))
	assert.Equal(t, []NotificationKind{NotifyOccurrencesRefresh, NotifyGoalSaved}, f.kinds())
}

func TestSubmit_CosmeticRoutineEditSkipsRecompute(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 7, session.ModeEdit)
	require.NoError(t, s.Apply(session.SetName("Morning run"), session.SetDescription("5k")))

	out, err := f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	assert.Equal(t, []string{"UpdateGoal"}, methods(f.store.Mutations()))
}

func TestSubmit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		typ     goal.Type
		changes []session.Change
		want    string
	}{
		{"missing priority", goal.TypeProject, []session.Change{session.SetName("P"), session.SetParents{1}}, "priority is required"},
		{"project without parent", goal.TypeProject, []session.Change{session.SetName("P"), session.SetPriority("low")}, "needs at least one parent"},
		{"event without parent", goal.TypeEvent, []session.Change{session.SetPriority("low"), session.SetScheduled{Date: "2026-01-02", Clock: "09:00"}}, "exactly one parent"},
		{"event with project parent", goal.TypeEvent, []session.Change{session.SetPriority("low"), session.SetParents{2}, session.SetScheduled{Date: "2026-01-02", Clock: "09:00"}}, "must be a task or routine"},
		{"event with two parents", goal.TypeEvent, []session.Change{session.SetPriority("low"), session.SetParents{7, 9}}, "exactly one parent"},
		{"start after end", goal.TypeDirective, []session.Change{session.SetName("D"), session.SetPriority("low"), session.SetStart("2026-02-01"), session.SetEnd("2026-01-01")}, "start date must be before end date"},
		{"missing name", goal.TypeDirective, []session.Change{session.SetPriority("low")}, "name is required"},
		{"event without time", goal.TypeEvent, []session.Change{session.SetPriority("low"), session.SetParents{9}}, "scheduled time"},
		{"routine without start", goal.TypeRoutine, []session.Change{session.SetName("R"), session.SetFrequency("1D"), session.SetPriority("low"), session.SetParents{2}}, "needs a start date"},
		{"routine under task", goal.TypeRoutine, []session.Change{session.SetName("R"), session.SetFrequency("1D"), session.SetPriority("low"), session.SetParents{9}, session.SetStart("2026-01-01")}, "tasks cannot have children"},
		{"task under routine", goal.TypeTask, []session.Change{session.SetName("T"), session.SetPriority("low"), session.SetParents{7}}, "tasks cannot be children of routines"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, time.UTC)
			s := f.create(t, tt.typ, tt.changes...)

			out, err := f.o.Submit(context.Background(), s)
			require.Error(t, err)
			assert.True(t, IsValidation(err), err.Error())
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, StatusFailed, out.Status)

			assert.Empty(t, f.store.Mutations())
			assert.False(t, s.Lock().Busy())
			assert.False(t, s.Closed())
			assert.Contains(t, s.State().Error, tt.want)
		})
	}
}

func TestSubmit_EventParentCannotChange(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.store.Seed(goal.Goal{
		ID: 11, GoalType: goal.TypeTask, Name: "Review", Priority: goal.PriorityLow,
		StartTimestamp: at(1, 1, 0), EndTimestamp: at(1, 31, 23),
	})
	s := f.open(t, 10, session.ModeEdit)
	require.NoError(t, s.Apply(session.SetParents{11}))

	out, err := f.o.Submit(context.Background(), s)
	require.Error(t, err)
	assert.True(t, IsValidation(err), err.Error())
	assert.Contains(t, err.Error(), "parent cannot be changed")
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, f.store.Mutations())

	ev, ok := f.store.Goal(10)
	require.True(t, ok)
	assert.Equal(t, int64(9), ev.ParentID)
}

func TestSubmit_ViewModeIsReadOnly(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 2, session.ModeView)

	_, err := f.o.Submit(context.Background(), s)
	assert.True(t, IsValidation(err))
}

func TestSubmit_RejectedWhileRelationshipsLoading(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.store.FailNext("FetchRelationshipEdges", errors.New("timeout"))
	g, _ := f.store.Goal(2)

	s, err := f.o.Open(context.Background(), g, session.ModeEdit)
	require.Error(t, err)
	require.NotNil(t, s)
	assert.True(t, s.State().RelationshipsLoading)

	_, err = f.o.Submit(context.Background(), s)
	assert.True(t, IsRelationshipsLoading(err))
	assert.False(t, s.Lock().Busy())
	assert.Empty(t, f.store.Mutations())

	require.NoError(t, f.o.LoadRelationships(context.Background(), s))
	out, err := f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
}

func TestSubmit_BusyIsNoop(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 2, session.ModeEdit)
	require.True(t, s.Lock().Begin("delete"))

	out, err := f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, StatusBusy, out.Status)
	assert.Empty(t, f.store.Mutations())

	name, held := s.Lock().Current()
	assert.True(t, held)
	assert.Equal(t, "delete", name)
}

func TestSubmit_RelationshipFailureRetriesOnlyFailedDelta(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 2, session.ModeEdit)
	require.NoError(t, s.Apply(session.SetParents{3}))
	f.store.FailNext("CreateRelationship", errors.New("connection reset"))

	out, err := f.o.Submit(context.Background(), s)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, genericFailure, s.State().Error)
	assert.Equal(t, []int64{3}, s.State().Parents, "desired selection is kept")
	assert.False(t, s.Closed())
	assert.Equal(t, []string{"UpdateGoal", "DeleteRelationship", "CreateRelationship"}, methods(f.store.Mutations()))

	assert.False(t, s.Edges().Loaded(), "a failed edge write drops the cached graph")

	f.store.Reset()
	out, err = f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	assert.Contains(t, methods(f.store.Calls()), "FetchRelationshipEdges")
	assert.Equal(t, []string{"UpdateGoal", "CreateRelationship"}, methods(f.store.Mutations()))

	assert.True(t, f.store.HasEdge(goal.ChildEdge(3, 2)))
	assert.False(t, f.store.HasEdge(goal.ChildEdge(1, 2)))
	assert.True(t, f.store.HasEdge(goal.ChildEdge(2, 7)))
}

func TestSubmit_ConflictRetryWithOverride(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.create(t, goal.TypeEvent,
		session.SetParents{9},
		session.SetPriority("low"),
		session.SetScheduled{Date: "2026-02-10", Clock: "09:00"},
	)
	suggested := time.Date(2026, 2, 10, 23, 59, 59, 0, time.UTC)
	f.store.FailNext("CreateEvent", &goal.ConflictError{
		Code:    goal.ConflictTaskDateRange,
		Message: "Event is scheduled after the task ends",
		Violation: goal.DateRangeViolation{
			Type:         "after_end",
			TaskID:       9,
			SuggestedEnd: &suggested,
		},
	})

	out, err := f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, PromptConflict, out.Prompt.Kind)
	assert.Equal(t, int64(9), out.Prompt.Violation.TaskID)
	assert.Equal(t, "Event is scheduled after the task ends", s.State().Error)
	assert.True(t, s.Lock().Busy())

	out, err = f.o.RetryWithOverride(context.Background(), s, out.Prompt.Token)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)

	assert.Equal(t, []string{"CreateEvent", "UpdateGoal", "CreateEvent"}, methods(f.store.Mutations()))
	task, _ := f.store.Goal(9)
	assert.Equal(t, suggested, *task.EndTimestamp)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *task.StartTimestamp)
}

func TestSubmit_CreateAnother(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.create(t, goal.TypeProject, session.SetName("Reading"), session.SetPriority("low"), session.SetParents{1})

	out, err := f.o.Submit(context.Background(), s, CreateAnother())
	require.NoError(t, err)
	require.NotNil(t, out.Next)

	next := out.Next.State()
	assert.Equal(t, session.ModeCreate, next.Mode)
	assert.Equal(t, goal.TypeProject, next.Draft.GoalType)
	assert.Equal(t, []int64{1}, next.Parents)
	assert.True(t, s.Closed())

	active, ok := f.o.Sessions().Active()
	require.True(t, ok)
	assert.Equal(t, out.Next.ID(), active.ID())
}

func TestDelete_PlainGoal(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 2, session.ModeEdit)

	out, err := f.o.Delete(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	assert.Equal(t, []string{"DeleteGoal"}, methods(f.store.Mutations()))
	assert.True(t, s.Closed())
	assert.Equal(t, []NotificationKind{NotifyGoalDeleted}, f.kinds())
}

func TestDelete_TaskEventIsImmediate(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 10, session.ModeEdit)

	_, err := f.o.Delete(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "DeleteEvent(10, future=false)", f.store.Mutations()[0].String())
}

func TestDelete_OccurrenceScopes(t *testing.T) {
	tests := []struct {
		scope scope.Scope
		want  string
	}{
		{scope.Single, "DeleteEvent(8, future=false)"},
		{scope.Future, "DeleteEvent(8, future=true)"},
		{scope.All, "DeleteGoal(7)"},
	}
	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			f := newFixture(t, time.UTC)
			s := f.open(t, 8, session.ModeEdit)

			out, err := f.o.Delete(context.Background(), s)
			require.NoError(t, err)
			require.Equal(t, PromptDeleteScope, out.Prompt.Kind)
			future, _ := scope.Lookup(out.Prompt.Options, scope.Future)
			assert.NotEmpty(t, future.Warning)

			out, err = f.o.ConfirmDelete(context.Background(), s, out.Prompt.Token, tt.scope)
			require.NoError(t, err)
			assert.Equal(t, StatusDone, out.Status)

			muts := f.store.Mutations()
			require.Len(t, muts, 1)
			assert.Equal(t, tt.want, muts[0].String())
			assert.True(t, s.Closed())
		})
	}
}

func TestDelete_RoutineAsksFirst(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 7, session.ModeEdit)

	out, err := f.o.Delete(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, PromptDeleteRoutine, out.Prompt.Kind)
	assert.Contains(t, out.Prompt.Message, "past and future occurrences")
	assert.Empty(t, f.store.Mutations())

	_, err = f.o.ConfirmDelete(context.Background(), s, out.Prompt.Token, scope.All)
	require.NoError(t, err)
	assert.Equal(t, []string{"DeleteGoal"}, methods(f.store.Mutations()))
}

func TestDelete_AllRecoversMissingParentByRefetch(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.store.FetchGoalsHook = func(n int, goals []goal.Goal) []goal.Goal {
		if n == 1 {
			return stripParent(goals, 8)
		}
		return goals
	}
	ev, _ := f.store.Goal(8)
	ev.ParentID = 0
	s, err := f.o.Open(context.Background(), ev, session.ModeEdit)
	require.NoError(t, err)
	f.store.Reset()

	out, err := f.o.Delete(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, PromptDeleteScope, out.Prompt.Kind)

	_, err = f.o.ConfirmDelete(context.Background(), s, out.Prompt.Token, scope.All)
	require.NoError(t, err)
	assert.Equal(t, []string{"FetchAllGoals", "DeleteGoal"}, methods(f.store.Calls()))
	assert.Equal(t, "7", f.store.CallsTo("DeleteGoal")[0].Args)
}

func TestDelete_AllAbortsWhenParentUnrecoverable(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.store.FetchGoalsHook = func(n int, goals []goal.Goal) []goal.Goal {
		return stripParent(goals, 8)
	}
	ev, _ := f.store.Goal(8)
	ev.ParentID = 0
	s, err := f.o.Open(context.Background(), ev, session.ModeEdit)
	require.NoError(t, err)
	f.store.Reset()

	out, err := f.o.Delete(context.Background(), s)
	require.NoError(t, err)

	out, err = f.o.ConfirmDelete(context.Background(), s, out.Prompt.Token, scope.All)
	require.Error(t, err)
	assert.True(t, IsParentUnresolved(err))
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, f.store.Mutations(), "no delete is attempted without a routine id")
	assert.False(t, s.Lock().Busy())
	assert.False(t, s.Closed())
	assert.NotEmpty(t, s.State().Error)
}

func stripParent(goals []goal.Goal, id int64) []goal.Goal {
	for i := range goals {
		if goals[i].ID == id {
			goals[i].ParentID = 0
		}
	}
	return goals
}

func TestToggleComplete_PromptsForParentTask(t *testing.T) {
	f := newFixture(t, time.UTC)
	f.store.Completions[10] = goal.CompletionResult{ShouldPromptParentCompletion: true, ParentTaskID: 9, ParentTaskName: "Write report"}
	s := f.open(t, 10, session.ModeEdit)

	out, err := f.o.ToggleComplete(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, PromptParentCompletion, out.Prompt.Kind)
	assert.Contains(t, out.Prompt.Message, "Write report")
	assert.True(t, out.Goal.Completed)

	out, err = f.o.ConfirmParentCompletion(context.Background(), s, out.Prompt.Token, true)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, out.Status)
	assert.Equal(t, []string{"CompleteEvent", "CompleteGoal"}, methods(f.store.Mutations()))
	assert.Equal(t, "9, true", f.store.CallsTo("CompleteGoal")[0].Args)
	assert.False(t, s.Lock().Busy())
}

func TestToggleComplete_Goal(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 9, session.ModeEdit)

	out, err := f.o.ToggleComplete(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, out.Goal.Completed)

	out, err = f.o.ToggleComplete(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, out.Goal.Completed)
	assert.Equal(t, []string{"9, true", "9, false"}, []string{
		f.store.CallsTo("CompleteGoal")[0].Args,
		f.store.CallsTo("CompleteGoal")[1].Args,
	})
}

func TestDuplicate_KeepsParentLinks(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 2, session.ModeEdit)

	out, err := f.o.Duplicate(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "Fitness (Copy)", out.Goal.Name)
	assert.Equal(t, int64(100), out.Goal.ID)
	assert.Equal(t, []string{"CreateGoal", "CreateRelationship"}, methods(f.store.Mutations()))
	assert.Equal(t, "1, 100, child", f.store.CallsTo("CreateRelationship")[0].Args)
	assert.False(t, s.Closed())
	assert.False(t, s.Lock().Busy())
}

func TestDuplicate_Event(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 10, session.ModeEdit)

	out, err := f.o.Duplicate(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "Write report (Copy)", out.Goal.Name)
	assert.Equal(t, "parent=task:9 at=2026-01-05T10:00:00Z duration=120 priority=high", f.store.CallsTo("CreateEvent")[0].Args)
}

func TestContinuations_StaleAndMismatched(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 7, session.ModeEdit)
	require.NoError(t, s.Apply(session.SetFrequency("2D")))

	out, err := f.o.Submit(context.Background(), s)
	require.NoError(t, err)
	token := out.Prompt.Token

	_, err = f.o.ConfirmScope(context.Background(), s, token, scope.Single)
	assert.True(t, IsValidation(err), "wrong continuation for the prompt")
	_, err = f.o.ConfirmRecompute(context.Background(), s, "prompt-99", true)
	assert.True(t, IsValidation(err), "wrong token")

	assert.ErrorIs(t, f.o.Close(s), session.ErrBusy, "closing is refused while the prompt holds the lock")

	_, err = f.o.CancelPrompt(s, token)
	require.NoError(t, err)
	require.NoError(t, f.o.Close(s))

	_, err = f.o.ConfirmRecompute(context.Background(), s, token, true)
	assert.True(t, IsSessionClosed(err))
	_, err = f.o.Submit(context.Background(), s)
	assert.True(t, IsSessionClosed(err))
	assert.Empty(t, f.store.Mutations())
}

func TestSubmit_RejectsHierarchyCycle(t *testing.T) {
	f := newFixture(t, time.UTC)
	s := f.open(t, 2, session.ModeEdit)
	require.NoError(t, s.Apply(session.SetChildren{7, 9, 1}))

	out, err := f.o.Submit(context.Background(), s)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "2 cannot be a parent of 1")
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, f.store.Mutations())
}
