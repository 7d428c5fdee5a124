package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/testutil"
)

func TestCreateGoal_StoresUTCAndCanonicalFrequency(t *testing.T) {
	s := createClockedStore(t, testutil.NewFixedClock(testNow))
	ctx := context.Background()

	r := mustCreate(t, s, goal.Goal{
		GoalType:       goal.TypeRoutine,
		Name:           "Review",
		Priority:       goal.PriorityLow,
		Frequency:      " 1W:3,1,3",
		StartTimestamp: utc(1, 5, 0, 0),
		EndTimestamp:   utc(1, 6, 0, 0),
		RoutineTime:    clockTime(18, 0),
	})
	assert.NotZero(t, r.ID)
	assert.Equal(t, goal.TimezoneUTC, r.TimezoneMode)
	assert.Equal(t, "1W:1,3", r.Frequency)

	got, err := s.GetGoal(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestCreateGoal_RejectsEvents(t *testing.T) {
	s := createTestStore(t)
	_, err := s.CreateGoal(context.Background(), goal.Goal{GoalType: goal.TypeEvent, Name: "x"})
	assert.Error(t, err)

	_, err = s.CreateGoal(context.Background(), goal.Goal{GoalType: "chore", Name: "x"})
	assert.Error(t, err)
}

func TestCreateGoal_RoutineGeneratesOccurrences(t *testing.T) {
	s := createClockedStore(t, testutil.NewFixedClock(testNow))

	r := createDailyRoutine(t, s)

	assert.Equal(t, []string{
		"01-10 09:00", "01-11 09:00", "01-12 09:00",
		"01-13 09:00", "01-14 09:00", "01-15 09:00",
	}, occurrenceTimes(t, s, r.ID))

	occ, err := s.FetchOccurrences(context.Background(), r.ID)
	require.NoError(t, err)
	for _, o := range occ {
		assert.Equal(t, goal.TypeEvent, o.GoalType)
		assert.Equal(t, goal.TypeRoutine, o.ParentType)
		assert.Equal(t, r.ID, o.ParentID)
		assert.Equal(t, "Stretch", o.Name)
		assert.Equal(t, 30, o.Duration)
		assert.Equal(t, "batch-1", o.RoutineInstanceID)
	}
}

func TestUpdateGoal(t *testing.T) {
	s := createClockedStore(t, testutil.NewFixedClock(testNow))
	ctx := context.Background()
	task := createTask(t, s)

	task.Name = "Write final report"
	task.GoalType = goal.TypeProject
	updated, err := s.UpdateGoal(ctx, task.ID, task)
	require.NoError(t, err)
	assert.Equal(t, "Write final report", updated.Name)
	assert.Equal(t, goal.TypeTask, updated.GoalType, "type is not editable")

	_, err = s.UpdateGoal(ctx, 999, task)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteGoal_CascadesEventsAndEdges(t *testing.T) {
	s := createClockedStore(t, testutil.NewFixedClock(testNow))
	ctx := context.Background()

	project := mustCreate(t, s, goal.Goal{GoalType: goal.TypeProject, Name: "Q1", Priority: goal.PriorityMedium})
	task := createTask(t, s)
	require.NoError(t, s.CreateRelationship(ctx, project.ID, task.ID, goal.EdgeChild))
	_, err := s.CreateEvent(ctx, goal.EventRequest{
		ParentID:      task.ID,
		ParentType:    goal.TypeTask,
		ScheduledTime: *utc(1, 6, 10, 0),
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteGoal(ctx, task.ID))

	all, err := s.FetchAllGoals(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, project.ID, all[0].ID)

	edges, err := s.FetchRelationshipEdges(ctx)
	require.NoError(t, err)
	assert.Empty(t, edges)

	var rows int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM goals WHERE parent_id = ?`, task.ID).Scan(&rows))
	assert.Zero(t, rows, "events are removed, not soft-deleted")

	assert.ErrorIs(t, s.DeleteGoal(ctx, task.ID), ErrNotFound)
}

func TestCompleteGoal_TaskSyncsEvents(t *testing.T) {
	clock := testutil.NewFixedClock(testNow)
	s := createClockedStore(t, clock)
	ctx := context.Background()

	task := createTask(t, s)
	for _, day := range []int{6, 8} {
		_, err := s.CreateEvent(ctx, goal.EventRequest{
			ParentID:      task.ID,
			ParentType:    goal.TypeTask,
			ScheduledTime: *utc(1, day, 10, 0),
		})
		require.NoError(t, err)
	}

	done, err := s.CompleteGoal(ctx, task.ID, true)
	require.NoError(t, err)
	assert.True(t, done)

	te, err := s.FetchGoalEventsAndTotalDuration(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, te.Events, 2)
	for _, e := range te.Events {
		assert.True(t, e.Completed)
		require.NotNil(t, e.CompletionDate)
		assert.True(t, e.CompletionDate.Equal(testNow))
	}

	done, err = s.CompleteGoal(ctx, task.ID, false)
	require.NoError(t, err)
	assert.False(t, done)

	got, err := s.GetGoal(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.Nil(t, got.CompletionDate)

	te, err = s.FetchGoalEventsAndTotalDuration(ctx, task.ID)
	require.NoError(t, err)
	for _, e := range te.Events {
		assert.False(t, e.Completed)
	}
}

func TestCompleteGoal_DoesNotTouchRoutineOccurrences(t *testing.T) {
	s := createClockedStore(t, testutil.NewFixedClock(testNow))
	ctx := context.Background()
	r := createDailyRoutine(t, s)

	_, err := s.CompleteGoal(ctx, r.ID, true)
	require.NoError(t, err)

	occ, err := s.FetchOccurrences(ctx, r.ID)
	require.NoError(t, err)
	for _, o := range occ {
		assert.False(t, o.Completed)
	}
}

func TestFetchGoalsByType(t *testing.T) {
	s := createClockedStore(t, testutil.NewFixedClock(testNow))
	ctx := context.Background()
	createTask(t, s)
	r := createDailyRoutine(t, s)

	routines, err := s.FetchGoalsByType(ctx, goal.TypeRoutine)
	require.NoError(t, err)
	require.Len(t, routines, 1)
	assert.Equal(t, r.ID, routines[0].ID)

	none, err := s.FetchGoalsByType(ctx, goal.TypeAchievement)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
