package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/scope"
	"github.com/roach88/goalctl/internal/session"
	"github.com/roach88/goalctl/internal/store"
	"github.com/roach88/goalctl/internal/testutil"
	"github.com/roach88/goalctl/internal/timefmt"
)

// newSQLiteOrchestrator wires an orchestrator to a real store holding a daily
// 09:00 routine for Jan 10 to Jan 15 and returns the routine.
func newSQLiteOrchestrator(t *testing.T) (*Orchestrator, *store.Store, goal.Goal) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "goals.db"),
		store.WithClock(testutil.NewFixedClock(time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)).Now),
		store.WithInstanceIDs(testutil.SequentialIDs("batch")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	routine, err := st.CreateGoal(context.Background(), goal.Goal{
		GoalType:       goal.TypeRoutine,
		Name:           "Stretch",
		Priority:       goal.PriorityMedium,
		Frequency:      "1D",
		StartTimestamp: at(1, 10, 0),
		EndTimestamp:   goal.TimePtr(time.Date(2026, 1, 15, 23, 59, 0, 0, time.UTC)),
		RoutineTime:    goal.TimePtr(time.Date(1970, 1, 1, 9, 0, 0, 0, time.UTC)),
		Duration:       30,
	})
	require.NoError(t, err)

	o := New(st,
		WithTokenGenerator(testutil.NewSequentialTokens("prompt")),
		WithSessionOptions(
			session.WithIDGenerator(testutil.SequentialIDs("session")),
			session.WithNormalizer(timefmt.New(time.UTC)),
		),
	)
	return o, st, routine
}

func TestSQLite_OccurrenceTimeAndDurationFutureReanchorsRoutine(t *testing.T) {
	ctx := context.Background()
	o, st, routine := newSQLiteOrchestrator(t)

	occ, err := st.FetchOccurrences(ctx, routine.ID)
	require.NoError(t, err)
	require.Len(t, occ, 6)

	s, err := o.Open(ctx, occ[2], session.ModeEdit)
	require.NoError(t, err)
	require.NoError(t, s.Apply(session.SetScheduled{Date: "2026-01-12", Clock: "08:30"}, session.SetDuration(45)))

	out, err := o.Submit(ctx, s)
	require.NoError(t, err)
	require.Equal(t, StatusPrompt, out.Status)
	require.Equal(t, PromptEditScope, out.Prompt.Kind)

	out, err = o.ConfirmScope(ctx, s, out.Prompt.Token, scope.Future)
	require.NoError(t, err)
	require.Equal(t, StatusDone, out.Status)

	stored, err := st.GetGoal(ctx, routine.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RoutineTime)
	assert.True(t, stored.RoutineTime.Equal(time.Date(1970, 1, 1, 8, 30, 0, 0, time.UTC)),
		"routine_time is %s", stored.RoutineTime.UTC().Format("15:04"))
	assert.Equal(t, 45, stored.Duration)
	assert.Equal(t, "Stretch", stored.Name)

	occ, err = st.FetchOccurrences(ctx, routine.ID)
	require.NoError(t, err)
	for _, ev := range occ[2:] {
		assert.Equal(t, "08:30", ev.ScheduledTimestamp.UTC().Format("15:04"), "occurrence %d", ev.ID)
		assert.Equal(t, 45, ev.Duration, "occurrence %d", ev.ID)
	}
	assert.Equal(t, "09:00", occ[0].ScheduledTimestamp.UTC().Format("15:04"))
}
