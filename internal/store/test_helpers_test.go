package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/testutil"
)

// testNow is the default wall clock for store tests.
var testNow = time.Date(2026, 1, 9, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createClockedStore creates a store reading clock, with sequential
// instance ids.
func createClockedStore(t *testing.T, clock *testutil.FixedClock, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{
		WithClock(clock.Now),
		WithInstanceIDs(testutil.SequentialIDs("batch")),
	}, opts...)
	return createTestStore(t, opts...)
}

func utc(month time.Month, day, hour, min int) *time.Time {
	return goal.TimePtr(time.Date(2026, month, day, hour, min, 0, 0, time.UTC))
}

func clockTime(hour, min int) *time.Time {
	return goal.TimePtr(time.Date(1970, 1, 1, hour, min, 0, 0, time.UTC))
}

func mustCreate(t *testing.T, s *Store, g goal.Goal) goal.Goal {
	t.Helper()
	created, err := s.CreateGoal(context.Background(), g)
	require.NoError(t, err)
	return created
}

// createTask creates a task running from Jan 5 to the end of Jan 20.
func createTask(t *testing.T, s *Store) goal.Goal {
	t.Helper()
	return mustCreate(t, s, goal.Goal{
		GoalType:       goal.TypeTask,
		Name:           "Write report",
		Description:    "Q1 numbers",
		Priority:       goal.PriorityHigh,
		StartTimestamp: utc(1, 5, 0, 0),
		EndTimestamp:   utc(1, 20, 23, 59),
	})
}

// createDailyRoutine creates a daily 09:00 routine for Jan 10 to Jan 15.
func createDailyRoutine(t *testing.T, s *Store) goal.Goal {
	t.Helper()
	return mustCreate(t, s, goal.Goal{
		GoalType:       goal.TypeRoutine,
		Name:           "Stretch",
		Priority:       goal.PriorityMedium,
		Frequency:      "1D",
		StartTimestamp: utc(1, 10, 0, 0),
		EndTimestamp:   utc(1, 15, 23, 59),
		RoutineTime:    clockTime(9, 0),
		Duration:       30,
	})
}

func occurrenceTimes(t *testing.T, s *Store, routineID int64) []string {
	t.Helper()
	occ, err := s.FetchOccurrences(context.Background(), routineID)
	require.NoError(t, err)
	out := make([]string, 0, len(occ))
	for _, o := range occ {
		out = append(out, o.ScheduledTimestamp.Format("01-02 15:04"))
	}
	return out
}
