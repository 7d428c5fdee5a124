package goal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoal_IsRoutineOccurrence(t *testing.T) {
	assert.True(t, Goal{GoalType: TypeEvent, ParentType: TypeRoutine}.IsRoutineOccurrence())
	assert.False(t, Goal{GoalType: TypeEvent, ParentType: TypeTask}.IsRoutineOccurrence())
	assert.False(t, Goal{GoalType: TypeRoutine}.IsRoutineOccurrence())
}

func TestGoal_CloneDoesNotShareTimestamps(t *testing.T) {
	ts := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	g := Goal{ScheduledTimestamp: &ts}

	c := g.Clone()
	*c.ScheduledTimestamp = ts.Add(time.Hour)

	assert.Equal(t, ts, *g.ScheduledTimestamp)
}

func TestMerge_ServerWinsWhenPresent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	local := Goal{
		GoalType:       TypeTask,
		Name:           "local",
		Description:    "keep me",
		Priority:       PriorityHigh,
		StartTimestamp: &start,
	}
	server := Goal{ID: 42, GoalType: TypeTask, Name: "server", Completed: true}

	merged := Merge(local, server)
	assert.Equal(t, int64(42), merged.ID)
	assert.Equal(t, "server", merged.Name)
	assert.Equal(t, "keep me", merged.Description)
	assert.Equal(t, PriorityHigh, merged.Priority)
	assert.True(t, merged.Completed)
	require.NotNil(t, merged.StartTimestamp)
	assert.True(t, start.Equal(*merged.StartTimestamp))
}

func TestSameInstant(t *testing.T) {
	a := time.Date(2026, 1, 1, 0, 0, 0, 100, time.UTC)
	b := time.Date(2026, 1, 1, 0, 0, 0, 900, time.UTC)
	c := a.Add(time.Millisecond)

	assert.True(t, SameInstant(nil, nil))
	assert.True(t, SameInstant(&a, &b))
	assert.False(t, SameInstant(&a, &c))
	assert.False(t, SameInstant(&a, nil))
}

func TestEdge_Validate(t *testing.T) {
	assert.NoError(t, ChildEdge(1, 2).Validate())
	assert.Error(t, ChildEdge(1, 1).Validate())
	assert.Error(t, ChildEdge(0, 2).Validate())
	assert.Error(t, Edge{From: 1, To: 2, Kind: "queue"}.Validate())
}

func TestConflictError_As(t *testing.T) {
	err := &ConflictError{Code: ConflictTaskDateRange, Message: "event after task end"}
	wrapped := wrap(err)

	ce, ok := AsConflict(wrapped)
	require.True(t, ok)
	assert.Equal(t, ConflictTaskDateRange, ce.Code)
}

func wrap(err error) error {
	return &wrappedErr{err}
}

type wrappedErr struct{ err error }

func (w *wrappedErr) Error() string { return "create event: " + w.err.Error() }
func (w *wrappedErr) Unwrap() error { return w.err }
