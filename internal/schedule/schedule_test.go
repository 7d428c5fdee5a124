package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/goalctl/internal/goal"
)

func jan(d, h int) *time.Time {
	return goal.TimePtr(time.Date(2026, 1, d, h, 0, 0, 0, time.UTC))
}

func routine() goal.Goal {
	return goal.Goal{
		ID:             7,
		GoalType:       goal.TypeRoutine,
		Name:           "Stretch",
		Frequency:      "1D",
		StartTimestamp: jan(1, 0),
		EndTimestamp:   goal.TimePtr(time.Date(2026, 1, 31, 23, 59, 59, 999e6, time.UTC)),
		RoutineTime:    goal.TimePtr(time.Date(1970, 1, 1, 9, 0, 0, 0, time.UTC)),
		Duration:       30,
	}
}

func TestBaseline_StableAcrossCosmeticEdits(t *testing.T) {
	server := routine()
	b := Capture(server)

	working := server.Clone()
	for _, name := range []string{"S", "St", "Stretch more"} {
		working.Name = name
		working.Description = name + " daily"
		working.Priority = goal.PriorityHigh
		assert.Empty(t, b.Diff(working))
	}
}

func TestBaseline_NotAffectedByLaterServerMutation(t *testing.T) {
	server := routine()
	b := Capture(server)

	*server.StartTimestamp = server.StartTimestamp.Add(48 * time.Hour)

	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *b.Start)
}

func TestBaseline_DetectsScheduleFields(t *testing.T) {
	tests := []struct {
		name string
		edit func(g *goal.Goal)
		want []Field
	}{
		{"frequency", func(g *goal.Goal) { g.Frequency = "2D" }, []Field{FieldFrequency}},
		{"start", func(g *goal.Goal) { g.StartTimestamp = jan(2, 0) }, []Field{FieldStart}},
		{"end", func(g *goal.Goal) { g.EndTimestamp = jan(15, 0) }, []Field{FieldEnd}},
		{"end cleared", func(g *goal.Goal) { g.EndTimestamp = nil }, []Field{FieldEnd}},
		{"all three", func(g *goal.Goal) {
			g.Frequency = "1W:1"
			g.StartTimestamp = nil
			g.EndTimestamp = nil
		}, []Field{FieldFrequency, FieldStart, FieldEnd}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Capture(routine())
			working := routine()
			tt.edit(&working)
			assert.Equal(t, tt.want, b.Diff(working))
		})
	}
}

func TestBaseline_NormalizesFrequencyAndZones(t *testing.T) {
	server := routine()
	server.Frequency = ""
	b := Capture(server)

	working := server.Clone()
	working.Frequency = "1D"
	working.StartTimestamp = goal.TimePtr(server.StartTimestamp.In(time.FixedZone("X", -5*3600)))
	assert.Empty(t, b.Diff(working))

	working.Frequency = "1W:3,1,1"
	server.Frequency = "1W:1,3"
	assert.Empty(t, Capture(server).Diff(working))
}

func TestConfirmationText(t *testing.T) {
	text := ConfirmationText(routine(), []Field{FieldEnd})
	assert.Contains(t, text, "delete all future occurrences")
	assert.Contains(t, text, "including ones already marked complete")
	assert.Contains(t, text, "Past occurrences are not affected")
	assert.Contains(t, text, "end_timestamp")
}

func TestExpand_DailyTruncatedRange(t *testing.T) {
	r := routine()
	r.EndTimestamp = goal.TimePtr(time.Date(2026, 1, 15, 23, 59, 59, 999e6, time.UTC))

	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	times, err := Expand(r, now, now.AddDate(0, 0, 90), nil)
	require.NoError(t, err)

	require.Len(t, times, 6)
	assert.Equal(t, time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC), times[0])
	assert.Equal(t, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC), times[5])
}

func TestExpand_WeeklyDays(t *testing.T) {
	r := routine()
	r.Frequency = "1W:1,3"
	r.StartTimestamp = jan(5, 0) // Monday
	r.EndTimestamp = jan(18, 23)

	times, err := Expand(r, *r.StartTimestamp, *r.EndTimestamp, nil)
	require.NoError(t, err)

	var days []int
	for _, ts := range times {
		days = append(days, ts.Day())
		assert.Equal(t, 9, ts.Hour())
	}
	assert.Equal(t, []int{5, 7, 12, 14}, days)
}

func TestExpand_SkipsExisting(t *testing.T) {
	r := routine()
	r.EndTimestamp = jan(3, 23)

	existing := []time.Time{time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)}
	times, err := Expand(r, *r.StartTimestamp, *r.EndTimestamp, existing)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC),
	}, times)
}

func TestExpand_AllDayStartsAtMidnight(t *testing.T) {
	r := routine()
	r.Duration = goal.AllDayMinutes
	r.EndTimestamp = jan(2, 23)

	times, err := Expand(r, *r.StartTimestamp, *r.EndTimestamp, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}, times)
}

func TestExpand_Errors(t *testing.T) {
	r := routine()
	r.StartTimestamp = nil
	_, err := Expand(r, time.Now(), time.Now(), nil)
	assert.Error(t, err)

	r = routine()
	r.Frequency = "0D"
	_, err = Expand(r, time.Now(), time.Now(), nil)
	assert.Error(t, err)
}

func TestTimeOfDay(t *testing.T) {
	assert.Equal(t, 9*time.Hour+30*time.Minute, TimeOfDay(time.Date(1970, 1, 1, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, 23*time.Hour, TimeOfDay(time.Date(1969, 12, 31, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 7*time.Hour, TimeOfDay(time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)))

	moved := SetTimeOfDay(time.Date(2026, 1, 4, 9, 0, 0, 0, time.UTC), 18*time.Hour)
	assert.Equal(t, time.Date(2026, 1, 4, 18, 0, 0, 0, time.UTC), moved)
}
