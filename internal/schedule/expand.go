package schedule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/roach88/goalctl/internal/goal"
)

const day = 24 * time.Hour

var weekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// Rule builds the recurrence rule of a routine. Occurrences start on the
// routine's start date at its time of day (UTC) and stop at its end.
func Rule(routine goal.Goal) (*rrule.RRule, error) {
	if routine.StartTimestamp == nil {
		return nil, fmt.Errorf("routine %d has no start", routine.ID)
	}
	f, err := goal.ParseFrequency(routine.Frequency)
	if err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Interval: int(f.Interval),
		Dtstart:  FirstOccurrence(routine),
	}
	switch f.Unit {
	case goal.UnitDay:
		opt.Freq = rrule.DAILY
	case goal.UnitWeek:
		opt.Freq = rrule.WEEKLY
		for _, d := range f.Days {
			opt.Byweekday = append(opt.Byweekday, weekdays[d])
		}
	case goal.UnitMonth:
		opt.Freq = rrule.MONTHLY
	case goal.UnitYear:
		opt.Freq = rrule.YEARLY
	}
	if routine.EndTimestamp != nil {
		opt.Until = routine.EndTimestamp.UTC()
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("build rule for routine %d: %w", routine.ID, err)
	}
	return r, nil
}

// FirstOccurrence is the start date of routine at its time of day.
//
// The time of day comes from routine_time modulo one day. Without a
// routine_time, the start's own time of day is used. All-day routines start
// at UTC midnight.
func FirstOccurrence(routine goal.Goal) time.Time {
	start := routine.StartTimestamp.UTC()
	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case routine.Duration == goal.AllDayMinutes:
		return midnight
	case routine.RoutineTime != nil:
		return midnight.Add(TimeOfDay(*routine.RoutineTime))
	default:
		return start
	}
}

// TimeOfDay returns the offset of t from UTC midnight.
func TimeOfDay(t time.Time) time.Duration {
	ms := t.UnixMilli() % day.Milliseconds()
	if ms < 0 {
		ms += day.Milliseconds()
	}
	return time.Duration(ms) * time.Millisecond
}

// SetTimeOfDay moves t to the given time of day on the same UTC date.
func SetTimeOfDay(t time.Time, tod time.Duration) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(tod)
}

// Expand returns the routine's occurrence times in [from, until], skipping
// any time listed in existing.
func Expand(routine goal.Goal, from, until time.Time, existing []time.Time) ([]time.Time, error) {
	r, err := Rule(routine)
	if err != nil {
		return nil, err
	}
	if until.Before(from) {
		return nil, nil
	}

	var set rrule.Set
	set.RRule(r)
	for _, t := range existing {
		set.ExDate(t.UTC())
	}
	return set.Between(from.UTC(), until.UTC(), true), nil
}
