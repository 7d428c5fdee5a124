// Package timefmt converts between persisted UTC instants and the local
// wall-clock strings users see and type.
//
// Every instant the store sees is UTC. Every string a user sees or edits is in
// the viewer's location. All-day items are the exception: their scheduled time
// is pinned to UTC midnight of the chosen calendar date, so they are rendered
// from the UTC date and never shift days when viewed from another zone.
package timefmt

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/goalctl/internal/goal"
)

// Granularity selects which part of an instant is rendered or parsed.
type Granularity string

const (
	Date     Granularity = "date"
	Time     Granularity = "time"
	DateTime Granularity = "datetime"
	// EndDate renders like Date but parses to the last millisecond of the
	// named day, so a single-day range round-trips with start and end on the
	// same date.
	EndDate Granularity = "end-date"
)

const (
	editableDate     = "2006-01-02"
	editableTime     = "15:04"
	editableDateTime = "2006-01-02T15:04"

	displayDate     = "Mon, Jan 2, 2006"
	displayTime     = "3:04 PM"
	displayDateTime = "Mon, Jan 2, 2006 3:04 PM"
)

// Normalizer renders and parses timestamps for one viewer location.
type Normalizer struct {
	loc *time.Location
}

// New creates a Normalizer for loc. A nil loc means time.Local.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{loc: loc}
}

// Location returns the viewer location.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// ToDisplay renders ts as a human-readable string in the viewer's zone.
// A nil ts renders as the empty string.
func (n *Normalizer) ToDisplay(ts *time.Time, g Granularity) string {
	if ts == nil {
		return ""
	}
	local := ts.In(n.loc)
	switch g {
	case Date, EndDate:
		return local.Format(displayDate)
	case Time:
		return local.Format(displayTime)
	default:
		return local.Format(displayDateTime)
	}
}

// ToEditable renders ts as a round-trippable input string in local time.
// A nil ts yields the empty string, never an "invalid date" placeholder.
func (n *Normalizer) ToEditable(ts *time.Time, g Granularity) string {
	if ts == nil {
		return ""
	}
	local := ts.In(n.loc)
	switch g {
	case Date, EndDate:
		return local.Format(editableDate)
	case Time:
		return local.Format(editableTime)
	default:
		return local.Format(editableDateTime)
	}
}

// FromEditable parses a local input string back into a UTC instant.
// The empty string parses to nil.
//
// Time granularity is anchored on 1970-01-01 local, which makes the result
// usable as a canonical time-of-day (routine_time).
func (n *Normalizer) FromEditable(s string, g Granularity) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var (
		t   time.Time
		err error
	)
	switch g {
	case Date:
		t, err = time.ParseInLocation(editableDate, s, n.loc)
	case EndDate:
		t, err = time.ParseInLocation(editableDate, s, n.loc)
		if err == nil {
			t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
	case Time:
		var clock time.Time
		clock, err = time.Parse(editableTime, s)
		if err == nil {
			t = time.Date(1970, 1, 1, clock.Hour(), clock.Minute(), 0, 0, n.loc)
		}
	case DateTime:
		t, err = time.ParseInLocation(editableDateTime, s, n.loc)
	default:
		return nil, fmt.Errorf("unknown granularity %q", g)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s %q: %w", g, s, err)
	}

	utc := t.UTC()
	return &utc, nil
}

// AllDayFromEditable parses a date string to UTC midnight of that date,
// independent of the viewer's offset.
func AllDayFromEditable(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(editableDate, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse all-day date %q: %w", s, err)
	}
	return &t, nil
}

// PinToUTCMidnight returns UTC midnight of ts's calendar date as seen in loc.
func PinToUTCMidnight(ts time.Time, loc *time.Location) time.Time {
	local := ts.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// EditableScheduled renders g's scheduled time as separate date and time
// inputs. All-day goals render the UTC date and an empty time, since
// hour/minute editing is suppressed for them.
func (n *Normalizer) EditableScheduled(g goal.Goal) (date, clock string) {
	if g.ScheduledTimestamp == nil {
		return "", ""
	}
	if g.IsAllDay() {
		return g.ScheduledTimestamp.UTC().Format(editableDate), ""
	}
	return n.ToEditable(g.ScheduledTimestamp, Date), n.ToEditable(g.ScheduledTimestamp, Time)
}

// DisplayScheduled renders g's scheduled time for humans.
func (n *Normalizer) DisplayScheduled(g goal.Goal) string {
	if g.ScheduledTimestamp == nil {
		return ""
	}
	if g.IsAllDay() {
		return g.ScheduledTimestamp.UTC().Format(displayDate) + " (all day)"
	}
	return n.ToDisplay(g.ScheduledTimestamp, DateTime)
}

// ScheduledFromEditable combines date and time inputs into g's scheduled
// instant. For all-day goals the time input is ignored and the instant is UTC
// midnight of the date.
func (n *Normalizer) ScheduledFromEditable(g *goal.Goal, date, clock string) error {
	if strings.TrimSpace(date) == "" {
		g.ScheduledTimestamp = nil
		return nil
	}
	if g.IsAllDay() {
		ts, err := AllDayFromEditable(date)
		if err != nil {
			return err
		}
		g.ScheduledTimestamp = ts
		return nil
	}
	if strings.TrimSpace(clock) == "" {
		clock = "00:00"
	}
	ts, err := n.FromEditable(strings.TrimSpace(date)+"T"+strings.TrimSpace(clock), DateTime)
	if err != nil {
		return err
	}
	g.ScheduledTimestamp = ts
	return nil
}

// SetAllDay toggles the all-day state of g. Turning it on pins the scheduled
// time to UTC midnight of its local date; turning it off restores
// goal.DefaultDurationMinutes.
func (n *Normalizer) SetAllDay(g *goal.Goal, on bool) {
	if on {
		g.Duration = goal.AllDayMinutes
		if g.ScheduledTimestamp != nil {
			pinned := PinToUTCMidnight(*g.ScheduledTimestamp, n.loc)
			g.ScheduledTimestamp = &pinned
		}
		return
	}
	if g.IsAllDay() || g.Duration <= 0 {
		g.Duration = goal.DefaultDurationMinutes
	}
}

// PrepareForStore normalizes g for the wire: every instant is converted to
// UTC, all-day scheduled times are pinned to UTC midnight, and the timezone
// mode is set to "utc" regardless of what it was opened with.
func PrepareForStore(g *goal.Goal) {
	for _, ts := range []**time.Time{
		&g.StartTimestamp,
		&g.EndTimestamp,
		&g.ScheduledTimestamp,
		&g.CompletionDate,
		&g.RoutineTime,
	} {
		if *ts != nil {
			utc := (**ts).UTC()
			*ts = &utc
		}
	}
	if g.IsAllDay() && g.ScheduledTimestamp != nil {
		pinned := PinToUTCMidnight(*g.ScheduledTimestamp, time.UTC)
		g.ScheduledTimestamp = &pinned
	}
	g.TimezoneMode = goal.TimezoneUTC
}
