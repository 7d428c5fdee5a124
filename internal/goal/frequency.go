package goal

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Unit is the period of a recurrence.
type Unit byte

const (
	UnitDay   Unit = 'D'
	UnitWeek  Unit = 'W'
	UnitMonth Unit = 'M'
	UnitYear  Unit = 'Y'
)

// DefaultFrequency is what an empty frequency string means.
const DefaultFrequency = "1D"

// Frequency is the parsed form of the compact recurrence code
// "{n}{D|W|M|Y}[:days]", e.g. "2W:1,3,5".
//
// Days uses 0=Sunday through 6=Saturday and is only meaningful for UnitWeek.
type Frequency struct {
	Interval uint
	Unit     Unit
	Days     []time.Weekday
}

// ParseFrequency parses a recurrence code. The empty string is DefaultFrequency.
// Days are sorted and de-duplicated.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DefaultFrequency
	}

	head, days, hasDays := strings.Cut(s, ":")
	if len(head) < 2 {
		return Frequency{}, fmt.Errorf("invalid frequency %q: expected {n}{D|W|M|Y}", s)
	}

	unit := Unit(head[len(head)-1])
	switch unit {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
	default:
		return Frequency{}, fmt.Errorf("invalid frequency %q: unknown unit %q", s, string(unit))
	}

	n, err := strconv.ParseUint(head[:len(head)-1], 10, 32)
	if err != nil || n == 0 {
		return Frequency{}, fmt.Errorf("invalid frequency %q: interval must be a positive integer", s)
	}

	f := Frequency{Interval: uint(n), Unit: unit}
	if !hasDays {
		return f, nil
	}
	if unit != UnitWeek {
		return Frequency{}, fmt.Errorf("invalid frequency %q: days are only allowed with W", s)
	}

	for _, part := range strings.Split(days, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 || d > 6 {
			return Frequency{}, fmt.Errorf("invalid frequency %q: day %q out of range 0..6", s, part)
		}
		wd := time.Weekday(d)
		if !slices.Contains(f.Days, wd) {
			f.Days = append(f.Days, wd)
		}
	}
	slices.Sort(f.Days)
	return f, nil
}

// String formats f back into its compact code.
func (f Frequency) String() string {
	interval := f.Interval
	if interval == 0 {
		interval = 1
	}
	unit := f.Unit
	if unit == 0 {
		unit = UnitDay
	}

	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(interval), 10))
	b.WriteByte(byte(unit))
	if unit == UnitWeek && len(f.Days) > 0 {
		b.WriteByte(':')
		for i, d := range f.Days {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(d)))
		}
	}
	return b.String()
}

// CanonicalFrequency returns the canonical form of s. Unparseable input is
// returned trimmed and unchanged so that callers comparing codes still see a
// difference.
func CanonicalFrequency(s string) string {
	f, err := ParseFrequency(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return f.String()
}
