package schedule

import (
	"fmt"
	"time"

	"github.com/roach88/goalctl/internal/goal"
)

// Field names a schedule-defining field.
type Field string

const (
	FieldFrequency Field = "frequency"
	FieldStart     Field = "start_timestamp"
	FieldEnd       Field = "end_timestamp"
)

// Baseline is the captured schedule of a routine.
type Baseline struct {
	Frequency string
	Start     *time.Time
	End       *time.Time
}

// Capture snapshots the schedule-defining fields of server. The frequency is
// stored in canonical form, so "" and "1D" compare equal.
func Capture(server goal.Goal) Baseline {
	b := Baseline{Frequency: goal.CanonicalFrequency(server.Frequency)}
	if server.StartTimestamp != nil {
		b.Start = goal.TimePtr(server.StartTimestamp.UTC())
	}
	if server.EndTimestamp != nil {
		b.End = goal.TimePtr(server.EndTimestamp.UTC())
	}
	return b
}

// Diff returns the schedule-defining fields on which current differs from b.
func (b Baseline) Diff(current goal.Goal) []Field {
	var out []Field
	if goal.CanonicalFrequency(current.Frequency) != b.Frequency {
		out = append(out, FieldFrequency)
	}
	if !goal.SameInstant(b.Start, current.StartTimestamp) {
		out = append(out, FieldStart)
	}
	if !goal.SameInstant(b.End, current.EndTimestamp) {
		out = append(out, FieldEnd)
	}
	return out
}

// ConfirmationText is the blast-radius warning shown before a recompute.
func ConfirmationText(routine goal.Goal, changed []Field) string {
	name := routine.Name
	if name == "" {
		name = "this routine"
	}
	return fmt.Sprintf(
		"Changing the schedule of %q (%s) will delete all future occurrences, including ones already marked complete, and generate them again from the new schedule. Past occurrences are not affected.",
		name, fieldList(changed))
}

func fieldList(fields []Field) string {
	if len(fields) == 0 {
		return "no fields"
	}
	s := ""
	for i, f := range fields {
		if i > 0 {
			s += ", "
		}
		s += string(f)
	}
	return s
}
