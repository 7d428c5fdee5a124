package scope

import (
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/goalctl/internal/goal"
)

// ChangeKind is the primary kind of an occurrence edit.
type ChangeKind string

const (
	ChangeNone          ChangeKind = "none"
	ChangeScheduledTime ChangeKind = "scheduled_time"
	ChangeDuration      ChangeKind = "duration"
	ChangeOther         ChangeKind = "other"
)

// Change is the result of comparing an edited occurrence with its original.
//
// Kind follows a fixed precedence: scheduled_time, then duration, then other.
// Fields carries every changed field, not only the one named by Kind.
type Change struct {
	Kind   ChangeKind
	Fields goal.EventFields
}

// IsZero reports whether nothing changed.
func (c Change) IsZero() bool {
	return c.Kind == ChangeNone
}

// DetectChange compares edited against original. Text fields are compared
// after NFC normalization.
func DetectChange(original, edited goal.Goal) Change {
	var f goal.EventFields

	if !goal.SameInstant(original.ScheduledTimestamp, edited.ScheduledTimestamp) && edited.ScheduledTimestamp != nil {
		ts := edited.ScheduledTimestamp.UTC()
		f.ScheduledTimestamp = &ts
	}
	if original.Duration != edited.Duration {
		d := edited.Duration
		f.Duration = &d
	}
	if !sameText(original.Name, edited.Name) {
		n := edited.Name
		f.Name = &n
	}
	if !sameText(original.Description, edited.Description) {
		d := edited.Description
		f.Description = &d
	}
	if original.Priority != edited.Priority {
		p := edited.Priority
		f.Priority = &p
	}

	kind := ChangeNone
	switch {
	case f.ScheduledTimestamp != nil:
		kind = ChangeScheduledTime
	case f.Duration != nil:
		kind = ChangeDuration
	case f.Name != nil || f.Description != nil || f.Priority != nil:
		kind = ChangeOther
	}
	return Change{Kind: kind, Fields: f}
}

func sameText(a, b string) bool {
	return norm.NFC.String(a) == norm.NFC.String(b)
}
