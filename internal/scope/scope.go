package scope

import "fmt"

// Scope is the breadth of a scoped edit or delete.
type Scope string

const (
	// Single affects only the selected occurrence.
	Single Scope = "single"
	// Future affects the selected occurrence and every later one.
	Future Scope = "future"
	// All affects every occurrence, past and future.
	All Scope = "all"
)

// ParseScope converts a string into a Scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case Single, Future, All:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("invalid scope %q: must be single, future, or all", s)
	}
}

// Option is one entry of a scope prompt.
type Option struct {
	Scope       Scope  `json:"scope"`
	Label       string `json:"label"`
	Description string `json:"description"`
	// Warning is non-empty when the choice is destructive and must be shown
	// before the user confirms.
	Warning string `json:"warning,omitempty"`
}

// EditOptions returns the menu for editing a routine occurrence.
func EditOptions() []Option {
	return []Option{
		{Scope: Single, Label: "Only this occurrence", Description: "Change this event only."},
		{Scope: Future, Label: "This and following", Description: "Change this event and all later occurrences, and update the routine."},
		{Scope: All, Label: "All occurrences", Description: "Change every occurrence of the routine, past and future, and update the routine."},
	}
}

// DeleteOptions returns the menu for deleting a routine occurrence.
func DeleteOptions() []Option {
	return []Option{
		{Scope: Single, Label: "Only this occurrence", Description: "Delete this event only."},
		{
			Scope:       Future,
			Label:       "This and following",
			Description: "Delete this event and all later occurrences.",
			Warning:     "The routine will end here. No further occurrences will be generated after this date.",
		},
		{
			Scope:       All,
			Label:       "All occurrences",
			Description: "Delete the routine and every occurrence.",
			Warning:     "The routine itself will be deleted, along with all of its past and future occurrences.",
		},
	}
}

// Lookup returns the option for s from opts.
func Lookup(opts []Option, s Scope) (Option, bool) {
	for _, o := range opts {
		if o.Scope == s {
			return o, true
		}
	}
	return Option{}, false
}
