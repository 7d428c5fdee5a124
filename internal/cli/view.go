package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/timefmt"
)

// goalView is a goal rendered in the viewer's time zone.
type goalView struct {
	ID          int64         `json:"id"`
	Type        goal.Type     `json:"goal_type"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Priority    goal.Priority `json:"priority,omitempty"`
	Completed   bool          `json:"completed"`
	Start       string        `json:"start,omitempty"`
	End         string        `json:"end,omitempty"`
	Date        string        `json:"date,omitempty"`
	Time        string        `json:"time,omitempty"`
	AllDay      bool          `json:"all_day,omitempty"`
	Duration    int           `json:"duration,omitempty"`
	Frequency   string        `json:"frequency,omitempty"`
	RoutineTime string        `json:"routine_time,omitempty"`
	ParentID    int64         `json:"parent_id,omitempty"`

	// Events lists a task's events or a routine's occurrences for show.
	Events        []goalView `json:"events,omitempty"`
	TotalDuration int        `json:"total_duration,omitempty"`
}

func newGoalView(n *timefmt.Normalizer, g goal.Goal) goalView {
	v := goalView{
		ID:          g.ID,
		Type:        g.GoalType,
		Name:        g.Name,
		Description: g.Description,
		Priority:    g.Priority,
		Completed:   g.Completed,
		Start:       n.ToEditable(g.StartTimestamp, timefmt.Date),
		End:         n.ToEditable(g.EndTimestamp, timefmt.EndDate),
		AllDay:      g.IsAllDay(),
		Duration:    g.Duration,
		Frequency:   g.Frequency,
		RoutineTime: n.ToEditable(g.RoutineTime, timefmt.Time),
		ParentID:    g.ParentID,
	}
	v.Date, v.Time = n.EditableScheduled(g)
	return v
}

func (v goalView) String() string {
	var b strings.Builder
	v.line(&b)
	for _, e := range v.Events {
		b.WriteString("\n  ")
		e.line(&b)
	}
	if v.TotalDuration > 0 {
		fmt.Fprintf(&b, "\n  total: %d min", v.TotalDuration)
	}
	return b.String()
}

func (v goalView) line(b *strings.Builder) {
	mark := " "
	if v.Completed {
		mark = "x"
	}
	fmt.Fprintf(b, "[%s] #%d %s %q", mark, v.ID, v.Type, v.Name)
	if v.Priority != "" {
		fmt.Fprintf(b, " (%s)", v.Priority)
	}
	switch {
	case v.Date != "" && v.AllDay:
		fmt.Fprintf(b, " %s all day", v.Date)
	case v.Date != "":
		fmt.Fprintf(b, " %s %s %dmin", v.Date, v.Time, v.Duration)
	}
	if v.Start != "" || v.End != "" {
		fmt.Fprintf(b, " %s..%s", v.Start, v.End)
	}
	if v.Frequency != "" {
		fmt.Fprintf(b, " every %s", v.Frequency)
		if v.RoutineTime != "" {
			fmt.Fprintf(b, " at %s", v.RoutineTime)
		}
	}
}

type listView []goalView

func (l listView) String() string {
	if len(l) == 0 {
		return "no goals"
	}
	lines := make([]string, len(l))
	for i, v := range l {
		var b strings.Builder
		v.line(&b)
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n")
}

type deletedView struct {
	ID int64 `json:"deleted_id"`
}

func (d deletedView) String() string {
	return fmt.Sprintf("deleted goal %d", d.ID)
}

type countView struct {
	Generated int `json:"generated"`
}

func (c countView) String() string {
	return fmt.Sprintf("generated %d occurrence(s)", c.Generated)
}
