package harness

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string          // Assertion type for categorization
	Expected string          // Human-readable expected outcome
	Actual   string          // Human-readable actual outcome
	Calls    []testutil.Call // Recorded mutations for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Calls) > 0 {
		fmt.Fprintf(&buf, "\nStore mutations:\n")
		for i, c := range e.Calls {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, c)
		}
	}
	return buf.String()
}

// assertCallContains checks for a call to the method whose rendered
// arguments contain the expected substring.
func assertCallContains(st *testutil.RecordingStore, a Assertion) error {
	for _, c := range st.CallsTo(a.Method) {
		if strings.Contains(c.Args, a.Args) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertCallContains,
		Expected: fmt.Sprintf("%s with args containing %q", a.Method, a.Args),
		Actual:   "not found",
		Calls:    st.Mutations(),
	}
}

// assertCallOrder checks that mutations to the methods happened in order.
// Other calls may come in between.
func assertCallOrder(st *testutil.RecordingStore, a Assertion) error {
	next := 0
	for _, c := range st.Mutations() {
		if next < len(a.Methods) && c.Method == a.Methods[next] {
			next++
		}
	}
	if next == len(a.Methods) {
		return nil
	}
	return &AssertionError{
		Type:     AssertCallOrder,
		Expected: strings.Join(a.Methods, " -> "),
		Actual:   fmt.Sprintf("stopped before %s", a.Methods[next]),
		Calls:    st.Mutations(),
	}
}

// assertCallCount checks that the method was called exactly a.Count times.
func assertCallCount(st *testutil.RecordingStore, a Assertion) error {
	n := len(st.CallsTo(a.Method))
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCallCount,
		Expected: fmt.Sprintf("%s called %d time(s)", a.Method, a.Count),
		Actual:   fmt.Sprintf("called %d time(s)", n),
		Calls:    st.Mutations(),
	}
}

// assertGoal checks the stored fields of a goal.
func assertGoal(st *testutil.RecordingStore, a Assertion) error {
	g, ok := st.Goal(a.ID)
	if !ok {
		return &AssertionError{
			Type:     AssertGoal,
			Expected: fmt.Sprintf("goal %d", a.ID),
			Actual:   "not stored",
			Calls:    st.Mutations(),
		}
	}

	fields := goalFields(g)
	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var diffs []string
	for _, k := range keys {
		actual, known := fields[k]
		if !known {
			return fmt.Errorf("goal assertion: unknown field %q", k)
		}
		if want := formatValue(a.Expect[k]); want != actual {
			diffs = append(diffs, fmt.Sprintf("%s=%q (want %q)", k, actual, want))
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertGoal,
		Expected: fmt.Sprintf("goal %d with %v", a.ID, a.Expect),
		Actual:   strings.Join(diffs, ", "),
		Calls:    st.Mutations(),
	}
}

func assertGoalMissing(st *testutil.RecordingStore, a Assertion) error {
	if _, ok := st.Goal(a.ID); !ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertGoalMissing,
		Expected: fmt.Sprintf("goal %d deleted", a.ID),
		Actual:   "still stored",
		Calls:    st.Mutations(),
	}
}

func assertEdge(st *testutil.RecordingStore, a Assertion) error {
	has := st.HasEdge(goal.ChildEdge(a.From, a.To))
	if has != a.Absent {
		return nil
	}
	want, got := "present", "absent"
	if a.Absent {
		want, got = got, want
	}
	return &AssertionError{
		Type:     AssertEdge,
		Expected: fmt.Sprintf("edge %d->%d %s", a.From, a.To, want),
		Actual:   got,
		Calls:    st.Mutations(),
	}
}

// goalFields renders the fields a goal assertion can check.
func goalFields(g goal.Goal) map[string]string {
	stamp := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	}
	return map[string]string{
		"type":      string(g.GoalType),
		"name":      g.Name,
		"priority":  string(g.Priority),
		"completed": fmt.Sprint(g.Completed),
		"start":     stamp(g.StartTimestamp),
		"end":       stamp(g.EndTimestamp),
		"at":        stamp(g.ScheduledTimestamp),
		"duration":  fmt.Sprint(g.Duration),
		"frequency": g.Frequency,
		"parent":    fmt.Sprint(g.ParentID),

		"routine_time": timeOfDay(g.RoutineTime),
	}
}

func timeOfDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("15:04")
}

// formatValue renders an expected YAML value the way goalFields renders the
// actual one.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// EvaluateAssertions runs all assertions and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	st := result.Store

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertCallContains:
			err = assertCallContains(st, a)
		case AssertCallOrder:
			err = assertCallOrder(st, a)
		case AssertCallCount:
			err = assertCallCount(st, a)
		case AssertGoal:
			err = assertGoal(st, a)
		case AssertGoalMissing:
			err = assertGoalMissing(st, a)
		case AssertEdge:
			err = assertEdge(st, a)
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}
	return errs
}
