package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/goalctl/internal/goal"
)

// Scenario defines an orchestrator scenario.
// Scenarios seed a recording store, drive an editing flow against the
// orchestrator, and assert on the store calls and the final data.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Timezone is the viewer's IANA zone for editable inputs. Default UTC.
	Timezone string `yaml:"timezone,omitempty"`

	// Seed is loaded into the store before the flow runs. Seeding is not
	// recorded.
	Seed Seed `yaml:"seed"`

	// Flow contains the steps, run in order against one orchestrator.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the recorded calls and the final store contents.
	Assertions []Assertion `yaml:"assertions"`
}

// Seed is the initial store contents.
type Seed struct {
	Goals []SeedGoal `yaml:"goals"`
	Edges []SeedEdge `yaml:"edges,omitempty"`

	// Completions overrides CompleteEvent results by event id, e.g. to make
	// the store ask for parent task completion.
	Completions []SeedCompletion `yaml:"completions,omitempty"`
}

// SeedGoal is one seeded goal. Instants are RFC 3339; routine_time is HH:MM
// in UTC.
type SeedGoal struct {
	ID          int64  `yaml:"id"`
	Type        string `yaml:"type"`
	Name        string `yaml:"name"`
	Priority    string `yaml:"priority,omitempty"`
	Start       string `yaml:"start,omitempty"`
	End         string `yaml:"end,omitempty"`
	At          string `yaml:"at,omitempty"`
	Duration    int    `yaml:"duration,omitempty"`
	Frequency   string `yaml:"frequency,omitempty"`
	RoutineTime string `yaml:"routine_time,omitempty"`
	Parent      int64  `yaml:"parent,omitempty"`
	Completed   bool   `yaml:"completed,omitempty"`
}

// SeedEdge is a parent-child edge.
type SeedEdge struct {
	From int64 `yaml:"from"`
	To   int64 `yaml:"to"`
}

// SeedCompletion is a canned CompleteEvent result.
type SeedCompletion struct {
	Event int64  `yaml:"event"`
	Task  int64  `yaml:"task"`
	Name  string `yaml:"name"`
}

// FlowStep is one orchestrator call.
type FlowStep struct {
	// Invoke names the call: open, create, set, submit, delete, complete,
	// duplicate, choose, confirm, cancel, close, or fail.
	Invoke string `yaml:"invoke"`

	// Args holds the call arguments. Which keys are allowed depends on
	// Invoke.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect checks the outcome. If nil, any outcome is accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Status is the expected outcome status: ok (for steps that do not
	// return an outcome), done, prompt, busy, cancelled, or failed.
	Status string `yaml:"status"`

	// Prompt is the expected prompt kind when Status is prompt.
	Prompt string `yaml:"prompt,omitempty"`

	// Error is the expected orchestrator error code when Status is failed.
	Error string `yaml:"error,omitempty"`

	// Goal is the expected id of the outcome's goal.
	Goal int64 `yaml:"goal,omitempty"`
}

// Assertion validates the recorded calls or the final store contents.
type Assertion struct {
	// Type specifies the assertion type:
	// - "call_contains": a call to Method whose args contain Args
	// - "call_order": mutations to Methods happened in this order
	// - "call_count": Method was called exactly Count times
	// - "goal": goal ID has the fields in Expect
	// - "goal_missing": goal ID is not stored
	// - "edge": the edge From->To exists, or not when Absent is set
	Type string `yaml:"type"`

	// Method is the store method (call_contains, call_count).
	Method string `yaml:"method,omitempty"`

	// Args is a substring of the recorded arguments (call_contains).
	Args string `yaml:"args,omitempty"`

	// Methods lists store methods in expected order (call_order).
	Methods []string `yaml:"methods,omitempty"`

	// Count is the expected number of calls (call_count).
	Count int `yaml:"count,omitempty"`

	// ID is the goal id (goal, goal_missing).
	ID int64 `yaml:"id,omitempty"`

	// Expect maps goal fields to expected values (goal). Instants compare
	// as RFC 3339 in UTC.
	Expect map[string]any `yaml:"expect,omitempty"`

	// From and To name an edge (edge).
	From   int64 `yaml:"from,omitempty"`
	To     int64 `yaml:"to,omitempty"`
	Absent bool  `yaml:"absent,omitempty"`
}

// Assertion types.
const (
	AssertCallContains = "call_contains"
	AssertCallOrder    = "call_order"
	AssertCallCount    = "call_count"
	AssertGoal         = "goal"
	AssertGoalMissing  = "goal_missing"
	AssertEdge         = "edge"
)

// invocations lists the step names Run understands.
var invocations = map[string]bool{
	"open": true, "create": true, "set": true, "submit": true, "delete": true,
	"complete": true, "duplicate": true, "choose": true, "confirm": true,
	"cancel": true, "close": true, "fail": true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict fields catch typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}

	seen := make(map[int64]bool)
	for i, g := range s.Seed.Goals {
		if g.ID <= 0 {
			return fmt.Errorf("seed.goals[%d]: id must be positive", i)
		}
		if seen[g.ID] {
			return fmt.Errorf("seed.goals[%d]: duplicate id %d", i, g.ID)
		}
		seen[g.ID] = true
		if _, err := goal.ParseType(g.Type); err != nil {
			return fmt.Errorf("seed.goals[%d]: %w", i, err)
		}
	}

	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if !invocations[step.Invoke] {
			return fmt.Errorf("flow[%d]: unknown invoke %q", i, step.Invoke)
		}
		if step.Expect != nil && step.Expect.Status == "" {
			return fmt.Errorf("flow[%d].expect: status is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCallContains:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for call_contains", index)
		}
	case AssertCallOrder:
		if len(a.Methods) == 0 {
			return fmt.Errorf("assertions[%d]: methods list is required for call_order", index)
		}
	case AssertCallCount:
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertGoal:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for goal", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for goal", index)
		}
	case AssertGoalMissing:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for goal_missing", index)
		}
	case AssertEdge:
		if a.From == 0 || a.To == 0 {
			return fmt.Errorf("assertions[%d]: from and to are required for edge", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// goals converts the seed into store goals. Event parents take their type
// from the seeded parent.
func (s Seed) goals() ([]goal.Goal, error) {
	types := make(map[int64]goal.Type, len(s.Goals))
	for _, g := range s.Goals {
		types[g.ID] = goal.Type(g.Type)
	}

	out := make([]goal.Goal, 0, len(s.Goals))
	for _, sg := range s.Goals {
		g := goal.Goal{
			ID:           sg.ID,
			GoalType:     goal.Type(sg.Type),
			Name:         sg.Name,
			Priority:     goal.Priority(sg.Priority),
			Duration:     sg.Duration,
			Frequency:    sg.Frequency,
			Completed:    sg.Completed,
			ParentID:     sg.Parent,
			TimezoneMode: goal.TimezoneUTC,
		}
		if sg.Parent != 0 {
			g.ParentType = types[sg.Parent]
		}
		var err error
		if g.StartTimestamp, err = instant(sg.Start); err != nil {
			return nil, fmt.Errorf("goal %d start: %w", sg.ID, err)
		}
		if g.EndTimestamp, err = instant(sg.End); err != nil {
			return nil, fmt.Errorf("goal %d end: %w", sg.ID, err)
		}
		if g.ScheduledTimestamp, err = instant(sg.At); err != nil {
			return nil, fmt.Errorf("goal %d at: %w", sg.ID, err)
		}
		if sg.RoutineTime != "" {
			clock, err := time.Parse("15:04", sg.RoutineTime)
			if err != nil {
				return nil, fmt.Errorf("goal %d routine_time: %w", sg.ID, err)
			}
			g.RoutineTime = goal.TimePtr(time.Date(1970, 1, 1, clock.Hour(), clock.Minute(), 0, 0, time.UTC))
		}
		out = append(out, g)
	}
	return out, nil
}

func instant(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return goal.TimePtr(t.UTC()), nil
}
