package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/roach88/goalctl/internal/engine"
	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/scope"
	"github.com/roach88/goalctl/internal/session"
	"github.com/roach88/goalctl/internal/testutil"
	"github.com/roach88/goalctl/internal/timefmt"
)

// Harness runs one scenario against an orchestrator backed by a recording
// store. Session handles and prompt tokens are sequential, so traces are
// identical across runs.
type Harness struct {
	store  *testutil.RecordingStore
	orch   *engine.Orchestrator
	norm   *timefmt.Normalizer
	logger *slog.Logger

	sess   *session.Session
	prompt *engine.Prompt
	traced int
}

// observed is what a step produced.
type observed struct {
	status  string
	prompt  string
	code    string
	message string
	goal    int64
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Seed a fresh recording store
// 2. Execute flow steps, checking each expect clause
// 3. Evaluate assertions against the recorded calls and final data
//
// An error is returned only when the scenario cannot be executed at all,
// e.g. a step names a goal that was never seeded.
func Run(scenario *Scenario) (*Result, error) {
	loc := time.UTC
	if scenario.Timezone != "" {
		l, err := time.LoadLocation(scenario.Timezone)
		if err != nil {
			return nil, fmt.Errorf("failed to load timezone: %w", err)
		}
		loc = l
	}

	st := testutil.NewRecordingStore()
	goals, err := scenario.Seed.goals()
	if err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}
	st.Seed(goals...)
	for _, e := range scenario.Seed.Edges {
		st.SeedEdges(goal.ChildEdge(e.From, e.To))
	}
	for _, c := range scenario.Seed.Completions {
		st.Completions[c.Event] = goal.CompletionResult{
			ShouldPromptParentCompletion: true,
			ParentTaskID:                 c.Task,
			ParentTaskName:               c.Name,
		}
	}

	norm := timefmt.New(loc)
	h := &Harness{
		store: st,
		orch: engine.New(st,
			engine.WithTokenGenerator(testutil.NewSequentialTokens("prompt")),
			engine.WithSessionOptions(
				session.WithIDGenerator(testutil.SequentialIDs("session")),
				session.WithNormalizer(norm),
			),
		),
		norm:   norm,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	result := NewResult(st)
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute flow[%d]: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step, records it in the trace, and checks its
// expect clause.
func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep, result *Result) error {
	result.AddTrace(stepLine(step))

	obs, err := h.invoke(ctx, step)
	if err != nil {
		return err
	}

	calls := h.store.Calls()
	for _, c := range calls[h.traced:] {
		if !strings.HasPrefix(c.Method, "Fetch") {
			result.AddTrace("  " + c.String())
		}
	}
	h.traced = len(calls)
	result.AddTrace(obs.String())

	h.logger.Debug("step executed", "index", index, "invoke", step.Invoke, "status", obs.status)

	if step.Expect != nil {
		for _, msg := range obs.mismatch(step.Expect) {
			result.AddError(fmt.Sprintf("flow[%d] %s: %s", index, step.Invoke, msg))
		}
	}
	return nil
}

func (h *Harness) invoke(ctx context.Context, step FlowStep) (observed, error) {
	args := step.Args

	switch step.Invoke {
	case "open", "create":
		h.prompt = nil
	}

	switch step.Invoke {
	case "open":
		id, err := argInt(args, "goal")
		if err != nil {
			return observed{}, err
		}
		g, ok := h.store.Goal(id)
		if !ok {
			return observed{}, fmt.Errorf("goal %d is not seeded", id)
		}
		mode := session.ModeEdit
		if m, ok := args["mode"].(string); ok {
			mode = session.Mode(m)
		}
		s, err := h.orch.Open(ctx, g, mode)
		if s != nil {
			h.sess = s
		}
		return h.plain(err), nil

	case "create":
		t, err := goal.ParseType(fmt.Sprint(args["type"]))
		if err != nil {
			return observed{}, err
		}
		draft := goal.Goal{GoalType: t}
		if t == goal.TypeEvent || t == goal.TypeRoutine {
			draft.Duration = goal.DefaultDurationMinutes
		}
		s, err := h.orch.Open(ctx, draft, session.ModeCreate)
		if s != nil {
			h.sess = s
		}
		return h.plain(err), nil

	case "fail":
		method, ok := args["method"].(string)
		if !ok || method == "" {
			return observed{}, fmt.Errorf("fail needs a method")
		}
		h.store.FailNext(method, errors.New(fmt.Sprint(args["error"])))
		return observed{status: "ok"}, nil
	}

	if h.sess == nil {
		return observed{}, fmt.Errorf("%s before open or create", step.Invoke)
	}
	s := h.sess

	switch step.Invoke {
	case "set":
		changes, err := h.changes(args)
		if err != nil {
			return observed{}, err
		}
		return h.plain(s.Apply(changes...)), nil
	case "close":
		return h.plain(h.orch.Close(s)), nil
	case "submit":
		return h.outcome(h.orch.Submit(ctx, s))
	case "delete":
		return h.outcome(h.orch.Delete(ctx, s))
	case "complete":
		return h.outcome(h.orch.ToggleComplete(ctx, s))
	case "duplicate":
		return h.outcome(h.orch.Duplicate(ctx, s))
	}

	if h.prompt == nil {
		return observed{}, fmt.Errorf("%s with no prompt pending", step.Invoke)
	}
	pr := h.prompt

	switch step.Invoke {
	case "choose":
		sc, err := scope.ParseScope(fmt.Sprint(args["scope"]))
		if err != nil {
			return observed{}, err
		}
		if pr.Kind == engine.PromptDeleteScope {
			return h.outcome(h.orch.ConfirmDelete(ctx, s, pr.Token, sc))
		}
		return h.outcome(h.orch.ConfirmScope(ctx, s, pr.Token, sc))

	case "confirm":
		yes := true
		if v, ok := args["yes"].(bool); ok {
			yes = v
		}
		switch {
		case pr.Kind == engine.PromptRecompute:
			return h.outcome(h.orch.ConfirmRecompute(ctx, s, pr.Token, yes))
		case pr.Kind == engine.PromptParentCompletion:
			return h.outcome(h.orch.ConfirmParentCompletion(ctx, s, pr.Token, yes))
		case !yes:
			return h.outcome(h.orch.CancelPrompt(s, pr.Token))
		case pr.Kind == engine.PromptDeleteRoutine:
			return h.outcome(h.orch.ConfirmDelete(ctx, s, pr.Token, scope.All))
		case pr.Kind == engine.PromptConflict:
			return h.outcome(h.orch.RetryWithOverride(ctx, s, pr.Token))
		default:
			return observed{}, fmt.Errorf("confirm cannot answer a %s prompt", pr.Kind)
		}

	case "cancel":
		return h.outcome(h.orch.CancelPrompt(s, pr.Token))
	}
	return observed{}, fmt.Errorf("unknown invoke %q", step.Invoke)
}

// plain observes a call that returns only an error.
func (h *Harness) plain(err error) observed {
	if err != nil {
		return failure(err)
	}
	return observed{status: "ok"}
}

// outcome observes an orchestrator outcome and tracks the pending prompt
// and any chained session.
func (h *Harness) outcome(out engine.Outcome, err error) (observed, error) {
	h.prompt = nil
	if out.Next != nil {
		h.sess = out.Next
	}
	if err != nil {
		return failure(err), nil
	}
	obs := observed{status: string(out.Status)}
	if out.Status == engine.StatusPrompt && out.Prompt != nil {
		h.prompt = out.Prompt
		obs.prompt = string(out.Prompt.Kind)
		return obs, nil
	}
	if out.Goal != nil {
		obs.goal = out.Goal.ID
	}
	return obs, nil
}

func failure(err error) observed {
	var e *engine.Error
	if errors.As(err, &e) {
		return observed{status: string(engine.StatusFailed), code: string(e.Code), message: e.Message}
	}
	return observed{status: string(engine.StatusFailed), message: err.Error()}
}

func (o observed) String() string {
	switch {
	case o.prompt != "":
		return "-> prompt " + o.prompt
	case o.code != "":
		return fmt.Sprintf("-> %s %s: %s", o.status, o.code, o.message)
	case o.message != "":
		return fmt.Sprintf("-> %s: %s", o.status, o.message)
	case o.goal != 0:
		return fmt.Sprintf("-> %s #%d", o.status, o.goal)
	default:
		return "-> " + o.status
	}
}

func (o observed) mismatch(want *ExpectClause) []string {
	var out []string
	if o.status != want.Status {
		out = append(out, fmt.Sprintf("status = %q, want %q (%s)", o.status, want.Status, o))
	}
	if want.Prompt != "" && o.prompt != want.Prompt {
		out = append(out, fmt.Sprintf("prompt = %q, want %q", o.prompt, want.Prompt))
	}
	if want.Error != "" && o.code != want.Error {
		out = append(out, fmt.Sprintf("error = %q, want %q", o.code, want.Error))
	}
	if want.Goal != 0 && o.goal != want.Goal {
		out = append(out, fmt.Sprintf("goal = %d, want %d", o.goal, want.Goal))
	}
	return out
}

// setKeys are the fields set understands, in the order they are applied.
// Duration and all_day go before the scheduled time.
var setKeys = []string{
	"name", "description", "priority", "frequency", "routine_type",
	"duration", "all_day", "start", "end", "routine_time",
	"date", "time", "parents", "children",
}

// changes converts set arguments into session changes. A date or time given
// alone keeps the other half of the draft's schedule.
func (h *Harness) changes(args map[string]any) ([]session.Change, error) {
	known := make(map[string]bool, len(setKeys))
	for _, k := range setKeys {
		known[k] = true
	}
	for k := range args {
		if !known[k] {
			return nil, fmt.Errorf("set: unknown field %q", k)
		}
	}

	var cs []session.Change
	for _, k := range setKeys {
		v, ok := args[k]
		if !ok || k == "time" {
			continue
		}
		switch k {
		case "name":
			cs = append(cs, session.SetName(fmt.Sprint(v)))
		case "description":
			cs = append(cs, session.SetDescription(fmt.Sprint(v)))
		case "priority":
			cs = append(cs, session.SetPriority(goal.Priority(fmt.Sprint(v))))
		case "frequency":
			cs = append(cs, session.SetFrequency(fmt.Sprint(v)))
		case "routine_type":
			cs = append(cs, session.SetRoutineType(fmt.Sprint(v)))
		case "duration":
			n, err := argInt(args, k)
			if err != nil {
				return nil, err
			}
			cs = append(cs, session.SetDuration(int(n)))
		case "all_day":
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("set: all_day must be a bool")
			}
			cs = append(cs, session.SetAllDay(b))
		case "start":
			cs = append(cs, session.SetStart(fmt.Sprint(v)))
		case "end":
			cs = append(cs, session.SetEnd(fmt.Sprint(v)))
		case "routine_time":
			cs = append(cs, session.SetRoutineTime(fmt.Sprint(v)))
		case "date":
			cs = append(cs, h.scheduled(args))
		case "parents":
			ids, err := argIDs(v)
			if err != nil {
				return nil, err
			}
			cs = append(cs, session.SetParents(ids))
		case "children":
			ids, err := argIDs(v)
			if err != nil {
				return nil, err
			}
			cs = append(cs, session.SetChildren(ids))
		}
	}
	if _, ok := args["date"]; !ok {
		if _, ok := args["time"]; ok {
			cs = append(cs, h.scheduled(args))
		}
	}
	return cs, nil
}

func (h *Harness) scheduled(args map[string]any) session.SetScheduled {
	date, clock := h.norm.EditableScheduled(h.sess.State().Draft)
	if v, ok := args["date"]; ok {
		date = fmt.Sprint(v)
	}
	if v, ok := args["time"]; ok {
		clock = fmt.Sprint(v)
	}
	return session.SetScheduled{Date: date, Clock: clock}
}

// stepLine renders a step as "invoke k=v ..." with keys sorted.
func stepLine(step FlowStep) string {
	keys := make([]string, 0, len(step.Args))
	for k := range step.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{step.Invoke}
	for _, k := range keys {
		parts = append(parts, k+"="+fmt.Sprint(step.Args[k]))
	}
	return strings.Join(parts, " ")
}

func argInt(args map[string]any, key string) (int64, error) {
	switch v := args[key].(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%s must be an integer, got %v", key, args[key])
	}
}

func argIDs(v any) ([]int64, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of goal ids, got %v", v)
	}
	out := make([]int64, 0, len(list))
	for _, item := range list {
		n, err := argInt(map[string]any{"id": item}, "id")
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
