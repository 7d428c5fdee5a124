package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/goalctl/internal/engine"
	"github.com/roach88/goalctl/internal/goal"
	"github.com/roach88/goalctl/internal/scope"
	"github.com/roach88/goalctl/internal/session"
	"github.com/roach88/goalctl/internal/store"
	"github.com/roach88/goalctl/internal/timefmt"
)

// goalFlags are the editable fields shared by create and edit.
type goalFlags struct {
	Type        string
	Name        string
	Description string
	Priority    string
	Start       string
	End         string
	Frequency   string
	RoutineTime string
	RoutineType string
	Duration    int
	AllDay      bool
	Date        string
	Time        string
	Parents     []int64
	Children    []int64
	Events      []string
	Scope       string
}

func (f *goalFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.Name, "name", "", "goal name")
	fl.StringVar(&f.Description, "description", "", "description")
	fl.StringVar(&f.Priority, "priority", "", "priority (high|medium|low)")
	fl.StringVar(&f.Start, "start", "", "start date (YYYY-MM-DD)")
	fl.StringVar(&f.End, "end", "", "end date (YYYY-MM-DD), inclusive")
	fl.StringVar(&f.Frequency, "frequency", "", "routine frequency, e.g. 1D, 2W:1,3,5, 1M")
	fl.StringVar(&f.RoutineTime, "routine-time", "", "routine time of day (HH:MM)")
	fl.StringVar(&f.RoutineType, "routine-type", "", "routine type label")
	fl.IntVar(&f.Duration, "duration", 0, "duration in minutes")
	fl.BoolVar(&f.AllDay, "all-day", false, "all-day event")
	fl.StringVar(&f.Date, "date", "", "event date (YYYY-MM-DD)")
	fl.StringVar(&f.Time, "time", "", "event time (HH:MM)")
	fl.Int64SliceVar(&f.Parents, "parent", nil, "parent goal ids (replaces the current set)")
	fl.Int64SliceVar(&f.Children, "child", nil, "child goal ids (replaces the current set)")
	fl.StringArrayVar(&f.Events, "event", nil, "stage a task event, DATE[THH:MM][/MINUTES]")
}

// changes converts the flags the user set into session changes. Order
// matters: duration and all-day are applied before the scheduled time. A
// date or time given alone keeps the other half of current's schedule.
func (f *goalFlags) changes(cmd *cobra.Command, n *timefmt.Normalizer, current goal.Goal) ([]session.Change, error) {
	set := cmd.Flags().Changed
	var cs []session.Change

	if set("name") {
		cs = append(cs, session.SetName(f.Name))
	}
	if set("description") {
		cs = append(cs, session.SetDescription(f.Description))
	}
	if set("priority") {
		p, err := goal.ParsePriority(f.Priority)
		if err != nil {
			return nil, err
		}
		cs = append(cs, session.SetPriority(p))
	}
	if set("frequency") {
		cs = append(cs, session.SetFrequency(f.Frequency))
	}
	if set("routine-type") {
		cs = append(cs, session.SetRoutineType(f.RoutineType))
	}
	if set("duration") {
		cs = append(cs, session.SetDuration(f.Duration))
	}
	if set("all-day") {
		cs = append(cs, session.SetAllDay(f.AllDay))
	}
	if set("start") {
		cs = append(cs, session.SetStart(f.Start))
	}
	if set("end") {
		cs = append(cs, session.SetEnd(f.End))
	}
	if set("routine-time") {
		cs = append(cs, session.SetRoutineTime(f.RoutineTime))
	}
	if set("date") || set("time") {
		date, clock := n.EditableScheduled(current)
		if set("date") {
			date = f.Date
		}
		if set("time") {
			clock = f.Time
		}
		cs = append(cs, session.SetScheduled{Date: date, Clock: clock})
	}
	if set("parent") {
		cs = append(cs, session.SetParents(f.Parents))
	}
	if set("child") {
		cs = append(cs, session.SetChildren(f.Children))
	}
	for _, e := range f.Events {
		se, err := parseStagedEvent(e)
		if err != nil {
			return nil, err
		}
		cs = append(cs, se)
	}
	return cs, nil
}

// parseStagedEvent parses DATE[THH:MM][/MINUTES].
func parseStagedEvent(s string) (session.StageEvent, error) {
	at, dur, hasDur := strings.Cut(strings.TrimSpace(s), "/")
	se := session.StageEvent{}
	se.Date, se.Clock, _ = strings.Cut(at, "T")
	if se.Date == "" {
		return session.StageEvent{}, fmt.Errorf("invalid event %q: missing date", s)
	}
	if hasDur {
		n, err := strconv.Atoi(dur)
		if err != nil || n <= 0 {
			return session.StageEvent{}, fmt.Errorf("invalid event %q: duration must be a positive number of minutes", s)
		}
		se.Duration = n
	}
	return se, nil
}

// NewGoalCommand creates the goal command group.
func NewGoalCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Create, edit, and delete goals",
	}
	cmd.AddCommand(newGoalCreateCommand(rootOpts))
	cmd.AddCommand(newGoalEditCommand(rootOpts))
	cmd.AddCommand(newGoalDeleteCommand(rootOpts))
	cmd.AddCommand(newGoalCompleteCommand(rootOpts, true))
	cmd.AddCommand(newGoalCompleteCommand(rootOpts, false))
	cmd.AddCommand(newGoalDuplicateCommand(rootOpts))
	cmd.AddCommand(newGoalShowCommand(rootOpts))
	cmd.AddCommand(newGoalListCommand(rootOpts))
	return cmd
}

func newGoalCreateCommand(rootOpts *RootOptions) *cobra.Command {
	f := &goalFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a goal",
		Long: `Create a goal of any type.

Example:
  goalctl goal create --type project --name Fitness --priority medium --parent 1
  goalctl goal create --type routine --name Run --priority medium \
      --frequency 1D --start 2026-01-01 --routine-time 07:00 --parent 2
  goalctl goal create --type task --name Report --priority high \
      --start 2026-01-05 --end 2026-01-20 --event 2026-01-06T10:00/90
  goalctl goal create --type event --parent 9 --date 2026-01-07 --time 14:00`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				t, err := goal.ParseType(f.Type)
				if err != nil {
					return a.usage(err)
				}
				changes, err := f.changes(cmd, a.norm, goal.Goal{})
				if err != nil {
					return a.usage(err)
				}
				draft := goal.Goal{GoalType: t}
				if t == goal.TypeEvent || t == goal.TypeRoutine {
					draft.Duration = goal.DefaultDurationMinutes
				}
				s, err := a.orch.Open(ctx, draft, session.ModeCreate)
				if s != nil {
					defer a.closeSession(s)
				}
				if err != nil {
					return a.fail("create failed", err)
				}
				if err := s.Apply(changes...); err != nil {
					return a.usage(err)
				}
				out, err := a.orch.Submit(ctx, s)
				return a.finish(ctx, s, out, err, scope.Scope(f.Scope))
			})
		},
	}
	cmd.Flags().StringVarP(&f.Type, "type", "t", "", "goal type (directive|project|achievement|routine|task|event)")
	_ = cmd.MarkFlagRequired("type")
	f.register(cmd)
	return cmd
}

func newGoalEditCommand(rootOpts *RootOptions) *cobra.Command {
	f := &goalFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a goal",
		Long: `Edit the fields of a goal. Only the flags you pass are changed.

Editing a routine occurrence asks whether the change applies to this
occurrence only, to it and every later one, or to all occurrences. Changing
a routine's schedule asks before its future occurrences are regenerated.

Example:
  goalctl goal edit 12 --time 07:30 --scope future
  goalctl goal edit 7 --frequency 2D --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				s, err := a.openExisting(ctx, args[0])
				if err != nil {
					return err
				}
				defer a.closeSession(s)
				changes, err := f.changes(cmd, a.norm, s.State().Draft)
				if err != nil {
					return a.usage(err)
				}
				if err := s.Apply(changes...); err != nil {
					return a.usage(err)
				}
				out, err := a.orch.Submit(ctx, s)
				return a.finish(ctx, s, out, err, scope.Scope(f.Scope))
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.Scope, "scope", "", "scope for routine occurrences (single|future|all)")
	return cmd
}

func newGoalDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var sc string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal",
		Long: `Delete a goal.

Deleting a routine occurrence asks for a scope: only this occurrence, this
and every later one (which ends the routine here), or the routine with all
of its occurrences. Deleting a routine asks for confirmation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				s, err := a.openExisting(ctx, args[0])
				if err != nil {
					return err
				}
				defer a.closeSession(s)
				id := s.State().Draft.ID
				out, err := a.orch.Delete(ctx, s)
				out, err = resolve(ctx, a.orch, s, out, err, a.prompter(scope.Scope(sc)))
				if err == nil && out.Status == engine.StatusDone {
					return a.out.Success(deletedView{ID: id})
				}
				return a.report(out, err)
			})
		},
	}
	cmd.Flags().StringVar(&sc, "scope", "", "scope for routine occurrences (single|future|all)")
	return cmd
}

func newGoalCompleteCommand(rootOpts *RootOptions, complete bool) *cobra.Command {
	use, short := "complete <id>", "Mark a goal complete"
	if !complete {
		use, short = "reopen <id>", "Mark a completed goal open again"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				s, err := a.openExisting(ctx, args[0])
				if err != nil {
					return err
				}
				defer a.closeSession(s)
				if s.State().Draft.Completed == complete {
					state := "open"
					if complete {
						state = "complete"
					}
					return a.usage(fmt.Errorf("goal %d is already %s", s.State().Draft.ID, state))
				}
				out, err := a.orch.ToggleComplete(ctx, s)
				return a.finish(ctx, s, out, err, "")
			})
		},
	}
}

func newGoalDuplicateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Copy a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				s, err := a.openExisting(ctx, args[0])
				if err != nil {
					return err
				}
				defer a.closeSession(s)
				out, err := a.orch.Duplicate(ctx, s)
				return a.report(out, err)
			})
		},
	}
}

func newGoalShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a goal with its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				g, err := a.getGoal(ctx, args[0])
				if err != nil {
					return err
				}
				v := newGoalView(a.norm, g)
				if g.GoalType == goal.TypeTask || g.GoalType == goal.TypeRoutine {
					te, err := a.store.FetchGoalEventsAndTotalDuration(ctx, g.ID)
					if err != nil {
						return a.fail("show failed", err)
					}
					for _, e := range te.Events {
						v.Events = append(v.Events, newGoalView(a.norm, e))
					}
					v.TotalDuration = te.TotalDuration
				}
				return a.out.Success(v)
			})
		},
	}
}

func newGoalListCommand(rootOpts *RootOptions) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				var (
					goals []goal.Goal
					err   error
				)
				if typ == "" {
					goals, err = a.store.FetchAllGoals(ctx)
				} else {
					t, perr := goal.ParseType(typ)
					if perr != nil {
						return a.usage(perr)
					}
					goals, err = a.store.FetchGoalsByType(ctx, t)
				}
				if err != nil {
					return a.fail("list failed", err)
				}
				views := make(listView, 0, len(goals))
				for _, g := range goals {
					views = append(views, newGoalView(a.norm, g))
				}
				return a.out.Success(views)
			})
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "only goals of this type")
	return cmd
}

// withApp opens the app for one command run and closes it afterwards.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, a)
}

func (a *app) getGoal(ctx context.Context, arg string) (goal.Goal, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return goal.Goal{}, a.usage(fmt.Errorf("invalid goal id %q", arg))
	}
	g, err := a.store.GetGoal(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		_ = a.out.Error(ErrCodeNotFound, fmt.Sprintf("goal %d not found", id), nil)
		return goal.Goal{}, WrapExitError(ExitFailure, "goal not found", err)
	}
	if err != nil {
		return goal.Goal{}, a.fail("read goal failed", err)
	}
	return g, nil
}

// openExisting opens an edit session on the goal named by arg.
func (a *app) openExisting(ctx context.Context, arg string) (*session.Session, error) {
	g, err := a.getGoal(ctx, arg)
	if err != nil {
		return nil, err
	}
	s, err := a.orch.Open(ctx, g, session.ModeEdit)
	if err != nil {
		if s != nil {
			a.closeSession(s)
		}
		return nil, a.fail("open failed", err)
	}
	return s, nil
}

func (a *app) closeSession(s *session.Session) {
	if s.Closed() {
		return
	}
	if s.Lock().Busy() {
		slog.Warn("session left open, action still in flight", "session", s.ID())
		return
	}
	_ = a.orch.Close(s)
}

// finish resolves prompts and reports the final outcome.
func (a *app) finish(ctx context.Context, s *session.Session, out engine.Outcome, err error, sc scope.Scope) error {
	out, err = resolve(ctx, a.orch, s, out, err, a.prompter(sc))
	return a.report(out, err)
}

// report writes the outcome of a mutation.
func (a *app) report(out engine.Outcome, err error) error {
	if err != nil {
		return a.fail("operation failed", err)
	}
	switch out.Status {
	case engine.StatusDone:
		if out.Goal == nil {
			return a.out.Success("ok")
		}
		return a.out.Success(newGoalView(a.norm, *out.Goal))
	case engine.StatusCancelled:
		_ = a.out.Error(ErrCodeCancelled, "cancelled, nothing was changed", nil)
		return NewExitError(ExitFailure, "cancelled")
	case engine.StatusBusy:
		_ = a.out.Error(ErrCodeBusy, "another action is in progress", nil)
		return NewExitError(ExitFailure, "busy")
	default:
		_ = a.out.Error(ErrCodeGeneric, fmt.Sprintf("unexpected outcome %q", out.Status), nil)
		return NewExitError(ExitFailure, "unexpected outcome")
	}
}

// usage reports a bad argument.
func (a *app) usage(err error) error {
	_ = a.out.Error(ErrCodeValidation, err.Error(), nil)
	return WrapExitError(ExitCommandError, "invalid arguments", err)
}
