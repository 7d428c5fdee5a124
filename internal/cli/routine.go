package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/goalctl/internal/engine"
	"github.com/roach88/goalctl/internal/goal"
)

// NewRoutineCommand creates the routine command group.
func NewRoutineCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routine",
		Short: "Inspect and maintain routine occurrences",
	}
	cmd.AddCommand(newRoutineOccurrencesCommand(rootOpts))
	cmd.AddCommand(newRoutineRecomputeCommand(rootOpts))
	return cmd
}

func newRoutineOccurrencesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "occurrences <routine-id>",
		Short: "List the live occurrences of a routine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				r, err := a.routine(ctx, args[0])
				if err != nil {
					return err
				}
				occ, err := a.store.FetchOccurrences(ctx, r.ID)
				if err != nil {
					return a.fail("list occurrences failed", err)
				}
				views := make(listView, 0, len(occ))
				for _, o := range occ {
					views = append(views, newGoalView(a.norm, o))
				}
				return a.out.Success(views)
			})
		},
	}
}

func newRoutineRecomputeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <routine-id>",
		Short: "Regenerate a routine's future occurrences",
		Long: `Delete every occurrence of a routine from now on, completed ones
included, and generate them again from the routine's current schedule.
Past occurrences are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				r, err := a.routine(ctx, args[0])
				if err != nil {
					return err
				}
				ok, err := a.prompter("").Confirm(&engine.Prompt{
					Kind:    engine.PromptRecompute,
					Message: fmt.Sprintf("Regenerate future occurrences of %q? Completed future occurrences are replaced.", r.Name),
				})
				if err != nil && !errors.Is(err, errPromptCancelled) {
					return a.usage(err)
				}
				if !ok {
					return a.report(engine.Outcome{Status: engine.StatusCancelled}, nil)
				}
				if err := a.store.RecomputeRoutineFuture(ctx, r.ID); err != nil {
					return a.fail("recompute failed", err)
				}
				occ, err := a.store.FetchOccurrences(ctx, r.ID)
				if err != nil {
					return a.fail("list occurrences failed", err)
				}
				v := newGoalView(a.norm, r)
				for _, o := range occ {
					v.Events = append(v.Events, newGoalView(a.norm, o))
				}
				return a.out.Success(v)
			})
		},
	}
}

func (a *app) routine(ctx context.Context, arg string) (goal.Goal, error) {
	r, err := a.getGoal(ctx, arg)
	if err != nil {
		return goal.Goal{}, err
	}
	if r.GoalType != goal.TypeRoutine {
		return goal.Goal{}, a.usage(fmt.Errorf("goal %d is a %s, not a routine", r.ID, r.GoalType))
	}
	return r, nil
}
