package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Watch bool
	Cron  string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate routine occurrences up to the horizon",
		Long: `Top up every active routine's occurrences to the generation horizon
(horizon_days in the config, 90 by default).

Generation resumes after each routine's latest occurrence, so deleted
occurrences are not brought back.

With --watch the command keeps running and generates on the configured cron
schedule (generate_cron, "@hourly" by default) until interrupted.

Example:
  goalctl generate
  goalctl generate --watch --cron "*/30 * * * *"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app) error {
				if !opts.Watch {
					n, err := a.store.GenerateRoutineEvents(ctx)
					if err != nil {
						return a.fail("generate failed", err)
					}
					return a.out.Success(countView{Generated: n})
				}
				spec := a.cfg.GenerateCron
				if opts.Cron != "" {
					spec = opts.Cron
				}
				return runWatch(ctx, a, spec)
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "keep running and generate on a schedule")
	cmd.Flags().StringVar(&opts.Cron, "cron", "", "cron schedule for --watch (overrides config)")

	return cmd
}

// runWatch generates once, then on every tick of spec until ctx is done or
// the process is interrupted.
func runWatch(ctx context.Context, a *app, spec string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	tick := func() {
		n, err := a.store.GenerateRoutineEvents(ctx)
		if err != nil {
			slog.Error("generation failed", "error", err)
			return
		}
		slog.Info("generation complete", "occurrences", n)
		a.out.VerboseLog("generated %d occurrence(s)", n)
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, tick); err != nil {
		return a.usage(err)
	}

	slog.Info("watching routines", "schedule", spec, "horizon_days", a.cfg.HorizonDays)
	tick()
	c.Start()
	<-ctx.Done()
	slog.Info("shutting down")
	<-c.Stop().Done()
	return nil
}
