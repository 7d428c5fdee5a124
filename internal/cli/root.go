package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string

	// Yes answers every confirmation prompt with yes instead of asking.
	Yes bool
	// NoInput fails on any prompt that Yes or --scope does not answer.
	NoInput bool

	// Prompter overrides the interactive prompter (for testing).
	Prompter Prompter
	// Now overrides the store clock (for testing).
	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the goalctl CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goalctl",
		Short: "goalctl - goals, tasks, and routines",
		Long: `Manage a hierarchy of goals, tasks, routines, and events.

Edits to routine occurrences ask whether they apply to one occurrence, to it
and every later one, or to all of them. Schedule changes to a routine
regenerate its future occurrences after confirmation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Yes, "yes", "y", false, "answer yes to confirmation prompts")
	cmd.PersistentFlags().BoolVar(&opts.NoInput, "no-input", false, "never prompt; fail if an answer is needed")

	cmd.AddCommand(NewGoalCommand(opts))
	cmd.AddCommand(NewRoutineCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))

	return cmd
}

// setupLogging installs a text handler on w. Only warnings and errors are
// logged unless verbose is set.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
