// Command goalctl manages goals, tasks, routines, and their events.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/goalctl/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		// Commands that already wrote a formatted error return an ExitError;
		// anything else (bad flags, unknown command) is printed here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(exitErr.Code)
	}
}
