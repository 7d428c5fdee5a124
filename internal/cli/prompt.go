package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/roach88/goalctl/internal/engine"
	"github.com/roach88/goalctl/internal/scope"
	"github.com/roach88/goalctl/internal/session"
)

// errPromptCancelled is returned by a Prompter when the user backs out.
var errPromptCancelled = errors.New("prompt cancelled")

// Prompter answers orchestrator prompts.
type Prompter interface {
	// ChooseScope picks one of p.Options.
	ChooseScope(p *engine.Prompt) (scope.Scope, error)
	// Confirm answers a yes/no prompt.
	Confirm(p *engine.Prompt) (bool, error)
}

// ScriptedPrompter answers from flags without reading input.
type ScriptedPrompter struct {
	Scope scope.Scope
	Yes   bool
	// Strict fails unanswerable prompts instead of declining them.
	Strict bool
}

func (p ScriptedPrompter) ChooseScope(pr *engine.Prompt) (scope.Scope, error) {
	if p.Scope == "" {
		return "", fmt.Errorf("%s: pass --scope single|future|all", pr.Message)
	}
	if _, ok := scope.Lookup(pr.Options, p.Scope); !ok {
		return "", fmt.Errorf("scope %q is not offered here", p.Scope)
	}
	return p.Scope, nil
}

func (p ScriptedPrompter) Confirm(pr *engine.Prompt) (bool, error) {
	if !p.Yes && p.Strict {
		return false, fmt.Errorf("%s: pass --yes to confirm", pr.Message)
	}
	return p.Yes, nil
}

// lineReader is the part of *readline.Instance the prompter uses.
type lineReader interface {
	Readline() (string, error)
}

// ReadlinePrompter asks on a terminal.
type ReadlinePrompter struct {
	rl  lineReader
	out io.Writer
}

// NewReadlinePrompter opens a readline instance on in and out. The caller
// closes the returned instance.
func NewReadlinePrompter(in io.ReadCloser, out io.Writer) (*ReadlinePrompter, *readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		Stdin:           in,
		Stdout:          out,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialize readline: %w", err)
	}
	return &ReadlinePrompter{rl: rl, out: out}, rl, nil
}

func (p *ReadlinePrompter) ChooseScope(pr *engine.Prompt) (scope.Scope, error) {
	fmt.Fprintln(p.out, pr.Message)
	for i, o := range pr.Options {
		fmt.Fprintf(p.out, "  %d) %s - %s\n", i+1, o.Label, o.Description)
		if o.Warning != "" {
			fmt.Fprintf(p.out, "     ! %s\n", o.Warning)
		}
	}
	for {
		line, err := p.readLine()
		if err != nil {
			return "", err
		}
		if sc, ok := parseScopeAnswer(line, pr.Options); ok {
			return sc, nil
		}
		fmt.Fprintf(p.out, "Enter 1-%d, or a scope name. Empty input cancels.\n", len(pr.Options))
	}
}

func (p *ReadlinePrompter) Confirm(pr *engine.Prompt) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]\n", pr.Message)
	for {
		line, err := p.readLine()
		if err != nil {
			return false, err
		}
		if yes, ok := parseYesNo(line); ok {
			return yes, nil
		}
		fmt.Fprintln(p.out, "Answer y or n.")
	}
}

// readLine maps interrupts and end of input to errPromptCancelled. An empty
// line cancels too.
func (p *ReadlinePrompter) readLine() (string, error) {
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", errPromptCancelled
	}
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errPromptCancelled
	}
	return line, nil
}

func parseScopeAnswer(line string, opts []scope.Option) (scope.Scope, bool) {
	line = strings.ToLower(strings.TrimSpace(line))
	if n, err := strconv.Atoi(line); err == nil {
		if n >= 1 && n <= len(opts) {
			return opts[n-1].Scope, true
		}
		return "", false
	}
	sc, err := scope.ParseScope(line)
	if err != nil {
		return "", false
	}
	if _, ok := scope.Lookup(opts, sc); !ok {
		return "", false
	}
	return sc, true
}

// parseYesNo accepts y, yes, n, and no in any case. An empty answer is not
// accepted here; readLine treats it as a cancel.
func parseYesNo(line string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	default:
		return false, false
	}
}

// resolve answers prompts until the outcome is no longer a prompt. A
// prompter error other than a cancel cancels the prompt and is returned.
func resolve(ctx context.Context, o *engine.Orchestrator, s *session.Session, out engine.Outcome, err error, p Prompter) (engine.Outcome, error) {
	for err == nil && out.Status == engine.StatusPrompt && out.Prompt != nil {
		pr := out.Prompt
		switch pr.Kind {
		case engine.PromptEditScope, engine.PromptDeleteScope:
			sc, perr := p.ChooseScope(pr)
			if perr != nil {
				return abandon(o, s, pr, perr)
			}
			if pr.Kind == engine.PromptEditScope {
				out, err = o.ConfirmScope(ctx, s, pr.Token, sc)
			} else {
				out, err = o.ConfirmDelete(ctx, s, pr.Token, sc)
			}

		case engine.PromptDeleteRoutine, engine.PromptConflict, engine.PromptRecompute, engine.PromptParentCompletion:
			yes, perr := p.Confirm(pr)
			if perr != nil {
				return abandon(o, s, pr, perr)
			}
			switch {
			case pr.Kind == engine.PromptRecompute:
				out, err = o.ConfirmRecompute(ctx, s, pr.Token, yes)
			case pr.Kind == engine.PromptParentCompletion:
				out, err = o.ConfirmParentCompletion(ctx, s, pr.Token, yes)
			case !yes:
				out, err = o.CancelPrompt(s, pr.Token)
			case pr.Kind == engine.PromptDeleteRoutine:
				out, err = o.ConfirmDelete(ctx, s, pr.Token, scope.All)
			default:
				out, err = o.RetryWithOverride(ctx, s, pr.Token)
			}

		default:
			return abandon(o, s, pr, fmt.Errorf("unknown prompt %q", pr.Kind))
		}
	}
	return out, err
}

func abandon(o *engine.Orchestrator, s *session.Session, pr *engine.Prompt, cause error) (engine.Outcome, error) {
	out, err := o.CancelPrompt(s, pr.Token)
	if errors.Is(cause, errPromptCancelled) {
		return out, err
	}
	return out, cause
}
