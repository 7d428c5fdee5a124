package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/roach88/goalctl/internal/config"
	"github.com/roach88/goalctl/internal/engine"
	"github.com/roach88/goalctl/internal/scope"
	"github.com/roach88/goalctl/internal/session"
	"github.com/roach88/goalctl/internal/store"
	"github.com/roach88/goalctl/internal/timefmt"
)

// app is the per-command wiring of config, store, and orchestrator.
type app struct {
	opts  *RootOptions
	cfg   config.Config
	store *store.Store
	orch  *engine.Orchestrator
	norm  *timefmt.Normalizer
	out   *OutputFormatter

	in io.Reader
	rl *readline.Instance
}

func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	storeOpts := []store.Option{store.WithHorizon(cfg.Horizon())}
	if opts.Now != nil {
		storeOpts = append(storeOpts, store.WithClock(opts.Now))
	}
	slog.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database, storeOpts...)
	if err != nil {
		_ = out.Error(ErrCodeStore, fmt.Sprintf("cannot open database %s", cfg.Database), err.Error())
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	norm := timefmt.New(cfg.Location())
	orch := engine.New(st, engine.WithSessionOptions(session.WithNormalizer(norm)))
	orch.Bus().Subscribe(func(n engine.Notification) {
		slog.Debug("notification", "seq", n.Seq, "kind", string(n.Kind), "goal_id", n.GoalID, "session", n.Session)
	})

	return &app{
		opts:  opts,
		cfg:   cfg,
		store: st,
		orch:  orch,
		norm:  norm,
		out:   out,
		in:    cmd.InOrStdin(),
	}, nil
}

// Close releases the readline instance, if one was opened, and the store.
func (a *app) Close() error {
	var errs []error
	if a.rl != nil {
		errs = append(errs, a.rl.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// prompter picks how prompts are answered: the test override, flags when any
// answer was given up front, or an interactive readline session.
func (a *app) prompter(sc scope.Scope) Prompter {
	if a.opts.Prompter != nil {
		return a.opts.Prompter
	}
	if a.opts.Yes || a.opts.NoInput || sc != "" {
		return ScriptedPrompter{Scope: sc, Yes: a.opts.Yes, Strict: a.opts.NoInput}
	}
	return &lazyPrompter{a: a}
}

// lazyPrompter opens readline on the first prompt, so commands that never
// ask do not touch the terminal.
type lazyPrompter struct {
	a *app
	p *ReadlinePrompter
}

func (l *lazyPrompter) get() (*ReadlinePrompter, error) {
	if l.p != nil {
		return l.p, nil
	}
	in, ok := l.a.in.(io.ReadCloser)
	if !ok {
		in = io.NopCloser(l.a.in)
	}
	p, rl, err := NewReadlinePrompter(in, l.a.out.GetErrWriter())
	if err != nil {
		return nil, err
	}
	l.p, l.a.rl = p, rl
	return p, nil
}

func (l *lazyPrompter) ChooseScope(pr *engine.Prompt) (scope.Scope, error) {
	p, err := l.get()
	if err != nil {
		return "", err
	}
	return p.ChooseScope(pr)
}

func (l *lazyPrompter) Confirm(pr *engine.Prompt) (bool, error) {
	p, err := l.get()
	if err != nil {
		return false, err
	}
	return p.Confirm(pr)
}

// fail writes err and returns the matching exit error.
func (a *app) fail(message string, err error) error {
	code := errorCode(err)
	var details any
	var ee *engine.Error
	if errors.As(err, &ee) {
		if ee.Err != nil {
			details = ee.Err.Error()
		}
		_ = a.out.Error(code, ee.Message, details)
	} else {
		_ = a.out.Error(code, err.Error(), nil)
	}
	return WrapExitError(ExitFailure, message, err)
}
