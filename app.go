// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package pageboy

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/z5labs/pageboy/config"
	"github.com/z5labs/pageboy/internal/try"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Lifecycle provides the ability to hook into certain points of
// the App.Run process.
type Lifecycle struct {
	preRunHooks  []func(context.Context) error
	postRunHooks []func(context.Context) error
}

// PreRun registers hooks to be called after the config is read and
// every Runtime is built, but before any Runtime is run.
func (l *Lifecycle) PreRun(hooks ...func(context.Context) error) {
	l.preRunHooks = append(l.preRunHooks, hooks...)
}

// PostRun registers hooks to be called after every Runtime has returned,
// regardless of whether one returned an error or not.
func (l *Lifecycle) PostRun(hooks ...func(context.Context) error) {
	l.postRunHooks = append(l.postRunHooks, hooks...)
}

func callHooks(ctx context.Context, hooks []func(context.Context) error) error {
	errs := make([]error, 0, len(hooks))
	for _, f := range hooks {
		errs = append(errs, try.Call(func() error {
			return f(ctx)
		}))
	}
	return errors.Join(errs...)
}

type contextKey string

var (
	configContextKey    = contextKey("configContextKey")
	lifecycleContextKey = contextKey("lifecycleContextKey")
)

// ConfigFromContext returns the merged config, or nil if ctx did not
// come from an App.
func ConfigFromContext(ctx context.Context) *config.Manager {
	m, _ := ctx.Value(configContextKey).(*config.Manager)
	return m
}

// LifecycleFromContext returns the App's Lifecycle, or nil if ctx did
// not come from an App.
func LifecycleFromContext(ctx context.Context) *Lifecycle {
	l, _ := ctx.Value(lifecycleContextKey).(*Lifecycle)
	return l
}

// RuntimeBuilder represents anything which can initialize a Runtime.
type RuntimeBuilder interface {
	Build(context.Context) (Runtime, error)
}

// RuntimeBuilderFunc is a functional implementation of
// the RuntimeBuilder interface.
type RuntimeBuilderFunc func(context.Context) (Runtime, error)

// Build implements the [RuntimeBuilder] interface.
func (f RuntimeBuilderFunc) Build(ctx context.Context) (Runtime, error) {
	return f(ctx)
}

// Option are used to configure an App.
type Option func(*App)

// Name configures the name of the application.
func Name(name string) Option {
	return func(a *App) {
		a.name = name
	}
}

// WithRuntimeBuilder registers the given RuntimeBuilder with the App.
func WithRuntimeBuilder(rb RuntimeBuilder) Option {
	return func(a *App) {
		a.rbs = append(a.rbs, rb)
	}
}

// WithRuntimeBuilderFunc registers the given function as a RuntimeBuilder.
func WithRuntimeBuilderFunc(f func(context.Context) (Runtime, error)) Option {
	return func(a *App) {
		a.rbs = append(a.rbs, RuntimeBuilderFunc(f))
	}
}

// Config registers a config source with the application. Sources are
// applied in the order they were registered, so later sources override
// values from earlier ones. Sources are not applied until the command
// runs, which allows flag backed sources.
func Config(src config.Source) Option {
	return func(a *App) {
		a.cfgSrcs = append(a.cfgSrcs, src)
	}
}

// Hooks allows you to register multiple lifecycle hooks.
func Hooks(fs ...func(*Lifecycle)) Option {
	return func(a *App) {
		for _, f := range fs {
			f(&a.life)
		}
	}
}

// ErrNilRuntime is returned when a builder returns neither a Runtime
// nor an error.
var ErrNilRuntime = errors.New("nil runtime")

// App handles the lower level things of running a service in Go.
// App is responsible for the following:
//   - Reading (and merging) your config source(s)
//   - Calling your lifecycle hooks at the appropriate times
//   - Running your Runtime(s) and propagating any OS interrupts
//     via context.Context cancellation
type App struct {
	name    string
	cfgSrcs []config.Source
	rbs     []RuntimeBuilder
	life    Lifecycle
}

// New returns a fully initialized App.
func New(opts ...Option) *App {
	var name string
	if len(os.Args) > 0 {
		name = os.Args[0]
	}
	app := &App{
		name: name,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run executes the application with the given args. It also listens
// for interrupts from the underlying OS and cancels the Runtime(s)
// when one is received.
func (app *App) Run(args ...string) error {
	cmd := app.Command()
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return cmd.ExecuteContext(ctx)
}

// Command returns a cobra.Command which runs the App. This allows an
// App to be registered as a sub-command and to have its own flags.
func (app *App) Command() *cobra.Command {
	var rs []Runtime

	return &cobra.Command{
		Use:          app.name,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) (err error) {
			defer try.Recover(&err)

			m, err := config.Read(app.cfgSrcs...)
			if err != nil {
				return ConfigReadError{Cause: err}
			}

			ctx := context.WithValue(cmd.Context(), configContextKey, m)
			ctx = context.WithValue(ctx, lifecycleContextKey, &app.life)
			cmd.SetContext(ctx)

			rs = make([]Runtime, 0, len(app.rbs))
			for _, rb := range app.rbs {
				r, err := rb.Build(ctx)
				if err != nil {
					return err
				}
				if r == nil {
					return ErrNilRuntime
				}
				rs = append(rs, r)
			}

			return callHooks(ctx, app.life.preRunHooks)
		},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			defer func() {
				err = errors.Join(err, callHooks(context.WithoutCancel(ctx), app.life.postRunHooks))
			}()

			g, gctx := errgroup.WithContext(ctx)
			for _, rt := range rs {
				rt := rt
				g.Go(func() (e error) {
					defer try.Recover(&e)
					return rt.Run(gctx)
				})
			}
			return g.Wait()
		},
	}
}
