package junction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/augustoroman/junction/config"
	"github.com/augustoroman/junction/unit"
)

// App ties the route table, the unit registry and the hooks of an application
// together and runs requests through them.
//
// Routes, units, hooks and hook targets are registered before the first
// request; the App starts itself on the first Handle or Resolve (or an
// explicit Start) and is read-only and safe for concurrent use afterwards.
type App struct {
	cfg       config.Config
	table     *Table
	units     *unit.Registry
	targets   *unit.Targets
	hookSpecs []unit.HookSpec
	source    unit.Source
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	provided  []any

	startOnce  sync.Once
	startErr   error
	resolver   *unit.Resolver
	hooks      *unit.Hooks
	dispatcher *Dispatcher
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the application logger. A nil logger discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics records requests and loads in m.
func WithMetrics(m *Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithTracer sets the tracer unit loads are recorded with.
func WithTracer(t trace.Tracer) Option {
	return func(a *App) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithSource requires every unit to have its conventional source file in src.
// It replaces the directory named by the config's AppDir.
func WithSource(src unit.Source) Option {
	return func(a *App) { a.source = src }
}

// WithHooks adds hooks.
func WithHooks(specs ...unit.HookSpec) Option {
	return func(a *App) { a.hookSpecs = append(a.hookSpecs, specs...) }
}

// WithTargets sets the types hooks may point at.
func WithTargets(t *unit.Targets) Option {
	return func(a *App) { a.targets = t }
}

// WithProvided makes values available to every unit method by type, see
// unit.Factory.Provide.
func WithProvided(vals ...any) Option {
	return func(a *App) { a.provided = append(a.provided, vals...) }
}

// New creates an App.
func New(cfg config.Config, opts ...Option) *App {
	a := &App{
		cfg:     cfg,
		table:   NewTable(),
		units:   unit.NewRegistry(),
		targets: unit.NewTargets(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer(unit.TracerName),
	}
	if cfg.AppDir != "" {
		a.source = unit.Dir(cfg.AppDir)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the configuration the App was created with.
func (a *App) Config() config.Config { return a.cfg }

// Route registers a route, see Table.Route. When the config asks for strict
// routes a malformed source panics.
func (a *App) Route(source string, dest any, priority ...int) {
	if !a.cfg.StrictRoutes {
		a.table.Route(source, dest, priority...)
		return
	}
	if err := a.table.RouteStrict(source, dest, priority...); err != nil {
		panic(err)
	}
}

// Use registers the units of every module.
func (a *App) Use(mods ...unit.Module) { a.units.Use(mods...) }

// Units is the registry units are registered in.
func (a *App) Units() *unit.Registry { return a.units }

// Targets is the set of types hooks may point at.
func (a *App) Targets() *unit.Targets { return a.targets }

// Table is the route table.
func (a *App) Table() *Table { return a.table }

// Hook adds hooks.
func (a *App) Hook(specs ...unit.HookSpec) { a.hookSpecs = append(a.hookSpecs, specs...) }

// LoadFile registers the routes, hooks and autoloaded workers of a routes
// file. It returns ErrStarted once the App has started.
func (a *App) LoadFile(f *config.File) error {
	if a.table.Sealed() {
		return ErrStarted
	}
	for _, r := range f.Routes {
		prio := r.PriorityOr(DefaultPriority)
		if a.cfg.StrictRoutes {
			if err := a.table.RouteStrict(r.Source, r.Destination, prio); err != nil {
				return err
			}
			continue
		}
		a.table.Route(r.Source, r.Destination, prio)
	}
	a.hookSpecs = append(a.hookSpecs, f.HookSpecs()...)
	a.cfg.Workers = append(a.cfg.Workers, f.Workers...)
	return nil
}

// Start seals the route table, indexes the unit sources and binds the hooks.
// It runs once; later calls return the result of the first.
func (a *App) Start() error {
	a.startOnce.Do(func() { a.startErr = a.start() })
	return a.startErr
}

func (a *App) start() error {
	a.table.Seal()

	opts := []unit.ResolverOption{
		unit.WithRegistry(a.units),
		unit.WithExtension(a.cfg.SourceExt),
		unit.WithResolverLogger(a.logger),
	}
	for kind, layout := range a.cfg.Layouts() {
		opts = append(opts, unit.WithLayout(kind, layout))
	}
	if a.source != nil {
		opts = append(opts, unit.WithSource(a.source))
	}
	resolver, err := unit.NewResolver(opts...)
	if err != nil {
		return fmt.Errorf("indexing unit sources: %w", err)
	}
	hooks, err := unit.NewHooks(a.hookSpecs, a.targets)
	if err != nil {
		return err
	}
	a.resolver, a.hooks = resolver, hooks
	a.dispatcher = NewDispatcher(a.table, resolver, a.cfg.DefaultController)
	a.logger.Info("junction started",
		"routes", a.table.Len(),
		"controllers", len(a.units.Names(unit.Controller)),
		"hooks", len(hooks.Specs()))
	return nil
}

// Resolver returns the unit resolver, starting the App if needed.
func (a *App) Resolver() (*unit.Resolver, error) {
	if err := a.Start(); err != nil {
		return nil, err
	}
	return a.resolver, nil
}

// Resolve dispatches path without handling it.
func (a *App) Resolve(path string) (Outcome, error) {
	if err := a.Start(); err != nil {
		return Outcome{}, err
	}
	return a.dispatcher.Resolve(path)
}

// Handle runs the request for path: it dispatches the path, fires the "404"
// hook when no controller exists for it, and otherwise loads the configured
// workers and the controller and invokes the dispatched method. provide adds
// request-scoped values for unit methods to receive by type.
//
// Failures other than a missing controller or a restricted method fire the
// "error" hook. The failure is returned in every case.
func (a *App) Handle(ctx context.Context, path string, provide ...any) error {
	return a.handle(ctx, path, uuid.NewString(), nil, provide)
}

// handle is Handle, calling dispatched with the Outcome once the path has been
// resolved.
func (a *App) handle(ctx context.Context, path, requestID string, dispatched func(Outcome), provide []any) (err error) {
	if err := a.Start(); err != nil {
		return err
	}
	start := time_Now()
	logger := a.logger.With("request_id", requestID, "path", path)

	out, err := a.dispatcher.Resolve(path)
	if dispatched != nil {
		dispatched(out)
	}
	source := out.Source.String()
	if out.Handler != nil {
		source = "handler"
	}
	defer func() { a.metrics.ObserveRequest(source, resultOf(err), time_Now().Sub(start)) }()

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		logger.Info("no controller for request", "controller", notFound.Controller, "file", notFound.File)
		if herr := a.hooks.Fire(unit.HookNotFound, notFound.Context()); herr != nil {
			return errors.Join(err, herr)
		}
		return err
	} else if err != nil {
		return err
	}

	if out.Handler != nil {
		return a.fail(logger, out.Handler(ctx, out.Args))
	}

	f := unit.NewFactory(a.resolver,
		unit.WithHooks(a.hooks),
		unit.WithLogger(logger),
		unit.WithTracer(a.tracer),
		unit.WithObserver(a.observer()),
		unit.WithProvided(a.provided...),
		unit.WithProvided(out.Params),
		unit.WithProvided(provide...),
	)
	l := unit.NewLoader(f, unit.Call{Controller: out.Controller, Method: out.Method, Args: out.Args})

	if len(a.cfg.Workers) > 0 {
		if _, werr := l.Workers(ctx, a.cfg.Workers...); werr != nil {
			logger.Warn("autoloading workers", "error", werr)
		}
	}

	args := make([]any, len(out.Args))
	for i, arg := range out.Args {
		args[i] = arg
	}
	_, err = l.Controller(ctx, out.Controller, nil, out.Method, args...)
	return a.fail(logger, err)
}

func (a *App) observer() unit.LoadObserver {
	if a.metrics == nil {
		return nil
	}
	return a.metrics
}

// fail logs a request failure and fires the "error" hook for it.
func (a *App) fail(logger *slog.Logger, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, Done):
		return err
	case errors.Is(err, unit.ErrAccessDenied):
		logger.Warn("access denied", "error", err)
		return err
	}
	logger.Error("request failed", "error", err)
	if herr := a.hooks.Fire(unit.HookError, errorContext(err)); herr != nil {
		return errors.Join(err, herr)
	}
	return err
}

// errorContext is the argument the "error" hook receives.
func errorContext(err error) unit.Context {
	ctx := unit.Context{
		"heading": "Error",
		"message": err.Error(),
		"type":    fmt.Sprintf("%T", err),
		"code":    ToError(err).Code,
		"file":    "",
		"line":    0,
		"trace":   "",
		"date":    time_Now().Format("Jan 02, 2006 03:04PM"),
	}
	var p *unit.PanicError
	if errors.As(err, &p) {
		file, line := p.Location()
		ctx["heading"] = "Panic"
		ctx["message"] = fmt.Sprint(p.Val)
		ctx["file"] = file
		ctx["line"] = line
		ctx["trace"] = strings.Join(p.FilteredStack(), "\n")
	}
	return ctx
}

func resultOf(err error) string {
	switch {
	case err == nil, errors.Is(err, Done):
		return "ok"
	case errors.Is(err, ErrNotFound), errors.Is(err, unit.ErrNotFound):
		return "not_found"
	case errors.Is(err, unit.ErrAccessDenied):
		return "access_denied"
	}
	return "error"
}
