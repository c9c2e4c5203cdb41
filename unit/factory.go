package unit

import (
	"context"
	"io"
	"log/slog"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the name of the tracer loads are reported to when no tracer is
// configured.
const TracerName = "junction"

// Results reported to a LoadObserver.
const (
	ResultLoaded       = "loaded"
	ResultNotFound     = "not_found"
	ResultAccessDenied = "access_denied"
	ResultFailed       = "failed"
)

// LoadSpec describes one load: which unit to construct, with which
// constructor arguments, and optionally which method to invoke with which
// arguments.
type LoadSpec struct {
	Kind     Kind
	Name     string
	CtorArgs []any
	Method   string
	Args     []any
}

// LoadObserver is notified of the result of every load.
type LoadObserver interface {
	ObserveLoad(kind Kind, result string)
}

// Factory loads units for a single request. It owns the request's load stack
// and the cache of locations already resolved, so it must not be shared
// between requests or goroutines.
type Factory struct {
	locator  Locator
	hooks    *Hooks
	logger   *slog.Logger
	tracer   trace.Tracer
	observer LoadObserver

	inject map[reflect.Type]reflect.Value
	stack  Stack
	loaded map[Kind]map[string]Location
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithHooks sets the hooks fired around method invocations.
func WithHooks(h *Hooks) FactoryOption {
	return func(f *Factory) { f.hooks = h }
}

// WithLogger sets the logger. It is also injected into unit methods that take
// a *slog.Logger.
func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithTracer sets the tracer every load is recorded with.
func WithTracer(t trace.Tracer) FactoryOption {
	return func(f *Factory) {
		if t != nil {
			f.tracer = t
		}
	}
}

// WithObserver sets the observer notified of load results.
func WithObserver(o LoadObserver) FactoryOption {
	return func(f *Factory) { f.observer = o }
}

// WithProvided makes values available to unit methods by type, see Provide.
func WithProvided(vals ...any) FactoryOption {
	return func(f *Factory) { f.Provide(vals...) }
}

// NewFactory creates a Factory resolving units through loc.
func NewFactory(loc Locator, opts ...FactoryOption) *Factory {
	f := &Factory{
		locator: loc,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer(TracerName),
		inject:  map[reflect.Type]reflect.Value{},
		loaded:  map[Kind]map[string]Location{},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.inject[reflect.TypeOf(f.logger)] = reflect.ValueOf(f.logger)
	return f
}

// Provide makes values available to unit methods: a method parameter whose
// type matches a provided value receives it instead of a positional argument.
// To provide a value under an interface type, pass a pointer to an interface
// variable:
//
//	var w io.Writer = os.Stdout
//	f.Provide(&w) // methods taking an io.Writer receive os.Stdout
func (f *Factory) Provide(vals ...any) {
	for _, v := range vals {
		rv := reflect.ValueOf(v)
		if !rv.IsValid() {
			continue
		}
		if t := rv.Type(); t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Interface {
			f.inject[t.Elem()] = rv.Elem()
			continue
		}
		f.inject[rv.Type()] = rv
	}
}

// Locate resolves a unit through the factory's cache.
func (f *Factory) Locate(kind Kind, name string) Location {
	key := canonicalName(name)
	byName := f.loaded[kind]
	if loc, ok := byName[key]; ok {
		return loc
	}
	loc := f.locator.Locate(kind, name)
	if byName == nil {
		byName = map[string]Location{}
		f.loaded[kind] = byName
	}
	byName[key] = loc
	return loc
}

// Load constructs the unit named by spec and, when spec.Method is set and the
// unit has that method, invokes it between the pre_ and post_ hooks of the
// unit's kind. The instance is returned whenever it was constructed, even if
// the invocation failed.
func (f *Factory) Load(ctx context.Context, spec LoadSpec) (_ any, err error) {
	ctx, span := f.tracer.Start(ctx, "junction.load."+spec.Kind.String(), trace.WithAttributes(
		attribute.String("junction.unit.kind", spec.Kind.String()),
		attribute.String("junction.unit.name", spec.Name),
		attribute.String("junction.unit.method", spec.Method),
	))
	result := ResultLoaded
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if f.observer != nil {
			f.observer.ObserveLoad(spec.Kind, result)
		}
	}()

	loc := f.Locate(spec.Kind, spec.Name)
	if !loc.Exists || loc.Unit == nil {
		result = ResultNotFound
		f.logger.Error("unable to locate the requested unit",
			"kind", spec.Kind.String(), "name", spec.Name, "file", loc.File)
		return nil, &ResolutionError{Location: loc}
	}
	span.SetAttributes(attribute.String("junction.unit.class", loc.Qualified()))

	f.stack.Push(Frame{Kind: spec.Kind, Qualified: loc.Qualified(), Method: spec.Method})
	defer f.stack.Pop()

	instance, err := f.construct(loc, spec.CtorArgs)
	if err != nil {
		result = ResultFailed
		return nil, err
	}
	f.logger.Debug("object created", "kind", spec.Kind.String(), "class", loc.Qualified())

	if spec.Method == "" {
		return instance, nil
	}
	m, callable, found := lookupMethod(instance, spec.Method)
	if !found {
		f.logger.Warn("method not found", "class", loc.Qualified(), "method", spec.Method)
		return instance, nil
	}
	if !callable {
		result = ResultAccessDenied
		return instance, &AccessDeniedError{Qualified: loc.Qualified(), Method: spec.Method}
	}

	top, _ := f.stack.Top()
	ev := Event{Instance: instance, Kind: top, Class: loc.Qualified(), Method: spec.Method, Args: spec.Args}
	if err := f.hooks.Fire(PreHook(top), ev); err != nil {
		result = ResultFailed
		return instance, err
	}

	f.inject[ctxType] = reflect.ValueOf(&ctx).Elem()
	in, err := bindArgs(m.Type(), f.inject, spec.Args)
	if err != nil {
		result = ResultFailed
		return instance, &CallError{Qualified: loc.Qualified(), Method: spec.Method, Err: err}
	}
	if err := call(m, in, &f.stack); err != nil {
		result = ResultFailed
		if _, isPanic := err.(*PanicError); isPanic {
			return instance, err
		}
		return instance, &CallError{Qualified: loc.Qualified(), Method: spec.Method, Err: err}
	}

	if err := f.hooks.Fire(PostHook(top), ev); err != nil {
		result = ResultFailed
		return instance, err
	}
	return instance, nil
}

func (f *Factory) construct(loc Location, args []any) (instance any, err error) {
	defer func() {
		if x := recover(); x != nil {
			err = newPanicError(x, f.stack.Frames())
		}
	}()
	instance, err = loc.Unit.construct(args)
	if err != nil {
		return nil, &CallError{Qualified: loc.Qualified(), Err: err}
	}
	return instance, nil
}

// Depth is the number of loads currently in progress.
func (f *Factory) Depth() int { return f.stack.Depth() }

// Loading lists the loads currently in progress, outermost first.
func (f *Factory) Loading() []Frame { return f.stack.Frames() }

// Logger returns the factory's logger.
func (f *Factory) Logger() *slog.Logger { return f.logger }
