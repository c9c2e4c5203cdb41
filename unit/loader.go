package unit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Call is the controller invocation a request was dispatched to.
type Call struct {
	Controller string
	Method     string
	Args       []string
}

// Loader is the per-request facade units use to load other units. A unit
// method receives it by declaring a *Loader parameter.
type Loader struct {
	factory *Factory
	call    Call
	// units holds loaded models, workers and assemblies by lower-cased class.
	units map[string]any
}

// NewLoader wraps f for the request dispatched to call, and provides the
// loader to unit methods invoked through f.
func NewLoader(f *Factory, call Call) *Loader {
	l := &Loader{factory: f, call: call, units: map[string]any{}}
	f.Provide(l)
	return l
}

// Controller loads a controller and invokes method on it.
func (l *Loader) Controller(ctx context.Context, name string, ctorArgs []any, method string, args ...any) (any, error) {
	return l.load(ctx, Controller, name, ctorArgs, method, args)
}

// Model loads a model, invoking method when it is not empty.
func (l *Loader) Model(ctx context.Context, name string, ctorArgs []any, method string, args ...any) (any, error) {
	return l.load(ctx, Model, name, ctorArgs, method, args)
}

// Worker loads a worker, invoking method when it is not empty.
func (l *Loader) Worker(ctx context.Context, name string, ctorArgs []any, method string, args ...any) (any, error) {
	return l.load(ctx, Worker, name, ctorArgs, method, args)
}

// Assembly loads an assembly, invoking method when it is not empty.
func (l *Loader) Assembly(ctx context.Context, name string, ctorArgs []any, method string, args ...any) (any, error) {
	return l.load(ctx, Assembly, name, ctorArgs, method, args)
}

// Workers loads every named worker without invoking anything and returns the
// last one loaded. Missing workers do not stop the others from loading; all
// failures are joined in the returned error.
func (l *Loader) Workers(ctx context.Context, names ...string) (any, error) {
	var last any
	var errs []error
	for _, name := range names {
		w, err := l.load(ctx, Worker, name, nil, "", nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		last = w
	}
	return last, errors.Join(errs...)
}

func (l *Loader) load(ctx context.Context, kind Kind, name string, ctorArgs []any, method string, args []any) (any, error) {
	instance, err := l.factory.Load(ctx, LoadSpec{Kind: kind, Name: name, CtorArgs: ctorArgs, Method: method, Args: args})
	if instance != nil && kind != Controller {
		l.units[strings.ToLower(l.factory.Locate(kind, name).Class)] = instance
	}
	return instance, err
}

// Get returns a model, worker or assembly loaded earlier in this request by
// its class name, e.g. "Mailer" for the worker "mailer".
func (l *Loader) Get(class string) (any, bool) {
	u, ok := l.units[strings.ToLower(class)]
	return u, ok
}

// Call is the controller invocation the request was dispatched to.
func (l *Loader) Call() Call { return l.call }

// Param returns the i'th dispatch argument, or "" when there is none.
func (l *Loader) Param(i int) string {
	if i < 0 || i >= len(l.call.Args) {
		return ""
	}
	return l.call.Args[i]
}

// Logger returns the request's logger.
func (l *Loader) Logger() *slog.Logger { return l.factory.Logger() }

// Depth is the number of loads currently in progress.
func (l *Loader) Depth() int { return l.factory.Depth() }
