package unit

import (
	"fmt"
	"sort"
	"strings"
)

// Unit describes how to construct one loadable unit.
type Unit struct {
	// New constructs the unit without arguments. Required.
	New func() any
	// NewWith constructs the unit from positional constructor arguments. It is
	// only used when a load supplies constructor arguments; units that do not
	// take any may leave it nil.
	NewWith func(args ...any) (any, error)
}

// construct builds an instance, preferring NewWith when args are given.
func (u *Unit) construct(args []any) (any, error) {
	if len(args) == 0 {
		return u.New(), nil
	}
	if u.NewWith == nil {
		return nil, fmt.Errorf("unit takes no constructor arguments, got %d", len(args))
	}
	return u.NewWith(args...)
}

// Of returns a no-argument constructor producing a fresh *T.
//
//	reg.Controller("blog-post", unit.Of[BlogPost]())
func Of[T any]() func() any {
	return func() any { return new(T) }
}

// Module groups the registrations of a part of an application.
type Module interface {
	Register(r *Registry)
}

// ModuleFunc adapts a plain function to a Module.
type ModuleFunc func(r *Registry)

// Register calls f(r).
func (f ModuleFunc) Register(r *Registry) { f(r) }

// Registry holds the constructors of every unit known to an application.
// It is populated during startup and only read afterwards.
type Registry struct {
	units map[Kind]map[string]*Unit
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{units: map[Kind]map[string]*Unit{}}
}

// Use registers every module.
func (r *Registry) Use(mods ...Module) {
	for _, m := range mods {
		m.Register(r)
	}
}

// Register adds a unit under the logical name. Registering the same name twice
// for a kind, an empty name or a unit without New are wiring mistakes and
// panic.
func (r *Registry) Register(kind Kind, name string, u Unit) {
	key := canonicalName(name)
	if key == "" {
		panic(fmt.Sprintf("%s registered with an empty name", kind))
	}
	if u.New == nil {
		panic(fmt.Sprintf("%s %q registered without a constructor", kind, name))
	}
	byName := r.units[kind]
	if byName == nil {
		byName = map[string]*Unit{}
		r.units[kind] = byName
	}
	if _, exists := byName[key]; exists {
		panic(fmt.Sprintf("%s %q already registered", kind, name))
	}
	byName[key] = &u
}

// Controller registers a no-argument controller constructor.
func (r *Registry) Controller(name string, newFn func() any) {
	r.Register(Controller, name, Unit{New: newFn})
}

// Model registers a no-argument model constructor.
func (r *Registry) Model(name string, newFn func() any) {
	r.Register(Model, name, Unit{New: newFn})
}

// Worker registers a no-argument worker constructor.
func (r *Registry) Worker(name string, newFn func() any) {
	r.Register(Worker, name, Unit{New: newFn})
}

// Assembly registers a no-argument assembly constructor.
func (r *Registry) Assembly(name string, newFn func() any) {
	r.Register(Assembly, name, Unit{New: newFn})
}

// Lookup finds the unit registered for kind and name.
func (r *Registry) Lookup(kind Kind, name string) (*Unit, bool) {
	u, ok := r.units[kind][canonicalName(name)]
	return u, ok
}

// Names lists the canonical names registered for kind, sorted.
func (r *Registry) Names(kind Kind) []string {
	names := make([]string, 0, len(r.units[kind]))
	for name := range r.units[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// canonicalName folds a logical name to its registry key: "Admin-User" and
// "admin/user" both become "admin/user".
func canonicalName(name string) string {
	name = strings.ReplaceAll(name, "-", "/")
	name = strings.Trim(name, "/")
	return strings.ToLower(name)
}
