package junction

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
)

// DefaultPriority is the priority of a route registered without one.
const DefaultPriority = 10

// Table holds compiled routes bucketed by priority. Buckets are scanned in
// ascending priority and routes within a bucket in registration order.
//
// A Table is populated during startup. Once sealed, which App does when it
// starts, registering another route panics and the table may be read from
// any number of goroutines.
type Table struct {
	buckets    map[int][]*CompiledRoute
	priorities []int
	sealed     atomic.Bool
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{buckets: map[int][]*CompiledRoute{}}
}

// Route compiles source and registers it with dest. Malformed tokens in source
// are kept as literal text, see Compile. An optional priority replaces
// DefaultPriority.
func (t *Table) Route(source string, dest any, priority ...int) {
	r := Compile(Template{Source: source, Destination: dest, Priority: pickPriority(priority)})
	t.Add(&r)
}

// RouteStrict is Route but rejects a source with malformed tokens.
func (t *Table) RouteStrict(source string, dest any, priority ...int) error {
	r, err := CompileStrict(Template{Source: source, Destination: dest, Priority: pickPriority(priority)})
	if err != nil {
		return err
	}
	t.Add(&r)
	return nil
}

func pickPriority(priority []int) int {
	switch len(priority) {
	case 0:
		return DefaultPriority
	case 1:
		return priority[0]
	}
	panicf("at most one priority may be given, got %v", priority)
	return 0
}

// Add registers an already compiled route. The destination must be a string
// or a HandlerFunc.
func (t *Table) Add(r *CompiledRoute) {
	if t.sealed.Load() {
		panicf("cannot register route %#q: the route table is sealed", r.Source)
	}
	switch d := r.Destination.(type) {
	case string:
	case HandlerFunc:
	case func(ctx context.Context, args []string) error:
		r.Destination = HandlerFunc(d)
	default:
		panicf("route %#q: destination must be a string or a HandlerFunc, got %T", r.Source, r.Destination)
	}
	if _, exists := t.buckets[r.Priority]; !exists {
		t.priorities = append(t.priorities, r.Priority)
		sort.Ints(t.priorities)
	}
	t.buckets[r.Priority] = append(t.buckets[r.Priority], r)
}

// Seal forbids further registrations.
func (t *Table) Seal() { t.sealed.Store(true) }

// Sealed reports whether Seal has been called.
func (t *Table) Sealed() bool { return t.sealed.Load() }

// Each calls fn for every route in scan order.
func (t *Table) Each(fn func(r *CompiledRoute)) {
	for _, p := range t.priorities {
		for _, r := range t.buckets[p] {
			fn(r)
		}
	}
}

// Routes lists every route in scan order.
func (t *Table) Routes() []*CompiledRoute {
	routes := make([]*CompiledRoute, 0, t.Len())
	t.Each(func(r *CompiledRoute) { routes = append(routes, r) })
	return routes
}

// Len is the number of registered routes.
func (t *Table) Len() int {
	n := 0
	for _, b := range t.buckets {
		n += len(b)
	}
	return n
}

func panicf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
