package unit

import (
	"fmt"
	"path"
	"reflect"
	"sort"
	"strings"
)

// Hook names fired by the framework itself. Lifecycle hooks are named
// "pre_<kind>" and "post_<kind>", see PreHook and PostHook.
const (
	HookNotFound = "404"
	HookError    = "error"
)

// PreHook is the hook fired before a method of a unit of kind k is invoked.
func PreHook(k Kind) string { return "pre_" + k.String() }

// PostHook is the hook fired after a method of a unit of kind k returned.
func PostHook(k Kind) string { return "post_" + k.String() }

// HookSpec is one configured hook.
type HookSpec struct {
	Name      string
	Active    bool
	Namespace string
	Class     string
	Method    string
}

// Target is the registry key of the hook's target type: "namespace/Class".
func (s HookSpec) Target() string { return targetKey(s.Namespace, s.Class) }

// Event is passed to lifecycle hooks.
type Event struct {
	Instance any
	Kind     Kind
	// Class is the qualified name of the unit being loaded.
	Class  string
	Method string
	Args   []any
}

// Context is passed to the "404" and "error" hooks.
type Context map[string]any

var (
	eventType   = reflect.TypeOf(Event{})
	contextType = reflect.TypeOf(Context(nil))
	anyType     = reflect.TypeOf((*any)(nil)).Elem()
)

// Targets holds the types hooks can be pointed at.
type Targets struct {
	types map[string]reflect.Type
}

// NewTargets creates an empty set of hook targets.
func NewTargets() *Targets { return &Targets{types: map[string]reflect.Type{}} }

// Target registers T as namespace/class. A fresh *T is constructed every time
// a hook pointing at it fires; the configured method must be declared on *T.
//
//	unit.Target[AuditHook](targets, "hooks", "Audit")
func Target[T any](t *Targets, namespace, class string) {
	key := targetKey(namespace, class)
	if _, exists := t.types[key]; exists {
		panic(fmt.Sprintf("hook target %s already registered", key))
	}
	t.types[key] = reflect.TypeOf((*T)(nil))
}

func targetKey(namespace, class string) string {
	return path.Join(strings.Trim(namespace, "/"), class)
}

type boundHook struct {
	spec   HookSpec
	ptr    reflect.Type // *T
	method reflect.Method
}

// Hooks dispatches configured hooks. It is built once at startup and is safe
// for concurrent use.
type Hooks struct {
	specs map[string]HookSpec
	bound map[string]*boundHook
}

// NewHooks binds every active spec to its target. An active hook whose target
// type or method is missing, or whose method cannot accept the hook's
// argument, is reported as a *HookTargetError. Inactive hooks are kept but
// never bound.
func NewHooks(specs []HookSpec, targets *Targets) (*Hooks, error) {
	h := &Hooks{specs: map[string]HookSpec{}, bound: map[string]*boundHook{}}
	for _, spec := range specs {
		h.specs[spec.Name] = spec
		if !spec.Active {
			continue
		}
		b, err := bind(spec, targets)
		if err != nil {
			return nil, err
		}
		h.bound[spec.Name] = b
	}
	return h, nil
}

func bind(spec HookSpec, targets *Targets) (*boundHook, error) {
	fail := func(format string, args ...any) error {
		return &HookTargetError{Hook: spec.Name, Target: spec.Target(), Reason: fmt.Sprintf(format, args...)}
	}
	var ptr reflect.Type
	if targets != nil {
		ptr = targets.types[spec.Target()]
	}
	if ptr == nil {
		return nil, fail("is not registered")
	}
	m, ok := ptr.MethodByName(spec.Method)
	if !ok {
		return nil, fail("has no method %s", spec.Method)
	}
	// m.Type includes the receiver.
	if m.Type.NumIn() != 2 {
		return nil, fail("method %s must take exactly one argument, signature is %s", spec.Method, m.Type)
	}
	if n := m.Type.NumOut(); n > 1 || (n == 1 && m.Type.Out(0) != errorType) {
		return nil, fail("method %s may only return an error, signature is %s", spec.Method, m.Type)
	}
	want := argTypeFor(spec.Name)
	if in := m.Type.In(1); in != want && in != anyType {
		return nil, fail("method %s takes %s but the hook passes %s", spec.Method, in, want)
	}
	return &boundHook{spec: spec, ptr: ptr, method: m}, nil
}

func argTypeFor(hook string) reflect.Type {
	if strings.HasPrefix(hook, "pre_") || strings.HasPrefix(hook, "post_") {
		return eventType
	}
	return contextType
}

// Active reports whether the named hook is configured and active.
func (h *Hooks) Active(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.bound[name]
	return ok
}

// Fire runs the named hook with arg, which must be an Event for lifecycle
// hooks and a Context otherwise. Firing an absent or inactive hook does
// nothing and constructs nothing. An error returned by the hook is returned;
// a panic is not recovered.
func (h *Hooks) Fire(name string, arg any) error {
	if h == nil {
		return nil
	}
	b := h.bound[name]
	if b == nil {
		return nil
	}
	target := reflect.New(b.ptr.Elem())
	out := b.method.Func.Call([]reflect.Value{target, reflect.ValueOf(arg)})
	if len(out) == 1 && !out[0].IsNil() {
		return fmt.Errorf("hook %q: %w", name, out[0].Interface().(error))
	}
	return nil
}

// Specs lists every configured hook, sorted by name.
func (h *Hooks) Specs() []HookSpec {
	if h == nil {
		return nil
	}
	specs := make([]HookSpec, 0, len(h.specs))
	for _, s := range h.specs {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}
