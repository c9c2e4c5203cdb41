package unit

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"text/tabwriter"
)

var (
	// ErrNotFound matches every *ResolutionError.
	ErrNotFound = errors.New("unit not found")
	// ErrAccessDenied matches every *AccessDeniedError.
	ErrAccessDenied = errors.New("access denied")
)

// ResolutionError reports a unit that could not be located.
type ResolutionError struct {
	Location Location
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("the %s %s was not found", e.Location.Kind, e.Location.File)
}

func (e *ResolutionError) Is(target error) bool { return target == ErrNotFound }

// Fatal reports whether the miss ends the request: only controllers are
// required, a missing model, worker or assembly leaves the caller to carry on
// without it.
func (e *ResolutionError) Fatal() bool { return e.Location.Kind == Controller }

// AccessDeniedError reports a method that exists on a unit but may not be
// invoked by a dispatch. It always ends the request and no hook runs.
type AccessDeniedError struct {
	Qualified string
	Method    string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("you do not have access to %s.%s", e.Qualified, e.Method)
}

func (e *AccessDeniedError) Is(target error) bool { return target == ErrAccessDenied }

// CallError wraps a failure constructing a unit or calling one of its methods.
type CallError struct {
	Qualified string
	// Method is empty when construction failed.
	Method string
	Err    error
}

func (e *CallError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("constructing %s: %v", e.Qualified, e.Err)
	}
	return fmt.Sprintf("calling %s.%s: %v", e.Qualified, e.Method, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// HookTargetError reports an active hook whose configured target cannot be
// used. Hooks are trusted wiring, so this is raised while the application
// starts rather than when the hook fires.
type HookTargetError struct {
	Hook   string
	Target string
	Reason string
}

func (e *HookTargetError) Error() string {
	return fmt.Sprintf("hook %q: target %s %s", e.Hook, e.Target, e.Reason)
}

// Frame is one load on the stack at the time of a failure.
type Frame struct {
	Kind      Kind
	Qualified string
	Method    string
}

func (f Frame) String() string {
	if f.Method == "" {
		return f.Qualified
	}
	return f.Qualified + "." + f.Method
}

// PanicError is returned when a unit method panics. It carries the panic
// value (Val), the raw Go stack (RawStack) and the loads that were in progress
// (Trail, innermost first).
type PanicError struct {
	Val      any
	RawStack string
	Trail    []Frame
}

func newPanicError(x any, stack []Frame) *PanicError {
	var buf [8192]byte
	n := runtime.Stack(buf[:], false)
	trail := make([]Frame, len(stack))
	for i := range stack {
		trail[i] = stack[len(stack)-i-1]
	}
	return &PanicError{Val: x, RawStack: string(buf[:n]), Trail: trail}
}

// FilteredStack returns the stack trace without the frames of this package's
// invocation machinery and of reflect.Value.Call.
func (p *PanicError) FilteredStack() []string {
	lines := strings.Split(p.RawStack, "\n")
	var filtered []string
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "github.com/augustoroman/junction/unit.") &&
			!strings.HasPrefix(line, "github.com/augustoroman/junction/unit.(*Factory).Load(") {
			i++
			continue
		}
		if strings.HasPrefix(line, "reflect.Value.call") || strings.HasPrefix(line, "reflect.Value.Call") {
			i++
			continue
		}
		filtered = append(filtered, line)
	}
	return filtered
}

// Location returns the file and line of the innermost frame of the filtered
// stack that is not the runtime's panic machinery.
func (p *PanicError) Location() (file string, line int) {
	stack := p.FilteredStack()
	for i := 0; i+1 < len(stack); i++ {
		fn := stack[i]
		if strings.HasPrefix(fn, "\t") || !strings.HasPrefix(stack[i+1], "\t") {
			continue
		}
		if strings.HasPrefix(fn, "panic(") || strings.HasPrefix(fn, "runtime.") {
			continue
		}
		loc := strings.TrimSpace(stack[i+1])
		if sp := strings.LastIndex(loc, " +0x"); sp >= 0 {
			loc = loc[:sp]
		}
		if colon := strings.LastIndex(loc, ":"); colon > 0 {
			fmt.Sscanf(loc[colon+1:], "%d", &line)
			return loc[:colon], line
		}
	}
	return "", 0
}

func (p *PanicError) Error() string {
	var trail bytes.Buffer
	w := tabwriter.NewWriter(&trail, 5, 7, 2, ' ', 0)
	for _, f := range p.Trail {
		fmt.Fprintf(w, "    %s\t%s\n", f.Kind, f)
	}
	w.Flush()
	where := "<unknown>"
	if len(p.Trail) > 0 {
		where = p.Trail[0].String()
	}
	return fmt.Sprintf(
		"Panic executing %s: %v\n"+
			"  Loads in progress:\n%s"+
			"  Filtered call stack:\n    %s",
		where, p.Val,
		trail.String(),
		strings.Join(p.FilteredStack(), "\n    "))
}
