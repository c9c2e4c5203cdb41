package unit

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
)

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	ctxType   = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// Restricter is implemented by units that have exported methods a dispatch
// must not reach. Restricted receives the Go method name ("Reset"), whatever
// spelling the request used to reach it. A restricted method that is
// requested ends the request with an *AccessDeniedError.
type Restricter interface {
	Restricted(method string) bool
}

// capabilityMethods are exported to satisfy framework interfaces and are never
// dispatchable.
var capabilityMethods = map[string]bool{"Restricted": true}

// exportedName maps a dispatch method name onto the Go method it names:
// "show" -> "Show", "show-all" and "show_all" -> "ShowAll".
func exportedName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '-' || r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lookupMethod finds the method a dispatch name refers to. callable is false
// when the method exists but may not be dispatched to.
func lookupMethod(instance any, name string) (m reflect.Value, callable, found bool) {
	goName := exportedName(name)
	if goName == "" {
		return reflect.Value{}, false, false
	}
	m = reflect.ValueOf(instance).MethodByName(goName)
	if !m.IsValid() {
		return reflect.Value{}, false, false
	}
	if capabilityMethods[goName] {
		return m, false, true
	}
	if r, ok := instance.(Restricter); ok && r.Restricted(goName) {
		return m, false, true
	}
	return m, true, true
}

// bindArgs builds the argument list for fn. Parameters whose type is provided
// by inject are filled from it; every other parameter takes the next
// positional arg, converted from a string when needed. Missing trailing args
// are zero values and surplus args are dropped unless fn is variadic.
func bindArgs(fn reflect.Type, inject map[reflect.Type]reflect.Value, args []any) ([]reflect.Value, error) {
	in := make([]reflect.Value, 0, fn.NumIn())
	next := 0
	fixed := fn.NumIn()
	if fn.IsVariadic() {
		fixed--
	}
	for i := 0; i < fixed; i++ {
		t := fn.In(i)
		if v, ok := inject[t]; ok {
			in = append(in, v)
			continue
		}
		if next >= len(args) {
			in = append(in, reflect.Zero(t))
			continue
		}
		v, err := convertArg(args[next], t)
		if err != nil {
			return nil, fmt.Errorf("%s arg: %w", ordinalize(next+1), err)
		}
		in = append(in, v)
		next++
	}
	if fn.IsVariadic() {
		elem := fn.In(fixed).Elem()
		for ; next < len(args); next++ {
			v, err := convertArg(args[next], elem)
			if err != nil {
				return nil, fmt.Errorf("%s arg: %w", ordinalize(next+1), err)
			}
			in = append(in, v)
		}
	}
	return in, nil
}

// convertArg turns a positional arg into a value of type t.
func convertArg(arg any, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if s, ok := arg.(string); ok {
		return parseString(s, t)
	}
	if isNumeric(v.Kind()) && isNumeric(t.Kind()) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %#v (%s) as %s", arg, v.Type(), t)
}

func parseString(s string, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		out.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot use %q as %s: %w", s, t, err)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot use %q as %s: %w", s, t, err)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot use %q as %s: %w", s, t, err)
		}
		out.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot use %q as %s: %w", s, t, err)
		}
		out.SetBool(b)
	case reflect.Interface:
		if !reflect.TypeOf(s).Implements(t) {
			return reflect.Value{}, fmt.Errorf("cannot use %q as %s", s, t)
		}
		out.Set(reflect.ValueOf(s))
	default:
		return reflect.Value{}, fmt.Errorf("cannot use %q as %s", s, t)
	}
	return out, nil
}

func isNumeric(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

// call invokes fn, turning a trailing non-nil error result into the returned
// error and a panic into a *PanicError describing the loads in progress.
func call(fn reflect.Value, in []reflect.Value, stack *Stack) (err error) {
	defer func() {
		if x := recover(); x != nil {
			err = newPanicError(x, stack.Frames())
		}
	}()
	out := fn.Call(in)
	if n := len(out); n > 0 && out[n-1].Type() == errorType && !out[n-1].IsNil() {
		return out[n-1].Interface().(error)
	}
	return nil
}

// ordinalize renders 1 as "1st", 2 as "2nd", 11 as "11th" and so on.
func ordinalize(n int) string {
	suffix := "th"
	switch abs := max(n, -n); {
	case abs%100 >= 11 && abs%100 <= 13:
	case abs%10 == 1:
		suffix = "st"
	case abs%10 == 2:
		suffix = "nd"
	case abs%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}
