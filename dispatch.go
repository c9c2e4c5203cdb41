package junction

import (
	"strings"

	"github.com/augustoroman/junction/unit"
)

// OutcomeSource tells how an Outcome was arrived at.
type OutcomeSource uint8

const (
	// FromRoute: a registered route matched.
	FromRoute OutcomeSource = iota
	// FromConvention: no route matched and the path itself was decoded as
	// controller/method/args.
	FromConvention
	// FromDefault: no route matched the root path.
	FromDefault
)

func (s OutcomeSource) String() string {
	switch s {
	case FromRoute:
		return "route"
	case FromConvention:
		return "convention"
	case FromDefault:
		return "default"
	}
	return "unknown"
}

// Outcome is the result of dispatching a path.
type Outcome struct {
	// Controller is the logical controller name with "/" between nested
	// segments, e.g. "admin/user". Empty when Handler is set.
	Controller string
	Method     string
	// Args is never nil.
	Args []string
	// Params holds the named captures of the matched route. Never nil.
	Params Params
	// Handler is set when the matched route's destination is a HandlerFunc.
	Handler HandlerFunc
	// Route is the matched route, nil unless Source is FromRoute.
	Route *CompiledRoute
	// Path is the normalized request path.
	Path   string
	Source OutcomeSource
}

// Dispatcher resolves request paths against a Table. It holds no mutable
// state and is safe for concurrent use once the table is sealed.
type Dispatcher struct {
	table             *Table
	locator           unit.Locator
	defaultController string
}

// NewDispatcher creates a Dispatcher. Controllers are checked for existence
// through loc; defaultController is used when a destination names none.
func NewDispatcher(t *Table, loc unit.Locator, defaultController string) *Dispatcher {
	return &Dispatcher{table: t, locator: loc, defaultController: defaultController}
}

// Resolve maps a request path to an Outcome.
//
// The args of a matched route are its captures. A route without captures
// passes the path segments after the first two, as a convention match would.
//
// Every route is tried and the last one that matches wins: a route in a higher
// priority bucket, or registered later in the same bucket, overrides earlier
// matches. Without a match the path is decoded by convention, and the root
// path goes to the default controller's index method.
//
// A controller that does not exist is reported as a *NotFoundError along with
// the Outcome that named it.
func (d *Dispatcher) Resolve(path string) (Outcome, error) {
	out := Outcome{Path: NormalizePath(path), Args: []string{}, Params: Params{}}

	var values []string
	d.table.Each(func(r *CompiledRoute) {
		if v, ok := r.match(out.Path); ok {
			out.Route, values = r, v
		}
	})

	switch {
	case out.Route != nil:
		out.Source = FromRoute
		for i, name := range out.Route.Captures {
			out.Params[name] = values[i]
		}
		if h, ok := out.Route.Destination.(HandlerFunc); ok {
			out.Handler = h
			out.Args = capturesToArgs(values)
			return out, nil
		}
		out.Controller, out.Method, _ = d.decode(out.Route.Destination.(string))
		if len(out.Route.Captures) > 0 {
			out.Args = capturesToArgs(values)
		} else {
			_, _, out.Args = d.decode(out.Path)
		}
	case out.Path != "/":
		out.Source = FromConvention
		out.Controller, out.Method, out.Args = d.decode(out.Path)
	default:
		out.Source = FromDefault
		out.Controller, out.Method = d.defaultController, "index"
	}

	loc := d.locator.Locate(unit.Controller, out.Controller)
	if !loc.Exists {
		return out, &NotFoundError{Path: out.Path, File: loc.File, Controller: out.Controller, Method: out.Method}
	}
	return out, nil
}

// decode splits "controller/method/args..." into its parts. Dashes in the
// controller segment separate nested names.
func (d *Dispatcher) decode(dest string) (controller, method string, args []string) {
	segs := strings.Split(strings.Trim(dest, "/"), "/")
	controller = strings.ReplaceAll(segs[0], "-", "/")
	if controller == "" {
		controller = d.defaultController
	}
	method = "index"
	if len(segs) > 1 && segs[1] != "" {
		method = segs[1]
	}
	args = []string{}
	if len(segs) > 2 {
		args = append(args, segs[2:]...)
	}
	return controller, method, args
}

// capturesToArgs joins capture values with "/" and splits them again, so a
// capture spanning several segments contributes one argument per segment.
func capturesToArgs(values []string) []string {
	joined := strings.Trim(strings.Join(values, "/"), "/")
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, "/")
}

// NormalizePath drops the query string and returns the path with exactly one
// leading and one trailing "/" and no empty segments.
func NormalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	var b strings.Builder
	b.WriteByte('/')
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			b.WriteString(seg)
			b.WriteByte('/')
		}
	}
	return b.String()
}
