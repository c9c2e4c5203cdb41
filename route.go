package junction

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// HandlerFunc is a route destination that is called directly instead of being
// resolved to a controller. It receives the route's captures in order.
type HandlerFunc func(ctx context.Context, args []string) error

// Template is a route as registered: a source template, a destination and a
// priority. Destination is either a string of the form
// "controller/method/extra/args" or a HandlerFunc.
//
// The source template is literal text with capture tokens:
//
//	<:name|regex>  custom capture, regex is used as is
//	<:name>        [A-Za-z0-9_-]+
//	<#name>        [0-9]+
//	<*name>        .+ (spans "/")
//	<!name>        [^/]+ (a single segment)
type Template struct {
	Source      string
	Destination any
	Priority    int
}

// Params are the named captures of a matched route.
type Params map[string]string

// CompiledRoute is a Template with its anchored matcher. It is never modified
// after compilation.
type CompiledRoute struct {
	Template
	Pattern *regexp.Regexp
	// Captures lists the capture names in the order they appear in the source.
	Captures []string
}

// Match reports whether path, already normalized, is matched by the route and
// returns its captures by name.
func (r *CompiledRoute) Match(path string) (Params, bool) {
	values, ok := r.match(path)
	if !ok {
		return nil, false
	}
	p := make(Params, len(values))
	for i, name := range r.Captures {
		p[name] = values[i]
	}
	return p, true
}

// match returns the capture values in Captures order.
func (r *CompiledRoute) match(path string) ([]string, bool) {
	m := r.Pattern.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	values := make([]string, 0, len(r.Captures))
	for i, name := range r.Pattern.SubexpNames() {
		if name != "" {
			values = append(values, m[i])
		}
	}
	return values, true
}

func (r *CompiledRoute) String() string {
	return fmt.Sprintf("%s -> %v (priority %d)", r.Source, r.Destination, r.Priority)
}

// tokenPass is one substitution pass of the compiler. name is submatch 1 and
// custom regexes are submatch 2.
type tokenPass struct {
	re    *regexp.Regexp
	class string
}

// The passes run in this order and each only sees text no earlier pass
// claimed.
var tokenPasses = []tokenPass{
	{re: regexp.MustCompile(`<:([^<>|]*)\|(.*?)>`)},
	{re: regexp.MustCompile(`<:([^<>]*?)>`), class: `[A-Za-z0-9\-_]+`},
	{re: regexp.MustCompile(`<#([^<>]*?)>`), class: `[0-9]+`},
	{re: regexp.MustCompile(`<\*([^<>]*?)>`), class: `.+`},
	{re: regexp.MustCompile(`<!([^<>]*?)>`), class: `[^/]+`},
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// piece is part of a template being compiled. Claimed pieces are not
// revisited by later passes; a claimed piece with an empty expr is frozen
// literal text.
type piece struct {
	text    string
	claimed bool
	expr    string
}

type compiler struct {
	strict bool
	seen   map[string]bool
	err    *MalformedRouteError
}

// Compile compiles t. Malformed tokens, such as one with an invalid name, a
// custom regex that does not compile or a repeated capture name, are kept as
// literal text. Compile never fails.
func Compile(t Template) CompiledRoute {
	r, _ := (&compiler{seen: map[string]bool{}}).compile(t)
	return r
}

// CompileStrict is Compile but reports the first malformed token as a
// *MalformedRouteError.
func CompileStrict(t Template) (CompiledRoute, error) {
	return (&compiler{strict: true, seen: map[string]bool{}}).compile(t)
}

func (c *compiler) compile(t Template) (CompiledRoute, error) {
	src := NormalizeTemplate(t.Source)
	pieces := []piece{{text: src}}
	for _, pass := range tokenPasses {
		pieces = c.apply(pass, pieces)
		if c.err != nil {
			c.err.Source = t.Source
			return CompiledRoute{}, c.err
		}
	}

	var expr strings.Builder
	expr.WriteString("^")
	for _, p := range pieces {
		if p.expr != "" {
			expr.WriteString(p.expr)
		} else {
			expr.WriteString(regexp.QuoteMeta(p.text))
		}
	}
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		if c.strict {
			return CompiledRoute{}, &MalformedRouteError{Source: t.Source, Reason: err.Error()}
		}
		re = regexp.MustCompile("^" + regexp.QuoteMeta(src) + "$")
	}
	var captures []string
	for _, name := range re.SubexpNames() {
		if name != "" {
			captures = append(captures, name)
		}
	}
	return CompiledRoute{Template: t, Pattern: re, Captures: captures}, nil
}

func (c *compiler) apply(pass tokenPass, in []piece) []piece {
	out := make([]piece, 0, len(in))
	for _, p := range in {
		if p.claimed {
			out = append(out, p)
			continue
		}
		last := 0
		for _, m := range pass.re.FindAllStringSubmatchIndex(p.text, -1) {
			if m[0] > last {
				out = append(out, piece{text: p.text[last:m[0]]})
			}
			token := p.text[m[0]:m[1]]
			name := p.text[m[2]:m[3]]
			class := pass.class
			if class == "" {
				class = p.text[m[4]:m[5]]
			}
			out = append(out, c.token(token, name, class))
			last = m[1]
		}
		if last < len(p.text) {
			out = append(out, piece{text: p.text[last:]})
		}
	}
	return out
}

// token claims a matched token, as a capture group when it is well formed and
// as frozen literal text otherwise.
func (c *compiler) token(token, name, class string) piece {
	reason := ""
	switch {
	case !identRe.MatchString(name):
		reason = fmt.Sprintf("invalid capture name %q", name)
	case c.seen[name]:
		reason = fmt.Sprintf("capture %q used twice", name)
	default:
		re, err := regexp.Compile(class)
		if err != nil {
			reason = fmt.Sprintf("capture %q: %v", name, err)
		} else {
			for _, sub := range re.SubexpNames() {
				if sub != "" {
					reason = fmt.Sprintf("capture %q: regex may not contain named groups", name)
					break
				}
			}
		}
	}
	if reason != "" {
		if c.strict && c.err == nil {
			c.err = &MalformedRouteError{Token: token, Reason: reason}
		}
		return piece{text: token, claimed: true}
	}
	c.seen[name] = true
	return piece{text: token, claimed: true, expr: "(?P<" + name + ">" + class + ")"}
}

// NormalizeTemplate makes a route source end in exactly one "/".
func NormalizeTemplate(src string) string {
	return strings.TrimRight(src, "/") + "/"
}
