package unit

import (
	"io"
	"log/slog"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultExtension is the source file extension units are expected to use.
const DefaultExtension = ".go"

// Layout is the directory convention of one kind of unit.
type Layout struct {
	// Root is the directory, relative to the source root, holding the units.
	Root string
	// Namespace prefixes the qualified name of every unit of the kind.
	Namespace string
	// PerUnitDir places every unit in a directory of its own:
	// <Root>/<Name>/<Name><ext> instead of <Root>/<name><ext>.
	PerUnitDir bool
}

// DefaultLayouts returns the conventional layouts: application controllers and
// models under controller/ and model/, and workers and assemblies in one
// directory per unit under worker/ and assembly/.
func DefaultLayouts() map[Kind]Layout {
	return map[Kind]Layout{
		Controller: {Root: "controller", Namespace: "app/controller"},
		Model:      {Root: "model", Namespace: "app/model"},
		Worker:     {Root: "worker", Namespace: "worker", PerUnitDir: true},
		Assembly:   {Root: "assembly", Namespace: "assembly", PerUnitDir: true},
	}
}

// Location is the result of resolving a logical unit name.
type Location struct {
	Kind Kind
	// Name is the logical name as requested.
	Name string
	// File is the slash-separated source path the unit is expected at.
	File string
	// Namespace and Class split the qualified name, e.g. "app/controller/admin"
	// and "User".
	Namespace string
	Class     string
	Exists    bool
	// Unit is the registered constructor, nil when not registered.
	Unit *Unit
}

// Qualified is the fully-qualified unit name, e.g. "app/controller/admin.User".
func (l Location) Qualified() string {
	if l.Namespace == "" {
		return l.Class
	}
	return l.Namespace + "." + l.Class
}

// Locator maps a kind and logical name to a Location.
type Locator interface {
	Locate(kind Kind, name string) Location
}

// Resolver is the Locator used by applications. A unit exists when it is
// registered in the configured Registry and, if a Source is configured, its
// conventional source file is present. Resolver is read-only after
// construction and safe for concurrent use.
type Resolver struct {
	layouts map[Kind]Layout
	ext     string
	units   *Registry
	// files maps lower-cased source paths to their actual spelling. nil when no
	// source was configured.
	files  map[string]string
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver) error

// WithRegistry requires units to be registered in r.
func WithRegistry(r *Registry) ResolverOption {
	return func(res *Resolver) error {
		res.units = r
		return nil
	}
}

// WithSource requires units to have a source file in src. The source is
// listed once, when the Resolver is built.
func WithSource(src Source) ResolverOption {
	return func(res *Resolver) error {
		files, err := src.Files()
		if err != nil {
			return err
		}
		res.files = make(map[string]string, len(files))
		for _, f := range files {
			res.files[strings.ToLower(f)] = f
		}
		return nil
	}
}

// WithLayout overrides the layout of one kind.
func WithLayout(kind Kind, l Layout) ResolverOption {
	return func(res *Resolver) error {
		res.layouts[kind] = l
		return nil
	}
}

// WithExtension sets the source file extension, DefaultExtension otherwise.
func WithExtension(ext string) ResolverOption {
	return func(res *Resolver) error {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		res.ext = ext
		return nil
	}
}

// WithResolverLogger sets the logger that resolution misses are reported to.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(res *Resolver) error {
		if l != nil {
			res.logger = l
		}
		return nil
	}
}

// NewResolver builds a Resolver. It fails only when a configured Source cannot
// be listed.
func NewResolver(opts ...ResolverOption) (*Resolver, error) {
	r := &Resolver{
		layouts: DefaultLayouts(),
		ext:     DefaultExtension,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Locate resolves name, which uses "-" (or "/") between nested segments.
func (r *Resolver) Locate(kind Kind, name string) Location {
	loc := r.place(kind, name)
	if r.units == nil && r.files == nil {
		return loc
	}
	loc.Exists = true
	if r.units != nil {
		loc.Unit, loc.Exists = r.units.Lookup(kind, name)
	}
	if r.files != nil && loc.Exists {
		actual, ok := r.files[strings.ToLower(loc.File)]
		if ok {
			loc.File = actual
		}
		loc.Exists = ok
	}
	if !loc.Exists {
		r.logger.Debug("unit not located", "kind", kind.String(), "name", name, "file", loc.File)
	}
	return loc
}

// place computes the conventional file and qualified name of a unit.
func (r *Resolver) place(kind Kind, name string) Location {
	layout := r.layouts[kind]
	segs := splitName(name)
	loc := Location{Kind: kind, Name: name}
	if len(segs) == 0 {
		return loc
	}
	dirs, last := segs[:len(segs)-1], segs[len(segs)-1]
	loc.Class = upperFirst(last)

	if layout.PerUnitDir {
		elems := append([]string{layout.Root}, dirs...)
		elems = append(elems, loc.Class, loc.Class+r.ext)
		loc.File = path.Join(elems...)
		loc.Namespace = path.Join(append(append([]string{layout.Namespace}, dirs...), loc.Class)...)
		return loc
	}
	elems := append([]string{layout.Root}, dirs...)
	elems = append(elems, last+r.ext)
	loc.File = path.Join(elems...)
	loc.Namespace = path.Join(append([]string{layout.Namespace}, dirs...)...)
	return loc
}

func splitName(name string) []string {
	name = strings.ReplaceAll(name, "-", "/")
	var segs []string
	for _, s := range strings.Split(name, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
