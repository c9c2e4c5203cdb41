package junction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/augustoroman/junction/config"
	"github.com/augustoroman/junction/unit"
)

// fired records the contexts the test hooks received.
var fired []unit.Context

type pageHooks struct{}

func (pageHooks) NotFound(c unit.Context) { fired = append(fired, c) }
func (pageHooks) Failed(c unit.Context)   { fired = append(fired, c) }

type blog struct{}

func (b *blog) Index(out *strings.Builder) { out.WriteString("home") }

func (b *blog) Show(out *strings.Builder, id int, p Params) {
	fmt.Fprintf(out, "post %d (%s)", id, p["id"])
}

func (b *blog) Whoami(out *strings.Builder, l *unit.Loader) {
	if s, ok := l.Get("session"); ok {
		out.WriteString(s.(*appSession).User)
		return
	}
	out.WriteString("nobody")
}

func (b *blog) Fail() error                   { return errors.New("db down") }
func (b *blog) Boom()                         { panic("kaboom") }
func (b *blog) Stop() error                   { return Done }
func (b *blog) Drafts(out *strings.Builder)   { out.WriteString("drafts") }
func (b *blog) Restricted(method string) bool { return method == "Drafts" }

type appSession struct{ User string }

var hookSpecs = []unit.HookSpec{
	{Name: unit.HookNotFound, Active: true, Namespace: "hooks", Class: "Pages", Method: "NotFound"},
	{Name: unit.HookError, Active: true, Namespace: "hooks", Class: "Pages", Method: "Failed"},
}

func newTestApp(t *testing.T, cfg config.Config, opts ...Option) *App {
	t.Helper()
	fired = nil
	a := New(cfg, append([]Option{WithHooks(hookSpecs...)}, opts...)...)
	a.Units().Controller("blog", unit.Of[blog]())
	a.Units().Controller("index", unit.Of[blog]())
	a.Units().Worker("session", func() any { return &appSession{User: "ann"} })
	unit.Target[pageHooks](a.Targets(), "hooks", "Pages")
	a.Route("/post/<#id>", "blog/show")
	return a
}

func fixClock(t *testing.T) {
	now := time.Date(2001, 2, 3, 16, 5, 6, 7, time.UTC)
	time_Now = func() time.Time { return now }
	t.Cleanup(func() { time_Now = time.Now })
}

func TestHandleDispatchesToController(t *testing.T) {
	a := newTestApp(t, config.Default())
	for path, want := range map[string]string{
		"/":              "home",
		"/post/42":       "post 42 (42)",
		"/blog/show/7":   "post 7 ()",
		"/blog/whoami":   "nobody",
		"/blog/ignored/": "",
	} {
		var out strings.Builder
		require.NoError(t, a.Handle(context.Background(), path, &out), path)
		assert.Equal(t, want, out.String(), path)
	}
	assert.Empty(t, fired)
}

func TestHandleAutoloadsWorkers(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = []string{"ghost", "session"}
	a := newTestApp(t, cfg)

	var out strings.Builder
	require.NoError(t, a.Handle(context.Background(), "/blog/whoami", &out), "missing workers are only logged")
	assert.Equal(t, "ann", out.String())
}

func TestHandleNotFound(t *testing.T) {
	a := newTestApp(t, config.Default())
	err := a.Handle(context.Background(), "/ghost/show/1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.Len(t, fired, 1)
	assert.Equal(t, unit.Context{
		"file":       "controller/ghost.go",
		"controller": "ghost",
		"method":     "show",
		"message":    "404",
	}, fired[0])
}

func TestHandleFailures(t *testing.T) {
	fixClock(t)
	a := newTestApp(t, config.Default())
	ctx := context.Background()

	err := a.Handle(ctx, "/blog/fail")
	var callErr *unit.CallError
	require.ErrorAs(t, err, &callErr)
	require.Len(t, fired, 1)
	c := fired[0]
	assert.Equal(t, "Error", c["heading"])
	assert.Equal(t, "calling app/controller.Blog.fail: db down", c["message"])
	assert.Equal(t, "*unit.CallError", c["type"])
	assert.Equal(t, 500, c["code"])
	assert.Equal(t, "Feb 03, 2001 04:05PM", c["date"])
	assert.Equal(t, "", c["file"])

	fired = nil
	err = a.Handle(ctx, "/blog/boom")
	var panicErr *unit.PanicError
	require.ErrorAs(t, err, &panicErr)
	require.Len(t, fired, 1)
	c = fired[0]
	assert.Equal(t, "Panic", c["heading"])
	assert.Equal(t, "kaboom", c["message"])
	assert.True(t, strings.HasSuffix(c["file"].(string), "app_test.go"), "file: %v", c["file"])
	assert.NotZero(t, c["line"])
	assert.Contains(t, c["trace"], "(*blog).Boom")
}

func TestHandleWithoutErrorHook(t *testing.T) {
	a := newTestApp(t, config.Default())
	ctx := context.Background()

	var out strings.Builder
	err := a.Handle(ctx, "/blog/drafts", &out)
	assert.ErrorIs(t, err, unit.ErrAccessDenied)
	assert.Empty(t, out.String())

	for _, path := range []string{"/blog/Drafts", "/blog/_drafts", "/blog/drafts_", "/blog/restricted"} {
		err = a.Handle(ctx, path, &out)
		assert.ErrorIs(t, err, unit.ErrAccessDenied, path)
	}
	assert.Empty(t, out.String())

	err = a.Handle(ctx, "/blog/stop")
	assert.ErrorIs(t, err, Done)

	assert.Empty(t, fired, "neither access denied nor Done reach the error hook")
}

func TestHandleHandlerRoutes(t *testing.T) {
	a := newTestApp(t, config.Default())
	var got []string
	a.Route("/raw/<*rest>", func(ctx context.Context, args []string) error {
		got = args
		if args[0] == "bad" {
			return errors.New("bad input")
		}
		return nil
	})

	require.NoError(t, a.Handle(context.Background(), "/raw/a/b"))
	assert.Equal(t, []string{"a", "b"}, got)

	err := a.Handle(context.Background(), "/raw/bad")
	assert.EqualError(t, err, "bad input")
	require.Len(t, fired, 1)
	assert.Equal(t, "bad input", fired[0]["message"])
}

func TestAppProvidedValues(t *testing.T) {
	var shared strings.Builder
	a := newTestApp(t, config.Default(), WithProvided(&shared))

	require.NoError(t, a.Handle(context.Background(), "/post/1"))
	var own strings.Builder
	require.NoError(t, a.Handle(context.Background(), "/post/2", &own))

	assert.Equal(t, "post 1 (1)", shared.String())
	assert.Equal(t, "post 2 (2)", own.String(), "per-request values take precedence")
}

func TestAppMetrics(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))
	a := newTestApp(t, config.Default(), WithMetrics(m))
	ctx := context.Background()

	a.Handle(ctx, "/post/1", &strings.Builder{})
	a.Handle(ctx, "/blog/fail")
	a.Handle(ctx, "/nobody")
	a.Handle(ctx, "/blog/drafts")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("route", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("convention", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("convention", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("convention", "access_denied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("controller", unit.ResultLoaded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("controller", unit.ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("controller", unit.ResultAccessDenied)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.ObserveRequest("route", "ok", time.Second)
		nilMetrics.ObserveLoad(unit.Model, unit.ResultLoaded)
	})
}

const routesFile = `
workers = ["session"]

route "/p/<#id>" {
  destination = "${var.ctl}/show"
  priority    = 20
}

route "/<*all>" {
  destination = "blog/whoami"
  priority    = 1
}

hook "404" {
  namespace = "hooks"
  class     = "Pages"
  method    = "NotFound"
}

hook "pre_controller" {
  active = false
  class  = "Missing"
  method = "Nope"
}
`

func TestAppLoadFile(t *testing.T) {
	f, err := config.ParseFile([]byte(routesFile), "routes.hcl", map[string]string{"ctl": "blog"})
	require.NoError(t, err)

	a := New(config.Default())
	a.Units().Controller("blog", unit.Of[blog]())
	a.Units().Worker("session", func() any { return &appSession{User: "bea"} })
	unit.Target[pageHooks](a.Targets(), "hooks", "Pages")
	require.NoError(t, a.LoadFile(f))
	assert.Equal(t, []string{"session"}, a.Config().Workers)

	out, err := a.Resolve("/p/9")
	require.NoError(t, err)
	assert.Equal(t, "blog", out.Controller)
	assert.Equal(t, "show", out.Method)

	out, err = a.Resolve("/anything/else")
	require.NoError(t, err)
	assert.Equal(t, "whoami", out.Method)

	var sb strings.Builder
	require.NoError(t, a.Handle(context.Background(), "/who", &sb))
	assert.Equal(t, "bea", sb.String())
}

func TestAppStrictRoutes(t *testing.T) {
	cfg := config.Default()
	cfg.StrictRoutes = true
	a := New(cfg)
	assert.Panics(t, func() { a.Route("/<:1x>", "blog") })

	f, err := config.ParseFile([]byte(`route "/<#id>/<#id>" { destination = "blog/show" }`), "strict.hcl", nil)
	require.NoError(t, err)
	var malformed *MalformedRouteError
	assert.ErrorAs(t, a.LoadFile(f), &malformed)

	lenient := New(config.Default())
	assert.NotPanics(t, func() { lenient.Route("/<:1x>", "blog") })
}

func TestAppStart(t *testing.T) {
	var logs bytes.Buffer
	a := New(config.Default(),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		WithHooks(unit.HookSpec{Name: unit.HookError, Active: true, Namespace: "hooks", Class: "Gone", Method: "Show"}))
	a.Route("/a", "blog")

	err := a.Start()
	var targetErr *unit.HookTargetError
	require.ErrorAs(t, err, &targetErr)
	assert.Equal(t, "hooks/Gone", targetErr.Target)
	assert.Same(t, err, a.Start(), "start runs once")
	assert.Equal(t, err, a.Handle(context.Background(), "/a"))
	assert.Panics(t, func() { a.Route("/b", "blog") }, "the table is sealed")

	ok := New(config.Default(), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	ok.Route("/a", "blog")
	require.NoError(t, ok.Start())
	assert.Contains(t, logs.String(), `msg="junction started" routes=1 controllers=0 hooks=0`)

	late := &config.File{Workers: []string{"late"}}
	assert.ErrorIs(t, ok.LoadFile(late), ErrStarted)
	assert.Empty(t, ok.Config().Workers, "nothing from a late file is kept")
}

func TestAppSourceRequiresFiles(t *testing.T) {
	cfg := config.Default()
	cfg.AppDir = "unit/testdata/app"
	a := New(cfg)
	a.Units().Controller("user", unit.Of[blog]())
	a.Units().Controller("blog", unit.Of[blog]())

	_, err := a.Resolve("/user/index")
	assert.NoError(t, err, "registered with a source file")
	_, err = a.Resolve("/blog/index")
	assert.ErrorIs(t, err, ErrNotFound, "registered without a source file")
}

func TestToError(t *testing.T) {
	tests := []struct {
		err       error
		code      int
		clientMsg string
	}{
		{&NotFoundError{Path: "/x/"}, 404, ""},
		{&unit.ResolutionError{}, 404, ""},
		{&unit.AccessDeniedError{}, 403, "You do not have access to this link"},
		{errors.New("boom"), 500, ""},
		{Error{Code: 418, ClientMsg: "teapot"}, 418, "teapot"},
		{fmt.Errorf("wrapped: %w", Error{ClientMsg: "no code"}), 500, "no code"},
	}
	for _, test := range tests {
		e := ToError(test.err)
		assert.Equal(t, test.code, e.Code, test.err.Error())
		assert.Equal(t, test.clientMsg, e.ClientMsg, test.err.Error())
	}
}
