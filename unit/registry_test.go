package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUser struct{ name string }

func TestRegistryLookupIsCanonical(t *testing.T) {
	r := NewRegistry()
	r.Controller("Admin-User", Of[testUser]())

	for _, name := range []string{"admin-user", "admin/user", "ADMIN/User", "/admin/user/"} {
		u, ok := r.Lookup(Controller, name)
		require.True(t, ok, name)
		assert.IsType(t, &testUser{}, u.New(), name)
	}
	_, ok := r.Lookup(Model, "admin/user")
	assert.False(t, ok, "kinds are separate namespaces")
}

func TestRegistryWiringMistakesPanic(t *testing.T) {
	r := NewRegistry()
	r.Model("post", Of[testUser]())

	assert.Panics(t, func() { r.Model("Post", Of[testUser]()) }, "duplicate")
	assert.Panics(t, func() { r.Model("", Of[testUser]()) }, "empty name")
	assert.Panics(t, func() { r.Model("//", Of[testUser]()) }, "empty after trimming")
	assert.Panics(t, func() { r.Register(Model, "other", Unit{}) }, "missing constructor")
	assert.NotPanics(t, func() { r.Worker("post", Of[testUser]()) }, "same name, other kind")
}

func TestRegistryModulesAndNames(t *testing.T) {
	r := NewRegistry()
	r.Use(
		ModuleFunc(func(r *Registry) {
			r.Controller("zeta", Of[testUser]())
			r.Controller("alpha", Of[testUser]())
		}),
		ModuleFunc(func(r *Registry) { r.Assembly("Shop-Cart", Of[testUser]()) }),
	)
	assert.Equal(t, []string{"alpha", "zeta"}, r.Names(Controller))
	assert.Equal(t, []string{"shop/cart"}, r.Names(Assembly))
	assert.Empty(t, r.Names(Worker))
}

func TestUnitConstruct(t *testing.T) {
	u := Unit{
		New: func() any { return &testUser{} },
		NewWith: func(args ...any) (any, error) {
			return &testUser{name: args[0].(string)}, nil
		},
	}
	v, err := u.construct(nil)
	require.NoError(t, err)
	assert.Equal(t, &testUser{}, v)

	v, err = u.construct([]any{"bob"})
	require.NoError(t, err)
	assert.Equal(t, &testUser{name: "bob"}, v)

	_, err = (&Unit{New: Of[testUser]()}).construct([]any{1})
	assert.EqualError(t, err, "unit takes no constructor arguments, got 1")
}

func TestKinds(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err, k.String())
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("template")
	assert.EqualError(t, err, `unknown unit kind "template"`)
	assert.Equal(t, "pre_worker", PreHook(Worker))
	assert.Equal(t, "post_assembly", PostHook(Assembly))
}
