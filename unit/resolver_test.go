package unit

import (
	"errors"
	"sort"
	"testing"
	"testing/fstest"

	rice "github.com/GeertJohan/go.rice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverPlacesUnitsByConvention(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)

	tests := []struct {
		kind                   Kind
		name                   string
		file, qualified, class string
	}{
		{Controller, "user", "controller/user.go", "app/controller.User", "User"},
		{Controller, "admin-settings", "controller/admin/settings.go", "app/controller/admin.Settings", "Settings"},
		{Controller, "admin/settings", "controller/admin/settings.go", "app/controller/admin.Settings", "Settings"},
		{Model, "post", "model/post.go", "app/model.Post", "Post"},
		{Worker, "mailer", "worker/Mailer/Mailer.go", "worker/Mailer.Mailer", "Mailer"},
		{Assembly, "shop-cart", "assembly/shop/Cart/Cart.go", "assembly/shop/Cart.Cart", "Cart"},
	}
	for _, test := range tests {
		t.Run(test.kind.String()+":"+test.name, func(t *testing.T) {
			loc := r.Locate(test.kind, test.name)
			assert.Equal(t, test.file, loc.File)
			assert.Equal(t, test.qualified, loc.Qualified())
			assert.Equal(t, test.class, loc.Class)
			assert.False(t, loc.Exists, "nothing to check against")
		})
	}
}

func TestResolverExistence(t *testing.T) {
	reg := NewRegistry()
	reg.Controller("user", Of[testUser]())
	reg.Controller("ghost", Of[testUser]())
	src := FS(fstest.MapFS{
		"controller/User.go":      {Data: []byte("package controller")},
		"controller/orphan.go":    {Data: []byte("package controller")},
		"worker/Mailer/Mailer.go": {Data: []byte("package mailer")},
	})

	t.Run("registry only", func(t *testing.T) {
		r, err := NewResolver(WithRegistry(reg))
		require.NoError(t, err)
		assert.True(t, r.Locate(Controller, "USER").Exists)
		assert.True(t, r.Locate(Controller, "ghost").Exists)
		assert.False(t, r.Locate(Controller, "orphan").Exists)
		assert.NotNil(t, r.Locate(Controller, "user").Unit)
	})

	t.Run("source only", func(t *testing.T) {
		r, err := NewResolver(WithSource(src))
		require.NoError(t, err)
		loc := r.Locate(Controller, "user")
		assert.True(t, loc.Exists)
		assert.Equal(t, "controller/User.go", loc.File, "actual spelling is reported")
		assert.Nil(t, loc.Unit)
		assert.True(t, r.Locate(Controller, "orphan").Exists)
		assert.True(t, r.Locate(Worker, "mailer").Exists)
		assert.False(t, r.Locate(Controller, "ghost").Exists)
	})

	t.Run("registry and source", func(t *testing.T) {
		r, err := NewResolver(WithRegistry(reg), WithSource(src))
		require.NoError(t, err)
		assert.True(t, r.Locate(Controller, "user").Exists)
		assert.False(t, r.Locate(Controller, "ghost").Exists, "registered without a source file")
		assert.False(t, r.Locate(Controller, "orphan").Exists, "source file without a registration")
	})
}

func TestResolverOptions(t *testing.T) {
	src := FS(fstest.MapFS{"ctl/user.php": {}})
	r, err := NewResolver(
		WithSource(src),
		WithExtension("php"),
		WithLayout(Controller, Layout{Root: "ctl", Namespace: "site"}),
	)
	require.NoError(t, err)
	loc := r.Locate(Controller, "user")
	assert.True(t, loc.Exists)
	assert.Equal(t, "ctl/user.php", loc.File)
	assert.Equal(t, "site.User", loc.Qualified())

	failing := SourceFunc(func() ([]string, error) { return nil, errors.New("disk on fire") })
	_, err = NewResolver(WithSource(failing))
	assert.EqualError(t, err, "disk on fire")
}

func TestSourcesAgree(t *testing.T) {
	box, err := rice.FindBox("testdata/app")
	require.NoError(t, err)

	want := []string{
		"controller/User.go",
		"controller/admin/settings.go",
		"model/post.go",
		"worker/Mailer/Mailer.go",
	}
	for name, src := range map[string]Source{
		"dir":  Dir("testdata/app"),
		"rice": RiceBox(box),
	} {
		files, err := src.Files()
		require.NoError(t, err, name)
		sort.Strings(files)
		assert.Equal(t, want, files, name)
	}
}
