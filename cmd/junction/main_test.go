package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoutes = `
route "/user/view/<#id>" {
  destination = "user/show"
  priority    = 5
}

route "/<*page>" {
  destination = "${var.pages}/show"
  priority    = 1
}
`

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func writeRoutes(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.hcl")
	require.NoError(t, os.WriteFile(path, []byte(testRoutes), 0o644))
	return path
}

func TestRoutesCommand(t *testing.T) {
	routes := writeRoutes(t)
	out := run(t, "routes", "-r", routes, "--var", "pages=wiki", "--patterns")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"PRIORITY", "SOURCE", "DESTINATION", "CAPTURES", "PATTERN"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "/<*page>", "wiki/show", "page", "^/(?P<page>.+)/$"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"5", "/user/view/<#id>", "user/show", "id", "^/user/view/(?P<id>[0-9]+)/$"}, strings.Fields(lines[2]))
}

func TestResolveCommand(t *testing.T) {
	routes := writeRoutes(t)
	out := run(t, "resolve", "-r", routes, "--var", "pages=wiki", "/user/view/42", "/about/us", "/")
	assert.Equal(t, ""+
		"/user/view/42/\tuser.show args=[42] file=controller/user.go via route /user/view/<#id>\n"+
		"/about/us/\twiki.show args=[about us] file=controller/wiki.go via route /<*page>\n"+
		"/\tindex.index args=[] file=controller/index.go via default\n",
		out)
}

func TestResolveCommandChecksSources(t *testing.T) {
	appDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(appDir, "controller"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "controller", "User.go"), []byte("package controller"), 0o644))

	out := run(t, "resolve", "--app-dir", appDir, "/user/edit/1", "/ghost")
	assert.Equal(t, ""+
		"/user/edit/1/\tuser.edit args=[1] file=controller/User.go via convention\n"+
		"/ghost/\t404 ghost not found (controller/ghost.go)\n",
		out)
}
