package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/augustoroman/junction"
)

func TestServeHandler(t *testing.T) {
	defer func(orig func(junction.LogEntry)) { junction.WriteLog = orig }(junction.WriteLog)
	junction.WriteLog = func(junction.LogEntry) {}

	flags := &rootFlags{routesFile: writeRoutes(t), vars: map[string]string{"pages": "wiki"}}
	app, cfg, h, err := newServeHandler(flags)
	require.NoError(t, err)
	assert.Equal(t, 2, app.Table().Len())
	assert.Equal(t, "index", cfg.DefaultController)

	get := func(target string) *httptest.ResponseRecorder {
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, httptest.NewRequest("GET", target, nil))
		return rw
	}

	rw := get("/healthz")
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "ok", rw.Body.String())

	rw = get("/")
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Body.String(), `served by the built-in "index" controller`)

	assert.Equal(t, http.StatusNotFound, get("/about/us").Code, "wiki is not registered")

	body := get("/metrics").Body.String()
	assert.Contains(t, body, `junction_requests_total{result="ok",source="default"} 1`)
	assert.Contains(t, body, `junction_requests_total{result="not_found",source="route"} 1`)
}

func TestServeShutsDown(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"serve", "--addr", "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Equal(t, "serving 0 routes on 127.0.0.1:0\n", out.String())
}
