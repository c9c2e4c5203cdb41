// Package httprouter_junction mounts a junction App in a julienschmidt
// httprouter and provides the httprouter path parameters to unit methods.
//
//	app := junction.New(config.Default())
//	...
//	r := httprouter.New()
//	r.GET("/healthz", healthz)
//	httprouter_junction.Mount(r, "/app", app, http.MethodGet, http.MethodPost)
//
// Unit methods may take an httprouter.Params parameter.
package httprouter_junction

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/augustoroman/junction"
)

// catchAll is the name of the catch-all parameter Mount registers.
const catchAll = "path"

// H returns an httprouter handle serving requests through app. When the route
// it is registered for ends in a "*path" catch-all, only that remainder is
// dispatched; otherwise the whole request path is.
func H(app *junction.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		path := junction.RequestPath(r.URL)
		for _, param := range p {
			if param.Key == catchAll {
				path = param.Value
				if r.URL.RawQuery != "" {
					path += "?" + r.URL.RawQuery
				}
				break
			}
		}
		app.ServePath(w, r, path, p)
	}
}

// Mount registers app for every path below prefix and each method, GET when
// none are given. prefix "" or "/" mounts app at the root, which leaves no room
// for other routes in r; use NotFound for that.
func Mount(r *httprouter.Router, prefix string, app *junction.App, methods ...string) {
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}
	pattern := strings.TrimRight(prefix, "/") + "/*" + catchAll
	h := H(app)
	for _, m := range methods {
		r.Handle(m, pattern, h)
	}
}

// NotFound makes app handle every request no route of r matches.
func NotFound(r *httprouter.Router, app *junction.App) {
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		app.Serve(w, req, httprouter.Params(nil))
	})
}
