// Package martini_junction mounts a junction App in a martini server and
// provides the martini request parameters to unit methods.
//
//	m := martini.Classic()
//	m.Any("/app/**", martini_junction.Handler(app))
//
// Unit methods may take martini.Params and martini.ResponseWriter parameters.
package martini_junction

import (
	"net/http"

	"github.com/go-martini/martini"

	"github.com/augustoroman/junction"
)

// globParam is the parameter martini assigns the first "**" glob of a route.
const globParam = "_1"

// Handler returns a martini handler serving requests through app. When the
// route it is registered for has a "**" glob, only the globbed remainder is
// dispatched; otherwise the whole request path is.
func Handler(app *junction.App) func(http.ResponseWriter, *http.Request, martini.Params) {
	return func(w http.ResponseWriter, r *http.Request, p martini.Params) {
		path := junction.RequestPath(r.URL)
		if rest, ok := p[globParam]; ok {
			path = "/" + rest
			if r.URL.RawQuery != "" {
				path += "?" + r.URL.RawQuery
			}
		}
		provide := []any{p}
		if mw, ok := w.(martini.ResponseWriter); ok {
			provide = append(provide, &mw)
		}
		app.ServePath(w, r, path, provide...)
	}
}
