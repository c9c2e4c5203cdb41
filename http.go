package junction

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

type ctxKey int

const (
	requestKey ctxKey = iota
	responseKey
)

// RequestFrom returns the HTTP request being served, for HandlerFunc
// destinations. Unit methods can instead take an *http.Request parameter.
func RequestFrom(ctx context.Context) (*http.Request, bool) {
	r, ok := ctx.Value(requestKey).(*http.Request)
	return r, ok
}

// ResponseWriterFrom returns the response being written, for HandlerFunc
// destinations. Unit methods can instead take an http.ResponseWriter
// parameter.
func ResponseWriterFrom(ctx context.Context) (http.ResponseWriter, bool) {
	w, ok := ctx.Value(responseKey).(http.ResponseWriter)
	return w, ok
}

// RequestPath is the path a request is dispatched on: the decoded URL path
// followed by the raw query, if any.
func RequestPath(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}
	return u.Path + "?" + u.RawQuery
}

// ServeHTTP implements http.Handler, see Serve.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Serve(w, r)
}

// Serve handles an HTTP request. The request path is dispatched and unit
// methods can take the http.ResponseWriter, the *http.Request, the
// *ResponseWriter and the *LogEntry of the request as well as any provided
// values. A failure is answered as HandleError does unless the response was
// already started, and every request is written to the access log.
func (a *App) Serve(w http.ResponseWriter, r *http.Request, provide ...any) {
	a.ServePath(w, r, RequestPath(r.URL), provide...)
}

// ServePath is Serve but dispatches path instead of the request URI. Routers
// that mount an App below a prefix use it to pass the unmatched remainder.
func (a *App) ServePath(w http.ResponseWriter, r *http.Request, path string, provide ...any) {
	rw := NewResponseWriter(w)
	entry := NewLogEntry(r)
	entry.RequestID = uuid.NewString()
	defer entry.Commit(rw)

	ctx := context.WithValue(r.Context(), requestKey, r)
	ctx = context.WithValue(ctx, responseKey, http.ResponseWriter(rw))

	var iw http.ResponseWriter = rw
	vals := append([]any{&iw, r, rw, entry}, provide...)
	err := a.handle(ctx, path, entry.RequestID, func(out Outcome) {
		if out.Handler != nil {
			entry.Note["handler"] = out.Path
			return
		}
		entry.Note["controller"] = out.Controller
		entry.Note["method"] = out.Method
		if len(out.Args) > 0 {
			entry.Note["args"] = strings.Join(out.Args, "/")
		}
	}, vals)
	if err == nil {
		return
	}
	if rw.Written() {
		entry.Error = err
		return
	}
	HandleError(rw, entry, err)
}
