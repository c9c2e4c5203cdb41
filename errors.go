package junction

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/augustoroman/junction/unit"
)

// ErrNotFound matches every *NotFoundError.
var ErrNotFound = errors.New("not found")

// ErrStarted is returned when configuration is added to an App that has
// already started.
var ErrStarted = errors.New("app already started")

// Done is a sentinel error a handler or controller method can return to stop
// the request without triggering the error hook or the default error
// response.
var Done = errors.New("<done>")

// NotFoundError reports a request dispatched to a controller that does not
// exist.
type NotFoundError struct {
	Path       string
	File       string
	Controller string
	Method     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: controller %q not found (expected %s)", e.Path, e.Controller, e.File)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Context is the argument the "404" hook receives.
func (e *NotFoundError) Context() unit.Context {
	return unit.Context{
		"file":       e.File,
		"controller": e.Controller,
		"method":     e.Method,
		"message":    "404",
	}
}

// MalformedRouteError is returned by CompileStrict for a route source with a
// malformed capture token.
type MalformedRouteError struct {
	Source string
	// Token is the offending token, empty when the route as a whole was
	// rejected.
	Token  string
	Reason string
}

func (e *MalformedRouteError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("route %#q: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("route %#q: token %#q: %s", e.Source, e.Token, e.Reason)
}

// Error is an error implementation that provides the ability to specify three
// things to the HTTP error handler:
//   - The HTTP status code that should be used in the response.
//   - The client-facing message that should be sent.  Typically this is a
//     sanitized error message, such as "Internal Server Error".
//   - Internal debugging detail including a log message and the underlying
//     error that should be included in the server logs.
//
// Note that Cause may be nil.
type Error struct {
	Code      int
	ClientMsg string
	LogMsg    string
	Cause     error
}

func (e Error) Error() string {
	return fmt.Sprintf("[%d] %s: %v", e.Code, e.LogMsg, e.Cause)
}

func (e Error) Unwrap() error { return e.Cause }

// ToError classifies a request failure: missing controllers and units are 404,
// restricted methods are 403 and everything else is 500.
func ToError(err error) Error {
	var e Error
	if errors.As(err, &e) {
		if e.Code == 0 {
			e.Code = http.StatusInternalServerError
		}
		return e
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, unit.ErrNotFound):
		return Error{Code: http.StatusNotFound, LogMsg: "Not found", Cause: err}
	case errors.Is(err, unit.ErrAccessDenied):
		return Error{Code: http.StatusForbidden, ClientMsg: "You do not have access to this link", LogMsg: "Access denied", Cause: err}
	}
	return Error{Code: http.StatusInternalServerError, LogMsg: "Failure", Cause: err}
}

// HandleError responds to the client with the status code and client message
// of ToError(err) and records the underlying error in the request log.
//
// If the error is Done, HandleError does nothing.
func HandleError(w http.ResponseWriter, l *LogEntry, err error) {
	if err == nil || errors.Is(err, Done) {
		return
	}
	e := ToError(err)
	if e.ClientMsg == "" {
		e.ClientMsg = http.StatusText(e.Code)
	}
	if l != nil && e.LogMsg != "" {
		msg := fmt.Sprintf("(%d) %s", e.Code, e.LogMsg)
		if e.Cause != nil {
			msg += ": " + e.Cause.Error()
		}
		l.Error = errors.New(msg)
	}
	http.Error(w, e.ClientMsg, e.Code)
}
