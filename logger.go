package junction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// Injected for testing
var time_Now = time.Now
var os_Stderr io.Writer = os.Stderr

// LogEntry is the access log record of one HTTP request served by an App.
// ServePath fills in every field; Note carries the dispatch result
// ("controller", "method" and "args", or "handler") and can be extended by
// unit methods that take a *LogEntry:
//
//	func (c *User) Show(id int, e *junction.LogEntry) {
//	    e.Note["user"] = strconv.Itoa(id)
//	}
type LogEntry struct {
	RequestID    string
	RemoteIp     string
	Start        time.Time
	Request      *http.Request
	StatusCode   int
	ResponseSize int
	Elapsed      time.Duration
	Error        error
	Note         map[string]string
	// Quiet suppresses the entry.
	Quiet bool
}

// NewLogEntry starts the log entry of r.
func NewLogEntry(r *http.Request) *LogEntry {
	return &LogEntry{
		RemoteIp: remoteIp(r),
		Start:    time_Now(),
		Request:  r,
		Note:     map[string]string{},
	}
}

// Commit records the response written to w and passes the entry to WriteLog.
func (entry *LogEntry) Commit(w *ResponseWriter) {
	entry.Elapsed = time_Now().Sub(entry.Start)
	entry.ResponseSize = w.Size
	entry.StatusCode = w.Code
	WriteLog(*entry)
}

const (
	_GREEN  = "\033[32m"
	_YELLOW = "\033[33m"
	_RESET  = "\033[0m"
	_RED    = "\033[91m"
)

// SlowRequest is the duration above which a request is logged as slow.
var SlowRequest = 30 * time.Millisecond

// WriteLog writes every committed LogEntry. The default prints one colored
// line per request to stderr: green, yellow when slower than SlowRequest and
// red on failure. Replace it to log elsewhere, e.g. with SlogWriter.
var WriteLog = func(e LogEntry) {
	if e.Quiet {
		return
	}
	col, reset := logColors(e)
	fmt.Fprintf(os_Stderr, "%s%s %s \"%s %s\" (%d %dB %s) %s%s\n",
		col,
		e.Start.Format(time.RFC3339), e.RemoteIp,
		e.Request.Method, e.Request.RequestURI,
		e.StatusCode, e.ResponseSize, e.Elapsed,
		e.NotesAndError(),
		reset)
}

// SlogWriter returns a WriteLog replacement that records entries as
// structured log records: info for successful requests, warn for slow ones
// and error for failures.
func SlogWriter(l *slog.Logger) func(LogEntry) {
	return func(e LogEntry) {
		if e.Quiet {
			return
		}
		attrs := []slog.Attr{
			slog.String("request_id", e.RequestID),
			slog.String("remote", e.RemoteIp),
			slog.String("method", e.Request.Method),
			slog.String("uri", e.Request.RequestURI),
			slog.Int("status", e.StatusCode),
			slog.Int("size", e.ResponseSize),
			slog.Duration("elapsed", e.Elapsed),
		}
		if len(e.Note) > 0 {
			keys := make([]string, 0, len(e.Note))
			for k := range e.Note {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			notes := make([]any, 0, len(keys))
			for _, k := range keys {
				notes = append(notes, slog.String(k, e.Note[k]))
			}
			attrs = append(attrs, slog.Group("note", notes...))
		}
		level := slog.LevelInfo
		switch {
		case e.StatusCode >= 400 || e.Error != nil:
			level = slog.LevelError
		case e.Elapsed > SlowRequest:
			level = slog.LevelWarn
		}
		if e.Error != nil {
			attrs = append(attrs, slog.String("error", e.Error.Error()))
		}
		l.LogAttrs(context.Background(), level, "request", attrs...)
	}
}

// NotesAndError formats the notes, sorted by key, and the error if any.
func (l LogEntry) NotesAndError() string {
	pairs := make([]string, 0, len(l.Note))
	for k, v := range l.Note {
		pairs = append(pairs, fmt.Sprintf("%s=%q", k, v))
	}
	sort.Strings(pairs)
	msg := strings.Join(pairs, " ")
	if l.Error != nil {
		msg += "\n  ERROR: " + l.Error.Error()
	}
	return msg
}

func logColors(e LogEntry) (start, reset string) {
	switch {
	case e.StatusCode >= 400 || e.Error != nil:
		return _RED, _RESET
	case e.Elapsed > SlowRequest:
		return _YELLOW, _RESET
	}
	return _GREEN, _RESET
}

// remoteIp prefers the proxy headers over the connection's address, the way
// martini's logger does.
func remoteIp(r *http.Request) string {
	if addr := r.Header.Get("X-Real-IP"); addr != "" {
		return addr
	}
	if addr := r.Header.Get("X-Forwarded-For"); addr != "" {
		return addr
	}
	return r.RemoteAddr
}
