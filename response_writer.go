package junction

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
)

// ResponseWriter wraps http.ResponseWriter to track the response size and
// status code for the access log, and to let the error handling know whether a
// controller already started the response.
type ResponseWriter struct {
	http.ResponseWriter
	Size int // The size of the response written so far, in bytes.
	Code int // The status code of the response, or 0 if not written yet.
}

// NewResponseWriter wraps w. Wrapping a *ResponseWriter returns it unchanged.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w}
}

// Written reports whether the status code has been sent.
func (w *ResponseWriter) Written() bool { return w.Code != 0 }

func (w *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("the ResponseWriter doesn't support the Hijacker interface")
	}
	return hijacker.Hijack()
}

func (w *ResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap gives http.ResponseController access to the wrapped writer.
func (w *ResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *ResponseWriter) WriteHeader(code int) {
	if w.Code == 0 {
		w.Code = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *ResponseWriter) Write(p []byte) (int, error) {
	if w.Code == 0 {
		w.Code = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.Size += n
	return n, err
}
