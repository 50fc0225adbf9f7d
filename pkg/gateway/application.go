package gateway

import (
	"context"
	"net/http"
	"sort"

	"github.com/pkg/errors"
)

// Application is the wrapped web application. Invoke runs one call and
// returns everything it emitted.
type Application interface {
	Invoke(ctx context.Context, call *CallContext) (*Emitted, error)
}

// ApplicationFunc adapts a function to Application.
type ApplicationFunc func(ctx context.Context, call *CallContext) (*Emitted, error)

// Invoke calls f(ctx, call).
func (f ApplicationFunc) Invoke(ctx context.Context, call *CallContext) (*Emitted, error) {
	return f(ctx, call)
}

// HandlerApplication runs an http.Handler as the wrapped application.
type HandlerApplication struct {
	Handler http.Handler
}

// NewHandlerApplication wraps h.
func NewHandlerApplication(h http.Handler) *HandlerApplication {
	return &HandlerApplication{Handler: h}
}

// Invoke serves the call through the handler and records the response.
func (a *HandlerApplication) Invoke(ctx context.Context, call *CallContext) (emitted *Emitted, err error) {
	if a == nil || a.Handler == nil {
		return nil, NewError(KindApplication, "invoke", ErrNoApplication)
	}

	req, err := call.HTTPRequest(ctx)
	if err != nil {
		return nil, err
	}

	rec := newRecorder()
	defer func() {
		if p := recover(); p != nil {
			emitted = nil
			// The wrapped stack is captured while the panicking frames are live.
			err = NewError(KindApplication, "invoke", errors.Wrapf(ErrApplicationPanic, "%v", p))
		}
	}()

	a.Handler.ServeHTTP(rec, req)

	if rec.err != nil {
		return nil, NewError(KindApplication, "invoke", rec.err)
	}
	return rec.emitted(), nil
}

// recorder captures what a handler writes. Unlike a network connection it
// treats a second WriteHeader as a protocol violation.
type recorder struct {
	header  http.Header
	status  int
	started bool
	pairs   []HeaderPair
	chunks  [][]byte
	err     error
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header)}
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) WriteHeader(code int) {
	if r.started {
		if r.err == nil {
			r.err = errors.Wrapf(ErrResponseAlreadyStarted, "status %d after %d", code, r.status)
		}
		return
	}
	if code < 100 || code > 999 {
		r.err = errors.Errorf("invalid status code %d", code)
		return
	}
	// Informational responses are not part of the captured exchange.
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		return
	}

	r.started = true
	r.status = code
	r.pairs = snapshotHeaders(r.header)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.started {
		r.WriteHeader(http.StatusOK)
	}
	chunk := make([]byte, len(b))
	copy(chunk, b)
	r.chunks = append(r.chunks, chunk)
	return len(b), nil
}

// Flush is a no-op; the whole response is collected before returning.
func (r *recorder) Flush() {}

func (r *recorder) emitted() *Emitted {
	if !r.started {
		r.WriteHeader(http.StatusOK)
	}
	return &Emitted{
		StatusCode: r.status,
		Headers:    r.pairs,
		Chunks:     r.chunks,
	}
}

// snapshotHeaders flattens h into ordered pairs, keeping repeated values.
func snapshotHeaders(h http.Header) []HeaderPair {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var pairs []HeaderPair
	for _, name := range names {
		for _, value := range h[name] {
			pairs = append(pairs, HeaderPair{Name: name, Value: value})
		}
	}
	return pairs
}
