package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AllowOriginHeader is injected into every outbound response that lacks it.
const AllowOriginHeader = "Access-Control-Allow-Origin"

// Observer receives one observation per invocation. Kind is empty on
// success.
type Observer interface {
	ObserveInvocation(method string, statusCode int, kind Kind, duration time.Duration)
}

// Options configures an Adapter.
type Options struct {
	Server       ServerInfo
	AllowOrigin  string
	IncludeTrace bool
	Logger       logrus.FieldLogger
	Observer     Observer
}

// DefaultOptions returns the options used by the hosted deployments.
func DefaultOptions() Options {
	return Options{
		Server:       DefaultServerInfo,
		AllowOrigin:  "*",
		IncludeTrace: true,
		Logger:       logrus.StandardLogger(),
	}
}

// Adapter translates platform requests into calls on the wrapped
// application and its output back into platform responses. It keeps no
// per-call state and may be shared across goroutines.
type Adapter struct {
	app  Application
	opts Options
}

// New creates an Adapter around app. Empty server fields, origin and
// logger fall back to DefaultOptions.
func New(app Application, opts Options) *Adapter {
	defaults := DefaultOptions()
	if opts.Server.Name == "" {
		opts.Server.Name = defaults.Server.Name
	}
	if opts.Server.Port == "" {
		opts.Server.Port = defaults.Server.Port
	}
	if opts.Server.Scheme == "" {
		opts.Server.Scheme = defaults.Server.Scheme
	}
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = defaults.AllowOrigin
	}
	if opts.Logger == nil {
		opts.Logger = defaults.Logger
	}
	return &Adapter{app: app, opts: opts}
}

// Handle runs one invocation. It always returns a well-formed response;
// failures are translated into an error response.
func (a *Adapter) Handle(ctx context.Context, req *Request) *Response {
	return a.run(ctx, req, nil)
}

// HandleEvent decodes a JSON platform event and handles it.
func (a *Adapter) HandleEvent(ctx context.Context, data []byte) *Response {
	req, err := DecodeEvent(data)
	return a.run(ctx, req, err)
}

// ServeHTTP handles an object-style request and writes the outbound
// record as a plain HTTP response.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := FromHTTPRequest(r)
	WriteResponse(w, a.run(r.Context(), req, err))
}

func (a *Adapter) run(ctx context.Context, req *Request, err error) (resp *Response) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	requestID := uuid.New().String()
	var method, path string
	if req != nil {
		method, path = req.Method, req.Path
		if id := req.Header("x-request-id"); id != "" {
			requestID = id
		}
	}

	defer func() {
		if p := recover(); p != nil {
			err = NewError(KindApplication, "handle", errors.Wrapf(ErrApplicationPanic, "%v", p))
		}
		if err != nil {
			resp = a.errorResponse(err, requestID)
		}
		a.logInvocation(requestID, method, path, resp.StatusCode, err, time.Since(start))
	}()

	if err != nil {
		return nil
	}
	if req == nil {
		err = malformed("normalize", errors.Wrap(ErrMalformedRequest, "nil request"))
		return nil
	}

	resp, err = a.Process(ctx, req)
	return resp
}

// Process runs the invocation steps and returns the first failure
// unchanged instead of translating it.
func (a *Adapter) Process(ctx context.Context, req *Request) (*Response, error) {
	call, err := NewCallContext(req, a.opts.Server)
	if err != nil {
		return nil, err
	}

	if a.app == nil {
		return nil, NewError(KindApplication, "invoke", ErrNoApplication)
	}
	emitted, err := a.app.Invoke(ctx, call)
	if err != nil {
		var gwErr *Error
		if !errors.As(err, &gwErr) {
			err = NewError(KindApplication, "invoke", errors.WithStack(err))
		}
		return nil, err
	}

	return Assemble(emitted, a.opts.AllowOrigin)
}

// Assemble converts emitted output into the outbound record. Duplicate
// header names collapse to their last value.
func Assemble(emitted *Emitted, allowOrigin string) (*Response, error) {
	if emitted == nil {
		return nil, NewError(KindApplication, "assemble", errors.New("application returned no response"))
	}

	headers := make(map[string]string, len(emitted.Headers)+1)
	for _, pair := range emitted.Headers {
		headers[pair.Name] = pair.Value
	}
	if !hasHeader(headers, AllowOriginHeader) {
		headers[AllowOriginHeader] = allowOrigin
	}

	body := bytes.Join(emitted.Chunks, nil)
	if !utf8.Valid(body) {
		return nil, NewError(KindEncoding, "decode body",
			errors.Wrapf(ErrResponseEncoding, "%d byte body", len(body)))
	}

	status := emitted.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	return &Response{
		StatusCode: status,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

// WriteResponse writes resp to w.
func WriteResponse(w http.ResponseWriter, resp *Response) {
	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write([]byte(resp.Body))
}

type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Kind      Kind   `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
	Traceback string `json:"traceback,omitempty"`
}

func (a *Adapter) errorResponse(err error, requestID string) *Response {
	kind := KindOf(err)
	status := http.StatusInternalServerError
	if kind == KindMalformed {
		status = http.StatusBadRequest
	}

	body := errorBody{
		Success:   false,
		Error:     err.Error(),
		Kind:      kind,
		RequestID: requestID,
	}
	if a.opts.IncludeTrace {
		body.Traceback = fmt.Sprintf("%+v", err)
	}

	data, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		data = []byte(`{"success":false,"error":"internal error"}`)
	}

	return &Response{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			AllowOriginHeader: a.opts.AllowOrigin,
		},
		Body: string(data),
	}
}

func (a *Adapter) logInvocation(requestID, method, path string, status int, err error, latency time.Duration) {
	fields := logrus.Fields{
		"request_id":  requestID,
		"method":      method,
		"path":        path,
		"status_code": status,
		"latency_ms":  float64(latency.Nanoseconds()) / 1000000,
	}

	var kind Kind
	switch {
	case err == nil:
		a.opts.Logger.WithFields(fields).Info("Invocation completed")
	case IsMalformed(err):
		kind = KindMalformed
		fields["kind"] = kind
		fields["error"] = err.Error()
		a.opts.Logger.WithFields(fields).Warn("Rejected malformed request")
	default:
		kind = KindOf(err)
		fields["kind"] = kind
		fields["error"] = err.Error()
		fields["stack_trace"] = fmt.Sprintf("%+v", err)
		a.opts.Logger.WithFields(fields).Error("Error in handler")
	}

	if a.opts.Observer != nil {
		a.opts.Observer.ObserveInvocation(method, status, kind, latency)
	}
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
