package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cgi"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ServerInfo describes the virtual server the wrapped application runs on.
type ServerInfo struct {
	Name   string
	Port   string
	Scheme string
}

// DefaultServerInfo matches the hosting platform's public endpoint.
var DefaultServerInfo = ServerInfo{Name: "vercel", Port: "443", Scheme: "https"}

// CallContext is the gateway environment for a single call. It is built
// fresh per invocation and must not be reused.
type CallContext struct {
	Method        string
	Path          string
	QueryString   string
	ContentType   string
	ContentLength int
	Host          string
	RemoteAddr    string
	Server        ServerInfo

	// Headers holds one HTTP_-prefixed entry per inbound header, excluding
	// content type and length.
	Headers map[string]string

	// Input reads the request body.
	Input io.Reader
}

// HeaderKey maps a header name to its environment key.
func HeaderKey(name string) string {
	return "HTTP_" + strings.ReplaceAll(strings.ToUpper(name), "-", "_")
}

// NewCallContext builds the environment for req.
func NewCallContext(req *Request, server ServerInfo) (*CallContext, error) {
	query, err := req.Query.Encode()
	if err != nil {
		return nil, err
	}

	body := req.Body.Bytes()
	call := &CallContext{
		Method:        req.Method,
		Path:          req.Path,
		QueryString:   query,
		ContentType:   req.Header("content-type"),
		ContentLength: len(body),
		Host:          req.Header("host"),
		RemoteAddr:    req.RemoteAddr,
		Server:        server,
		Headers:       make(map[string]string, len(req.Headers)),
		Input:         bytes.NewReader(body),
	}

	for name, value := range req.Headers {
		switch strings.ToLower(name) {
		case "content-type", "content-length":
			continue
		}
		call.Headers[HeaderKey(name)] = value
	}

	return call, nil
}

// Environ renders the flat environment map.
func (c *CallContext) Environ() map[string]string {
	env := make(map[string]string, len(c.Headers)+12)
	for k, v := range c.Headers {
		env[k] = v
	}

	env["REQUEST_METHOD"] = c.Method
	env["SCRIPT_NAME"] = ""
	env["PATH_INFO"] = c.Path
	env["QUERY_STRING"] = c.QueryString
	env["CONTENT_TYPE"] = c.ContentType
	env["CONTENT_LENGTH"] = strconv.Itoa(c.ContentLength)
	env["SERVER_NAME"] = c.Server.Name
	env["SERVER_PORT"] = c.Server.Port
	env["SERVER_PROTOCOL"] = "HTTP/1.1"
	env["HTTP_HOST"] = c.Host
	if c.RemoteAddr != "" {
		env["REMOTE_ADDR"] = c.RemoteAddr
	}
	if c.Server.Scheme == "https" {
		env["HTTPS"] = "on"
	}
	return env
}

// HTTPRequest converts the environment into a server-side *http.Request.
// Path and query reach the handler exactly as they are in the context;
// they are never re-parsed as a URL, and neither is the host.
func (c *CallContext) HTTPRequest(ctx context.Context) (*http.Request, error) {
	env := c.Environ()
	delete(env, "HTTP_HOST")
	env["REQUEST_URI"] = "/"

	r, err := cgi.RequestFromMap(env)
	if err != nil {
		return nil, malformed("build request", errors.Wrap(ErrMalformedRequest, err.Error()))
	}

	r.URL = &url.URL{Path: c.Path, RawQuery: c.QueryString}
	r.RequestURI = c.Path
	if c.QueryString != "" {
		r.RequestURI += "?" + c.QueryString
	}
	r.Host = c.Host
	if r.Host == "" {
		r.Host = c.Server.Name
	}
	if c.RemoteAddr == "" {
		r.RemoteAddr = ""
	}

	r.Body = io.NopCloser(c.Input)
	if c.ContentLength == 0 {
		r.Body = http.NoBody
	}
	return r.WithContext(ctx), nil
}
