package gateway

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
)

// PathPrefix is stripped from inbound paths. The platform routes /api/*
// to the function, while the wrapped application routes from the root.
const PathPrefix = "/api"

// StripPrefix removes PathPrefix on a segment boundary and defaults an
// empty result to "/".
func StripPrefix(path string) string {
	if path == PathPrefix {
		return "/"
	}
	if strings.HasPrefix(path, PathPrefix+"/") {
		path = path[len(PathPrefix):]
	}
	if path == "" {
		return "/"
	}
	return path
}

// DecodeEvent parses a JSON platform event. HTTP API payload v2 events are
// recognized by their version field and REST API proxy events by httpMethod
// plus requestContext; everything else is read as a dictionary-style record.
func DecodeEvent(data []byte) (*Request, error) {
	var probe map[string]any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, malformed("decode event", errors.Wrap(ErrMalformedRequest, err.Error()))
	}
	if probe == nil {
		return nil, malformed("decode event", errors.Wrap(ErrMalformedRequest, "event is null"))
	}

	if v, _ := probe["version"].(string); v == "2.0" {
		var event events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, malformed("decode event", errors.Wrap(ErrMalformedRequest, err.Error()))
		}
		return FromAPIGatewayV2(event)
	}

	if isProxyEvent(probe) {
		var event events.APIGatewayProxyRequest
		// A proxy event with off-type fields falls through to the
		// dictionary reader, which reports the offending field.
		if err := json.Unmarshal(data, &event); err == nil {
			return FromAPIGateway(event)
		}
	}
	return FromEvent(probe)
}

func isProxyEvent(probe map[string]any) bool {
	_, hasMethod := probe["httpMethod"].(string)
	_, hasContext := probe["requestContext"].(map[string]any)
	return hasMethod && hasContext
}

// FromEvent normalizes a dictionary-style record.
func FromEvent(event map[string]any) (*Request, error) {
	req := &Request{Method: http.MethodGet, Path: "/"}

	path, err := stringField(event, "path")
	if err != nil {
		return nil, err
	}
	if path != "" {
		req.Path = path
	}

	method, err := stringField(event, "method")
	if err != nil {
		return nil, err
	}
	if method == "" {
		if method, err = stringField(event, "httpMethod"); err != nil {
			return nil, err
		}
	}
	if method != "" {
		req.Method = method
	}

	headers, err := eventHeaders(event)
	if err != nil {
		return nil, err
	}
	req.Headers = headers

	if req.Query, err = eventQuery(event); err != nil {
		return nil, err
	}

	if req.Body, err = eventBody(event); err != nil {
		return nil, err
	}

	if rc, ok := event["requestContext"].(map[string]any); ok {
		if identity, ok := rc["identity"].(map[string]any); ok {
			req.RemoteAddr, _ = identity["sourceIp"].(string)
		}
		if h, ok := rc["http"].(map[string]any); ok && req.RemoteAddr == "" {
			req.RemoteAddr, _ = h["sourceIp"].(string)
		}
	}

	return finalize(req)
}

// FromAPIGateway normalizes a REST API (payload v1) proxy event.
func FromAPIGateway(event events.APIGatewayProxyRequest) (*Request, error) {
	req := &Request{
		Method:     event.HTTPMethod,
		Path:       event.Path,
		RemoteAddr: event.RequestContext.Identity.SourceIP,
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	headers := NormalizeHeaders(event.Headers)
	for k, values := range event.MultiValueHeaders {
		if len(values) > 0 {
			name := strings.ToLower(k)
			headers[name] = joinHeader(name, values)
		}
	}
	req.Headers = headers

	req.Query = QueryValues(event.QueryStringParameters)
	if len(event.MultiValueQueryStringParameters) > 0 {
		req.Query.Values = make(map[string][]string, len(event.MultiValueQueryStringParameters))
		for k, values := range event.MultiValueQueryStringParameters {
			req.Query.Values[k] = append([]string(nil), values...)
		}
	}

	body, err := decodeBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return nil, err
	}
	req.Body = body

	return finalize(req)
}

// FromAPIGatewayV2 normalizes an HTTP API (payload v2) event.
func FromAPIGatewayV2(event events.APIGatewayV2HTTPRequest) (*Request, error) {
	req := &Request{
		Method:     event.RequestContext.HTTP.Method,
		Path:       event.RawPath,
		Headers:    NormalizeHeaders(event.Headers),
		Query:      RawQuery(event.RawQueryString),
		RemoteAddr: event.RequestContext.HTTP.SourceIP,
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if len(event.Cookies) > 0 {
		req.Headers["cookie"] = joinHeader("cookie", event.Cookies)
	}

	body, err := decodeBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return nil, err
	}
	req.Body = body

	return finalize(req)
}

// FromHTTPRequest normalizes an object-style request, as handed over by
// runtimes that speak net/http directly.
func FromHTTPRequest(r *http.Request) (*Request, error) {
	if r == nil || r.URL == nil {
		return nil, malformed("normalize", errors.Wrap(ErrMalformedRequest, "request has no URL"))
	}

	headers := make(map[string]string, len(r.Header)+1)
	for k, values := range r.Header {
		name := strings.ToLower(k)
		headers[name] = joinHeader(name, values)
	}
	if r.Host != "" {
		headers["host"] = r.Host
	}

	req := &Request{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: headers,
		Query:   RawQuery(r.URL.RawQuery),
		Body:    NoBody,
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		req.RemoteAddr = host
	}

	if r.Body != nil && r.Body != http.NoBody {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, malformed("read body", errors.Wrap(err, "reading request body"))
		}
		req.Body = BinaryBody(data)
	}

	return finalize(req)
}

// NormalizeHeaders lowercases header names. When two names collide after
// lowercasing, the one sorting last wins so the result is stable.
func NormalizeHeaders(headers map[string]string) map[string]string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(headers))
	for _, k := range keys {
		out[strings.ToLower(k)] = headers[k]
	}
	return out
}

// joinHeader folds repeated values of a lowercase header name. Cookies use
// their own separator.
func joinHeader(name string, values []string) string {
	if name == "cookie" {
		return strings.Join(values, "; ")
	}
	return strings.Join(values, ", ")
}

func finalize(req *Request) (*Request, error) {
	req.Method = strings.ToUpper(strings.TrimSpace(req.Method))
	req.Path = StripPrefix(req.Path)
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	if err := Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}

func stringField(event map[string]any, key string) (string, error) {
	raw, ok := event[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", malformed("normalize", errors.Wrapf(ErrMalformedRequest, "field %q must be a string, got %T", key, raw))
	}
	return s, nil
}

func eventHeaders(event map[string]any) (map[string]string, error) {
	flat := map[string]string{}

	switch raw := event["headers"].(type) {
	case nil:
	case map[string]any:
		for k, v := range raw {
			if v == nil {
				continue
			}
			s, ok := scalarString(v)
			if !ok {
				return nil, malformed("normalize", errors.Wrapf(ErrMalformedRequest, "header %q has unsupported value %T", k, v))
			}
			flat[k] = s
		}
	default:
		return nil, malformed("normalize", errors.Wrapf(ErrMalformedRequest, "headers must be a mapping, got %T", raw))
	}

	headers := NormalizeHeaders(flat)

	if multi, ok := event["multiValueHeaders"].(map[string]any); ok {
		for k, v := range multi {
			values, err := stringList(v)
			if err != nil {
				return nil, err
			}
			if len(values) > 0 {
				name := strings.ToLower(k)
				headers[name] = joinHeader(name, values)
			}
		}
	}
	return headers, nil
}

func eventQuery(event map[string]any) (Query, error) {
	var q Query

	switch raw := event["queryStringParameters"].(type) {
	case nil:
	case string:
		q = RawQuery(raw)
	case map[string]any:
		if len(raw) > 0 {
			q.Values = make(map[string][]string, len(raw))
		}
		for k, v := range raw {
			values, err := stringList(v)
			if err != nil {
				return Query{}, err
			}
			q.Values[k] = values
		}
	default:
		return Query{}, malformed("normalize", errors.Wrapf(ErrMalformedRequest, "queryStringParameters must be a string or mapping, got %T", raw))
	}

	if multi, ok := event["multiValueQueryStringParameters"].(map[string]any); ok && len(multi) > 0 {
		q.Raw = ""
		if q.Values == nil {
			q.Values = make(map[string][]string, len(multi))
		}
		for k, v := range multi {
			values, err := stringList(v)
			if err != nil {
				return Query{}, err
			}
			q.Values[k] = values
		}
	}
	return q, nil
}

func eventBody(event map[string]any) (Body, error) {
	raw, ok := event["body"]
	if !ok || raw == nil {
		return NoBody, nil
	}
	s, ok := raw.(string)
	if !ok {
		return NoBody, malformed("normalize", errors.Wrapf(ErrUnsupportedBody, "body of type %T", raw))
	}
	encoded, _ := event["isBase64Encoded"].(bool)
	return decodeBody(s, encoded)
}

func decodeBody(s string, base64Encoded bool) (Body, error) {
	if !base64Encoded {
		return TextBody(s), nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return NoBody, malformed("decode body", errors.Wrap(ErrMalformedRequest, "invalid base64 body: "+err.Error()))
	}
	return BinaryBody(data), nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool, float64, json.Number:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := scalarString(item)
			if !ok {
				return nil, malformed("normalize", errors.Wrapf(ErrMalformedRequest, "list item of type %T", item))
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return t, nil
	default:
		s, ok := scalarString(v)
		if !ok {
			return nil, malformed("normalize", errors.Wrapf(ErrMalformedRequest, "value of type %T", v))
		}
		return []string{s}, nil
	}
}
