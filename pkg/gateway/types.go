package gateway

import (
	"sort"
	"strings"
)

// Request is the canonical inbound record, normalized once at the
// platform boundary.
type Request struct {
	Method     string `validate:"required,uppercase"`
	Path       string `validate:"required,startswith=/"`
	Headers    map[string]string
	Query      Query
	Body       Body
	RemoteAddr string
}

// Header returns the value of a header, ignoring case.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// Query carries query parameters either pre-encoded or as a mapping.
type Query struct {
	Raw    string
	Values map[string][]string
}

// RawQuery builds a Query from an already encoded string.
func RawQuery(raw string) Query {
	return Query{Raw: strings.TrimPrefix(raw, "?")}
}

// QueryValues builds a Query from a single-valued mapping.
func QueryValues(values map[string]string) Query {
	if len(values) == 0 {
		return Query{}
	}
	q := Query{Values: make(map[string][]string, len(values))}
	for k, v := range values {
		q.Values[k] = []string{v}
	}
	return q
}

// Encode renders the query string. Mapping values are joined as key=value
// pairs with no escaping; keys are sorted so the output is stable.
func (q Query) Encode() (string, error) {
	if q.Values == nil {
		return q.Raw, nil
	}

	keys := make([]string, 0, len(q.Values))
	for k := range q.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.ContainsAny(k, "&=#") {
			return "", malformed("encode query", ErrQueryEncoding)
		}
		for _, v := range q.Values[k] {
			if strings.ContainsAny(v, "&=#") {
				return "", malformed("encode query", ErrQueryEncoding)
			}
			pairs = append(pairs, k+"="+v)
		}
	}
	return strings.Join(pairs, "&"), nil
}

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyText
	bodyBinary
)

// Body is the inbound payload: absent, text or raw bytes.
type Body struct {
	kind bodyKind
	text string
	data []byte
}

// NoBody is an absent payload.
var NoBody = Body{}

// TextBody wraps a string payload; it is UTF-8 encoded on use.
func TextBody(s string) Body {
	return Body{kind: bodyText, text: s}
}

// BinaryBody wraps a byte payload; it is passed through unchanged.
func BinaryBody(b []byte) Body {
	return Body{kind: bodyBinary, data: b}
}

// Bytes returns the payload bytes. An absent body is an empty buffer.
func (b Body) Bytes() []byte {
	switch b.kind {
	case bodyText:
		return []byte(b.text)
	case bodyBinary:
		if b.data == nil {
			return []byte{}
		}
		return b.data
	default:
		return []byte{}
	}
}

// IsZero reports whether the body is absent.
func (b Body) IsZero() bool {
	return b.kind == bodyNone
}

// HeaderPair is a single response header. Names may repeat.
type HeaderPair struct {
	Name  string
	Value string
}

// Emitted is what the wrapped application produced for one call.
type Emitted struct {
	StatusCode int
	Headers    []HeaderPair
	Chunks     [][]byte
}

// Response is the record returned to the hosting platform.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}
