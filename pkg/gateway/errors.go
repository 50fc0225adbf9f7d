package gateway

import (
	"errors"
	"fmt"
)

// Common adapter error types
var (
	ErrMalformedRequest       = errors.New("malformed inbound request")
	ErrUnsupportedBody        = errors.New("unsupported body type")
	ErrQueryEncoding          = errors.New("query parameter cannot be encoded without escaping")
	ErrResponseAlreadyStarted = errors.New("response already started")
	ErrResponseEncoding       = errors.New("response body is not valid UTF-8")
	ErrApplicationPanic       = errors.New("application panicked")
	ErrNoApplication          = errors.New("no application configured")
)

// Kind classifies a failure by the boundary it happened on.
type Kind string

const (
	// KindMalformed marks an inbound record the adapter could not normalize.
	KindMalformed Kind = "malformed_request"
	// KindApplication marks a failure raised by the wrapped application.
	KindApplication Kind = "application"
	// KindEncoding marks an outbound body that could not be decoded.
	KindEncoding Kind = "encoding"
)

// Error represents an adapter failure with additional context
type Error struct {
	Kind Kind   // Boundary the failure belongs to
	Op   string // Step that failed (e.g. "normalize", "invoke")
	Err  error  // Underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Format keeps %+v stack output of the wrapped error.
func (e *Error) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		fmt.Fprintf(s, "gateway %s failed (%s): %+v", e.Op, e.Kind, e.Err)
		return
	}
	fmt.Fprint(s, e.Error())
}

// NewError creates a new Error
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func malformed(op string, err error) *Error {
	return NewError(KindMalformed, op, err)
}

// KindOf returns the kind of err, defaulting to KindApplication for
// errors that did not originate in the adapter.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindApplication
}

// IsMalformed returns true if err was caused by the inbound record
func IsMalformed(err error) bool {
	return KindOf(err) == KindMalformed
}
