package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Factory constructs the wrapped application.
type Factory func() (Application, error)

// Lazy constructs the wrapped application on first use and shares it
// across invocations. Construction runs at most once; a failure is kept
// and returned on every later call. Invoke is safe for concurrent use as
// long as the application itself is.
type Lazy struct {
	factory Factory

	once    sync.Once
	mu      sync.RWMutex
	app     Application
	err     error
	builtAt time.Time
}

// NewLazy returns a holder that builds its application with factory.
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

// Get returns the application, constructing it if necessary.
func (l *Lazy) Get() (Application, error) {
	l.once.Do(func() {
		var app Application
		var err error
		defer func() {
			if p := recover(); p != nil {
				app, err = nil, errors.Wrapf(ErrApplicationPanic, "constructing application: %v", p)
			}
			if err == nil && app == nil {
				err = ErrNoApplication
			}

			l.mu.Lock()
			defer l.mu.Unlock()
			l.app, l.err = app, err
			l.builtAt = time.Now()
		}()

		if l.factory != nil {
			app, err = l.factory()
		}
	})

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.app, l.err
}

// Invoke implements Application.
func (l *Lazy) Invoke(ctx context.Context, call *CallContext) (*Emitted, error) {
	app, err := l.Get()
	if err != nil {
		return nil, NewError(KindApplication, "load application", err)
	}
	return app.Invoke(ctx, call)
}

// Ready reports whether the application has been built successfully.
func (l *Lazy) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.app != nil && l.err == nil
}

// BuiltAt returns when construction ran, or the zero time if it has not.
func (l *Lazy) BuiltAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.builtAt
}
