package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Lifecycle runs start hooks in registration order and stop hooks in reverse.
type Lifecycle struct {
	mu sync.Mutex

	startHooks []func(context.Context) error
	stopHooks  []func(context.Context) error

	started bool
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// OnStart registers a hook to run on startup.
func (l *Lifecycle) OnStart(hook func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startHooks = append(l.startHooks, hook)
}

// OnStop registers a hook to run on shutdown.
func (l *Lifecycle) OnStop(hook func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopHooks = append(l.stopHooks, hook)
}

// RegisterCloser closes c on shutdown.
func (l *Lifecycle) RegisterCloser(c interface{ Close() error }) {
	l.OnStop(func(context.Context) error { return c.Close() })
}

// Start runs all start hooks. When one fails, the hooks that already ran
// are not undone; Stop still runs every stop hook.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("lifecycle already started")
	}
	l.started = true

	for i, hook := range l.startHooks {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("start hook %d failed: %w", i, err)
		}
	}
	return nil
}

// Stop runs all stop hooks in reverse order. It is a no-op after the first
// call.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopHooks == nil {
		return nil
	}

	var errs []error
	for i := len(l.stopHooks) - 1; i >= 0; i-- {
		if err := l.stopHooks[i](ctx); err != nil {
			slog.Warn("stop hook failed", "hook", i, "error", err)
			errs = append(errs, err)
		}
	}
	l.stopHooks = nil
	l.started = false

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}
	return nil
}

// IsStarted returns whether the lifecycle has been started.
func (l *Lifecycle) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}
