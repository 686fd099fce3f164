// Package health provides readiness state tracking and HTTP health check handlers.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// defaultReadyCheckTimeout bounds one readiness check.
const defaultReadyCheckTimeout = 5 * time.Second

// ReadyCheck checks a downstream dependency. A nil error means healthy.
type ReadyCheck func(ctx context.Context) error

// State constants for the readiness state machine.
const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

// Checker tracks the readiness state of the platform.
// It is safe for concurrent use.
type Checker struct {
	state        atomic.Int32
	readyCheck   ReadyCheck
	checkTimeout time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithReadyCheck makes readiness also require check to succeed.
func WithReadyCheck(check ReadyCheck) Option {
	return func(c *Checker) { c.readyCheck = check }
}

// WithReadyCheckTimeout overrides the readiness check timeout.
func WithReadyCheckTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.checkTimeout = d
		}
	}
}

// NewChecker creates a Checker in the Starting state.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{checkTimeout: defaultReadyCheckTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetReady transitions to the Ready state.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining transitions to the Draining state.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// IsReady returns true when the state is Ready.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the current state as a human-readable string.
func (c *Checker) State() string {
	switch c.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

// healthResponse is the JSON body returned by health endpoints.
type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// LivenessHandler returns an http.HandlerFunc that always responds 200 OK.
// Use this for Kubernetes liveness checks (/healthz).
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// ReadinessHandler returns an http.HandlerFunc that responds 200 when ready
// and 503 when starting, draining, or when the check fails.
// Use this for Kubernetes readiness checks (/readyz).
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: c.State()})
			return
		}
		if c.readyCheck != nil {
			ctx, cancel := context.WithTimeout(r.Context(), c.checkTimeout)
			defer cancel()
			if err := c.readyCheck(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: c.State()})
	}
}

func writeJSON(w http.ResponseWriter, code int, v healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
