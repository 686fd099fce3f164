// Package middleware provides MCP protocol-level middleware for tool calls.
package middleware

import (
	"context"
	"time"
)

// contextKey is a private type for context keys.
type contextKey int

const callContextKey contextKey = iota

// CallContext holds per-call metadata shared between middleware.
type CallContext struct {
	RequestID string
	StartTime time.Time

	// Tool information
	ToolName    string
	ToolkitKind string
	ToolkitName string
	Connection  string

	// Transport is "stdio" or "http".
	Transport string

	// Results (populated after handler)
	Success      bool
	ErrorMessage string
	Duration     time.Duration
}

// NewCallContext creates a new call context.
func NewCallContext(requestID string) *CallContext {
	return &CallContext{
		RequestID: requestID,
		StartTime: time.Now(),
	}
}

// WithCallContext adds call context to the context.
func WithCallContext(ctx context.Context, cc *CallContext) context.Context {
	return context.WithValue(ctx, callContextKey, cc)
}

// GetCallContext retrieves call context from the context.
func GetCallContext(ctx context.Context) *CallContext {
	if cc, ok := ctx.Value(callContextKey).(*CallContext); ok {
		return cc
	}
	return nil
}
