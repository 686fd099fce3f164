// Package audit records the history of tool calls and the statements they ran.
package audit

import (
	"context"
	"time"
)

// Logger defines the interface for audit logging.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, event Event) error

	// Query retrieves audit events matching the filter.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Close releases resources.
	Close() error
}

// Event is one recorded tool call.
type Event struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	DurationMS    int64          `json:"duration_ms"`
	RequestID     string         `json:"request_id"`
	ToolName      string         `json:"tool_name"`
	ToolkitKind   string         `json:"toolkit_kind,omitempty"`
	ToolkitName   string         `json:"toolkit_name,omitempty"`
	Connection    string         `json:"connection,omitempty"`
	Transport     string         `json:"transport,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Success       bool           `json:"success"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ResponseChars int            `json:"response_chars"`
}

// QueryFilter defines criteria for querying audit events.
type QueryFilter struct {
	StartTime   *time.Time
	EndTime     *time.Time
	ToolName    string
	ToolkitKind string
	Success     *bool
	Limit       int
	Offset      int
}

// ToolStats summarizes the calls of one tool.
type ToolStats struct {
	ToolName      string  `json:"tool_name"`
	Count         int     `json:"count"`
	ErrorCount    int     `json:"error_count"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// Config configures audit logging.
type Config struct {
	Enabled       bool
	RetentionDays int
}

// NoopLogger discards all events. It is used when no database is configured.
type NoopLogger struct{}

// Log does nothing.
func (NoopLogger) Log(_ context.Context, _ Event) error { return nil }

// Query returns no events.
func (NoopLogger) Query(_ context.Context, _ QueryFilter) ([]Event, error) { return nil, nil }

// Close does nothing.
func (NoopLogger) Close() error { return nil }

// Verify interface compliance.
var _ Logger = NoopLogger{}
