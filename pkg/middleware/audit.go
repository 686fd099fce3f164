package middleware

import (
	"context"
	"time"
)

// AuditLogger logs tool calls for auditing.
type AuditLogger interface {
	// Log records an audit event.
	Log(ctx context.Context, event AuditEvent) error
}

// AuditEvent represents one audited tool call.
type AuditEvent struct {
	Timestamp     time.Time      `json:"timestamp"`
	RequestID     string         `json:"request_id"`
	ToolName      string         `json:"tool_name"`
	ToolkitKind   string         `json:"toolkit_kind"`
	ToolkitName   string         `json:"toolkit_name"`
	Connection    string         `json:"connection"`
	Transport     string         `json:"transport"`
	Parameters    map[string]any `json:"parameters"`
	Success       bool           `json:"success"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	DurationMS    int64          `json:"duration_ms"`
	ResponseChars int            `json:"response_chars"`
}
