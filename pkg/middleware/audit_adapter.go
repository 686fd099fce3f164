package middleware

import (
	"context"

	"github.com/txn2/mcp-databricks/pkg/audit"
)

// auditAdapter adapts an audit.Logger to the middleware.AuditLogger interface.
type auditAdapter struct {
	logger audit.Logger
}

// NewAuditLoggerAdapter creates an AuditLogger that writes to an audit.Logger.
func NewAuditLoggerAdapter(logger audit.Logger) AuditLogger {
	return &auditAdapter{logger: logger}
}

// Log converts the middleware event to an audit.Event, redacting sensitive
// parameters, and records it.
func (a *auditAdapter) Log(ctx context.Context, event AuditEvent) error {
	auditEvent := audit.NewEvent(event.ToolName).
		WithRequestID(event.RequestID).
		WithToolkit(event.ToolkitKind, event.ToolkitName).
		WithConnection(event.Connection).
		WithTransport(event.Transport).
		WithParameters(audit.SanitizeParameters(event.Parameters)).
		WithResult(event.Success, event.ErrorMessage, event.DurationMS).
		WithResponseSize(event.ResponseChars)

	auditEvent.Timestamp = event.Timestamp

	return a.logger.Log(ctx, *auditEvent)
}

var _ AuditLogger = (*auditAdapter)(nil)
