package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const redacted = "[REDACTED]"

// NewEvent creates a new audit event.
func NewEvent(toolName string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		ToolName:  toolName,
	}
}

// WithToolkit adds toolkit information to the event.
func (e *Event) WithToolkit(kind, name string) *Event {
	e.ToolkitKind = kind
	e.ToolkitName = name
	return e
}

// WithConnection adds connection information to the event.
func (e *Event) WithConnection(connection string) *Event {
	e.Connection = connection
	return e
}

// WithTransport records how the call arrived (stdio or http).
func (e *Event) WithTransport(transport string) *Event {
	e.Transport = transport
	return e
}

// WithParameters adds parameters to the event.
func (e *Event) WithParameters(params map[string]any) *Event {
	e.Parameters = params
	return e
}

// WithResult adds result information to the event.
func (e *Event) WithResult(success bool, errorMsg string, durationMS int64) *Event {
	e.Success = success
	e.ErrorMessage = errorMsg
	e.DurationMS = durationMS
	return e
}

// WithResponseSize records the size of the text returned to the caller.
func (e *Event) WithResponseSize(chars int) *Event {
	e.ResponseChars = chars
	return e
}

// WithRequestID adds a request ID to the event.
func (e *Event) WithRequestID(requestID string) *Event {
	e.RequestID = requestID
	return e
}

// sensitiveKeys are parameter names whose values are never stored.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"authorization": true,
	"credentials":   true,
}

// SanitizeParameters returns a copy of params with sensitive values
// redacted. Keys are matched case-insensitively.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = redacted
		} else {
			sanitized[k] = v
		}
	}
	return sanitized
}
