package middleware

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

const testToolName = "execute_sql_query"

func newToolCallRequest(t *testing.T, toolName string, args map[string]any) *mcp.CallToolRequest {
	t.Helper()
	params := &mcp.CallToolParamsRaw{Name: toolName}
	if args != nil {
		raw, err := json.Marshal(args)
		require.NoError(t, err)
		params.Arguments = raw
	}
	return &mcp.CallToolRequest{Params: params}
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: isError,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

type capturingAuditLogger struct {
	mu     sync.Mutex
	events []AuditEvent
	err    error
}

func (c *capturingAuditLogger) Log(_ context.Context, event AuditEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return c.err
}

func (c *capturingAuditLogger) Events() []AuditEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]AuditEvent, len(c.events))
	copy(out, c.events)
	return out
}

type staticLookup map[string][3]string

func (s staticLookup) GetToolkitForTool(toolName string) (kind, name, connection string, found bool) {
	v, ok := s[toolName]
	if !ok {
		return "", "", "", false
	}
	return v[0], v[1], v[2], true
}
