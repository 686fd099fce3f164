package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestMCPLoggingMiddleware_Success(t *testing.T) {
	logger, buf := newBufferLogger()
	handler := MCPLoggingMiddleware(logger)(func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return textResult("ok", false), nil
	})

	cc := NewCallContext("req-1")
	cc.ToolName = testToolName
	_, err := handler(WithCallContext(context.Background(), cc), methodToolsCall, newToolCallRequest(t, testToolName, nil))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `msg="tool call completed"`)
	assert.Contains(t, out, "tool="+testToolName)
	assert.Contains(t, out, "request_id=req-1")
}

func TestMCPLoggingMiddleware_Failure(t *testing.T) {
	logger, buf := newBufferLogger()
	handler := MCPLoggingMiddleware(logger)(func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return textResult("Error listing schemas: timeout", true), nil
	})

	cc := NewCallContext("req-2")
	cc.ToolName = "list_schemas"
	_, err := handler(WithCallContext(context.Background(), cc), methodToolsCall, newToolCallRequest(t, "list_schemas", nil))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="tool call failed"`)
	assert.Contains(t, out, `error="Error listing schemas: timeout"`)
}

func TestMCPLoggingMiddleware_SkipsOtherMethods(t *testing.T) {
	logger, buf := newBufferLogger()
	handler := MCPLoggingMiddleware(logger)(func(_ context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		return &mcp.ListToolsResult{}, nil
	})

	_, err := handler(context.Background(), "tools/list", nil)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestMCPLoggingMiddleware_NilLoggerUsesDefault(t *testing.T) {
	assert.NotNil(t, MCPLoggingMiddleware(nil))
}
