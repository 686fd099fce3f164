package middleware

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPLoggingMiddleware creates MCP protocol-level middleware that writes one
// slog record per tools/call request: debug on success, warn on failure.
func MCPLoggingMiddleware(logger *slog.Logger) mcp.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			result, err := next(ctx, method, req)

			cc := GetCallContext(ctx)
			if cc == nil {
				return result, err
			}
			recordOutcome(cc, result, err)

			attrs := []any{
				"tool", cc.ToolName,
				"request_id", cc.RequestID,
				"toolkit", cc.ToolkitName,
				"duration_ms", cc.Duration.Milliseconds(),
			}
			if cc.Success {
				logger.DebugContext(ctx, "tool call completed", attrs...)
			} else {
				logger.WarnContext(ctx, "tool call failed", append(attrs, "error", cc.ErrorMessage)...)
			}
			return result, err
		}
	}
}
