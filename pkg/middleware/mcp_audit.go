package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// auditWriteTimeout bounds one asynchronous audit write.
const auditWriteTimeout = 10 * time.Second

// AuditWrites tracks asynchronous audit writes so shutdown can wait for them
// before the store closes. The zero value is ready to use.
type AuditWrites struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// begin registers a write. It reports false once Wait has been called.
func (w *AuditWrites) begin() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.wg.Add(1)
	return true
}

// Wait stops accepting writes and blocks until the pending ones finish or
// ctx is done.
func (w *AuditWrites) Wait(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MCPAuditMiddleware creates MCP protocol-level middleware that records each
// tools/call request. Events are written asynchronously so the store never
// delays the response. Calls without a CallContext are not recorded. When
// writes is non-nil every write is tracked by it and events arriving after
// writes.Wait are dropped.
func MCPAuditMiddleware(logger AuditLogger, writes *AuditWrites) mcp.Middleware {
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

			event := buildAuditEvent(cc, req, result)
			if writes != nil && !writes.begin() {
				slog.Warn("audit event dropped after shutdown", "tool", event.ToolName, "request_id", event.RequestID)
				return result, err
			}
			go func() {
				if writes != nil {
					defer writes.wg.Done()
				}
				wctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
				defer cancel()
				if logErr := logger.Log(wctx, event); logErr != nil {
					slog.Warn("audit log failed", "tool", event.ToolName, "request_id", event.RequestID, "error", logErr)
				}
			}()

			return result, err
		}
	}
}

// buildAuditEvent builds an audit event from the call context and response.
func buildAuditEvent(cc *CallContext, req mcp.Request, result mcp.Result) AuditEvent {
	return AuditEvent{
		Timestamp:     cc.StartTime,
		RequestID:     cc.RequestID,
		ToolName:      cc.ToolName,
		ToolkitKind:   cc.ToolkitKind,
		ToolkitName:   cc.ToolkitName,
		Connection:    cc.Connection,
		Transport:     cc.Transport,
		Parameters:    extractArguments(req),
		Success:       cc.Success,
		ErrorMessage:  cc.ErrorMessage,
		DurationMS:    cc.Duration.Milliseconds(),
		ResponseChars: responseChars(result),
	}
}

// responseChars counts the characters of all text blocks in a result.
func responseChars(result mcp.Result) int {
	callResult, ok := result.(*mcp.CallToolResult)
	if !ok || callResult == nil {
		return 0
	}
	n := 0
	for _, c := range callResult.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			n += len([]rune(text.Text))
		}
	}
	return n
}
