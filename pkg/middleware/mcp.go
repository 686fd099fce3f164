package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const methodToolsCall = "tools/call"

// ToolkitLookup resolves the toolkit that provides a tool.
type ToolkitLookup interface {
	GetToolkitForTool(toolName string) (kind, name, connection string, found bool)
}

// MCPToolCallMiddleware creates MCP protocol-level middleware that intercepts
// tools/call requests and attaches a CallContext carrying a fresh request ID
// and the owning toolkit. Requests without a tool name are rejected with an
// error result.
func MCPToolCallMiddleware(lookup ToolkitLookup, transport string) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			toolName, err := extractToolName(req)
			if err != nil {
				return createErrorResult(fmt.Sprintf("invalid request: %v", err)), nil
			}

			cc := NewCallContext(uuid.NewString())
			cc.ToolName = toolName
			cc.Transport = transport
			if lookup != nil {
				if kind, name, conn, found := lookup.GetToolkitForTool(toolName); found {
					cc.ToolkitKind = kind
					cc.ToolkitName = name
					cc.Connection = conn
				}
			}

			return next(WithCallContext(ctx, cc), method, req)
		}
	}
}

// extractToolName extracts the tool name from a tools/call request.
func extractToolName(req mcp.Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("missing params")
	}
	callParams, err := callToolParams(req)
	if err != nil {
		return "", err
	}
	if callParams.Name == "" {
		return "", fmt.Errorf("missing tool name")
	}
	return callParams.Name, nil
}

func callToolParams(req mcp.Request) (*mcp.CallToolParamsRaw, error) {
	params := req.GetParams()
	if params == nil {
		return nil, fmt.Errorf("missing params")
	}

	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok {
		return nil, fmt.Errorf("unexpected params type: %T", params)
	}

	// A typed nil pointer passes the assertion above.
	if callParams == nil {
		return nil, fmt.Errorf("missing params")
	}
	return callParams, nil
}

// extractArguments decodes the call arguments into a map.
func extractArguments(req mcp.Request) map[string]any {
	if req == nil {
		return nil
	}
	callParams, err := callToolParams(req)
	if err != nil || len(callParams.Arguments) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(callParams.Arguments, &args); err != nil {
		return nil
	}
	return args
}

// createErrorResult creates an MCP error result.
func createErrorResult(errMsg string) mcp.Result {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: errMsg},
		},
	}
}

// resultText returns the first text block of a tool result.
func resultText(result mcp.Result) string {
	callResult, ok := result.(*mcp.CallToolResult)
	if !ok || callResult == nil || len(callResult.Content) == 0 {
		return ""
	}
	if text, ok := callResult.Content[0].(*mcp.TextContent); ok {
		return text.Text
	}
	return ""
}

// recordOutcome fills in the result fields of the call context.
func recordOutcome(cc *CallContext, result mcp.Result, err error) {
	cc.Duration = time.Since(cc.StartTime)
	cc.Success = err == nil
	cc.ErrorMessage = ""
	if err != nil {
		cc.ErrorMessage = err.Error()
		return
	}
	if callResult, ok := result.(*mcp.CallToolResult); ok && callResult != nil && callResult.IsError {
		cc.Success = false
		cc.ErrorMessage = resultText(result)
	}
}
