package databricks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-databricks/pkg/client"
	"github.com/txn2/mcp-databricks/pkg/statement"
)

// ErrorKind classifies a tool failure.
type ErrorKind string

// Error kinds. The set is closed; Classify maps every error to one of them.
const (
	KindConfiguration     ErrorKind = "configuration"
	KindUnsupportedMethod ErrorKind = "unsupported_method"
	KindClient            ErrorKind = "client"
	KindProtocol          ErrorKind = "protocol"
	KindExecution         ErrorKind = "execution"
	KindTimeout           ErrorKind = "timeout"
	KindCanceled          ErrorKind = "canceled"
	KindReadOnly          ErrorKind = "read_only"
	KindInvalidInput      ErrorKind = "invalid_input"
)

var (
	// ErrReadOnly is returned when a write statement is submitted in read-only mode.
	ErrReadOnly = errors.New("write operations not allowed in read-only mode")

	// ErrInvalidInput is returned when a tool argument cannot be used.
	ErrInvalidInput = errors.New("invalid input")
)

// Classify maps err to its ErrorKind. Order matters: a polling timeout is
// also an ExecutionError, and a canceled client call is also a client error.
// Anything unrecognized came from the transport and is a client error.
func Classify(err error) ErrorKind {
	var (
		execErr   *statement.ExecutionError
		clientErr *client.Error
	)

	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrReadOnly):
		return KindReadOnly
	case errors.Is(err, statement.ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, client.ErrUnsupportedMethod):
		return KindUnsupportedMethod
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case statement.IsTimeout(err):
		return KindTimeout
	case errors.As(err, &execErr):
		return KindExecution
	case errors.Is(err, statement.ErrProtocol):
		return KindProtocol
	case errors.As(err, &clientErr):
		return KindClient
	case errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindClient
	}
}

// errorResult converts err into a tool error result with the operation prefix.
func errorResult(tool, prefix string, err error) *mcp.CallToolResult {
	kind := Classify(err)
	slog.Warn("databricks tool failed",
		"tool", tool,
		"kind", kind,
		"error", err,
	)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: prefix + ": " + err.Error()},
		},
		IsError: true,
	}
}

// textResult wraps rendered output in a tool result.
func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: isError,
	}
}
