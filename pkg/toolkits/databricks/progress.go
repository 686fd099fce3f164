package databricks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-databricks/pkg/statement"
)

// progressSender abstracts ServerSession.NotifyProgress for testability.
type progressSender interface {
	NotifyProgress(ctx context.Context, params *mcp.ProgressNotificationParams) error
}

// mcpProgressNotifier adapts an MCP session to statement.ProgressNotifier,
// sending one progress notification per status poll.
type mcpProgressNotifier struct {
	session progressSender
	token   any
}

// Notify sends a progress notification to the MCP client. Failures are
// logged and otherwise ignored.
func (n *mcpProgressNotifier) Notify(ctx context.Context, poll, maxPolls int, state statement.State) {
	err := n.session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: n.token,
		Progress:      float64(poll),
		Total:         float64(maxPolls),
		Message:       fmt.Sprintf("statement %s (poll %d of %d)", state, poll, maxPolls),
	})
	if err != nil {
		slog.Debug("progress notification failed", "error", err)
	}
}

// withProgress attaches a progress notifier to ctx when the caller asked for
// progress and the toolkit has progress enabled.
func (t *Toolkit) withProgress(ctx context.Context, req *mcp.CallToolRequest) context.Context {
	if !t.config.ProgressEnabled || req == nil || req.Session == nil || req.Params == nil {
		return ctx
	}
	token := req.Params.GetProgressToken()
	if token == nil {
		return ctx
	}
	return statement.WithProgressNotifier(ctx, &mcpProgressNotifier{session: req.Session, token: token})
}
