package cli

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/txn2/mcp-databricks/internal/server"
	"github.com/txn2/mcp-databricks/pkg/audit"
	"github.com/txn2/mcp-databricks/pkg/result"
)

const defaultHistoryLimit = 20

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Format string
	Limit  int
	Tool   string
	Failed bool
	Since  time.Duration
}

// historyColumns are the columns printed by the history command.
var historyColumns = []string{"timestamp", "tool", "connection", "success", "duration_ms", "error"}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(global *globalOptions) *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded tool calls",
		Long: `Show tool calls recorded in the statement history database, newest
first. History is recorded only when a database is configured.`,
		Example: `  mcp-databricks history --limit 50
  mcp-databricks history --tool execute_sql_query --failed --since 24h --format table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(result.FormatTable), "Output format: text, table, markdown, csv, json")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", defaultHistoryLimit, "Maximum number of calls to show")
	cmd.Flags().StringVar(&opts.Tool, "tool", "", "Only show calls of this tool")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "Only show failed calls")
	cmd.Flags().DurationVar(&opts.Since, "since", 0, "Only show calls newer than this duration")

	_ = cmd.RegisterFlagCompletionFunc("format", formatCompletion)

	return cmd
}

func runHistory(cmd *cobra.Command, global *globalOptions, opts *HistoryOptions) error {
	format, err := result.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Audit.Enabled {
		slog.Warn("statement history is disabled; configure database.dsn to record tool calls")
	}

	p, err := server.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	ctx, stop := interruptContext(cmd)
	defer stop()

	events, err := p.History(ctx, historyFilter(opts, time.Now()))
	if err != nil {
		return err
	}
	return result.Render(cmd.OutOrStdout(), historyEnvelope(events), format)
}

// historyFilter builds the store filter from the command options.
func historyFilter(opts *HistoryOptions, now time.Time) audit.QueryFilter {
	filter := audit.QueryFilter{
		ToolName: opts.Tool,
		Limit:    opts.Limit,
	}
	if opts.Failed {
		failed := false
		filter.Success = &failed
	}
	if opts.Since > 0 {
		start := now.Add(-opts.Since)
		filter.StartTime = &start
	}
	return filter
}

// historyEnvelope renders events as a result envelope.
func historyEnvelope(events []audit.Event) result.Envelope {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			e.ToolName,
			e.Connection,
			strconv.FormatBool(e.Success),
			strconv.FormatInt(e.DurationMS, 10),
			e.ErrorMessage,
		})
	}
	return result.New(historyColumns, rows)
}
