package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/txn2/mcp-databricks/internal/server"
	"github.com/txn2/mcp-databricks/pkg/result"
	"github.com/txn2/mcp-databricks/pkg/statement"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format    string
	Warehouse string
	Input     string
	Progress  bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(global *globalOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run one SQL statement and print the result",
		Long: `Submit one SQL statement to the configured warehouse, wait for it to
finish and print the result. The read-only setting of the toolkit applies.`,
		Example: `  # Text output
  mcp-databricks query "SELECT current_catalog()"

  # Table output on a specific warehouse
  mcp-databricks query "SHOW SCHEMAS IN main" --format table --warehouse abc123

  # Read the statement from a file
  mcp-databricks query --input report.sql --format csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, global, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(result.FormatText), "Output format: text, table, markdown, csv, json")
	cmd.Flags().StringVarP(&opts.Warehouse, "warehouse", "w", "", "SQL warehouse ID (default: configured warehouse)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().BoolVar(&opts.Progress, "progress", false, "Report status polls on stderr")

	_ = cmd.RegisterFlagCompletionFunc("format", formatCompletion)

	return cmd
}

func runQuery(cmd *cobra.Command, global *globalOptions, args []string, opts *QueryOptions) error {
	sql, err := readSQL(args, opts.Input)
	if err != nil {
		return err
	}
	format, err := result.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	// One-shot statements are not recorded in history.
	cfg.Audit.Enabled = false

	p, err := server.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	tk, err := p.Databricks()
	if err != nil {
		return err
	}

	// An interrupt cancels polling, which also asks the warehouse to cancel
	// the statement.
	ctx, stop := interruptContext(cmd)
	defer stop()
	if opts.Progress {
		ctx = statement.WithProgressNotifier(ctx, &progressPrinter{w: cmd.ErrOrStderr()})
	}

	resp, err := tk.Query(ctx, sql, opts.Warehouse)
	if err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}
	return result.Render(cmd.OutOrStdout(), result.FromStatement(resp), format)
}

// readSQL returns the statement from the argument or the input file.
func readSQL(args []string, input string) (string, error) {
	var sql string
	switch {
	case len(args) == 1 && input != "":
		return "", fmt.Errorf("provide SQL as an argument or with --input, not both")
	case len(args) == 1:
		sql = args[0]
	case input != "":
		// #nosec G304 -- path is from CLI args, controlled by the user
		data, err := os.ReadFile(input)
		if err != nil {
			return "", fmt.Errorf("reading SQL file: %w", err)
		}
		sql = string(data)
	}
	if strings.TrimSpace(sql) == "" {
		return "", fmt.Errorf("no SQL statement given")
	}
	return sql, nil
}

// progressPrinter writes one line per status poll.
type progressPrinter struct {
	w io.Writer
}

func (p *progressPrinter) Notify(_ context.Context, poll, maxPolls int, state statement.State) {
	_, _ = fmt.Fprintf(p.w, "poll %d/%d: %s\n", poll, maxPolls, state)
}

func formatCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(result.FormatText),
		string(result.FormatTable),
		string(result.FormatMarkdown),
		string(result.FormatCSV),
		string(result.FormatJSON),
	}, cobra.ShellCompDirectiveNoFileComp
}
