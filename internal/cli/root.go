// Package cli provides the command-line interface for mcp-databricks.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/txn2/mcp-databricks/internal/server"
	"github.com/txn2/mcp-databricks/pkg/platform"
)

// globalOptions holds the persistent flags shared by all commands.
type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "mcp-databricks",
		Short: "MCP server for Databricks SQL warehouses",
		Long: `mcp-databricks exposes a Databricks SQL warehouse and Unity Catalog to
MCP clients. Statements are submitted asynchronously, polled to completion
and returned as normalized text results.

Without --config the server is configured from DATABRICKS_HOST,
DATABRICKS_TOKEN, DATABRICKS_SQL_WAREHOUSE_ID and DATABASE_URL.`,
		Version: server.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd.ErrOrStderr(), opts.logLevel)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file (default: environment)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(NewServeCommand(opts))
	rootCmd.AddCommand(NewQueryCommand(opts))
	rootCmd.AddCommand(NewHistoryCommand(opts))
	rootCmd.AddCommand(NewVersionCommand(server.Version))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// setupLogging installs a text slog handler on w. Logs never go to stdout,
// which carries the stdio MCP transport.
func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// loadConfig reads the configuration file, or the environment when no file
// is given.
func (o *globalOptions) loadConfig() (*platform.Config, error) {
	if o.configPath == "" {
		return platform.FromEnv(), nil
	}
	return platform.LoadConfig(o.configPath)
}
