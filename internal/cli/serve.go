package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/txn2/mcp-databricks/internal/server"
	"github.com/txn2/mcp-databricks/pkg/platform"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Transport string
	Address   string
}

// NewServeCommand creates the serve command.
func NewServeCommand(global *globalOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server on stdio (the default) or streamable HTTP.

Over HTTP the MCP endpoint is served at /mcp, with /healthz and /readyz
health endpoints alongside it.`,
		Example: `  # stdio, configured from the environment
  mcp-databricks serve

  # streamable HTTP from a config file
  mcp-databricks serve --config config.yaml --transport http --address :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Transport, "transport", "", "Transport: stdio, http (overrides config)")
	cmd.Flags().StringVar(&opts.Address, "address", "", "Listen address for the http transport (overrides config)")

	_ = cmd.RegisterFlagCompletionFunc("transport", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{platform.TransportStdio, platform.TransportHTTP}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runServe(cmd *cobra.Command, global *globalOptions, opts *ServeOptions) error {
	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	applyServeOverrides(cfg, opts)

	p, err := server.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := interruptContext(cmd)
	defer stop()

	return server.Serve(ctx, p)
}

// applyServeOverrides applies non-empty flag values over the configuration.
func applyServeOverrides(cfg *platform.Config, opts *ServeOptions) {
	if opts.Transport != "" {
		cfg.Server.Transport = opts.Transport
	}
	if opts.Address != "" {
		cfg.Server.Address = opts.Address
	}
}

// interruptContext returns the command context, cancelled on SIGINT or SIGTERM.
func interruptContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
