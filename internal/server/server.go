// Package server builds the platform and serves it over stdio or HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-databricks/pkg/platform"
)

// Version is set at build time.
var Version = "dev"

const (
	// MCPPath is the streamable HTTP endpoint.
	MCPPath = "/mcp"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// New creates a platform from cfg. The configured server version is replaced
// by the build version when unset.
func New(cfg *platform.Config, opts ...platform.Option) (*platform.Platform, error) {
	if cfg.Server.Version == "" || cfg.Server.Version == "dev" {
		cfg.Server.Version = Version
	}
	p, err := platform.New(append([]platform.Option{platform.WithConfig(cfg)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating platform: %w", err)
	}
	return p, nil
}

// NewWithConfig creates a platform from a YAML configuration file.
func NewWithConfig(path string) (*platform.Platform, error) {
	cfg, err := platform.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// NewWithDefaults creates a platform from the process environment.
func NewWithDefaults() (*platform.Platform, error) {
	return New(platform.FromEnv())
}

// Handler returns the HTTP handler serving the MCP endpoint and health checks.
func Handler(p *platform.Platform) http.Handler {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return p.MCPServer()
	}, nil)

	mux := http.NewServeMux()
	mux.Handle(MCPPath, mcpHandler)
	mux.Handle("/healthz", p.Health().LivenessHandler())
	mux.Handle("/readyz", p.Health().ReadinessHandler())
	return mux
}

// Serve starts the platform and serves it on the configured transport until
// ctx is cancelled or the transport ends. The platform is stopped on return.
func Serve(ctx context.Context, p *platform.Platform) error {
	if err := p.Start(ctx); err != nil {
		_ = p.Stop(context.Background())
		return fmt.Errorf("starting platform: %w", err)
	}
	defer func() {
		if err := p.Stop(context.Background()); err != nil {
			slog.Warn("platform shutdown failed", "error", err)
		}
	}()

	cfg := p.Config().Server
	switch cfg.Transport {
	case platform.TransportStdio:
		return serveStdio(ctx, p.MCPServer())
	case platform.TransportHTTP:
		return serveHTTP(ctx, cfg.Address, Handler(p))
	default:
		return fmt.Errorf("unknown transport: %s", cfg.Transport)
	}
}

func serveStdio(ctx context.Context, s *mcp.Server) error {
	err := s.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serving stdio: %w", err)
	}
	return nil
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "address", addr, "path", MCPPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
