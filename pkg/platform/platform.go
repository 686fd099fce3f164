package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver for the history database
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-databricks/pkg/audit"
	auditpostgres "github.com/txn2/mcp-databricks/pkg/audit/postgres"
	"github.com/txn2/mcp-databricks/pkg/database/migrate"
	"github.com/txn2/mcp-databricks/pkg/health"
	"github.com/txn2/mcp-databricks/pkg/middleware"
	"github.com/txn2/mcp-databricks/pkg/registry"
	databrickskit "github.com/txn2/mcp-databricks/pkg/toolkits/databricks"
)

// cleanupInterval is how often expired history rows are removed.
const cleanupInterval = 24 * time.Hour

// ErrNoDatabricksToolkit is returned when no Databricks toolkit is registered.
var ErrNoDatabricksToolkit = errors.New("no databricks toolkit configured")

// Platform is the main platform facade.
type Platform struct {
	config *Config

	mcpServer       *mcp.Server
	lifecycle       *Lifecycle
	toolkitRegistry *registry.Registry
	health          *health.Checker

	db          *sql.DB
	auditLogger audit.Logger
	auditWrites *middleware.AuditWrites
}

// New creates a new platform instance.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}

	p := &Platform{
		config:    options.Config,
		lifecycle: NewLifecycle(),
	}

	if err := p.initializeComponents(options); err != nil {
		_ = p.lifecycle.Stop(context.Background())
		return nil, fmt.Errorf("initializing components: %w", err)
	}
	return p, nil
}

// initializeComponents initializes all platform components.
func (p *Platform) initializeComponents(opts *Options) error {
	if err := p.initRegistry(opts); err != nil {
		return err
	}
	if err := p.initAudit(opts); err != nil {
		return err
	}
	p.health = health.NewChecker(health.WithReadyCheck(p.toolkitRegistry.Ping))
	p.finalizeSetup()
	return nil
}

// initRegistry loads toolkits from configuration.
func (p *Platform) initRegistry(opts *Options) error {
	if opts.ToolkitRegistry != nil {
		p.toolkitRegistry = opts.ToolkitRegistry
	} else {
		p.toolkitRegistry = registry.NewRegistry()
		registry.RegisterBuiltinFactories(p.toolkitRegistry)
		if err := registry.NewLoader(p.toolkitRegistry).LoadFromMap(p.config.Toolkits); err != nil {
			return fmt.Errorf("loading toolkits: %w", err)
		}
	}
	p.lifecycle.RegisterCloser(p.toolkitRegistry)

	if len(p.toolkitRegistry.All()) == 0 {
		return fmt.Errorf("no toolkits enabled")
	}
	return nil
}

// initAudit sets up statement history: a provided logger, a postgres store
// when audit is enabled, or a noop logger.
func (p *Platform) initAudit(opts *Options) error {
	if opts.AuditLogger != nil {
		p.auditLogger = opts.AuditLogger
		return nil
	}
	if !p.config.Audit.Enabled {
		p.auditLogger = audit.NoopLogger{}
		return nil
	}

	db, err := p.openDatabase(opts)
	if err != nil {
		return err
	}
	p.db = db

	if !opts.SkipMigrations {
		if err := migrate.Run(db); err != nil {
			return fmt.Errorf("migrating history database: %w", err)
		}
	}

	store := auditpostgres.New(db, auditpostgres.Config{RetentionDays: p.config.Audit.RetentionDays})
	p.lifecycle.OnStart(func(context.Context) error {
		store.StartCleanupRoutine(cleanupInterval)
		return nil
	})
	p.lifecycle.RegisterCloser(store)
	p.auditLogger = store
	return nil
}

// openDatabase returns the provided connection or opens one from the DSN.
func (p *Platform) openDatabase(opts *Options) (*sql.DB, error) {
	if opts.DB != nil {
		return opts.DB, nil
	}

	db, err := sql.Open("postgres", p.config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db.SetMaxOpenConns(p.config.Database.MaxOpenConns)
	p.lifecycle.RegisterCloser(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}
	return db, nil
}

// finalizeSetup creates the MCP server, installs middleware and registers tools.
func (p *Platform) finalizeSetup() {
	p.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    p.config.Server.Name,
		Version: p.config.Server.Version,
	}, &mcp.ServerOptions{
		Instructions: p.config.Server.Instructions,
	})

	// Stop hooks run in reverse, so pending audit writes drain before the
	// store registered in initAudit is closed.
	p.auditWrites = &middleware.AuditWrites{}
	p.lifecycle.OnStop(p.auditWrites.Wait)

	// The first middleware runs first: it creates the CallContext the others read.
	p.mcpServer.AddReceivingMiddleware(
		middleware.MCPToolCallMiddleware(p.toolkitRegistry, p.config.Server.Transport),
		middleware.MCPLoggingMiddleware(slog.Default()),
		middleware.MCPAuditMiddleware(middleware.NewAuditLoggerAdapter(p.auditLogger), p.auditWrites),
	)

	p.toolkitRegistry.RegisterAllTools(p.mcpServer)
}

// Start runs start hooks and marks the platform ready.
func (p *Platform) Start(ctx context.Context) error {
	if err := p.lifecycle.Start(ctx); err != nil {
		return err
	}
	p.health.SetReady()
	slog.Info("platform started",
		"name", p.config.Server.Name,
		"transport", p.config.Server.Transport,
		"tools", len(p.toolkitRegistry.AllTools()),
	)
	return nil
}

// Stop marks the platform draining and releases all resources.
func (p *Platform) Stop(ctx context.Context) error {
	p.health.SetDraining()
	return p.lifecycle.Stop(ctx)
}

// Close stops the platform with a background context.
func (p *Platform) Close() error {
	return p.Stop(context.Background())
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config {
	return p.config
}

// MCPServer returns the MCP server.
func (p *Platform) MCPServer() *mcp.Server {
	return p.mcpServer
}

// ToolkitRegistry returns the toolkit registry.
func (p *Platform) ToolkitRegistry() *registry.Registry {
	return p.toolkitRegistry
}

// Health returns the health checker.
func (p *Platform) Health() *health.Checker {
	return p.health
}

// AuditLogger returns the statement history logger.
func (p *Platform) AuditLogger() audit.Logger {
	return p.auditLogger
}

// History returns recorded tool calls, newest first.
func (p *Platform) History(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	events, err := p.auditLogger.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	return events, nil
}

// Databricks returns the registered Databricks toolkit. Tool names are
// unique per server, so at most one is registered.
func (p *Platform) Databricks() (*databrickskit.Toolkit, error) {
	for _, tk := range p.toolkitRegistry.All() {
		if dtk, ok := tk.(*databrickskit.Toolkit); ok {
			return dtk, nil
		}
	}
	return nil, ErrNoDatabricksToolkit
}
