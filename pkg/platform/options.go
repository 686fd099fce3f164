package platform

import (
	"database/sql"

	"github.com/txn2/mcp-databricks/pkg/audit"
	"github.com/txn2/mcp-databricks/pkg/registry"
)

// Options configures the platform.
type Options struct {
	// Config is the platform configuration.
	Config *Config

	// DB is the history database (optional, opened from database.dsn if not provided).
	DB *sql.DB

	// AuditLogger (optional, created from config if not provided).
	AuditLogger audit.Logger

	// ToolkitRegistry (optional, loaded from config if not provided).
	ToolkitRegistry *registry.Registry

	// SkipMigrations disables schema migration of the history database.
	SkipMigrations bool
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithDB sets the database connection.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(logger audit.Logger) Option {
	return func(o *Options) {
		o.AuditLogger = logger
	}
}

// WithToolkitRegistry sets the toolkit registry.
func WithToolkitRegistry(reg *registry.Registry) Option {
	return func(o *Options) {
		o.ToolkitRegistry = reg
	}
}

// WithoutMigrations skips running database migrations.
func WithoutMigrations() Option {
	return func(o *Options) {
		o.SkipMigrations = true
	}
}
