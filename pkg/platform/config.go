// Package platform wires the Databricks toolkit, statement history and the
// MCP server into one runnable unit.
package platform

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	databrickskit "github.com/txn2/mcp-databricks/pkg/toolkits/databricks"
)

const (
	defaultServerName    = "mcp-databricks"
	defaultTransport     = TransportStdio
	defaultAddress       = ":8080"
	defaultMaxOpenConns  = 10
	defaultRetentionDays = 90

	// defaultInstance is the toolkit instance name used for environment-only configuration.
	defaultInstance = "default"
)

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Environment variables read by FromEnv.
const (
	EnvHost        = "DATABRICKS_HOST"
	EnvToken       = "DATABRICKS_TOKEN"
	EnvWarehouseID = "DATABRICKS_SQL_WAREHOUSE_ID"
	EnvDatabaseURL = "DATABASE_URL"
)

// Config holds the complete platform configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Audit    AuditConfig    `yaml:"audit"`
	Toolkits map[string]any `yaml:"toolkits"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	Instructions string `yaml:"instructions"`
	Transport    string `yaml:"transport"` // "stdio", "http"
	Address      string `yaml:"address"`
}

// DatabaseConfig configures the statement history database.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// AuditConfig configures statement history.
type AuditConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, expanding ${VAR} references first.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// FromEnv builds a configuration with a single Databricks toolkit from the
// process environment. Statement history is enabled when DATABASE_URL is set.
func FromEnv() *Config {
	return fromLookup(os.Getenv)
}

func fromLookup(getenv func(string) string) *Config {
	instance := map[string]any{
		"host":         getenv(EnvHost),
		"token":        getenv(EnvToken),
		"warehouse_id": getenv(EnvWarehouseID),
	}

	cfg := &Config{
		Database: DatabaseConfig{DSN: getenv(EnvDatabaseURL)},
		Toolkits: map[string]any{
			databrickskit.Kind: map[string]any{
				"enabled":   true,
				"default":   defaultInstance,
				"instances": map[string]any{defaultInstance: instance},
			},
		},
	}
	cfg.Audit.Enabled = cfg.Database.DSN != ""

	applyDefaults(cfg)
	return cfg
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = defaultServerName
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "dev"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = defaultTransport
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = defaultRetentionDays
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Sprintf("server.transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.Transport))
	}

	if c.Audit.Enabled && c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required when audit is enabled")
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, "audit.retention_days must not be negative")
	}

	if len(c.Toolkits) == 0 {
		errs = append(errs, "at least one toolkit must be configured")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
