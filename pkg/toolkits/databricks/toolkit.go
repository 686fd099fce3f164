// Package databricks provides the Databricks SQL toolkit: statement execution
// on a SQL warehouse and Unity Catalog listings exposed as MCP tools.
package databricks

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-databricks/pkg/catalog"
	"github.com/txn2/mcp-databricks/pkg/client"
	"github.com/txn2/mcp-databricks/pkg/statement"
)

const (
	// Kind is the registry kind of this toolkit.
	Kind = "databricks"

	// defaultRequestTimeout is the per-call HTTP timeout.
	defaultRequestTimeout = client.DefaultTimeout

	// defaultPollInterval is the fixed wait between status polls.
	defaultPollInterval = statement.DefaultPollInterval

	// defaultMaxPolls bounds the number of status polls per statement.
	defaultMaxPolls = statement.DefaultMaxPolls

	// warehousesAPI is the SQL warehouse endpoint used by Ping.
	warehousesAPI = "/api/2.0/sql/warehouses"
)

// Config holds Databricks toolkit configuration.
type Config struct {
	Host            string                      `yaml:"host"`
	Token           string                      `yaml:"token"`
	WarehouseID     string                      `yaml:"warehouse_id"`
	Catalog         string                      `yaml:"catalog"`
	Schema          string                      `yaml:"schema"`
	Timeout         time.Duration               `yaml:"timeout"`
	PollInterval    time.Duration               `yaml:"poll_interval"`
	MaxPolls        int                         `yaml:"max_polls"`
	PageSize        int                         `yaml:"page_size"`
	ReadOnly        bool                        `yaml:"read_only"`
	ProgressEnabled bool                        `yaml:"progress_enabled"`
	DefaultFormat   string                      `yaml:"default_format"`
	ConnectionName  string                      `yaml:"connection_name"`
	Descriptions    map[string]string           `yaml:"descriptions"`
	Annotations     map[string]AnnotationConfig `yaml:"annotations"`
}

// Runner executes one statement to completion.
type Runner interface {
	Execute(ctx context.Context, sql, warehouseID string) (*statement.Response, error)
}

// ViewLister lists the views of a schema.
type ViewLister interface {
	ListViews(ctx context.Context, catalogName, schemaName string) catalog.Listing
}

// Option customizes a Toolkit.
type Option func(*Toolkit)

// WithRunner replaces the statement runner.
func WithRunner(r Runner) Option {
	return func(t *Toolkit) { t.runner = r }
}

// WithViewLister replaces the catalog view lister.
func WithViewLister(l ViewLister) Option {
	return func(t *Toolkit) { t.views = l }
}

// WithQueryInterceptor adds an interceptor applied to execute_sql_query input.
func WithQueryInterceptor(i QueryInterceptor) Option {
	return func(t *Toolkit) { t.interceptors = append(t.interceptors, i) }
}

// Toolkit exposes Databricks SQL operations as MCP tools.
type Toolkit struct {
	name         string
	config       Config
	client       *client.Client
	runner       Runner
	views        ViewLister
	interceptors []QueryInterceptor
}

// New creates a new Databricks toolkit.
func New(name string, cfg Config, opts ...Option) (*Toolkit, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	cfg = applyDefaults(name, cfg)

	c, err := createClient(cfg)
	if err != nil {
		return nil, err
	}

	t := &Toolkit{
		name:   name,
		config: cfg,
		client: c,
		runner: statement.NewExecutor(c, statement.Config{
			WarehouseID:  cfg.WarehouseID,
			Catalog:      cfg.Catalog,
			Schema:       cfg.Schema,
			PollInterval: cfg.PollInterval,
			MaxPolls:     cfg.MaxPolls,
		}),
		views: catalog.NewAdapter(catalog.NewUnityClient(c, cfg.PageSize)),
	}

	// Add read-only interceptor if configured
	if cfg.ReadOnly {
		t.interceptors = append(t.interceptors, NewReadOnlyInterceptor())
	}

	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// validateConfig validates the required configuration fields.
func validateConfig(cfg Config) error {
	if cfg.Host == "" {
		return fmt.Errorf("databricks host is required")
	}
	if cfg.MaxPolls < 0 {
		return fmt.Errorf("max_polls must not be negative")
	}
	return nil
}

// applyDefaults applies default values to the configuration.
func applyDefaults(name string, cfg Config) Config {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPolls == 0 {
		cfg.MaxPolls = defaultMaxPolls
	}
	if cfg.ConnectionName == "" {
		cfg.ConnectionName = name
	}
	return cfg
}

// createClient creates the REST client from the configuration.
func createClient(cfg Config) (*client.Client, error) {
	c, err := client.New(client.Config{
		Host:    cfg.Host,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating databricks client: %w", err)
	}
	return c, nil
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return Kind
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Connection returns the connection name for audit logging.
func (t *Toolkit) Connection() string {
	return t.config.ConnectionName
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{
		ToolExecuteSQL,
		ToolListSchemas,
		ToolListTables,
		ToolDescribeTable,
		ToolListViews,
		ToolGetViewDefinition,
	}
}

// Config returns the toolkit configuration.
func (t *Toolkit) Config() Config {
	return t.config
}

// Runner returns the statement runner used by the tools.
func (t *Toolkit) Runner() Runner {
	return t.runner
}

// Query applies the query interceptors to sql and runs it to completion on
// warehouseID, or on the configured warehouse when warehouseID is empty.
func (t *Toolkit) Query(ctx context.Context, sql, warehouseID string) (*statement.Response, error) {
	var err error
	for _, ic := range t.interceptors {
		sql, err = ic.Intercept(ctx, sql, ToolExecuteSQL)
		if err != nil {
			return nil, err
		}
	}
	return t.runner.Execute(ctx, sql, warehouseID)
}

// warehouseInfo is the subset of the warehouse resource read by Ping.
type warehouseInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// Ping checks that the workspace answers and the default warehouse exists.
// It returns the warehouse state, or "" when no default warehouse is set.
func (t *Toolkit) Ping(ctx context.Context) (string, error) {
	if t.config.WarehouseID == "" {
		return "", nil
	}
	var info warehouseInfo
	if err := t.client.Get(ctx, warehousesAPI+"/"+url.PathEscape(t.config.WarehouseID), nil, &info); err != nil {
		return "", fmt.Errorf("probing warehouse %s: %w", t.config.WarehouseID, err)
	}
	return info.State, nil
}

// Close releases resources.
func (t *Toolkit) Close() error {
	if t.client != nil {
		t.client.CloseIdleConnections()
	}
	return nil
}

// Verify interface compliance.
var _ interface {
	Kind() string
	Name() string
	Connection() string
	RegisterTools(s *mcp.Server)
	Tools() []string
	Close() error
} = (*Toolkit)(nil)
