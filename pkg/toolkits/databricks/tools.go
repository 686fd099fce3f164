package databricks

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-databricks/pkg/result"
)

// Tool names.
const (
	ToolExecuteSQL        = "execute_sql_query"
	ToolListSchemas       = "list_schemas"
	ToolListTables        = "list_tables"
	ToolDescribeTable     = "describe_table"
	ToolListViews         = "list_views"
	ToolGetViewDefinition = "get_view_definition"
)

// Error prefixes, one per tool.
const (
	prefixExecuteSQL        = "Error executing SQL query"
	prefixListSchemas       = "Error listing schemas"
	prefixListTables        = "Error listing tables"
	prefixDescribeTable     = "Error describing table"
	prefixListViews         = "Error listing views"
	prefixGetViewDefinition = "Error getting view definition"
)

var defaultDescriptions = map[string]string{
	ToolExecuteSQL: "Execute a SQL statement on a Databricks SQL warehouse and wait for the result. " +
		"Polls until the statement finishes, fails, or the poll budget runs out.",
	ToolListSchemas:       "List all schemas in a Databricks catalog.",
	ToolListTables:        "List all tables in a Databricks schema (catalog.schema).",
	ToolDescribeTable:     "Describe a table's columns and types (catalog.schema.table).",
	ToolListViews:         "List the views in a Unity Catalog schema.",
	ToolGetViewDefinition: "Get the CREATE statement that defines a view (catalog.schema.view).",
}

type executeSQLInput struct {
	SQL         string `json:"sql" jsonschema:"The SQL statement to execute"`
	WarehouseID string `json:"warehouse_id,omitempty" jsonschema:"SQL warehouse to run on. Defaults to the configured warehouse"`
	Format      string `json:"format,omitempty" jsonschema:"Output format: text, table, markdown, csv or json. Defaults to text"`
}

type listSchemasInput struct {
	Catalog string `json:"catalog" jsonschema:"Catalog to list schemas from"`
}

type listTablesInput struct {
	Schema string `json:"schema" jsonschema:"Schema to list tables from, optionally qualified as catalog.schema"`
}

type describeTableInput struct {
	TableName string `json:"table_name" jsonschema:"Table to describe, optionally qualified as catalog.schema.table"`
}

type listViewsInput struct {
	CatalogName string `json:"catalog_name" jsonschema:"Catalog containing the schema"`
	SchemaName  string `json:"schema_name" jsonschema:"Schema to list views from"`
}

type getViewDefinitionInput struct {
	ViewName string `json:"view_name" jsonschema:"View to inspect, optionally qualified as catalog.schema.view"`
}

// RegisterTools registers the Databricks tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, t.tool(ToolExecuteSQL), t.handleExecuteSQL)
	mcp.AddTool(s, t.tool(ToolListSchemas), t.handleListSchemas)
	mcp.AddTool(s, t.tool(ToolListTables), t.handleListTables)
	mcp.AddTool(s, t.tool(ToolDescribeTable), t.handleDescribeTable)
	mcp.AddTool(s, t.tool(ToolListViews), t.handleListViews)
	mcp.AddTool(s, t.tool(ToolGetViewDefinition), t.handleGetViewDefinition)
}

// tool builds the tool definition, applying configured overrides.
func (t *Toolkit) tool(name string) *mcp.Tool {
	desc := defaultDescriptions[name]
	if override, ok := t.config.Descriptions[name]; ok && override != "" {
		desc = override
	}

	ann := t.defaultAnnotations(name)
	if override, ok := t.config.Annotations[name]; ok {
		applyAnnotationOverride(ann, override)
	}

	return &mcp.Tool{
		Name:        name,
		Description: desc,
		Annotations: ann,
	}
}

// defaultAnnotations returns the built-in hints for a tool. Only
// execute_sql_query can modify data, and only outside read-only mode.
func (t *Toolkit) defaultAnnotations(name string) *mcp.ToolAnnotations {
	closedWorld := false
	if name == ToolExecuteSQL {
		destructive := !t.config.ReadOnly
		return &mcp.ToolAnnotations{
			ReadOnlyHint:    t.config.ReadOnly,
			DestructiveHint: &destructive,
			OpenWorldHint:   &closedWorld,
		}
	}
	return &mcp.ToolAnnotations{
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  &closedWorld,
	}
}

// applyAnnotationOverride sets every hint the override specifies.
func applyAnnotationOverride(ann *mcp.ToolAnnotations, cfg AnnotationConfig) {
	if cfg.ReadOnlyHint != nil {
		ann.ReadOnlyHint = *cfg.ReadOnlyHint
	}
	if cfg.DestructiveHint != nil {
		ann.DestructiveHint = cfg.DestructiveHint
	}
	if cfg.IdempotentHint != nil {
		ann.IdempotentHint = *cfg.IdempotentHint
	}
	if cfg.OpenWorldHint != nil {
		ann.OpenWorldHint = cfg.OpenWorldHint
	}
}

func (t *Toolkit) handleExecuteSQL(ctx context.Context, req *mcp.CallToolRequest, in executeSQLInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.SQL) == "" {
		return errorResult(ToolExecuteSQL, prefixExecuteSQL, fmt.Errorf("%w: sql is required", ErrInvalidInput)), nil, nil
	}

	formatName := in.Format
	if formatName == "" {
		formatName = t.config.DefaultFormat
	}
	format, err := result.ParseFormat(formatName)
	if err != nil {
		return errorResult(ToolExecuteSQL, prefixExecuteSQL, fmt.Errorf("%w: %w", ErrInvalidInput, err)), nil, nil
	}

	resp, err := t.Query(t.withProgress(ctx, req), in.SQL, in.WarehouseID)
	if err != nil {
		return errorResult(ToolExecuteSQL, prefixExecuteSQL, err), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError, not as Go errors
	}

	out, err := result.RenderString(result.FromStatement(resp), format)
	if err != nil {
		return errorResult(ToolExecuteSQL, prefixExecuteSQL, err), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError, not as Go errors
	}
	return textResult(out, false), nil, nil
}

func (t *Toolkit) handleListSchemas(ctx context.Context, req *mcp.CallToolRequest, in listSchemasInput) (*mcp.CallToolResult, any, error) {
	return t.runMetadata(ctx, req, ToolListSchemas, prefixListSchemas, "SHOW SCHEMAS IN", in.Catalog), nil, nil
}

func (t *Toolkit) handleListTables(ctx context.Context, req *mcp.CallToolRequest, in listTablesInput) (*mcp.CallToolResult, any, error) {
	return t.runMetadata(ctx, req, ToolListTables, prefixListTables, "SHOW TABLES IN", in.Schema), nil, nil
}

func (t *Toolkit) handleDescribeTable(ctx context.Context, req *mcp.CallToolRequest, in describeTableInput) (*mcp.CallToolResult, any, error) {
	return t.runMetadata(ctx, req, ToolDescribeTable, prefixDescribeTable, "DESCRIBE TABLE", in.TableName), nil, nil
}

func (t *Toolkit) handleGetViewDefinition(ctx context.Context, req *mcp.CallToolRequest, in getViewDefinitionInput) (*mcp.CallToolResult, any, error) {
	return t.runMetadata(ctx, req, ToolGetViewDefinition, prefixGetViewDefinition, "SHOW CREATE TABLE", in.ViewName), nil, nil
}

// runMetadata runs "<verb> <quoted identifier>" on the default warehouse
// and renders the result as text.
func (t *Toolkit) runMetadata(ctx context.Context, req *mcp.CallToolRequest, tool, prefix, verb, identifier string) *mcp.CallToolResult {
	quoted, err := QuoteIdentifier(identifier)
	if err != nil {
		return errorResult(tool, prefix, err)
	}

	resp, err := t.runner.Execute(t.withProgress(ctx, req), verb+" "+quoted, "")
	if err != nil {
		return errorResult(tool, prefix, err)
	}
	return textResult(result.FormatAny(resp), false)
}

func (t *Toolkit) handleListViews(ctx context.Context, _ *mcp.CallToolRequest, in listViewsInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.CatalogName) == "" || strings.TrimSpace(in.SchemaName) == "" {
		err := fmt.Errorf("%w: catalog_name and schema_name are required", ErrInvalidInput)
		return errorResult(ToolListViews, prefixListViews, err), nil, nil
	}

	listing := t.views.ListViews(ctx, in.CatalogName, in.SchemaName)
	return textResult(result.Format(listing.Envelope()), !listing.Ok()), nil, nil
}
