package databricks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-databricks/pkg/catalog"
	"github.com/txn2/mcp-databricks/pkg/client"
	"github.com/txn2/mcp-databricks/pkg/result"
	"github.com/txn2/mcp-databricks/pkg/statement"
)

const testHost = "https://adb-123.azuredatabricks.net"

type runCall struct {
	sql       string
	warehouse string
}

// fakeRunner records statements and answers with a fixed response or error.
type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall
	resp  *statement.Response
	err   error
}

func (f *fakeRunner) Execute(_ context.Context, sql, warehouseID string) (*statement.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, runCall{sql: sql, warehouse: warehouseID})
	return f.resp, f.err
}

type fakeViews struct {
	listing catalog.Listing
	calls   [][2]string
}

func (f *fakeViews) ListViews(_ context.Context, catalogName, schemaName string) catalog.Listing {
	f.calls = append(f.calls, [2]string{catalogName, schemaName})
	return f.listing
}

func twoRowResponse() *statement.Response {
	return &statement.Response{
		StatementID: "01ef",
		Status:      statement.Status{State: statement.StateSucceeded},
		Manifest: &statement.Manifest{Schema: statement.Schema{Columns: []statement.ColumnInfo{
			{Name: "id"}, {Name: "name"},
		}}},
		Result: &statement.ResultData{DataArray: [][]any{{"1", "a"}, {"2", nil}}},
	}
}

func newTestToolkit(t *testing.T, cfg Config, opts ...Option) *Toolkit {
	t.Helper()
	if cfg.Host == "" {
		cfg.Host = testHost
	}
	tk, err := New("primary", cfg, opts...)
	require.NoError(t, err)
	return tk
}

// connect registers tk on a server and returns a connected client session.
func connect(t *testing.T, tk *Toolkit) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := mcp.NewServer(&mcp.Implementation{Name: "test-server", Version: "v0.0.1"}, nil)
	tk.RegisterTools(server)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	c := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := c.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text, res.IsError
}

func TestNew(t *testing.T) {
	t.Run("missing host", func(t *testing.T) {
		_, err := New("test", Config{})
		assert.EqualError(t, err, "databricks host is required")
	})

	t.Run("negative max polls", func(t *testing.T) {
		_, err := New("test", Config{Host: testHost, MaxPolls: -1})
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		tk := newTestToolkit(t, Config{})
		cfg := tk.Config()
		assert.Equal(t, client.DefaultTimeout, cfg.Timeout)
		assert.Equal(t, statement.DefaultPollInterval, cfg.PollInterval)
		assert.Equal(t, statement.DefaultMaxPolls, cfg.MaxPolls)
		assert.Equal(t, "primary", cfg.ConnectionName)
		assert.Empty(t, tk.interceptors)
		assert.IsType(t, &statement.Executor{}, tk.Runner())
	})

	t.Run("read only adds interceptor", func(t *testing.T) {
		tk := newTestToolkit(t, Config{ReadOnly: true})
		require.Len(t, tk.interceptors, 1)
	})
}

func TestToolkit_Identity(t *testing.T) {
	tk := newTestToolkit(t, Config{ConnectionName: "prod"})
	assert.Equal(t, "databricks", tk.Kind())
	assert.Equal(t, "primary", tk.Name())
	assert.Equal(t, "prod", tk.Connection())
	assert.Equal(t, []string{
		"execute_sql_query", "list_schemas", "list_tables",
		"describe_table", "list_views", "get_view_definition",
	}, tk.Tools())
	assert.NoError(t, tk.Close())
}

func TestRegisterTools_ListsAllTools(t *testing.T) {
	tk := newTestToolkit(t, Config{
		ReadOnly:     true,
		Descriptions: map[string]string{ToolListSchemas: "custom schemas"},
	})
	session := connect(t, tk)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	byName := make(map[string]*mcp.Tool, len(res.Tools))
	for _, tool := range res.Tools {
		byName[tool.Name] = tool
	}
	for _, name := range tk.Tools() {
		require.Contains(t, byName, name)
	}
	assert.Equal(t, "custom schemas", byName[ToolListSchemas].Description)
	assert.True(t, byName[ToolExecuteSQL].Annotations.ReadOnlyHint)
	assert.True(t, byName[ToolDescribeTable].Annotations.ReadOnlyHint)
}

func TestExecuteSQL_Success(t *testing.T) {
	runner := &fakeRunner{resp: twoRowResponse()}
	session := connect(t, newTestToolkit(t, Config{WarehouseID: "wh"}, WithRunner(runner)))

	text, isErr := callTool(t, session, ToolExecuteSQL, map[string]any{"sql": "SELECT id, name FROM t"})
	assert.False(t, isErr)
	assert.Equal(t, "id | name\n1 | a\n2 | NULL", text)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, runCall{sql: "SELECT id, name FROM t"}, runner.calls[0])
}

func TestGetViewDefinition_MultiLineDDLStaysOnOneLine(t *testing.T) {
	runner := &fakeRunner{resp: &statement.Response{
		Status:   statement.Status{State: statement.StateSucceeded},
		Manifest: &statement.Manifest{Schema: statement.Schema{Columns: []statement.ColumnInfo{{Name: "createtab_stmt"}}}},
		Result:   &statement.ResultData{DataArray: [][]any{{"CREATE VIEW main.sales.daily (\n  id)\nAS SELECT 1"}}},
	}}
	session := connect(t, newTestToolkit(t, Config{WarehouseID: "wh"}, WithRunner(runner)))

	text, isErr := callTool(t, session, ToolGetViewDefinition, map[string]any{"view_name": "main.sales.daily"})
	assert.False(t, isErr)
	assert.Equal(t, "createtab_stmt\nCREATE VIEW main.sales.daily (\\n  id)\\nAS SELECT 1", text)
	assert.Len(t, strings.Split(text, "\n"), 2)
}

func TestExecuteSQL_WarehouseAndFormat(t *testing.T) {
	runner := &fakeRunner{resp: twoRowResponse()}
	session := connect(t, newTestToolkit(t, Config{}, WithRunner(runner)))

	text, isErr := callTool(t, session, ToolExecuteSQL, map[string]any{
		"sql":          "SELECT 1",
		"warehouse_id": "other",
		"format":       "csv",
	})
	assert.False(t, isErr)
	assert.Contains(t, text, "2,NULL")
	assert.Equal(t, "other", runner.calls[0].warehouse)
}

func TestExecuteSQL_DefaultFormatFromConfig(t *testing.T) {
	runner := &fakeRunner{resp: twoRowResponse()}
	session := connect(t, newTestToolkit(t, Config{DefaultFormat: "json"}, WithRunner(runner)))

	text, isErr := callTool(t, session, ToolExecuteSQL, map[string]any{"sql": "SELECT 1"})
	assert.False(t, isErr)
	assert.Contains(t, text, `"row_count": 2`)
}

func TestExecuteSQL_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]any
		runErr  error
		want    string
		noCalls bool
	}{
		{
			name:    "blank sql",
			args:    map[string]any{"sql": "   "},
			want:    "Error executing SQL query: invalid input: sql is required",
			noCalls: true,
		},
		{
			name:    "unknown format",
			args:    map[string]any{"sql": "SELECT 1", "format": "xml"},
			want:    "Error executing SQL query: invalid input: unknown output format",
			noCalls: true,
		},
		{
			name:   "configuration",
			args:   map[string]any{"sql": "SELECT 1"},
			runErr: statement.ErrConfiguration,
			want:   "Error executing SQL query: Warehouse ID is required.",
		},
		{
			name:   "client",
			args:   map[string]any{"sql": "SELECT 1"},
			runErr: &client.Error{StatusCode: 401, Message: "HTTP error: 401 - bad token"},
			want:   "Error executing SQL query: HTTP error: 401 - bad token",
		},
		{
			name:   "execution",
			args:   map[string]any{"sql": "SELEC 1"},
			runErr: &statement.ExecutionError{State: statement.StateFailed, Message: "syntax error"},
			want:   "Error executing SQL query: Statement execution failed: syntax error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{err: tt.runErr}
			session := connect(t, newTestToolkit(t, Config{}, WithRunner(runner)))

			text, isErr := callTool(t, session, ToolExecuteSQL, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tt.want)
			if tt.noCalls {
				assert.Empty(t, runner.calls)
			}
		})
	}
}

func TestExecuteSQL_ReadOnlyBlocksWrites(t *testing.T) {
	runner := &fakeRunner{resp: twoRowResponse()}
	session := connect(t, newTestToolkit(t, Config{ReadOnly: true}, WithRunner(runner)))

	text, isErr := callTool(t, session, ToolExecuteSQL, map[string]any{"sql": "DROP TABLE main.sales.orders"})
	assert.True(t, isErr)
	assert.Equal(t, "Error executing SQL query: write operations not allowed in read-only mode", text)
	assert.Empty(t, runner.calls)

	_, isErr = callTool(t, session, ToolExecuteSQL, map[string]any{"sql": "SELECT 1"})
	assert.False(t, isErr)
	assert.Len(t, runner.calls, 1)
}

func TestMetadataTools_BuildQuotedSQL(t *testing.T) {
	tests := []struct {
		tool string
		args map[string]any
		sql  string
	}{
		{ToolListSchemas, map[string]any{"catalog": "main"}, "SHOW SCHEMAS IN `main`"},
		{ToolListTables, map[string]any{"schema": "main.sales"}, "SHOW TABLES IN `main`.`sales`"},
		{ToolDescribeTable, map[string]any{"table_name": "main.sales.orders"}, "DESCRIBE TABLE `main`.`sales`.`orders`"},
		{ToolGetViewDefinition, map[string]any{"view_name": "main.sales.`v.daily`"}, "SHOW CREATE TABLE `main`.`sales`.`v.daily`"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			runner := &fakeRunner{resp: twoRowResponse()}
			session := connect(t, newTestToolkit(t, Config{}, WithRunner(runner)))

			text, isErr := callTool(t, session, tt.tool, tt.args)
			assert.False(t, isErr)
			assert.Equal(t, "id | name\n1 | a\n2 | NULL", text)
			require.Len(t, runner.calls, 1)
			assert.Equal(t, runCall{sql: tt.sql}, runner.calls[0])
		})
	}
}

func TestMetadataTools_ErrorPrefixes(t *testing.T) {
	tests := []struct {
		tool   string
		args   map[string]any
		prefix string
	}{
		{ToolListSchemas, map[string]any{"catalog": "main"}, "Error listing schemas: "},
		{ToolListTables, map[string]any{"schema": "main.sales"}, "Error listing tables: "},
		{ToolDescribeTable, map[string]any{"table_name": "t"}, "Error describing table: "},
		{ToolGetViewDefinition, map[string]any{"view_name": "v"}, "Error getting view definition: "},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			runner := &fakeRunner{err: errors.New("HTTP error: 500")}
			session := connect(t, newTestToolkit(t, Config{}, WithRunner(runner)))

			text, isErr := callTool(t, session, tt.tool, tt.args)
			assert.True(t, isErr)
			assert.Equal(t, tt.prefix+"HTTP error: 500", text)
		})
	}
}

func TestMetadataTools_InvalidIdentifier(t *testing.T) {
	runner := &fakeRunner{resp: twoRowResponse()}
	session := connect(t, newTestToolkit(t, Config{}, WithRunner(runner)))

	text, isErr := callTool(t, session, ToolDescribeTable, map[string]any{"table_name": "main..orders"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Error describing table: invalid input")
	assert.Empty(t, runner.calls)
}

func TestListViews(t *testing.T) {
	t.Run("views", func(t *testing.T) {
		views := &fakeViews{listing: catalog.Ok(result.New(catalog.Columns, [][]string{
			{"v1", "main", "sales", "VIEW", "daily rollup"},
		}))}
		session := connect(t, newTestToolkit(t, Config{}, WithViewLister(views)))

		text, isErr := callTool(t, session, ToolListViews, map[string]any{"catalog_name": "main", "schema_name": "sales"})
		assert.False(t, isErr)
		assert.Equal(t, "Name | Catalog | Schema | Type | Comment\nv1 | main | sales | VIEW | daily rollup", text)
		assert.Equal(t, [][2]string{{"main", "sales"}}, views.calls)
	})

	t.Run("no views", func(t *testing.T) {
		views := &fakeViews{listing: catalog.Ok(result.New(catalog.Columns, nil))}
		session := connect(t, newTestToolkit(t, Config{}, WithViewLister(views)))

		text, isErr := callTool(t, session, ToolListViews, map[string]any{"catalog_name": "main", "schema_name": "sales"})
		assert.False(t, isErr)
		assert.Equal(t, "Name | Catalog | Schema | Type | Comment\n(no rows)", text)
	})

	t.Run("fault", func(t *testing.T) {
		views := &fakeViews{listing: catalog.Fault("HTTP error: 404 - not found")}
		session := connect(t, newTestToolkit(t, Config{}, WithViewLister(views)))

		text, isErr := callTool(t, session, ToolListViews, map[string]any{"catalog_name": "main", "schema_name": "x"})
		assert.True(t, isErr)
		assert.Equal(t, "Error\nError listing views from SDK: HTTP error: 404 - not found", text)
	})

	t.Run("blank arguments", func(t *testing.T) {
		views := &fakeViews{}
		session := connect(t, newTestToolkit(t, Config{}, WithViewLister(views)))

		text, isErr := callTool(t, session, ToolListViews, map[string]any{"catalog_name": "", "schema_name": "sales"})
		assert.True(t, isErr)
		assert.Contains(t, text, "Error listing views: invalid input")
		assert.Empty(t, views.calls)
	})
}

func TestExecuteSQL_AgainstFakeWorkspace(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == statement.StatementsAPI:
			_, _ = w.Write([]byte(`{"statement_id":"s1","status":{"state":"PENDING"}}`))
		case r.Method == http.MethodGet && r.URL.Path == statement.StatementsAPI+"/s1":
			mu.Lock()
			polls++
			n := polls
			mu.Unlock()
			if n < 2 {
				_, _ = w.Write([]byte(`{"statement_id":"s1","status":{"state":"RUNNING"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"statement_id":"s1","status":{"state":"SUCCEEDED"},
				"manifest":{"schema":{"columns":[{"name":"n"}]}},
				"result":{"data_array":[["42"]]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tk := newTestToolkit(t, Config{Host: srv.URL, WarehouseID: "wh", PollInterval: time.Millisecond})
	session := connect(t, tk)

	text, isErr := callTool(t, session, ToolExecuteSQL, map[string]any{"sql": "SELECT 42 AS n"})
	assert.False(t, isErr)
	assert.Equal(t, "n\n42", text)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, polls)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.0/sql/warehouses/wh" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":"RESOURCE_DOES_NOT_EXIST","message":"no such warehouse"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"wh","name":"Starter","state":"RUNNING"}`))
	}))
	defer srv.Close()

	state, err := newTestToolkit(t, Config{Host: srv.URL, WarehouseID: "wh"}).Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", state)

	_, err = newTestToolkit(t, Config{Host: srv.URL, WarehouseID: "missing"}).Ping(context.Background())
	assert.ErrorContains(t, err, "HTTP error: 404 - no such warehouse")

	state, err = newTestToolkit(t, Config{Host: srv.URL}).Ping(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state)
}

func extractText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}
