package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-databricks/pkg/platform"
)

func testConfig(transport string) *platform.Config {
	cfg, _ := platform.ParseConfig([]byte(`
server:
  name: test-server
toolkits:
  databricks:
    enabled: true
    instances:
      primary:
        host: https://adb-1.azuredatabricks.net
        warehouse_id: wh
`))
	cfg.Server.Transport = transport
	return cfg
}

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "dev", Version)
}

func TestNew(t *testing.T) {
	p, err := New(testConfig(platform.TransportStdio))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	assert.Equal(t, "test-server", p.Config().Server.Name)
	assert.Equal(t, Version, p.Config().Server.Version)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig("smoke-signals")
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating platform")
}

func TestNewWithConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
toolkits:
  databricks:
    enabled: true
    instances:
      primary:
        host: adb-1.azuredatabricks.net
`), 0o600))

	p, err := NewWithConfig(path)
	require.NoError(t, err)
	defer func() { _ = p.Close() }()
	assert.NotNil(t, p.MCPServer())

	_, err = NewWithConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewWithDefaults(t *testing.T) {
	t.Setenv(platform.EnvHost, "adb-1.azuredatabricks.net")
	t.Setenv(platform.EnvDatabaseURL, "")

	p, err := NewWithDefaults()
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	tk, err := p.Databricks()
	require.NoError(t, err)
	assert.Equal(t, "default", tk.Name())
}

func TestHandler(t *testing.T) {
	p, err := New(testConfig(platform.TransportHTTP))
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	srv := httptest.NewServer(Handler(p))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// not started yet
	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ctx := context.Background()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: srv.URL + MCPPath}, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, tools.Tools, len(p.ToolkitRegistry().AllTools()))
}

func TestServe_HTTPShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(platform.TransportHTTP)
	cfg.Server.Address = freeAddress(t)

	p, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, p) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.Server.Address + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.False(t, p.Health().IsReady())
}

func TestServe_AddressInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	cfg := testConfig(platform.TransportHTTP)
	cfg.Server.Address = l.Addr().String()

	p, err := New(cfg)
	require.NoError(t, err)

	err = Serve(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serving http")
}
