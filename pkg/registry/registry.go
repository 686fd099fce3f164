package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Registry manages toolkit registration and lifecycle.
type Registry struct {
	mu sync.RWMutex

	// Registered toolkits by kind+name
	toolkits map[string]Toolkit

	// Owning toolkit key by tool name
	tools map[string]string

	// Factory functions by kind
	factories map[string]ToolkitFactory
}

// NewRegistry creates a new toolkit registry.
func NewRegistry() *Registry {
	return &Registry{
		toolkits:  make(map[string]Toolkit),
		tools:     make(map[string]string),
		factories: make(map[string]ToolkitFactory),
	}
}

// RegisterFactory registers a toolkit factory for a kind.
func (r *Registry) RegisterFactory(kind string, factory ToolkitFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Register adds a toolkit to the registry. A toolkit whose instance key or
// any tool name is already registered is rejected.
func (r *Registry) Register(toolkit Toolkit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := toolkitKey(toolkit.Kind(), toolkit.Name())
	if _, exists := r.toolkits[key]; exists {
		return fmt.Errorf("toolkit %s already registered", key)
	}

	for _, tool := range toolkit.Tools() {
		if owner, taken := r.tools[tool]; taken {
			return fmt.Errorf("tool %s of toolkit %s already provided by %s", tool, key, owner)
		}
	}

	r.toolkits[key] = toolkit
	for _, tool := range toolkit.Tools() {
		r.tools[tool] = key
	}
	return nil
}

// CreateAndRegister creates a toolkit from config and registers it.
func (r *Registry) CreateAndRegister(cfg ToolkitConfig) error {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown toolkit kind: %s", cfg.Kind)
	}

	toolkit, err := factory(cfg.Name, cfg.Config)
	if err != nil {
		return fmt.Errorf("creating toolkit %s/%s: %w", cfg.Kind, cfg.Name, err)
	}

	if err := r.Register(toolkit); err != nil {
		_ = toolkit.Close()
		return err
	}
	return nil
}

// Get retrieves a toolkit by kind and name.
func (r *Registry) Get(kind, name string) (Toolkit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	toolkit, ok := r.toolkits[toolkitKey(kind, name)]
	return toolkit, ok
}

// All returns all registered toolkits ordered by kind and name.
func (r *Registry) All() []Toolkit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.toolkits))
	for key := range r.toolkits {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]Toolkit, 0, len(keys))
	for _, key := range keys {
		out = append(out, r.toolkits[key])
	}
	return out
}

// AllTools returns all tool names from all toolkits, sorted.
func (r *Registry) AllTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]string, 0, len(r.tools))
	for tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	return tools
}

// GetToolkitForTool returns toolkit info (kind, name, connection) for a tool.
// Returns found=false if the tool is not found in any registered toolkit.
func (r *Registry) GetToolkitForTool(toolName string) (kind, name, connection string, found bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.tools[toolName]
	if !ok {
		return "", "", "", false
	}
	toolkit := r.toolkits[key]
	return toolkit.Kind(), toolkit.Name(), toolkit.Connection(), true
}

// RegisterAllTools registers all tools from all toolkits with the MCP server.
func (r *Registry) RegisterAllTools(s *mcp.Server) {
	for _, toolkit := range r.All() {
		toolkit.RegisterTools(s)
	}
}

// Ping checks every toolkit that implements Pinger and joins the failures.
func (r *Registry) Ping(ctx context.Context) error {
	var errs []error
	for _, toolkit := range r.All() {
		p, ok := toolkit.(Pinger)
		if !ok {
			continue
		}
		if _, err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", toolkitKey(toolkit.Kind(), toolkit.Name()), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes all registered toolkits.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, toolkit := range r.toolkits {
		if err := toolkit.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing toolkits: %w", errors.Join(errs...))
	}
	return nil
}

func toolkitKey(kind, name string) string {
	return kind + ":" + name
}
