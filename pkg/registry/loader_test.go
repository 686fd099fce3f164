package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingFactory captures the config handed to each instance.
func recordingFactory(seen map[string]map[string]any) ToolkitFactory {
	return func(name string, cfg map[string]any) (Toolkit, error) {
		seen[name] = cfg
		return &mockToolkit{kind: "test", name: name, tools: []string{"tool_" + name}}, nil
	}
}

func TestNewLoader(t *testing.T) {
	registry := NewRegistry()
	loader := NewLoader(registry)
	require.NotNil(t, loader)
	assert.Same(t, registry, loader.registry)
}

func TestLoader_Load(t *testing.T) {
	t.Run("empty config", func(t *testing.T) {
		assert.NoError(t, NewLoader(NewRegistry()).Load(LoaderConfig{}))
	})

	t.Run("disabled toolkit", func(t *testing.T) {
		registry := NewRegistry()
		err := NewLoader(registry).Load(LoaderConfig{Toolkits: map[string]ToolkitKindConfig{
			"test": {Instances: map[string]map[string]any{"one": {"key": "value"}}},
		}})
		require.NoError(t, err)
		assert.Empty(t, registry.All())
	})

	t.Run("instance overrides kind config", func(t *testing.T) {
		registry := NewRegistry()
		seen := map[string]map[string]any{}
		registry.RegisterFactory("test", recordingFactory(seen))

		err := NewLoader(registry).Load(LoaderConfig{Toolkits: map[string]ToolkitKindConfig{
			"test": {
				Enabled: true,
				Config:  map[string]any{"host": "shared", "read_only": true},
				Instances: map[string]map[string]any{
					"prod": {"warehouse_id": "wh-prod"},
					"dev":  {"host": "dev-host"},
				},
			},
		}})
		require.NoError(t, err)
		assert.Len(t, registry.All(), 2)
		assert.Equal(t, map[string]any{"host": "shared", "read_only": true, "warehouse_id": "wh-prod"}, seen["prod"])
		assert.Equal(t, map[string]any{"host": "dev-host", "read_only": true}, seen["dev"])
	})

	t.Run("factory error", func(t *testing.T) {
		registry := NewRegistry()
		registry.RegisterFactory("test", func(_ string, _ map[string]any) (Toolkit, error) {
			return nil, errors.New("boom")
		})
		err := NewLoader(registry).Load(LoaderConfig{Toolkits: map[string]ToolkitKindConfig{
			"test": {Enabled: true, Instances: map[string]map[string]any{"one": {}}},
		}})
		assert.EqualError(t, err, "loading toolkit test/one: creating toolkit test/one: boom")
	})
}

func TestLoader_LoadFromMap(t *testing.T) {
	registry := NewRegistry()
	seen := map[string]map[string]any{}
	registry.RegisterFactory("test", recordingFactory(seen))

	err := NewLoader(registry).LoadFromMap(map[string]any{
		"test": map[string]any{
			"enabled": true,
			"default": "prod",
			"config":  map[string]any{"timeout": "10s"},
			"instances": map[string]any{
				"prod": map[string]any{"host": "h"},
			},
		},
		"off":       map[string]any{"enabled": false},
		"malformed": "not a map",
	})
	require.NoError(t, err)
	assert.Len(t, registry.All(), 1)
	assert.Equal(t, map[string]any{"timeout": "10s", "host": "h"}, seen["prod"])
}
