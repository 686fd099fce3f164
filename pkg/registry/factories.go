package registry

import (
	databrickskit "github.com/txn2/mcp-databricks/pkg/toolkits/databricks"
)

// RegisterBuiltinFactories registers all built-in toolkit factories.
func RegisterBuiltinFactories(r *Registry) {
	r.RegisterFactory(databrickskit.Kind, DatabricksFactory)
}

// DatabricksFactory creates a Databricks toolkit from configuration.
func DatabricksFactory(name string, cfg map[string]any) (Toolkit, error) {
	config, err := databrickskit.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return databrickskit.New(name, config)
}
