// Package main provides the entry point for the mcp-databricks server.
package main

import (
	"os"

	"github.com/txn2/mcp-databricks/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
