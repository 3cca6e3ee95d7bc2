// Command vaultgraph indexes a markdown vault and serves search and graph
// queries over it, from the terminal or over MCP.
package main

import (
	"os"

	"github.com/custodia-labs/vaultgraph/internal/adapters/driving/cli"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
