// Command mcp-broker is the stdio entrypoint for the code-intelligence
// broker: it loads configuration, starts the connection pool and tool
// registry, and exposes every tool in internal/tools as an MCP tool
// over stdio.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
