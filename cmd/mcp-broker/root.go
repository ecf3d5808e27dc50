package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	workspace  string
)

var rootCmd = &cobra.Command{
	Use:   "mcp-broker",
	Short: "Multi-language code-intelligence broker over LSP",
	Long: `mcp-broker presents a uniform set of semantic code operations
(navigate, find usages, symbol search, code intelligence, workspace
edit, code actions, symbol context) and fulfills them by driving
off-the-shelf Language Server Protocol servers.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to broker config file (default: discover .mcp-broker.yaml)")
	rootCmd.PersistentFlags().StringVar(&workspace, "workspace", ".", "workspace root directory")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(doctorCmd)
}
