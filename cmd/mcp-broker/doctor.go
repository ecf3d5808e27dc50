package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcp-broker/lsp-broker/internal/config"
	"github.com/mcp-broker/lsp-broker/internal/langdetect"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report which configured language servers are installed",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	installers := langdetect.DefaultInstallers()
	ctx := context.Background()

	ok, missing := 0, 0
	for _, rec := range cfg.Recipes() {
		provider := langdetect.NewProvider(rec, installers)
		if provider.IsAvailable(ctx) {
			fmt.Printf("  [ok]      %-12s %s\n", rec.ID, rec.Command)
			ok++
			continue
		}
		fmt.Printf("  [missing] %-12s %s (install via %s)\n", rec.ID, rec.Command, rec.PackageManager)
		missing++
	}

	fmt.Printf("\n%d available, %d missing\n", ok, missing)
	if langdetect.InContainer() {
		fmt.Println("running inside a container: install is refused, servers must be pre-provisioned")
	}
	return nil
}
