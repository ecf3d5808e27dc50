package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcp-broker/lsp-broker/internal/config"
	"github.com/mcp-broker/lsp-broker/internal/edit"
	"github.com/mcp-broker/lsp-broker/internal/langdetect"
	"github.com/mcp-broker/lsp-broker/internal/pool"
	"github.com/mcp-broker/lsp-broker/internal/tools"
	"github.com/mcp-broker/lsp-broker/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the broker's MCP server over stdio",
	RunE:  runServe,
}

func buildLogger(level string) (*zap.Logger, error) {
	var zcfg zap.Config
	switch level {
	case "debug":
		zcfg = zap.NewDevelopmentConfig()
	default:
		zcfg = zap.NewProductionConfig()
	}
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	// stdout is the MCP transport; all diagnostic logging goes to stderr.
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	registry := langdetect.NewRegistry(cfg.Recipes())
	detector := langdetect.NewDetector(registry)

	p := pool.New(cfg.PoolConfig(), detector, registry, logger)
	editor := edit.NewManager(cfg.Workspace)
	p.SetApplier(editor)

	toolRegistry := tools.New(p, editor, cfg.Workspace)

	ws, err := watcher.New(cfg.Workspace, toolRegistry, logger)
	if err != nil {
		logger.Warn("file watcher unavailable, cache invalidation on external edits disabled", zap.Error(err))
	} else {
		ws.SetNotifier(p)
		if err := ws.Start(); err != nil {
			logger.Warn("failed to start file watcher", zap.Error(err))
			ws = nil
		}
	}

	srv, err := newMCPServer(toolRegistry)
	if err != nil {
		return fmt.Errorf("building mcp server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Claude Desktop and similar MCP hosts do not reliably kill child
	// processes for stdio servers; watch for parent death directly.
	parentDeath := make(chan struct{})
	go monitorParent(ctx, parentDeath)

	cleanup := func() {
		logger.Info("shutting down")
		cancel()
		if ws != nil {
			ws.Close()
		}
		p.DisposeAll()
		select {
		case <-done:
		default:
			close(done)
		}
	}

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal", zap.String("signal", sig.String()))
			cleanup()
		case <-parentDeath:
			logger.Info("parent process terminated")
			cleanup()
		case <-ctx.Done():
		}
	}()

	logger.Info("mcp-broker serving", zap.String("workspace", cfg.Workspace))
	if err := srv.Serve(); err != nil {
		logger.Error("server error", zap.Error(err))
		cleanup()
		return err
	}

	<-done
	return nil
}

// monitorParent polls the parent PID and closes died when it changes
// and either the old or the new parent PID is 1 (reparented to init,
// i.e. the original parent exited).
func monitorParent(ctx context.Context, died chan struct{}) {
	ppid := os.Getppid()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := os.Getppid()
			if current != ppid && (current == 1 || ppid == 1) {
				close(died)
				return
			}
		}
	}
}
