package lspclient

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

const brokerClientName = "lsp-broker"

// Initialize runs the LSP handshake: "initialize" request followed by
// the "initialized" notification. Server-request handlers are not
// registered here; callers register them (RegisterStandardHandlers)
// before calling Initialize.
func (c *Client) Initialize(ctx context.Context, workspacePath string, initOptions interface{}) (*protocol.InitializeResult, error) {
	if err := c.setState(Starting); err != nil {
		// already Starting from New(); ignore no-op transitions
	}

	rootURI := protocol.DocumentUri("file://" + workspacePath)
	pid := os.Getpid()

	params := &protocol.InitializeParams{
		ProcessID: &pid,
		ClientInfo: &protocol.ClientInfo{
			Name:    brokerClientName,
			Version: "0.1.0",
		},
		RootURI: &rootURI,
		Capabilities: protocol.ClientCapabilities{
			Workspace: &protocol.WorkspaceClientCapabilities{
				ApplyEdit: true,
				WorkspaceEdit: &struct {
					DocumentChanges    bool     `json:"documentChanges,omitempty"`
					ResourceOperations []string `json:"resourceOperations,omitempty"`
				}{
					DocumentChanges:    true,
					ResourceOperations: []string{"create", "rename", "delete"},
				},
				DidChangeWatchedFiles: &struct {
					DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
				}{DynamicRegistration: true},
				Configuration:    true,
				WorkspaceFolders: true,
			},
			TextDocument: &protocol.TextDocumentClientCapabilities{
				Synchronization: &protocol.TextDocumentSyncClientCapabilities{DidSave: true},
				Hover:           &protocol.HoverClientCapabilities{ContentFormat: []string{"markdown", "plaintext"}},
				Definition:      &protocol.DefinitionClientCapabilities{LinkSupport: true},
				References:      &protocol.ReferencesClientCapabilities{},
				Rename:          &protocol.RenameClientCapabilities{},
				DocumentSymbol:  &protocol.DocumentSymbolClientCapabilities{HierarchicalDocumentSymbolSupport: true},
				CodeAction:      &protocol.CodeActionClientCapabilities{},
				CodeLens:        &protocol.CodeLensClientCapabilities{},
				PublishDiagnostics: &protocol.PublishDiagnosticsClientCapabilities{
					RelatedInformation: true,
					VersionSupport:     true,
				},
				CallHierarchy: &protocol.CallHierarchyClientCapabilities{},
			},
		},
		InitializationOptions: initOptions,
		Trace:                 protocol.TraceOff,
		WorkspaceFolders: []protocol.WorkspaceFolder{
			{URI: protocol.URI(rootURI), Name: workspacePath},
		},
	}

	var result protocol.InitializeResult
	if err := c.Call(ctx, "initialize", params, &result); err != nil {
		_ = c.setState(Crashed)
		return nil, fmt.Errorf("initialize: %w", err)
	}

	c.mu.Lock()
	c.serverCapabilities = result.Capabilities
	c.mu.Unlock()

	if err := c.Notify(ctx, "initialized", struct{}{}); err != nil {
		_ = c.setState(Crashed)
		return nil, fmt.Errorf("initialized notification: %w", err)
	}

	if err := c.setState(Ready); err != nil {
		return nil, err
	}

	return &result, nil
}

// Shutdown performs the graceful LSP teardown sequence: closes all
// tracked open files, sends "shutdown", then "exit", then closes the
// transport.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.setState(Stopping); err != nil && c.State() != Crashed {
		return err
	}

	c.CloseAllFiles(ctx)

	shutdownCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Call(shutdownCtx, "shutdown", nil, nil); err != nil {
		c.logger.Debug("shutdown request failed, proceeding to exit", zap.Error(err))
	}

	_ = c.Notify(ctx, "exit", nil)

	_ = c.transport.CloseStream()

	done := make(chan struct{})
	go func() {
		_ = c.transport.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = c.transport.Terminate()
		select {
		case <-done:
		case <-time.After(1 * time.Second):
			_ = c.transport.Kill()
		}
	}

	return c.setState(Stopped)
}

// WaitReady polls the server with a lightweight request until it
// answers successfully or ctx expires. mcp-language-server used an
// empty workspace/symbol query for this; we keep that idiom.
func (c *Client) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("lsp server %s not ready: %w", c.key, ctx.Err())
		case <-ticker.C:
			var result []protocol.SymbolInformation
			if err := c.Call(ctx, "workspace/symbol", protocol.WorkspaceSymbolParams{Query: ""}, &result); err == nil {
				return nil
			}
		}
	}
}
