package lspclient

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// WorkspaceEditApplier applies a server-initiated WorkspaceEdit to disk.
// internal/edit.Manager implements this; wired in by the connection
// pool when a client is constructed so that a server-sent
// "workspace/applyEdit" goes through the same transactional path as the
// broker's own applyEdit tool.
type WorkspaceEditApplier interface {
	ApplyWorkspaceEdit(ctx context.Context, edit protocol.WorkspaceEdit) error
}

// FileWatchRegistrationHandler receives dynamic file-watch registrations
// requested by the server via "client/registerCapability".
type FileWatchRegistrationHandler func(id string, watchers []protocol.FileSystemWatcher)

// RegisterStandardHandlers wires up the handlers every managed language
// server may call back into: applying workspace edits, answering
// configuration requests, acknowledging dynamic capability
// registrations, and logging window/showMessage and window/logMessage
// notifications. publishDiagnostics is stored by the client's own
// notification dispatch, not by a handler registered here.
func (c *Client) RegisterStandardHandlers(applier WorkspaceEditApplier, onFileWatch FileWatchRegistrationHandler) {
	c.RegisterServerRequestHandler("workspace/applyEdit", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var p protocol.ApplyWorkspaceEditParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		if err := applier.ApplyWorkspaceEdit(ctx, p.Edit); err != nil {
			return protocol.ApplyWorkspaceEditResult{Applied: false, FailureReason: err.Error()}, nil
		}
		return protocol.ApplyWorkspaceEditResult{Applied: true}, nil
	})

	c.RegisterServerRequestHandler("workspace/configuration", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var p protocol.ConfigurationParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		// The broker has no per-workspace settings tree to honor yet;
		// answering with empty objects satisfies servers (gopls, etc.)
		// that probe this before falling back to their own defaults.
		out := make([]map[string]interface{}, len(p.Items))
		for i := range out {
			out[i] = map[string]interface{}{}
		}
		return out, nil
	})

	c.RegisterServerRequestHandler("client/registerCapability", func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var p protocol.RegistrationParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		for _, reg := range p.Registrations {
			if reg.Method != "workspace/didChangeWatchedFiles" {
				continue
			}
			optsRaw, err := json.Marshal(reg.RegisterOptions)
			if err != nil {
				continue
			}
			var opts protocol.DidChangeWatchedFilesRegistrationOptions
			if err := json.Unmarshal(optsRaw, &opts); err != nil {
				continue
			}
			c.watchMu.Lock()
			c.watchRegistrations = append(c.watchRegistrations, opts.Watchers...)
			c.watchMu.Unlock()
			if onFileWatch != nil {
				onFileWatch(reg.ID, opts.Watchers)
			}
		}
		return nil, nil
	})

	c.RegisterNotificationHandler("window/showMessage", func(raw json.RawMessage) {
		var p protocol.ShowMessageParams
		if err := json.Unmarshal(raw, &p); err == nil {
			c.logger.Info("server message", zap.String("client", c.key), zap.String("message", p.Message))
		}
	})

	c.RegisterNotificationHandler("window/logMessage", func(raw json.RawMessage) {
		var p protocol.LogMessageParams
		if err := json.Unmarshal(raw, &p); err == nil {
			c.logger.Debug("server log", zap.String("client", c.key), zap.String("message", p.Message))
		}
	})
}
