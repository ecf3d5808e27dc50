package lspclient

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

func filePathToURI(path string) protocol.DocumentUri {
	return protocol.DocumentUri("file://" + path)
}

func uriToFilePath(uri protocol.DocumentUri) string {
	return strings.TrimPrefix(string(uri), "file://")
}

// OpenFile sends "textDocument/didOpen" for path, reading its current
// contents from disk. A no-op if the file is already tracked open.
func (c *Client) OpenFile(ctx context.Context, path, languageID string) error {
	uri := filePathToURI(path)

	c.openFilesMu.Lock()
	if _, exists := c.openFiles[uri]; exists {
		c.openFilesMu.Unlock()
		return nil
	}
	c.openFilesMu.Unlock()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	params := protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: languageID,
			Version:    1,
			Text:       string(content),
		},
	}
	if err := c.Notify(ctx, "textDocument/didOpen", params); err != nil {
		return fmt.Errorf("didOpen %s: %w", path, err)
	}

	c.openFilesMu.Lock()
	c.openFiles[uri] = &openFile{uri: uri, version: 1}
	c.openFilesMu.Unlock()
	return nil
}

// NotifyChange sends a full-document "textDocument/didChange" for path,
// re-reading its contents from disk and bumping the tracked version.
// Implicitly opens the file first if it isn't already tracked, mirroring
// the editor behavior of always having a buffer before editing it.
func (c *Client) NotifyChange(ctx context.Context, path, languageID string) error {
	uri := filePathToURI(path)

	c.openFilesMu.Lock()
	_, isOpen := c.openFiles[uri]
	c.openFilesMu.Unlock()
	if !isOpen {
		if err := c.OpenFile(ctx, path, languageID); err != nil {
			return err
		}
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	c.openFilesMu.Lock()
	of := c.openFiles[uri]
	of.version++
	version := of.version
	c.openFilesMu.Unlock()

	params := protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: string(content)}},
	}
	if err := c.Notify(ctx, "textDocument/didChange", params); err != nil {
		return fmt.Errorf("didChange %s: %w", path, err)
	}
	return nil
}

// CloseFile sends "textDocument/didClose" and drops tracked state and
// cached diagnostics for path.
func (c *Client) CloseFile(ctx context.Context, path string) error {
	uri := filePathToURI(path)

	c.openFilesMu.Lock()
	if _, exists := c.openFiles[uri]; !exists {
		c.openFilesMu.Unlock()
		return nil
	}
	delete(c.openFiles, uri)
	c.openFilesMu.Unlock()

	c.diagnosticsMu.Lock()
	delete(c.diagnostics, uri)
	c.diagnosticsMu.Unlock()

	params := protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: uri}}
	return c.Notify(ctx, "textDocument/didClose", params)
}

// IsFileOpen reports whether path is currently tracked as open.
func (c *Client) IsFileOpen(path string) bool {
	uri := filePathToURI(path)
	c.openFilesMu.RLock()
	defer c.openFilesMu.RUnlock()
	_, ok := c.openFiles[uri]
	return ok
}

// HasWatchRegistrations reports whether the server has registered any
// workspace/didChangeWatchedFiles interest.
func (c *Client) HasWatchRegistrations() bool {
	c.watchMu.RLock()
	defer c.watchMu.RUnlock()
	return len(c.watchRegistrations) > 0
}

// NotifyWatchedFileChanged forwards an on-disk change as a
// workspace/didChangeWatchedFiles notification, provided the server
// registered watchers. The server's glob patterns are not re-evaluated
// client-side; servers filter events they didn't ask for, and sending
// a superset is cheaper than reimplementing LSP glob semantics.
func (c *Client) NotifyWatchedFileChanged(ctx context.Context, path string, change protocol.FileChangeType) error {
	if !c.HasWatchRegistrations() {
		return nil
	}
	params := protocol.DidChangeWatchedFilesParams{
		Changes: []protocol.FileEvent{{URI: filePathToURI(path), Type: change}},
	}
	return c.Notify(ctx, "workspace/didChangeWatchedFiles", params)
}

// SyncFileFromDisk pushes the current on-disk content of path to the
// server: a didChange for files this client tracks open, plus a
// didChangeWatchedFiles event when the server registered watchers.
func (c *Client) SyncFileFromDisk(ctx context.Context, path string, change protocol.FileChangeType) error {
	if err := c.NotifyWatchedFileChanged(ctx, path, change); err != nil {
		return err
	}
	if change != protocol.FileDeleted && c.IsFileOpen(path) {
		return c.NotifyChange(ctx, path, c.languageID)
	}
	return nil
}

// CloseAllFiles closes every file this client currently tracks as open,
// logging but not failing on individual close errors.
func (c *Client) CloseAllFiles(ctx context.Context) {
	c.openFilesMu.Lock()
	paths := make([]string, 0, len(c.openFiles))
	for uri := range c.openFiles {
		paths = append(paths, uriToFilePath(uri))
	}
	c.openFilesMu.Unlock()

	for _, p := range paths {
		if err := c.CloseFile(ctx, p); err != nil {
			c.logger.Debug("error closing file during shutdown", zap.String("path", p), zap.Error(err))
		}
	}
}
