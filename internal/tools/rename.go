package tools

import (
	"context"
	"fmt"

	"github.com/mcp-broker/lsp-broker/internal/edit"
	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// RenameParams identifies a symbol by position and its replacement name.
type RenameParams struct {
	FilePath  string `json:"filePath"`
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
	NewName   string `json:"newName"`
	Apply     bool   `json:"apply,omitempty"`
}

// RenameResult is the WorkspaceEdit a rename would make, plus whether
// it was actually applied and a diff preview.
type RenameResult struct {
	Edit    protocol.WorkspaceEdit `json:"edit"`
	Applied bool                   `json:"applied"`
	Diff    string                 `json:"diff,omitempty"`
	Summary string                 `json:"summary,omitempty"`
}

// Rename requests "textDocument/rename" and, if params.Apply is set,
// runs the resulting WorkspaceEdit through the transaction manager.
func (r *Registry) Rename(ctx context.Context, params RenameParams) (*RenameResult, error) {
	path, err := absPath(params.FilePath)
	if err != nil {
		return nil, err
	}
	client, err := r.clientForFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := client.OpenFile(ctx, path, client.LanguageID()); err != nil {
		return nil, err
	}

	wsEdit, err := client.Rename(ctx, protocol.RenameParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: pathToURI(path)},
		Position:     protocol.Position{Line: params.Line, Character: params.Character},
		NewName:      params.NewName,
	})
	if err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}
	if wsEdit == nil {
		return &RenameResult{}, nil
	}

	result := &RenameResult{Edit: *wsEdit, Summary: edit.Describe(*wsEdit).String()}
	if diff, derr := edit.Diff(*wsEdit); derr == nil {
		result.Diff = diff
	}

	if params.Apply {
		if _, err := r.Editor.Apply(*wsEdit, edit.DefaultOptions()); err != nil {
			return result, fmt.Errorf("applying rename: %w", err)
		}
		for uri := range wsEdit.Changes {
			r.InvalidateFile(string(uri))
		}
		result.Applied = true
	}

	return result, nil
}
