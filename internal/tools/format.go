package tools

import (
	"context"
	"fmt"

	"github.com/mcp-broker/lsp-broker/internal/edit"
	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// FormatDocumentParams selects the file (and optionally a range within
// it) to format, plus the whitespace conventions to request.
type FormatDocumentParams struct {
	FilePath     string          `json:"filePath"`
	Range        *protocol.Range `json:"range,omitempty"`
	TabSize      uint32          `json:"tabSize,omitempty"`
	InsertSpaces bool            `json:"insertSpaces,omitempty"`
	DryRun       bool            `json:"dryRun,omitempty"`
}

// FormatDocumentResult reports what formatting changed (or would
// change, for a dry run).
type FormatDocumentResult struct {
	Applied      bool   `json:"applied"`
	TotalChanges int    `json:"totalChanges"`
	Diff         string `json:"diff,omitempty"`
	Summary      string `json:"summary"`
}

// FormatDocument issues "textDocument/formatting" (or rangeFormatting
// when a range is given) and applies the returned edits through the
// transaction manager, so a server that replies with overlapping or
// out-of-bounds edits cannot leave the file half-formatted.
func (r *Registry) FormatDocument(ctx context.Context, params FormatDocumentParams) (*FormatDocumentResult, error) {
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

	opts := protocol.FormattingOptions{TabSize: params.TabSize, InsertSpaces: params.InsertSpaces}
	if opts.TabSize == 0 {
		opts.TabSize = 4
	}
	doc := protocol.TextDocumentIdentifier{URI: pathToURI(path)}

	var edits []protocol.TextEdit
	if params.Range != nil {
		edits, err = client.RangeFormatting(ctx, protocol.DocumentRangeFormattingParams{
			TextDocument: doc, Range: *params.Range, Options: opts,
		})
	} else {
		edits, err = client.Formatting(ctx, protocol.DocumentFormattingParams{
			TextDocument: doc, Options: opts,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("formatting: %w", err)
	}
	if len(edits) == 0 {
		return &FormatDocumentResult{Applied: false, Summary: "already formatted"}, nil
	}

	wsEdit := protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{pathToURI(path): edits},
	}
	result := &FormatDocumentResult{Summary: edit.Describe(wsEdit).String()}
	if diff, derr := edit.Diff(wsEdit); derr == nil {
		result.Diff = diff
	}

	applyOpts := edit.DefaultOptions()
	applyOpts.DryRun = params.DryRun
	txResult, err := r.Editor.Apply(wsEdit, applyOpts)
	if err != nil {
		return result, fmt.Errorf("applying formatting edits: %w", err)
	}
	result.TotalChanges = txResult.TotalChanges
	if !params.DryRun {
		result.Applied = true
		r.InvalidateFile(string(pathToURI(path)))
	}
	return result, nil
}
