package tools

import (
	"context"
	"fmt"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// CodeLensParams selects the file to inspect.
type CodeLensParams struct {
	FilePath string `json:"filePath"`
}

// CodeLensEntry is one resolved or resolvable code lens, 1-indexed for
// use with ExecuteCodeLens.
type CodeLensEntry struct {
	Index int               `json:"index"`
	Range protocol.Range    `json:"range"`
	Title string            `json:"title,omitempty"`
	Lens  protocol.CodeLens `json:"-"`
}

// GetCodeLens lists the code lenses in filePath.
func (r *Registry) GetCodeLens(ctx context.Context, params CodeLensParams) ([]CodeLensEntry, error) {
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

	lenses, err := client.CodeLens(ctx, protocol.CodeLensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: pathToURI(path)},
	})
	if err != nil {
		return nil, fmt.Errorf("codeLens: %w", err)
	}

	out := make([]CodeLensEntry, len(lenses))
	for i, l := range lenses {
		title := ""
		if l.Command != nil {
			title = l.Command.Title
		}
		out[i] = CodeLensEntry{Index: i + 1, Range: l.Range, Title: title, Lens: l}
	}
	return out, nil
}

// ExecuteCodeLensParams identifies which lens (1-indexed, as returned
// by GetCodeLens) to execute.
type ExecuteCodeLensParams struct {
	FilePath string `json:"filePath"`
	Index    int    `json:"index"`
}

// ExecuteCodeLens resolves (if needed) and executes the command behind
// the code lens at the given 1-indexed position.
func (r *Registry) ExecuteCodeLens(ctx context.Context, params ExecuteCodeLensParams) (string, error) {
	entries, err := r.GetCodeLens(ctx, CodeLensParams{FilePath: params.FilePath})
	if err != nil {
		return "", err
	}
	if params.Index < 1 || params.Index > len(entries) {
		return "", fmt.Errorf("executeCodeLens: index %d out of range (1-%d)", params.Index, len(entries))
	}
	lens := entries[params.Index-1].Lens

	path, _ := absPath(params.FilePath)
	client, err := r.clientForFile(ctx, path)
	if err != nil {
		return "", err
	}

	if lens.Command == nil {
		resolved, err := client.ResolveCodeLens(ctx, lens)
		if err != nil {
			return "", fmt.Errorf("resolving code lens: %w", err)
		}
		lens = resolved
	}
	if lens.Command == nil {
		return "", fmt.Errorf("executeCodeLens: lens has no command after resolution")
	}

	if _, err := client.ExecuteCommand(ctx, protocol.ExecuteCommandParams{
		Command:   lens.Command.Command,
		Arguments: lens.Command.Arguments,
	}); err != nil {
		return "", fmt.Errorf("executing %s: %w", lens.Command.Command, err)
	}
	return fmt.Sprintf("executed code lens command %q", lens.Command.Title), nil
}
