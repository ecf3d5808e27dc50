package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcp-broker/lsp-broker/internal/edit"
	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// ApplyCodeActionParams targets a code action by an explicit range and
// narrows the candidate list by title/kind; optionally applies the
// first surviving candidate.
type ApplyCodeActionParams struct {
	FilePath      string                `json:"filePath"`
	Range         protocol.Range        `json:"range"`
	Diagnostics   []protocol.Diagnostic `json:"diagnostics,omitempty"`
	OnlyKinds     []string              `json:"onlyKinds,omitempty"`
	TitleContains string                `json:"titleContains,omitempty"`
	IncludeAll    bool                  `json:"includeAll,omitempty"`
	AutoApply     bool                  `json:"autoApply,omitempty"`
}

// ApplyCodeActionResult is either the candidate list (AutoApply
// false) or the outcome of applying the chosen candidate.
type ApplyCodeActionResult struct {
	Candidates []protocol.CodeAction `json:"candidates,omitempty"`
	Applied    *edit.ApplyResult     `json:"applied,omitempty"`
	Diff       string                `json:"diff,omitempty"`
	CommandRan string                `json:"commandRan,omitempty"`
}

// ApplyCodeAction requests "textDocument/codeAction", filters the
// reply by title and preferredness, and either returns the filtered
// candidates or applies the first one.
func (r *Registry) ApplyCodeAction(ctx context.Context, params ApplyCodeActionParams) (*ApplyCodeActionResult, error) {
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

	actions, err := client.CodeAction(ctx, protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: pathToURI(path)},
		Range:        params.Range,
		Context: protocol.CodeActionContext{
			Diagnostics: params.Diagnostics,
			Only:        params.OnlyKinds,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("codeAction: %w", err)
	}

	filtered := filterCodeActions(actions, params.TitleContains, params.IncludeAll)
	if !params.AutoApply || len(filtered) == 0 {
		return &ApplyCodeActionResult{Candidates: filtered}, nil
	}

	chosen := filtered[0]
	result := &ApplyCodeActionResult{Candidates: filtered}

	if chosen.Edit != nil {
		applied := r.Editor.ApplyNonTransactional(*chosen.Edit)
		result.Applied = applied
		if diff, derr := edit.Diff(*chosen.Edit); derr == nil {
			result.Diff = diff
		}
		for uri := range chosen.Edit.Changes {
			r.InvalidateFile(string(uri))
		}
	}
	if chosen.Command != nil {
		if _, err := client.ExecuteCommand(ctx, protocol.ExecuteCommandParams{
			Command:   chosen.Command.Command,
			Arguments: chosen.Command.Arguments,
		}); err != nil {
			return result, fmt.Errorf("executing command %s: %w", chosen.Command.Command, err)
		}
		result.CommandRan = chosen.Command.Command
	}
	return result, nil
}

// filterCodeActions applies the title-substring filter, then (unless
// includeAll) narrows to isPreferred actions when any exist.
func filterCodeActions(actions []protocol.CodeAction, titleContains string, includeAll bool) []protocol.CodeAction {
	var byTitle []protocol.CodeAction
	for _, a := range actions {
		if titleContains == "" || strings.Contains(strings.ToLower(a.Title), strings.ToLower(titleContains)) {
			byTitle = append(byTitle, a)
		}
	}
	if includeAll {
		return byTitle
	}
	var preferred []protocol.CodeAction
	for _, a := range byTitle {
		if a.IsPreferred {
			preferred = append(preferred, a)
		}
	}
	if len(preferred) > 0 {
		return preferred
	}
	return byTitle
}
