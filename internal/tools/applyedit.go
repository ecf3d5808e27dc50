package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcp-broker/lsp-broker/internal/edit"
	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// ApplyEditParams carries a caller-constructed WorkspaceEdit. When
// Language is set the edit is forwarded to that language's server via
// workspace/applyEdit (for servers that perform edits themselves);
// otherwise the broker applies it through the transaction manager.
type ApplyEditParams struct {
	Edit     protocol.WorkspaceEdit `json:"edit"`
	Language string                 `json:"language,omitempty"`
	DryRun   bool                   `json:"dryRun,omitempty"`
	Atomic   bool                   `json:"atomic,omitempty"`
}

// ApplyEditResult reports what the transaction did, plus a precomputed
// diff and human-readable summary whether or not the apply succeeds. An
// edit rejected for a non-file URI carries only FailureReason.
type ApplyEditResult struct {
	Applied       bool   `json:"applied"`
	FailureReason string `json:"failureReason,omitempty"`
	FailedChange  *int   `json:"failedChange,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	FilesModified int    `json:"filesModified,omitempty"`
	TotalChanges  int    `json:"totalChanges,omitempty"`
	Diff          string `json:"diff"`
	Summary       string `json:"summary"`
}

// ApplyEdit validates every URI in params.Edit uses the file:// scheme,
// precomputes a diff and summary, then either forwards the edit to the
// named language's server or runs the transactional applier (§4.6). A
// validation failure is reported the same way as an apply failure, via
// FailureReason, rather than an error return.
func (r *Registry) ApplyEdit(ctx context.Context, params ApplyEditParams) (*ApplyEditResult, error) {
	for _, uri := range editURIs(params.Edit) {
		if !strings.HasPrefix(string(uri), "file://") {
			return &ApplyEditResult{
				Applied:       false,
				FailureReason: fmt.Sprintf("non-file URI rejected: %s", uri),
			}, nil
		}
	}

	diff, err := edit.Diff(params.Edit)
	if err != nil {
		diff = ""
	}
	summary := edit.Describe(params.Edit).String()

	if params.Language != "" {
		return r.forwardApplyEdit(ctx, params, diff, summary)
	}

	opts := edit.DefaultOptions()
	opts.DryRun = params.DryRun
	if params.Atomic {
		opts.Atomic = true
	}

	txResult, err := r.Editor.Apply(params.Edit, opts)
	if err != nil {
		return &ApplyEditResult{
			Applied:       false,
			FailureReason: err.Error(),
			Diff:          diff,
			Summary:       summary,
		}, nil
	}

	if !params.DryRun {
		for _, uri := range editURIs(params.Edit) {
			r.InvalidateFile(string(uri))
		}
	}

	return &ApplyEditResult{
		Applied:       true,
		TransactionID: txResult.TransactionID,
		FilesModified: txResult.FilesModified,
		TotalChanges:  txResult.TotalChanges,
		Diff:          diff,
		Summary:       summary,
	}, nil
}

// forwardApplyEdit hands the edit to the named server as a
// workspace/applyEdit request and relays its applied/failureReason/
// failedChange verdict, invalidating caches for every touched URI when
// the server reports success.
func (r *Registry) forwardApplyEdit(ctx context.Context, params ApplyEditParams, diff, summary string) (*ApplyEditResult, error) {
	client, err := r.clientForLanguage(ctx, params.Language)
	if err != nil {
		return nil, err
	}

	var res protocol.ApplyWorkspaceEditResult
	if err := client.Call(ctx, "workspace/applyEdit", protocol.ApplyWorkspaceEditParams{Edit: params.Edit}, &res); err != nil {
		return nil, fmt.Errorf("workspace/applyEdit on %s: %w", params.Language, err)
	}

	out := &ApplyEditResult{
		Applied:       res.Applied,
		FailureReason: res.FailureReason,
		Diff:          diff,
		Summary:       summary,
	}
	if res.FailedChange != nil {
		fc := int(*res.FailedChange)
		out.FailedChange = &fc
	}
	if res.Applied {
		for _, uri := range editURIs(params.Edit) {
			r.InvalidateFile(string(uri))
		}
	}
	return out, nil
}

// editURIs collects every URI an edit names: Changes keys plus each
// DocumentChanges entry's document or resource target(s).
func editURIs(e protocol.WorkspaceEdit) []protocol.DocumentUri {
	var out []protocol.DocumentUri
	for uri := range e.Changes {
		out = append(out, uri)
	}
	for _, dc := range e.DocumentChanges {
		switch {
		case dc.TextDocumentEdit != nil:
			out = append(out, dc.TextDocumentEdit.TextDocument.URI)
		case dc.CreateFile != nil:
			out = append(out, dc.CreateFile.URI)
		case dc.RenameFile != nil:
			out = append(out, dc.RenameFile.OldURI, dc.RenameFile.NewURI)
		case dc.DeleteFile != nil:
			out = append(out, dc.DeleteFile.URI)
		}
	}
	return out
}
