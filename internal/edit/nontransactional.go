package edit

import (
	"context"
	"fmt"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// ApplyResult is returned by the non-transactional applier: the same
// edit primitives as Apply, but without backup/rollback.
type ApplyResult struct {
	Applied       bool
	FailureReason string
	FailedChange  *int
}

// ApplyNonTransactional applies edit directly, without computing
// FileBackups first. Used by applyCodeAction, where a failed code
// action's side effects are not expected to need rollback (the server
// itself is the source of truth for whether the action "took").
func (m *Manager) ApplyNonTransactional(edit protocol.WorkspaceEdit) *ApplyResult {
	perFile, err := collectPerFileEdits(edit)
	if err != nil {
		return &ApplyResult{Applied: false, FailureReason: err.Error()}
	}
	ops := collectResourceOps(edit)

	i := 0
	for uri, edits := range perFile {
		if err := applyTextEditsToFile(uri, edits); err != nil {
			idx := i
			return &ApplyResult{Applied: false, FailureReason: fmt.Sprintf("%s: %v", uri, err), FailedChange: &idx}
		}
		i++
	}
	for _, op := range ops {
		if err := applyResourceOp(op); err != nil {
			idx := i
			return &ApplyResult{Applied: false, FailureReason: err.Error(), FailedChange: &idx}
		}
		i++
	}
	return &ApplyResult{Applied: true}
}

// ApplyWorkspaceEdit implements lspclient.WorkspaceEditApplier so the
// Manager can answer server-initiated "workspace/applyEdit" requests
// through the same transactional path as the broker's own applyEdit
// tool.
func (m *Manager) ApplyWorkspaceEdit(ctx context.Context, edit protocol.WorkspaceEdit) error {
	_, err := m.Apply(edit, DefaultOptions())
	return err
}
