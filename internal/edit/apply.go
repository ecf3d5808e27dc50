package edit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// resourceOp normalizes the three resource-operation shapes into one
// value carrying only the fields apply/validate code needs.
type resourceOp struct {
	create *protocol.CreateFile
	rename *protocol.RenameFile
	delete *protocol.DeleteFile
}

func (op resourceOp) primaryURI() protocol.DocumentUri {
	switch {
	case op.create != nil:
		return op.create.URI
	case op.rename != nil:
		return op.rename.OldURI
	case op.delete != nil:
		return op.delete.URI
	default:
		return ""
	}
}

// collectPerFileEdits unions the edits from edit.Changes and any
// TextDocumentEdit entries of edit.DocumentChanges, keyed by URI.
func collectPerFileEdits(edit protocol.WorkspaceEdit) (map[protocol.DocumentUri][]protocol.TextEdit, error) {
	out := make(map[protocol.DocumentUri][]protocol.TextEdit)
	for uri, edits := range edit.Changes {
		out[uri] = append(out[uri], edits...)
	}
	for _, dc := range edit.DocumentChanges {
		if dc.TextDocumentEdit == nil {
			continue
		}
		uri := dc.TextDocumentEdit.TextDocument.URI
		out[uri] = append(out[uri], dc.TextDocumentEdit.Edits...)
	}
	return out, nil
}

// collectResourceOps extracts the Create/Rename/Delete entries of
// edit.DocumentChanges, in order.
func collectResourceOps(edit protocol.WorkspaceEdit) []resourceOp {
	var ops []resourceOp
	for _, dc := range edit.DocumentChanges {
		switch {
		case dc.CreateFile != nil:
			ops = append(ops, resourceOp{create: dc.CreateFile})
		case dc.RenameFile != nil:
			ops = append(ops, resourceOp{rename: dc.RenameFile})
		case dc.DeleteFile != nil:
			ops = append(ops, resourceOp{delete: dc.DeleteFile})
		}
	}
	return ops
}

func affectedURIs(perFile map[protocol.DocumentUri][]protocol.TextEdit, ops []resourceOp) []protocol.DocumentUri {
	seen := make(map[protocol.DocumentUri]bool)
	var out []protocol.DocumentUri
	add := func(uri protocol.DocumentUri) {
		if uri == "" || seen[uri] {
			return
		}
		seen[uri] = true
		out = append(out, uri)
	}
	for uri := range perFile {
		add(uri)
	}
	for _, op := range ops {
		add(op.primaryURI())
		if op.rename != nil {
			add(op.rename.NewURI)
		}
	}
	return out
}

// applyAll applies the Changes map first, then walks DocumentChanges
// in list order. DocumentChanges is ordered on the wire: a create
// followed by an edit of the created file must happen in that sequence.
func (m *Manager) applyAll(edit protocol.WorkspaceEdit) error {
	for uri, edits := range edit.Changes {
		if err := applyTextEditsToFile(uri, edits); err != nil {
			return fmt.Errorf("%s: %w", uri, err)
		}
	}
	for _, dc := range edit.DocumentChanges {
		switch {
		case dc.TextDocumentEdit != nil:
			uri := dc.TextDocumentEdit.TextDocument.URI
			if err := applyTextEditsToFile(uri, dc.TextDocumentEdit.Edits); err != nil {
				return fmt.Errorf("%s: %w", uri, err)
			}
		case dc.CreateFile != nil:
			if err := applyCreate(*dc.CreateFile); err != nil {
				return err
			}
		case dc.RenameFile != nil:
			if err := applyRename(*dc.RenameFile); err != nil {
				return err
			}
		case dc.DeleteFile != nil:
			if err := applyDelete(*dc.DeleteFile); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyTextEditsToFile sorts edits in strictly descending
// (startLine, startChar) order, rejects overlaps, validates bounds,
// applies them back to front, and writes the file.
func applyTextEditsToFile(uri protocol.DocumentUri, edits []protocol.TextEdit) error {
	path := uriToPath(uri)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	lineEnding := "\n"
	if strings.Contains(string(content), "\r\n") {
		lineEnding = "\r\n"
	}
	lines := strings.Split(string(content), lineEnding)

	sorted := make([]protocol.TextEdit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Range.Start.Line != sorted[j].Range.Start.Line {
			return sorted[i].Range.Start.Line > sorted[j].Range.Start.Line
		}
		return sorted[i].Range.Start.Character > sorted[j].Range.Start.Character
	})

	for i := 0; i+1 < len(sorted); i++ {
		later, next := sorted[i], sorted[i+1]
		if positionGTE(later.Range.Start, next.Range.End) {
			continue
		}
		return fmt.Errorf("overlapping edits at lines %d and %d", later.Range.Start.Line+1, next.Range.Start.Line+1)
	}

	for _, e := range sorted {
		if err := validatePosition(lines, e.Range.Start); err != nil {
			return err
		}
		if err := validatePosition(lines, e.Range.End); err != nil {
			return err
		}
		lines, err = applyOneEdit(lines, e, lineEnding)
		if err != nil {
			return err
		}
	}

	return os.WriteFile(path, []byte(strings.Join(lines, lineEnding)), 0o644)
}

func positionGTE(a, b protocol.Position) bool {
	if a.Line != b.Line {
		return a.Line >= b.Line
	}
	return a.Character >= b.Character
}

func validatePosition(lines []string, pos protocol.Position) error {
	if int(pos.Line) >= len(lines) {
		return fmt.Errorf("line %d out of bounds (file has %d lines)", pos.Line+1, len(lines))
	}
	if int(pos.Character) > len([]rune(lines[pos.Line])) {
		return fmt.Errorf("character %d out of bounds on line %d", pos.Character, pos.Line+1)
	}
	return nil
}

func applyOneEdit(lines []string, e protocol.TextEdit, lineEnding string) ([]string, error) {
	startLine, startChar := int(e.Range.Start.Line), int(e.Range.Start.Character)
	endLine, endChar := int(e.Range.End.Line), int(e.Range.End.Character)

	before := []rune(lines[startLine])[:startChar]
	after := []rune(lines[endLine])[endChar:]
	replacement := string(before) + e.NewText + string(after)
	replacedLines := strings.Split(replacement, lineEnding)

	out := make([]string, 0, len(lines)-(endLine-startLine)+len(replacedLines))
	out = append(out, lines[:startLine]...)
	out = append(out, replacedLines...)
	out = append(out, lines[endLine+1:]...)
	return out, nil
}

func applyResourceOp(op resourceOp) error {
	switch {
	case op.create != nil:
		return applyCreate(*op.create)
	case op.rename != nil:
		return applyRename(*op.rename)
	case op.delete != nil:
		return applyDelete(*op.delete)
	}
	return nil
}

func applyCreate(op protocol.CreateFile) error {
	path := uriToPath(op.URI)
	if op.Options != nil && op.Options.IgnoreIfExists {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for create: %w", err)
	}
	flags := os.O_CREATE | os.O_WRONLY
	if op.Options != nil && op.Options.Overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return f.Close()
}

func applyRename(op protocol.RenameFile) error {
	oldPath, newPath := uriToPath(op.OldURI), uriToPath(op.NewURI)
	if op.Options != nil && op.Options.IgnoreIfExists {
		if _, err := os.Stat(newPath); err == nil {
			return nil
		}
	}
	if _, err := os.Stat(newPath); err == nil {
		if op.Options == nil || !op.Options.Overwrite {
			return fmt.Errorf("rename target exists and overwrite not set: %s", newPath)
		}
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("mkdir for rename target: %w", err)
	}
	return os.Rename(oldPath, newPath)
}

func applyDelete(op protocol.DeleteFile) error {
	path := uriToPath(op.URI)
	var err error
	if op.Options != nil && op.Options.Recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil && os.IsNotExist(err) && op.Options != nil && op.Options.IgnoreIfNotExists {
		return nil
	}
	return err
}
