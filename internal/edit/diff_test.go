package edit

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

func TestDescribe_CountsEditsAndFiles(t *testing.T) {
	e := protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			"file:///p/a.ts": {{NewText: "x"}, {NewText: "y"}},
			"file:///p/b.ts": {{NewText: "z"}},
		},
	}
	s := Describe(e)
	assert.Equal(t, 2, s.FilesChanged)
	assert.Equal(t, 3, s.TotalEdits)
	assert.Equal(t, "3 edits in 2 files", s.String())
}

func TestDescribe_SingleEditSingleFile(t *testing.T) {
	e := protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			"file:///p/x.ts": {{NewText: "hello"}},
		},
	}
	assert.Equal(t, "1 edit in 1 file", Describe(e).String())
}

func TestDiff_RendersChangedLines(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "x.ts", "world\nsame")

	e := singleEdit(fileURI(path), 0, 0, 0, 5, "hello")
	out, err := Diff(e)
	require.NoError(t, err)

	assert.Contains(t, out, "--- "+string(fileURI(path)))
	assert.Contains(t, out, "+++ "+string(fileURI(path)))
	assert.Contains(t, out, "-world")
	assert.Contains(t, out, "+hello")
	assert.Contains(t, out, " same")

	// The diff is a pure rendering; disk must be untouched.
	assert.Equal(t, "world\nsame", readFile(t, path))
}

func TestDiff_ResourceOperationsGetPseudoHeaders(t *testing.T) {
	dir := t.TempDir()
	created := filepath.Join(dir, "created.go")
	oldPath := filepath.Join(dir, "old.go")
	newPath := filepath.Join(dir, "new.go")
	gone := filepath.Join(dir, "gone.go")

	e := protocol.WorkspaceEdit{
		DocumentChanges: []protocol.DocumentChange{
			{CreateFile: &protocol.CreateFile{Kind: "create", URI: fileURI(created)}},
			{RenameFile: &protocol.RenameFile{Kind: "rename", OldURI: fileURI(oldPath), NewURI: fileURI(newPath)}},
			{DeleteFile: &protocol.DeleteFile{Kind: "delete", URI: fileURI(gone)}},
		},
	}
	out, err := Diff(e)
	require.NoError(t, err)

	assert.Contains(t, out, "(new file)")
	assert.Contains(t, out, "(rename)")
	assert.Contains(t, out, "(deleted)")
	assert.Contains(t, out, "--- /dev/null")
	assert.Contains(t, out, "+++ /dev/null")
}

func TestDiff_MultipleFilesSortedByURI(t *testing.T) {
	dir := t.TempDir()
	pathA := writeFile(t, dir, "a.ts", "aaa")
	pathB := writeFile(t, dir, "b.ts", "bbb")

	e := protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentUri][]protocol.TextEdit{
			fileURI(pathB): {{Range: protocol.Range{Start: protocol.Position{Line: 0, Character: 0}, End: protocol.Position{Line: 0, Character: 3}}, NewText: "BBB"}},
			fileURI(pathA): {{Range: protocol.Range{Start: protocol.Position{Line: 0, Character: 0}, End: protocol.Position{Line: 0, Character: 3}}, NewText: "AAA"}},
		},
	}
	out, err := Diff(e)
	require.NoError(t, err)

	idxA := strings.Index(out, "a.ts")
	idxB := strings.Index(out, "b.ts")
	require.GreaterOrEqual(t, idxA, 0)
	require.GreaterOrEqual(t, idxB, 0)
	assert.Less(t, idxA, idxB, "diff output should be ordered by URI")
}
