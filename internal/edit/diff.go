package edit

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// Summary is the "N edits in M files" tally for a WorkspaceEdit,
// computed without touching disk beyond reading current file contents
// for the diff body.
type Summary struct {
	FilesChanged int
	TotalEdits   int
}

// Describe computes edit's Summary.
func Describe(edit protocol.WorkspaceEdit) Summary {
	perFile, _ := collectPerFileEdits(edit)
	ops := collectResourceOps(edit)
	s := Summary{}
	for _, edits := range perFile {
		s.FilesChanged++
		s.TotalEdits += len(edits)
	}
	s.FilesChanged += len(ops)
	s.TotalEdits += len(ops)
	return s
}

// String renders "N edits in M files" ("1 edit in 1 file" in the
// singular).
func (s Summary) String() string {
	return fmt.Sprintf("%d %s in %d %s",
		s.TotalEdits, plural(s.TotalEdits, "edit"),
		s.FilesChanged, plural(s.FilesChanged, "file"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// Diff renders a unified-diff-style preview of edit, purely as a
// transformation over current on-disk content; it never writes
// anything. Resource operations get pseudo-diff headers rather than a
// hunk body.
func Diff(edit protocol.WorkspaceEdit) (string, error) {
	perFile, err := collectPerFileEdits(edit)
	if err != nil {
		return "", err
	}
	ops := collectResourceOps(edit)

	uris := make([]protocol.DocumentUri, 0, len(perFile))
	for uri := range perFile {
		uris = append(uris, uri)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })

	var b strings.Builder
	for _, uri := range uris {
		hunk, err := fileDiff(uri, perFile[uri])
		if err != nil {
			fmt.Fprintf(&b, "--- %s\n+++ %s\n(error rendering diff: %v)\n", uri, uri, err)
			continue
		}
		b.WriteString(hunk)
	}
	for _, op := range ops {
		b.WriteString(resourceOpHeader(op))
	}
	return b.String(), nil
}

func fileDiff(uri protocol.DocumentUri, edits []protocol.TextEdit) (string, error) {
	path := uriToPath(uri)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	lineEnding := "\n"
	if strings.Contains(string(content), "\r\n") {
		lineEnding = "\r\n"
	}
	before := strings.Split(string(content), lineEnding)

	sorted := make([]protocol.TextEdit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Range.Start.Line != sorted[j].Range.Start.Line {
			return sorted[i].Range.Start.Line > sorted[j].Range.Start.Line
		}
		return sorted[i].Range.Start.Character > sorted[j].Range.Start.Character
	})

	after := before
	for _, e := range sorted {
		if int(e.Range.Start.Line) >= len(after) || int(e.Range.End.Line) >= len(after) {
			continue
		}
		var applyErr error
		after, applyErr = applyOneEdit(after, e, lineEnding)
		if applyErr != nil {
			return "", applyErr
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", uri, uri)
	for _, line := range unifiedLines(before, after) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// unifiedLines produces a minimal line-oriented diff body. It is not a
// general LCS diff; it walks both slices position by position, which
// is sufficient for the broker's own edits (sequential, position-based).
func unifiedLines(before, after []string) []string {
	var out []string
	max := len(before)
	if len(after) > max {
		max = len(after)
	}
	for i := 0; i < max; i++ {
		var b, a string
		haveB, haveA := i < len(before), i < len(after)
		if haveB {
			b = before[i]
		}
		if haveA {
			a = after[i]
		}
		switch {
		case haveB && haveA && b == a:
			out = append(out, " "+b)
		case haveB && haveA:
			out = append(out, "-"+b, "+"+a)
		case haveB:
			out = append(out, "-"+b)
		case haveA:
			out = append(out, "+"+a)
		}
	}
	return out
}

func resourceOpHeader(op resourceOp) string {
	switch {
	case op.create != nil:
		return fmt.Sprintf("--- /dev/null\n+++ %s\n(new file)\n", op.create.URI)
	case op.rename != nil:
		return fmt.Sprintf("--- %s\n+++ %s\n(rename)\n", op.rename.OldURI, op.rename.NewURI)
	case op.delete != nil:
		return fmt.Sprintf("--- %s\n+++ /dev/null\n(deleted)\n", op.delete.URI)
	default:
		return ""
	}
}
