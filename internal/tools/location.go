package tools

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

func pathToURI(path string) protocol.DocumentUri {
	return protocol.DocumentUri("file://" + path)
}

func uriToPath(uri protocol.DocumentUri) string {
	return strings.TrimPrefix(string(uri), "file://")
}

func absPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving path %s: %w", p, err)
	}
	return abs, nil
}

// linePreview returns the trimmed text of line (0-based) from path, or
// "" if the file can't be read or the line is out of range. Used to
// enrich bare Locations with a one-line preview without requiring a
// round trip through the language server.
func linePreview(path string, line uint32) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var n uint32
	for scanner.Scan() {
		if n == line {
			return strings.TrimSpace(scanner.Text())
		}
		n++
	}
	return ""
}

// lineRangeSnippet returns the untrimmed text of lines [start, end]
// (0-based, inclusive) from path, joined with newlines, capped at
// maxLines to keep sibling-symbol snippets small.
func lineRangeSnippet(path string, start, end uint32, maxLines int) string {
	if end < start {
		end = start
	}
	if int(end-start)+1 > maxLines {
		end = start + uint32(maxLines) - 1
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	var n uint32
	for scanner.Scan() {
		if n >= start && n <= end {
			lines = append(lines, scanner.Text())
		}
		if n > end {
			break
		}
		n++
	}
	return strings.Join(lines, "\n")
}

// EnrichedLocation is a Location plus a one-line on-disk preview, the
// shape every navigate-family result is returned as.
type EnrichedLocation struct {
	URI     protocol.DocumentUri `json:"uri"`
	Range   protocol.Range       `json:"range"`
	Preview string               `json:"preview,omitempty"`
}

func enrich(locs []protocol.Location) []EnrichedLocation {
	out := make([]EnrichedLocation, len(locs))
	for i, l := range locs {
		out[i] = EnrichedLocation{
			URI:     l.URI,
			Range:   l.Range,
			Preview: linePreview(uriToPath(l.URI), l.Range.Start.Line),
		}
	}
	return out
}

// sortByRelevance orders results so that same-file hits come first,
// then same-directory hits, then everything else, preserving the
// server's relative order within each bucket (stable sort).
func sortByRelevance(results []EnrichedLocation, sourceURI protocol.DocumentUri) {
	sourcePath := uriToPath(sourceURI)
	sourceDir := filepath.Dir(sourcePath)

	bucket := func(r EnrichedLocation) int {
		p := uriToPath(r.URI)
		switch {
		case r.URI == sourceURI:
			return 0
		case filepath.Dir(p) == sourceDir:
			return 1
		default:
			return 2
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return bucket(results[i]) < bucket(results[j])
	})
}

// grepFallback builds a best-effort shell command a caller can run
// when a navigate/findUsages request returns nothing, tailored to the
// kind of symbol being searched for.
func grepFallback(kind, query string) string {
	switch kind {
	case "definition", "typeDefinition":
		return fmt.Sprintf(`grep -rn 'class\|interface\|type\|func\|def' --include='*' -e %q .`, query)
	case "implementation":
		return fmt.Sprintf(`grep -rn 'implements\|extends\|: %s' .`, query)
	default:
		return fmt.Sprintf(`grep -rn %q .`, query)
	}
}
