package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

func docSym(name string, kind protocol.SymbolKind, startLine, endLine uint32, children ...protocol.DocumentSymbol) protocol.DocumentSymbol {
	return protocol.DocumentSymbol{
		Name: name, Kind: kind,
		Range: protocol.Range{
			Start: protocol.Position{Line: startLine},
			End:   protocol.Position{Line: endLine, Character: 1},
		},
		SelectionRange: protocol.Range{
			Start: protocol.Position{Line: startLine},
			End:   protocol.Position{Line: startLine, Character: uint32(len(name))},
		},
		Children: children,
	}
}

func TestRangeContains(t *testing.T) {
	r := protocol.Range{
		Start: protocol.Position{Line: 2, Character: 4},
		End:   protocol.Position{Line: 5, Character: 1},
	}
	assert.True(t, rangeContains(r, protocol.Position{Line: 3, Character: 0}))
	assert.True(t, rangeContains(r, protocol.Position{Line: 2, Character: 4}))
	assert.True(t, rangeContains(r, protocol.Position{Line: 5, Character: 1}))
	assert.False(t, rangeContains(r, protocol.Position{Line: 2, Character: 3}))
	assert.False(t, rangeContains(r, protocol.Position{Line: 5, Character: 2}))
	assert.False(t, rangeContains(r, protocol.Position{Line: 6, Character: 0}))
}

func TestFindContainerAndSiblings(t *testing.T) {
	symbols := []protocol.DocumentSymbol{
		docSym("UserService", protocol.Class, 0, 30,
			docSym("getUser", protocol.Method, 2, 8),
			docSym("putUser", protocol.Method, 10, 16),
			docSym("deleteUser", protocol.Method, 18, 24),
		),
	}

	container, siblings := findContainerAndSiblings(symbols, "", protocol.Position{Line: 12, Character: 0})
	assert.Equal(t, "UserService", container)

	names := make([]string, len(siblings))
	for i, s := range siblings {
		names[i] = s.Name
	}
	assert.ElementsMatch(t, []string{"getUser", "deleteUser"}, names)
}

func TestFindContainerAndSiblings_NestedContainers(t *testing.T) {
	symbols := []protocol.DocumentSymbol{
		docSym("Outer", protocol.Class, 0, 40,
			docSym("Inner", protocol.Class, 5, 30,
				docSym("method", protocol.Method, 10, 12),
				docSym("other", protocol.Method, 14, 16),
			),
		),
	}

	container, siblings := findContainerAndSiblings(symbols, "", protocol.Position{Line: 11, Character: 0})
	assert.Equal(t, "Outer.Inner", container)
	require.Len(t, siblings, 1)
	assert.Equal(t, "other", siblings[0].Name)
}

func TestFindContainerAndSiblings_PositionOutsideEverySymbol(t *testing.T) {
	symbols := []protocol.DocumentSymbol{docSym("f", protocol.Function, 0, 2)}
	container, siblings := findContainerAndSiblings(symbols, "", protocol.Position{Line: 50, Character: 0})
	assert.Empty(t, container)
	assert.Nil(t, siblings)
}

type fakeDocSymbolClient struct {
	symbols []protocol.DocumentSymbol
}

func (f *fakeDocSymbolClient) DocumentSymbols(ctx context.Context, params protocol.DocumentSymbolParams) ([]protocol.DocumentSymbol, []protocol.SymbolInformation, error) {
	return f.symbols, nil, nil
}

func TestDocumentContext_SiblingsCarrySnippets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svc.go")
	content := "type Svc struct{}\n\nfunc (s Svc) A() int {\n\treturn 1\n}\n\nfunc (s Svc) B() int {\n\treturn 2\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	fake := &fakeDocSymbolClient{symbols: []protocol.DocumentSymbol{
		docSym("Svc", protocol.Struct, 0, 8,
			docSym("A", protocol.Method, 2, 4),
			docSym("B", protocol.Method, 6, 8),
		),
	}}

	container, siblings, err := documentContext(context.Background(), fake, "file://"+protocol.DocumentUri(path), path, 3, 1)
	require.NoError(t, err)

	assert.Equal(t, "Svc", container)
	require.Len(t, siblings, 1)
	assert.Equal(t, "B", siblings[0].Name)
	assert.Contains(t, siblings[0].Snippet, "func (s Svc) B() int {")
}
