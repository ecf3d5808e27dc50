package lspclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

func TestNormalizeLocations_SingleLocation(t *testing.T) {
	raw := json.RawMessage(`{"uri":"file:///p/a.go","range":{"start":{"line":3,"character":1},"end":{"line":3,"character":5}}}`)
	locs, err := normalizeLocations(raw)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, protocol.DocumentUri("file:///p/a.go"), locs[0].URI)
	assert.Equal(t, uint32(3), locs[0].Range.Start.Line)
}

func TestNormalizeLocations_LocationList(t *testing.T) {
	raw := json.RawMessage(`[
		{"uri":"file:///p/a.go","range":{"start":{"line":1,"character":0},"end":{"line":1,"character":4}}},
		{"uri":"file:///p/b.go","range":{"start":{"line":2,"character":0},"end":{"line":2,"character":4}}}
	]`)
	locs, err := normalizeLocations(raw)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, protocol.DocumentUri("file:///p/b.go"), locs[1].URI)
}

func TestNormalizeLocations_LocationLinkList(t *testing.T) {
	raw := json.RawMessage(`[{
		"targetUri":"file:///p/types.ts",
		"targetRange":{"start":{"line":10,"character":0},"end":{"line":14,"character":1}},
		"targetSelectionRange":{"start":{"line":10,"character":17},"end":{"line":10,"character":21}}
	}]`)
	locs, err := normalizeLocations(raw)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, protocol.DocumentUri("file:///p/types.ts"), locs[0].URI)
	assert.Equal(t, uint32(17), locs[0].Range.Start.Character, "selection range wins over full range")
}

func TestNormalizeLocations_NullAndEmpty(t *testing.T) {
	locs, err := normalizeLocations(json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Empty(t, locs)

	locs, err = normalizeLocations(nil)
	require.NoError(t, err)
	assert.Empty(t, locs)

	locs, err = normalizeLocations(json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.Empty(t, locs)
}
