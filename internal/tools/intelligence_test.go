package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

func TestParseHoverMarkdown_SplitsSignatureProseAndExample(t *testing.T) {
	md := "```go\nfunc GetUser(id string) (*User, error)\n```\n" +
		"GetUser looks a user up by id.\n" +
		"\n" +
		"Example:\n" +
		"```go\nu, err := GetUser(\"42\")\n```\n"

	got := parseHoverMarkdown(md)
	assert.Equal(t, "func GetUser(id string) (*User, error)", got.TypeSignature)
	assert.Equal(t, "GetUser looks a user up by id.", got.Documentation)
	assert.Equal(t, "u, err := GetUser(\"42\")", got.Example)
}

func TestParseHoverMarkdown_ProseOnly(t *testing.T) {
	got := parseHoverMarkdown("Just documentation.\nTwo lines of it.")
	assert.Empty(t, got.TypeSignature)
	assert.Equal(t, "Just documentation.\nTwo lines of it.", got.Documentation)
	assert.Empty(t, got.Example)
}

func TestParseHoverMarkdown_SignatureOnly(t *testing.T) {
	got := parseHoverMarkdown("```typescript\nconst x: number\n```")
	assert.Equal(t, "const x: number", got.TypeSignature)
	assert.Empty(t, got.Documentation)
}

func TestResolveParameterLabels(t *testing.T) {
	sig := protocol.SignatureInformation{
		Label: "connect(host string, port int)",
		Parameters: []protocol.ParameterInformation{
			{Label: "host string"},
			// Offset pair into Label, the way it arrives after JSON
			// decoding (numbers become float64).
			{Label: []interface{}{float64(21), float64(29)}},
		},
	}
	got := resolveParameterLabels(sig)
	require.Len(t, got, 2)
	assert.Equal(t, "host string", got[0])
	assert.Equal(t, "port int", got[1])
}

func TestResolveParameterLabels_OutOfBoundsOffsetFallsBack(t *testing.T) {
	sig := protocol.SignatureInformation{
		Label:      "f(x)",
		Parameters: []protocol.ParameterInformation{{Label: []interface{}{float64(2), float64(99)}}},
	}
	got := resolveParameterLabels(sig)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0])
}

func TestFilterAndRankCompletions_DropsNoiseItems(t *testing.T) {
	items := []protocol.CompletionItem{
		{Label: "getUser", Kind: 3},
		{Label: "_internal", Kind: 3},
		{Label: "$anchor", Kind: 3},
		{Label: "oldAPI", Kind: 3, Deprecated: true},
		{Label: "mockServer", Kind: 3},
		{Label: "testing", Kind: 3}, // lowercase continuation, not a test utility prefix
	}
	got := filterAndRankCompletions(items)

	labels := make([]string, len(got))
	for i, it := range got {
		labels[i] = it.Label
	}
	assert.ElementsMatch(t, []string{"getUser", "testing"}, labels)
}

func TestFilterAndRankCompletions_RanksByKindPriority(t *testing.T) {
	items := []protocol.CompletionItem{
		{Label: "SomeClass", Kind: 7},
		{Label: "someVar", Kind: 6},
		{Label: "doThing", Kind: 3},  // function
		{Label: "method", Kind: 2},   // method
		{Label: "oddball", Kind: 15}, // unlisted kind sorts last
	}
	got := filterAndRankCompletions(items)

	require.Len(t, got, 5)
	assert.Equal(t, "method", got[0].Label)
	assert.Equal(t, "doThing", got[1].Label)
	assert.Equal(t, "oddball", got[4].Label)
}

func TestFilterAndRankCompletions_SortTextBreaksTies(t *testing.T) {
	items := []protocol.CompletionItem{
		{Label: "zeta", Kind: 3, SortText: "0002"},
		{Label: "alpha", Kind: 3, SortText: "0001"},
	}
	got := filterAndRankCompletions(items)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].Label)
}
