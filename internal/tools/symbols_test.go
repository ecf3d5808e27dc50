package tools

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

func sym(name string, kind protocol.SymbolKind) ScoredSymbol {
	return ScoredSymbol{Name: name, Kind: kind}
}

func names(symbols []ScoredSymbol) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = s.Name
	}
	return out
}

func TestScoreOne(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"getUserById", "getuserbyid", 100},
		{"getUserById", "getUser", 80},
		{"getUserById", "gUBI", 70},
		{"getUserById", "serBy", 50},
		{"getUserById", "zzz", 0},
		{"getUserById", "UBI", 65},
		{"HTTPClient", "httpc", 80},
		{"getProductInfo", "gUBI", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.query, func(t *testing.T) {
			got := scoreOne(tt.name, tt.query, foldCaser.String(tt.query))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCamelAbbreviation(t *testing.T) {
	assert.Equal(t, "gUBI", camelAbbreviation("getUserById"))
	assert.Equal(t, "HTTPC", camelAbbreviation("HTTPClient"))
	assert.Equal(t, "f", camelAbbreviation("foo"))
	assert.Equal(t, "", camelAbbreviation(""))
}

func TestRankSymbols_CamelAbbreviationBeatsNoMatch(t *testing.T) {
	raw := []ScoredSymbol{
		sym("getProductInfo", protocol.Function),
		sym("getUserById", protocol.Function),
	}
	got := rankSymbols(raw, "gUBI", []SymbolKindBucket{KindFunction}, 0)

	require.Len(t, got, 1)
	assert.Equal(t, "getUserById", got[0].Name)
	assert.Equal(t, protocol.Function, got[0].Kind)
}

func TestRankSymbols_ScoreOrdering(t *testing.T) {
	raw := []ScoredSymbol{
		sym("UserRepository", protocol.Class), // prefix (case-insensitive)
		sym("userName", protocol.Variable),    // prefix
		sym("User", protocol.Class),           // exact
	}
	got := rankSymbols(raw, "user", nil, 0)
	// The two prefix matches tie at 80 with no sortText, so the name
	// tie-break decides: "UserRepository" < "userName" byte-wise.
	assert.Equal(t, []string{"User", "UserRepository", "userName"}, names(got))
}

func TestRankSymbols_GlobPatterns(t *testing.T) {
	raw := []ScoredSymbol{
		sym("getUser", protocol.Function),
		sym("setUser", protocol.Function),
		sym("getProduct", protocol.Function),
	}

	got := rankSymbols(raw, "get*", nil, 0)
	assert.ElementsMatch(t, []string{"getUser", "getProduct"}, names(got))

	got = rankSymbols(raw, "*User", nil, 0)
	assert.ElementsMatch(t, []string{"getUser", "setUser"}, names(got))

	got = rankSymbols(raw, "*et*", nil, 0)
	assert.Len(t, got, 3)
}

func TestRankSymbols_KindBucketFiltering(t *testing.T) {
	raw := []ScoredSymbol{
		sym("Widget", protocol.Class),
		sym("Widget", protocol.Struct),
		sym("widgetCount", protocol.Variable),
		sym("WidgetKind", protocol.Enum),
		sym("widgetID", protocol.Field),
	}

	classes := rankSymbols(raw, "widget", []SymbolKindBucket{KindClass}, 0)
	require.Len(t, classes, 2, "class bucket covers Class and Struct")

	props := rankSymbols(raw, "widget", []SymbolKindBucket{KindProperty}, 0)
	require.Len(t, props, 1)
	assert.Equal(t, protocol.Field, props[0].Kind)
}

func TestRankSymbols_MaxResultsTruncates(t *testing.T) {
	raw := []ScoredSymbol{
		sym("alpha", protocol.Function),
		sym("alphaBeta", protocol.Function),
		sym("alphaGamma", protocol.Function),
	}
	got := rankSymbols(raw, "alpha", nil, 2)
	assert.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].Name, "exact match survives truncation")
}

func TestRankSymbols_OrderStableUnderPermutation(t *testing.T) {
	base := []ScoredSymbol{
		sym("User", protocol.Class),
		sym("userName", protocol.Variable),
		sym("UserRepository", protocol.Class),
		sym("getUser", protocol.Function),
		sym("setUserName", protocol.Method),
		sym("UserID", protocol.Field),
	}
	want := rankSymbols(append([]ScoredSymbol(nil), base...), "user", nil, 0)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]ScoredSymbol(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := rankSymbols(shuffled, "user", nil, 0)
		assert.Equal(t, names(want), names(got))
	}
}

func TestFlattenHierarchy(t *testing.T) {
	uri := protocol.DocumentUri("file:///p/a.ts")
	symbols := []protocol.DocumentSymbol{
		{
			Name: "UserService", Kind: protocol.Class,
			Children: []protocol.DocumentSymbol{
				{Name: "getUserById", Kind: protocol.Method},
				{
					Name: "cache", Kind: protocol.Field,
					Children: []protocol.DocumentSymbol{
						{Name: "entries", Kind: protocol.Field},
					},
				},
			},
		},
	}
	got := flattenHierarchy(symbols, "", 0, uri)

	require.Len(t, got, 4)
	assert.Equal(t, "UserService", got[0].Name)
	assert.Equal(t, "", got[0].ContainerName)
	assert.Equal(t, "getUserById", got[1].Name)
	assert.Equal(t, "UserService", got[1].ContainerName)
	assert.Equal(t, "entries", got[3].Name)
	assert.Equal(t, "UserService.cache", got[3].ContainerName)
	for _, s := range got {
		assert.Equal(t, uri, s.Location.URI)
	}
}

func TestCompileGlobPattern_RejectsOverlongPattern(t *testing.T) {
	long := make([]byte, maxPatternLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := compileGlobPattern(string(long) + "*")
	assert.Error(t, err)
}
