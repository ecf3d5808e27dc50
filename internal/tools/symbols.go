package tools

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// foldCaser performs Unicode-aware case folding (not just ASCII
// lower-casing) so names with non-ASCII letters still match
// case-insensitively, e.g. Turkish dotless "ı" or German "ß" expansion.
var foldCaser = cases.Fold()

// SymbolScope selects where findSymbols searches.
type SymbolScope string

const (
	ScopeDocument  SymbolScope = "document"
	ScopeWorkspace SymbolScope = "workspace"
)

// SymbolKindBucket groups related LSP SymbolKind values under one
// user-facing filter name.
type SymbolKindBucket string

const (
	KindFunction  SymbolKindBucket = "function"
	KindClass     SymbolKindBucket = "class"
	KindInterface SymbolKindBucket = "interface"
	KindVariable  SymbolKindBucket = "variable"
	KindConstant  SymbolKindBucket = "constant"
	KindMethod    SymbolKindBucket = "method"
	KindProperty  SymbolKindBucket = "property"
	KindEnum      SymbolKindBucket = "enum"
)

var kindBuckets = map[SymbolKindBucket][]protocol.SymbolKind{
	KindFunction:  {protocol.Function, protocol.Constructor},
	KindClass:     {protocol.Class, protocol.Struct},
	KindInterface: {protocol.Interface},
	KindVariable:  {protocol.Variable},
	KindConstant:  {protocol.Constant},
	KindMethod:    {protocol.Method},
	KindProperty:  {protocol.Property, protocol.Field},
	KindEnum:      {protocol.Enum, protocol.EnumMember},
}

const maxFlattenDepth = 10

// FindSymbolsParams configures one findSymbols call.
type FindSymbolsParams struct {
	Query      string             `json:"query"`
	Scope      SymbolScope        `json:"scope"`
	FilePath   string             `json:"filePath,omitempty"`
	Kinds      []SymbolKindBucket `json:"kinds,omitempty"`
	MaxResults int                `json:"maxResults,omitempty"`
}

// ScoredSymbol is one findSymbols hit with its computed relevance score.
type ScoredSymbol struct {
	Name          string              `json:"name"`
	Kind          protocol.SymbolKind `json:"kind"`
	ContainerName string              `json:"containerName,omitempty"`
	Location      protocol.Location   `json:"location"`
	Score         int                 `json:"score"`
	SortText      string              `json:"-"`
}

const maxQueryLength = 512

// FindSymbols implements the scope-switched document/workspace symbol
// search, single-pass scoring, kind-bucket filtering, and deterministic
// tie-break ordering described for the tool layer.
func (r *Registry) FindSymbols(ctx context.Context, params FindSymbolsParams) ([]ScoredSymbol, error) {
	if len(params.Query) > maxQueryLength {
		return nil, fmt.Errorf("findSymbols: query exceeds maximum length of %d", maxQueryLength)
	}

	key := cacheKey("sym", params.Scope, params.FilePath, params.Query, params.Kinds, params.MaxResults)
	if cached, ok := r.symCache.Get(key); ok {
		return cached.([]ScoredSymbol), nil
	}

	var raw []ScoredSymbol
	var depFile string

	switch params.Scope {
	case ScopeDocument:
		if params.FilePath == "" {
			return nil, fmt.Errorf("findSymbols: filePath is required for document scope")
		}
		path, err := absPath(params.FilePath)
		if err != nil {
			return nil, err
		}
		depFile = string(pathToURI(path))
		client, err := r.clientForFile(ctx, path)
		if err != nil {
			return nil, err
		}
		if err := client.OpenFile(ctx, path, client.LanguageID()); err != nil {
			return nil, err
		}
		hier, flat, err := client.DocumentSymbols(ctx, protocol.DocumentSymbolParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: pathToURI(path)},
		})
		if err != nil {
			return nil, fmt.Errorf("documentSymbol: %w", err)
		}
		if hier != nil {
			raw = flattenHierarchy(hier, "", 0, pathToURI(path))
		} else {
			for _, s := range flat {
				raw = append(raw, ScoredSymbol{Name: s.Name, Kind: s.Kind, ContainerName: s.ContainerName, Location: s.Location})
			}
		}

	case ScopeWorkspace:
		client, err := r.anyClient(ctx)
		if err != nil {
			return nil, err
		}
		results, err := client.WorkspaceSymbols(ctx, params.Query)
		if err != nil {
			return nil, fmt.Errorf("workspace/symbol: %w", err)
		}
		for _, s := range results {
			raw = append(raw, ScoredSymbol{Name: s.Name, Kind: s.Kind, ContainerName: s.ContainerName, Location: s.Location})
		}

	default:
		return nil, fmt.Errorf("findSymbols: unknown scope %q", params.Scope)
	}

	scored := rankSymbols(raw, params.Query, params.Kinds, params.MaxResults)

	if depFile != "" {
		r.symCache.Set(key, scored, depFile)
	} else {
		r.symCache.Set(key, scored)
	}
	return scored, nil
}

func (r *Registry) anyClient(ctx context.Context) (clientForSymbols, error) {
	for _, c := range r.allClients() {
		return c, nil
	}
	return nil, fmt.Errorf("findSymbols: no active language server")
}

type clientForSymbols interface {
	WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error)
}

func flattenHierarchy(symbols []protocol.DocumentSymbol, container string, depth int, uri protocol.DocumentUri) []ScoredSymbol {
	if depth > maxFlattenDepth {
		return nil
	}
	var out []ScoredSymbol
	for _, s := range symbols {
		out = append(out, ScoredSymbol{
			Name:          s.Name,
			Kind:          s.Kind,
			ContainerName: container,
			Location:      protocol.Location{URI: uri, Range: s.Range},
		})
		if len(s.Children) > 0 {
			childContainer := s.Name
			if container != "" {
				childContainer = container + "." + s.Name
			}
			out = append(out, flattenHierarchy(s.Children, childContainer, depth+1, uri)...)
		}
	}
	return out
}

// rankSymbols is the single client-side post-processing pass over raw
// server results: score against query, filter by kind bucket, order by
// score descending with deterministic sortText/name tie-breaks, and
// truncate to maxResults. The ordering is a total order over the
// surviving symbols, so any permutation of raw yields the same output.
func rankSymbols(raw []ScoredSymbol, query string, kinds []SymbolKindBucket, maxResults int) []ScoredSymbol {
	scored := scoreSymbols(raw, query)
	scored = filterByKind(scored, kinds)

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].SortText != scored[j].SortText {
			return scored[i].SortText < scored[j].SortText
		}
		return scored[i].Name < scored[j].Name
	})

	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored
}

// scoreSymbols applies the single client-side scoring pass: a
// `*`-pattern short-circuits into a compiled regex match, otherwise
// exact-case-insensitive (100) > prefix (80) > camelCase-abbreviation
// (70 equal / 65 containing) > substring (50) > 0 (dropped).
func scoreSymbols(symbols []ScoredSymbol, query string) []ScoredSymbol {
	if query == "" {
		for i := range symbols {
			symbols[i].Score = 100
		}
		return symbols
	}

	if strings.Contains(query, "*") {
		re, err := compileGlobPattern(query)
		if err == nil {
			var out []ScoredSymbol
			for _, s := range symbols {
				if re.MatchString(s.Name) {
					s.Score = 100
					out = append(out, s)
				}
			}
			return out
		}
	}

	lowerQuery := foldCaser.String(query)
	var out []ScoredSymbol
	for _, s := range symbols {
		s.Score = scoreOne(s.Name, query, lowerQuery)
		if s.Score > 0 {
			out = append(out, s)
		}
	}
	return out
}

func scoreOne(name, query, lowerQuery string) int {
	lowerName := foldCaser.String(name)
	switch {
	case lowerName == lowerQuery:
		return 100
	case strings.HasPrefix(lowerName, lowerQuery):
		return 80
	}

	abbrev := camelAbbreviation(name)
	lowerAbbrev := foldCaser.String(abbrev)
	switch {
	case lowerAbbrev == lowerQuery:
		return 70
	case strings.Contains(lowerAbbrev, lowerQuery):
		return 65
	}

	if strings.Contains(lowerName, lowerQuery) {
		return 50
	}
	return 0
}

// camelAbbreviation is the concatenation of a name's capital letters,
// optionally prefixed by its own first letter (covers both
// "HTTPClient" -> "HC" and "getUserID" -> "gUID" style abbreviations).
func camelAbbreviation(name string) string {
	var b strings.Builder
	runes := []rune(name)
	if len(runes) > 0 {
		b.WriteRune(runes[0])
	}
	for i, r := range runes {
		if i == 0 {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

const maxPatternLength = 256

func compileGlobPattern(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > maxPatternLength {
		return nil, fmt.Errorf("pattern exceeds maximum length of %d", maxPatternLength)
	}
	var sb strings.Builder
	sb.WriteString("(?i)^")
	for _, r := range pattern {
		if r == '*' {
			sb.WriteString(".*")
		} else {
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

func filterByKind(symbols []ScoredSymbol, kinds []SymbolKindBucket) []ScoredSymbol {
	if len(kinds) == 0 {
		return symbols
	}
	allowed := make(map[protocol.SymbolKind]bool)
	for _, bucket := range kinds {
		for _, k := range kindBuckets[bucket] {
			allowed[k] = true
		}
	}
	var out []ScoredSymbol
	for _, s := range symbols {
		if allowed[s.Kind] {
			out = append(out, s)
		}
	}
	return out
}
