package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

const (
	defaultMaxRelatedSymbols = 25
	defaultMaxRelatedDepth   = 2
)

// typeLikeKinds lists the SymbolKind values that count as types for
// getRelatedAPIs: classes, interfaces, enums, structs, type parameters,
// and namespaces. The traversal itself does not consult this set; it
// selects referenced types by semantic token type
// (typeDenotingTokenTypes).
var typeLikeKinds = map[protocol.SymbolKind]bool{
	protocol.Class:         true,
	protocol.Interface:     true,
	protocol.Enum:          true,
	protocol.Struct:        true,
	protocol.TypeParameter: true,
	protocol.Namespace:     true,
}

// semanticTokenTypeLegend mirrors the standard LSP token-type order
// (§3.16 of the LSP spec) that servers advertise in their
// capabilities; used to decode which semantic tokens denote a type.
var semanticTokenTypeLegend = []string{
	"namespace", "type", "class", "enum", "interface", "struct",
	"typeParameter", "parameter", "variable", "property", "enumMember",
	"event", "function", "method", "macro", "keyword", "modifier",
	"comment", "string", "number", "regexp", "operator", "decorator",
}

var typeDenotingTokenTypes = map[string]bool{
	"type": true, "class": true, "enum": true, "interface": true,
	"struct": true, "typeParameter": true, "namespace": true,
}

// wellKnownPlatformPrefixes skips traversal into the standard library
// and common vendored dependency directories, which would otherwise
// dominate a related-API report with noise.
var wellKnownPlatformPrefixes = []string{
	"/usr/lib/go", "/usr/local/go", "node_modules/", "/site-packages/",
	".cargo/registry", "vendor/",
}

// RelatedAPIsParams seeds getRelatedAPIs with symbol names to search
// for via workspace/symbol.
type RelatedAPIsParams struct {
	SymbolNames []string `json:"symbolNames"`
	Language    string   `json:"language,omitempty"`
	MaxSymbols  int      `json:"maxSymbols,omitempty"`
	Depth       int      `json:"depth,omitempty"`
}

type relatedAPI struct {
	Name     string
	Kind     protocol.SymbolKind
	Location protocol.Location
	Hover    string
}

// GetRelatedAPIs traverses workspace/symbol -> hover for each seed (no
// documentSymbol request is made), then walks semanticTokens/full +
// definition to
// discover referenced types, breadth-first up to Depth hops, and
// renders the result as a Markdown report.
func (r *Registry) GetRelatedAPIs(ctx context.Context, params RelatedAPIsParams) (string, error) {
	maxSymbols := params.MaxSymbols
	if maxSymbols <= 0 {
		maxSymbols = defaultMaxRelatedSymbols
	}
	depth := params.Depth
	if depth <= 0 {
		depth = defaultMaxRelatedDepth
	}

	var client relatedAPIsClient
	if params.Language != "" {
		c, err := r.clientForLanguage(ctx, params.Language)
		if err != nil {
			return "", err
		}
		client = c
	} else {
		for _, c := range r.allClients() {
			client = c
			break
		}
		if client == nil {
			return "", fmt.Errorf("getRelatedAPIs: no active language server")
		}
	}

	seen := make(map[string]bool) // definition-location dedup key
	var found []relatedAPI

	// First hop: resolve the seed names via workspace/symbol. Every
	// subsequent hop walks semantic tokens from the previous hop's
	// locations directly, since a definition location doesn't carry
	// its own symbol name for a second workspace/symbol query.
	var frontier []protocol.Location
	for _, name := range params.SymbolNames {
		syms, err := client.WorkspaceSymbols(ctx, name)
		if err != nil {
			continue
		}
		for _, sym := range syms {
			if addRelatedAPI(&found, seen, sym.Name, sym.Kind, sym.Location, ctx, client, maxSymbols) {
				frontier = append(frontier, sym.Location)
			}
		}
	}

	for d := 1; d < depth && len(found) < maxSymbols && len(frontier) > 0; d++ {
		var nextFrontier []protocol.Location
		for _, loc := range frontier {
			if len(found) >= maxSymbols {
				break
			}
			for _, ref := range referencedTypeLocations(ctx, client, loc) {
				if len(found) >= maxSymbols {
					break
				}
				name := typeNameAt(ctx, client, ref)
				if addRelatedAPI(&found, seen, name, 0, ref, ctx, client, maxSymbols) {
					nextFrontier = append(nextFrontier, ref)
				}
			}
		}
		frontier = nextFrontier
	}

	return renderRelatedAPIsReport(params.SymbolNames, found), nil
}

// addRelatedAPI records loc as a related API if it hasn't been seen
// and isn't under a well-known platform path, fetching a hover preview
// along the way. Returns whether it was newly added (and so should be
// traversed further).
func addRelatedAPI(found *[]relatedAPI, seen map[string]bool, name string, kind protocol.SymbolKind, loc protocol.Location, ctx context.Context, client relatedAPIsClient, maxSymbols int) bool {
	if len(*found) >= maxSymbols {
		return false
	}
	key := locationKey(loc)
	if seen[key] || isPlatformPath(uriToPath(loc.URI)) {
		return false
	}
	seen[key] = true

	hoverText := ""
	if hover, err := client.Hover(ctx, protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: loc.URI},
		Position:     loc.Range.Start,
	}); err == nil && hover != nil {
		hoverText = strings.TrimSpace(hover.Contents.Value)
	}
	*found = append(*found, relatedAPI{Name: name, Kind: kind, Location: loc, Hover: hoverText})
	return true
}

// typeNameAt extracts a best-effort symbol name for loc from its
// hover text's first line, since a raw definition location carries no
// name of its own.
func typeNameAt(ctx context.Context, client relatedAPIsClient, loc protocol.Location) string {
	hover, err := client.Hover(ctx, protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: loc.URI},
		Position:     loc.Range.Start,
	})
	if err != nil || hover == nil {
		return uriToPath(loc.URI)
	}
	lines := strings.SplitN(strings.TrimSpace(hover.Contents.Value), "\n", 2)
	return strings.TrimSpace(strings.Trim(lines[0], "`"))
}

// referencedTypeLocations decodes the semantic tokens of the file
// containing loc, keeping only type-denoting tokens, and resolves
// each to its definition location via textDocument/definition.
func referencedTypeLocations(ctx context.Context, client relatedAPIsClient, loc protocol.Location) []protocol.Location {
	tokens, err := client.SemanticTokens(ctx, protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: loc.URI},
	})
	if err != nil || tokens == nil || len(tokens.Data) == 0 {
		return nil
	}

	var locs []protocol.Location
	var line, char uint32
	for i := 0; i+5 <= len(tokens.Data); i += 5 {
		deltaLine, deltaStart, _, tokenType := tokens.Data[i], tokens.Data[i+1], tokens.Data[i+2], tokens.Data[i+3]
		if deltaLine > 0 {
			line += deltaLine
			char = deltaStart
		} else {
			char += deltaStart
		}
		if int(tokenType) >= len(semanticTokenTypeLegend) {
			continue
		}
		if !typeDenotingTokenTypes[semanticTokenTypeLegend[tokenType]] {
			continue
		}
		defs, err := client.Definition(ctx, protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: loc.URI},
			Position:     protocol.Position{Line: line, Character: char},
		})
		if err != nil || len(defs) == 0 {
			continue
		}
		locs = append(locs, defs[0])
	}
	return locs
}

func locationKey(l protocol.Location) string {
	return fmt.Sprintf("%s:%d:%d", l.URI, l.Range.Start.Line, l.Range.Start.Character)
}

func isPlatformPath(path string) bool {
	for _, prefix := range wellKnownPlatformPrefixes {
		if strings.Contains(path, prefix) {
			return true
		}
	}
	return false
}

func renderRelatedAPIsReport(seeds []string, found []relatedAPI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Related APIs for %s\n\n", strings.Join(seeds, ", "))
	if len(found) == 0 {
		b.WriteString("No related symbols found.\n")
		return b.String()
	}
	for _, api := range found {
		fmt.Fprintf(&b, "## %s\n\n", api.Name)
		fmt.Fprintf(&b, "- Kind: %d\n", api.Kind)
		fmt.Fprintf(&b, "- Location: %s:%d\n", api.Location.URI, api.Location.Range.Start.Line+1)
		if api.Hover != "" {
			fmt.Fprintf(&b, "\n%s\n", api.Hover)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// relatedAPIsClient is the subset of *lspclient.Client getRelatedAPIs needs.
type relatedAPIsClient interface {
	WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error)
	Hover(ctx context.Context, params protocol.TextDocumentPositionParams) (*protocol.Hover, error)
	SemanticTokens(ctx context.Context, params protocol.SemanticTokensParams) (*protocol.SemanticTokens, error)
	Definition(ctx context.Context, params protocol.TextDocumentPositionParams) ([]protocol.Location, error)
}
