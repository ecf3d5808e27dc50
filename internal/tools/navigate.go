package tools

import (
	"context"
	"fmt"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// NavigateTarget selects which LSP request navigate issues.
type NavigateTarget string

const (
	TargetDefinition     NavigateTarget = "definition"
	TargetImplementation NavigateTarget = "implementation"
	TargetTypeDefinition NavigateTarget = "typeDefinition"
)

// NavigateParams is one seed position to navigate from. FilePath,
// Line, and Character are 0-based except FilePath itself.
type NavigateParams struct {
	FilePath  string         `json:"filePath"`
	Line      uint32         `json:"line"`
	Character uint32         `json:"character"`
	Target    NavigateTarget `json:"target"`
	MaxResults int           `json:"maxResults,omitempty"`
}

// NavigateResult is what a single navigate call returns.
type NavigateResult struct {
	Locations []EnrichedLocation `json:"locations"`
	Fallback  string             `json:"fallback,omitempty"`
}

// Navigate issues the LSP request matching params.Target, normalizes
// the reply, enriches it with a one-line preview, sorts by relevance
// to the source file, and truncates to MaxResults.
func (r *Registry) Navigate(ctx context.Context, params NavigateParams) (*NavigateResult, error) {
	if params.Target == "" {
		return nil, fmt.Errorf("navigate: target is required")
	}
	path, err := absPath(params.FilePath)
	if err != nil {
		return nil, err
	}

	key := cacheKey("nav", path, params.Line, params.Character, params.Target)
	if cached, ok := r.navCache.Get(key); ok {
		return cached.(*NavigateResult), nil
	}

	client, err := r.clientForFile(ctx, path)
	if err != nil {
		return nil, err
	}
	langID := client.LanguageID()
	if err := client.OpenFile(ctx, path, langID); err != nil {
		return nil, err
	}

	posParams := protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: pathToURI(path)},
		Position:     protocol.Position{Line: params.Line, Character: params.Character},
	}

	var locs []protocol.Location
	switch params.Target {
	case TargetDefinition:
		locs, err = client.Definition(ctx, posParams)
	case TargetImplementation:
		locs, err = client.Implementation(ctx, posParams)
	case TargetTypeDefinition:
		locs, err = client.TypeDefinition(ctx, posParams)
	default:
		return nil, fmt.Errorf("navigate: unknown target %q", params.Target)
	}
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", params.Target, err)
	}

	result := &NavigateResult{Locations: enrich(locs)}
	sortByRelevance(result.Locations, pathToURI(path))
	if params.MaxResults > 0 && len(result.Locations) > params.MaxResults {
		result.Locations = result.Locations[:params.MaxResults]
	}
	if len(result.Locations) == 0 {
		result.Fallback = grepFallback(string(params.Target), "")
	}

	r.navCache.Set(key, result, string(pathToURI(path)))
	return result, nil
}

// NavigateBatch runs Navigate for every seed in batch, preserving
// order; a single seed's failure does not abort the others.
func (r *Registry) NavigateBatch(ctx context.Context, batch []NavigateParams) []*NavigateResult {
	out := make([]*NavigateResult, len(batch))
	for i, p := range batch {
		res, err := r.Navigate(ctx, p)
		if err != nil {
			out[i] = &NavigateResult{Fallback: grepFallback(string(p.Target), p.FilePath)}
			continue
		}
		out[i] = res
	}
	return out
}
