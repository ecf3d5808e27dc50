package tools

import (
	"context"
	"fmt"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// UsageType selects which LSP mechanism findUsages uses.
type UsageType string

const (
	UsageReferences    UsageType = "references"
	UsageCallHierarchy UsageType = "callHierarchy"
)

// FindUsagesParams seeds one findUsages request.
type FindUsagesParams struct {
	FilePath           string    `json:"filePath"`
	Line               uint32    `json:"line"`
	Character          uint32    `json:"character"`
	Type               UsageType `json:"type"`
	IncludeDeclaration bool      `json:"includeDeclaration,omitempty"`
	MaxDepth           int       `json:"maxDepth,omitempty"`
	Direction          string    `json:"direction,omitempty"` // "incoming" | "outgoing" | "both", callHierarchy only
}

// CallNode is one frame of a call-hierarchy walk.
type CallNode struct {
	Item     protocol.CallHierarchyItem `json:"item"`
	Incoming []CallNode                 `json:"incoming,omitempty"`
	Outgoing []CallNode                 `json:"outgoing,omitempty"`
}

// FindUsagesResult is what a single findUsages call returns.
type FindUsagesResult struct {
	References []EnrichedLocation `json:"references,omitempty"`
	CallTree   []CallNode         `json:"callTree,omitempty"`
	Fallback   string             `json:"fallback,omitempty"`
}

const defaultMaxCallDepth = 5

// FindUsages dispatches to References or call-hierarchy traversal per
// params.Type.
func (r *Registry) FindUsages(ctx context.Context, params FindUsagesParams) (*FindUsagesResult, error) {
	path, err := absPath(params.FilePath)
	if err != nil {
		return nil, err
	}
	client, err := r.clientForFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := client.OpenFile(ctx, path, client.LanguageID()); err != nil {
		return nil, err
	}

	posParams := protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: pathToURI(path)},
		Position:     protocol.Position{Line: params.Line, Character: params.Character},
	}

	switch params.Type {
	case UsageCallHierarchy:
		return r.findCallHierarchy(ctx, client, posParams, params)
	case UsageReferences, "":
		locs, err := client.References(ctx, posParams, params.IncludeDeclaration)
		if err != nil {
			return &FindUsagesResult{Fallback: grepFallback("references", "")}, fmt.Errorf("references: %w", err)
		}
		result := &FindUsagesResult{References: enrich(locs)}
		if len(result.References) == 0 {
			result.Fallback = grepFallback("references", "")
		}
		return result, nil
	default:
		return nil, fmt.Errorf("findUsages: unknown type %q", params.Type)
	}
}

func (r *Registry) findCallHierarchy(ctx context.Context, client clientIface, posParams protocol.TextDocumentPositionParams, params FindUsagesParams) (*FindUsagesResult, error) {
	items, err := client.PrepareCallHierarchy(ctx, protocol.CallHierarchyPrepareParams{TextDocumentPositionParams: posParams})
	if err != nil {
		return &FindUsagesResult{Fallback: grepFallback("callHierarchy", "")}, fmt.Errorf("prepareCallHierarchy: %w", err)
	}
	if len(items) == 0 {
		return &FindUsagesResult{Fallback: grepFallback("callHierarchy", "")}, nil
	}

	maxDepth := params.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxCallDepth
	}

	want := func(dir string) bool {
		return params.Direction == "" || params.Direction == "both" || params.Direction == dir
	}

	seenIn := make(map[string]bool)
	seenOut := make(map[string]bool)
	var tree []CallNode
	for _, item := range items {
		node := CallNode{Item: item}
		if want("incoming") {
			node.Incoming = walkIncoming(ctx, client, item, maxDepth, seenIn)
		}
		if want("outgoing") {
			node.Outgoing = walkOutgoing(ctx, client, item, maxDepth, seenOut)
		}
		tree = append(tree, node)
	}
	return &FindUsagesResult{CallTree: tree}, nil
}

// clientIface is the subset of *lspclient.Client the call-hierarchy
// walk needs, narrowed so it's trivially testable with a fake.
type clientIface interface {
	PrepareCallHierarchy(ctx context.Context, params protocol.CallHierarchyPrepareParams) ([]protocol.CallHierarchyItem, error)
	IncomingCalls(ctx context.Context, item protocol.CallHierarchyItem) ([]protocol.CallHierarchyIncomingCall, error)
	OutgoingCalls(ctx context.Context, item protocol.CallHierarchyItem) ([]protocol.CallHierarchyOutgoingCall, error)
}

func callKey(uri protocol.DocumentUri, pos protocol.Position) string {
	return fmt.Sprintf("%s:%d:%d", uri, pos.Line, pos.Character)
}

// walkIncoming recurses callHierarchy/incomingCalls to depth maxDepth,
// deduplicating by (uri, selectionRange.start) across the whole walk
// so a cycle (recursive function calling itself) appears once without
// expanding infinitely.
func walkIncoming(ctx context.Context, client clientIface, item protocol.CallHierarchyItem, depth int, seen map[string]bool) []CallNode {
	key := callKey(item.URI, item.SelectionRange.Start)
	if depth <= 0 || seen[key] {
		return nil
	}
	seen[key] = true

	calls, err := client.IncomingCalls(ctx, item)
	if err != nil {
		return nil
	}
	var out []CallNode
	for _, call := range calls {
		node := CallNode{Item: call.From}
		node.Incoming = walkIncoming(ctx, client, call.From, depth-1, seen)
		out = append(out, node)
	}
	return out
}

func walkOutgoing(ctx context.Context, client clientIface, item protocol.CallHierarchyItem, depth int, seen map[string]bool) []CallNode {
	key := callKey(item.URI, item.SelectionRange.Start)
	if depth <= 0 || seen[key] {
		return nil
	}
	seen[key] = true

	calls, err := client.OutgoingCalls(ctx, item)
	if err != nil {
		return nil
	}
	var out []CallNode
	for _, call := range calls {
		node := CallNode{Item: call.To}
		node.Outgoing = walkOutgoing(ctx, client, call.To, depth-1, seen)
		out = append(out, node)
	}
	return out
}

// FindUsagesBatch runs FindUsages for every seed, streaming each
// completed result to onProgress as it finishes (best-effort,
// sequential — the language server itself is the serialization point
// for a given client).
func (r *Registry) FindUsagesBatch(ctx context.Context, batch []FindUsagesParams, onProgress func(int, *FindUsagesResult)) []*FindUsagesResult {
	out := make([]*FindUsagesResult, len(batch))
	for i, p := range batch {
		res, err := r.FindUsages(ctx, p)
		if err != nil && res == nil {
			res = &FindUsagesResult{Fallback: grepFallback(string(p.Type), p.FilePath)}
		}
		out[i] = res
		if onProgress != nil {
			onProgress(i, res)
		}
	}
	return out
}
