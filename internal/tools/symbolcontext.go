package tools

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

const siblingSnippetMaxLines = 6

// SymbolContextParams locates the symbol at (FilePath, Line,
// Character) and controls how far the call-hierarchy portion walks.
type SymbolContextParams struct {
	FilePath          string `json:"filePath"`
	Line              uint32 `json:"line"`
	Character         uint32 `json:"character"`
	IncludeHierarchy  bool   `json:"includeHierarchy,omitempty"`
	MaxHierarchyDepth int    `json:"maxHierarchyDepth,omitempty"`
}

// SiblingSymbol is a document symbol next to the target, with a short
// source snippet.
type SiblingSymbol struct {
	Name    string              `json:"name"`
	Kind    protocol.SymbolKind `json:"kind"`
	Snippet string              `json:"snippet,omitempty"`
}

// SymbolContextResult is the allSettled-style aggregate getSymbolContext
// returns: every field is independently populated or left zero if its
// subrequest failed.
type SymbolContextResult struct {
	Hover         *HoverResult       `json:"hover,omitempty"`
	Signature     *SignatureResult   `json:"signature,omitempty"`
	References    []EnrichedLocation `json:"references,omitempty"`
	Container     string             `json:"container,omitempty"`
	Siblings      []SiblingSymbol    `json:"siblings,omitempty"`
	IncomingCalls []CallNode         `json:"incomingCalls,omitempty"`
	OutgoingCalls []CallNode         `json:"outgoingCalls,omitempty"`
	Errors        map[string]string  `json:"errors,omitempty"`
}

// GetSymbolContext fans out hover, signatureHelp, references,
// documentSymbol, and (optionally) callHierarchy concurrently. Each
// subrequest's failure is recorded in Errors rather than failing the
// whole call.
func (r *Registry) GetSymbolContext(ctx context.Context, params SymbolContextParams) (*SymbolContextResult, error) {
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

	uri := pathToURI(path)
	posParams := protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     protocol.Position{Line: params.Line, Character: params.Character},
	}

	result := &SymbolContextResult{Errors: make(map[string]string)}
	var mu sync.Mutex
	recordErr := func(name string, err error) {
		mu.Lock()
		result.Errors[name] = err.Error()
		mu.Unlock()
	}

	// Every subrequest is independent and allSettled-style: a failure is
	// recorded in result.Errors rather than aborting the others, so the
	// group's own error return is never used and is always nil.
	var g errgroup.Group

	g.Go(func() error {
		hover, err := client.Hover(ctx, posParams)
		if err != nil {
			recordErr("hover", err)
			return nil
		}
		if hover != nil {
			h := parseHoverMarkdown(hover.Contents.Value)
			mu.Lock()
			result.Hover = h
			mu.Unlock()
		}
		return nil
	})

	g.Go(func() error {
		help, err := client.SignatureHelp(ctx, posParams)
		if err != nil {
			recordErr("signature", err)
			return nil
		}
		if help != nil && len(help.Signatures) > 0 {
			idx := 0
			if help.ActiveSignature != nil && int(*help.ActiveSignature) < len(help.Signatures) {
				idx = int(*help.ActiveSignature)
			}
			sig := help.Signatures[idx]
			mu.Lock()
			result.Signature = &SignatureResult{Label: sig.Label, Parameters: resolveParameterLabels(sig)}
			mu.Unlock()
		}
		return nil
	})

	g.Go(func() error {
		locs, err := client.References(ctx, posParams, false)
		if err != nil {
			recordErr("references", err)
			return nil
		}
		enriched := enrich(locs)
		sortByRelevance(enriched, uri)
		mu.Lock()
		result.References = enriched
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		container, siblings, err := documentContext(ctx, client, uri, path, params.Line, params.Character)
		if err != nil {
			recordErr("documentSymbol", err)
			return nil
		}
		mu.Lock()
		result.Container = container
		result.Siblings = siblings
		mu.Unlock()
		return nil
	})

	if params.IncludeHierarchy {
		g.Go(func() error {
			items, err := client.PrepareCallHierarchy(ctx, protocol.CallHierarchyPrepareParams{TextDocumentPositionParams: posParams})
			if err != nil {
				recordErr("callHierarchy", err)
				return nil
			}
			if len(items) == 0 {
				return nil
			}
			depth := params.MaxHierarchyDepth
			if depth <= 0 {
				depth = defaultMaxCallDepth
			}
			seenIn := make(map[string]bool)
			seenOut := make(map[string]bool)
			var in, out []CallNode
			for _, item := range items {
				in = append(in, walkIncoming(ctx, client, item, depth, seenIn)...)
				out = append(out, walkOutgoing(ctx, client, item, depth, seenOut)...)
			}
			mu.Lock()
			result.IncomingCalls = in
			result.OutgoingCalls = out
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}

// documentContext finds the document symbol containing (line,
// character) and returns its container's dotted name plus its
// sibling symbols (other children of the same parent) with snippets.
func documentContext(ctx context.Context, client documentSymbolClient, uri protocol.DocumentUri, path string, line, character uint32) (string, []SiblingSymbol, error) {
	hier, _, err := client.DocumentSymbols(ctx, protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	if err != nil {
		return "", nil, err
	}

	container, siblings := findContainerAndSiblings(hier, "", protocol.Position{Line: line, Character: character})
	out := make([]SiblingSymbol, 0, len(siblings))
	for _, s := range siblings {
		out = append(out, SiblingSymbol{
			Name:    s.Name,
			Kind:    s.Kind,
			Snippet: lineRangeSnippet(path, s.Range.Start.Line, s.Range.End.Line, siblingSnippetMaxLines),
		})
	}
	return container, out, nil
}

type documentSymbolClient interface {
	DocumentSymbols(ctx context.Context, params protocol.DocumentSymbolParams) ([]protocol.DocumentSymbol, []protocol.SymbolInformation, error)
}

// findContainerAndSiblings walks the hierarchy looking for the
// smallest symbol whose range contains pos, returning its parent's
// dotted container name and the parent's other children.
func findContainerAndSiblings(symbols []protocol.DocumentSymbol, containerName string, pos protocol.Position) (string, []protocol.DocumentSymbol) {
	for _, s := range symbols {
		if !rangeContains(s.Range, pos) {
			continue
		}
		if len(s.Children) > 0 {
			if name, siblings := findContainerAndSiblings(s.Children, dotJoin(containerName, s.Name), pos); siblings != nil || name != "" {
				return name, siblings
			}
		}
		return containerName, otherChildren(symbols, s.Name)
	}
	return "", nil
}

func otherChildren(symbols []protocol.DocumentSymbol, exclude string) []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol
	for _, s := range symbols {
		if s.Name != exclude {
			out = append(out, s)
		}
	}
	return out
}

func dotJoin(container, name string) string {
	if container == "" {
		return name
	}
	return container + "." + name
}

func rangeContains(r protocol.Range, p protocol.Position) bool {
	if p.Line < r.Start.Line || p.Line > r.End.Line {
		return false
	}
	if p.Line == r.Start.Line && p.Character < r.Start.Character {
		return false
	}
	if p.Line == r.End.Line && p.Character > r.End.Character {
		return false
	}
	return true
}
