package tools

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// IntelligenceType selects which LSP request getCodeIntelligence issues.
type IntelligenceType string

const (
	IntelHover      IntelligenceType = "hover"
	IntelSignature  IntelligenceType = "signature"
	IntelCompletion IntelligenceType = "completion"
)

// CodeIntelligenceParams configures one getCodeIntelligence call.
type CodeIntelligenceParams struct {
	FilePath  string           `json:"filePath"`
	Line      uint32           `json:"line"`
	Character uint32           `json:"character"`
	Type      IntelligenceType `json:"type"`
}

// HoverResult splits a Markdown hover into its type-signature code
// block, prose documentation, and an example snippet if present.
type HoverResult struct {
	TypeSignature string `json:"typeSignature,omitempty"`
	Documentation string `json:"documentation,omitempty"`
	Example       string `json:"example,omitempty"`
}

// SignatureResult mirrors SignatureHelp but with each parameter's
// label resolved to a literal substring (servers sometimes send a
// [start,end) offset pair into Label instead of the text itself).
type SignatureResult struct {
	Label           string   `json:"label"`
	Parameters      []string `json:"parameters"`
	ActiveParameter int      `json:"activeParameter"`
}

// CompletionResult is the filtered, ranked completion list.
type CompletionResult struct {
	Items []protocol.CompletionItem `json:"items"`
}

// CodeIntelligenceResult is the union result of getCodeIntelligence.
type CodeIntelligenceResult struct {
	Hover      *HoverResult      `json:"hover,omitempty"`
	Signature  *SignatureResult  `json:"signature,omitempty"`
	Completion *CompletionResult `json:"completion,omitempty"`
}

var testUtilityPattern = regexp.MustCompile(`^(?i:test|mock|fake|stub|spec)[_A-Z]`)

// GetCodeIntelligence dispatches to hover, signature, or completion
// per params.Type. Hover and signature responses are cached per
// (uri, line, character); completion is never cached.
func (r *Registry) GetCodeIntelligence(ctx context.Context, params CodeIntelligenceParams) (*CodeIntelligenceResult, error) {
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
	case IntelHover:
		key := cacheKey("hover", path, params.Line, params.Character)
		if cached, ok := r.hoverCache.Get(key); ok {
			return &CodeIntelligenceResult{Hover: cached.(*HoverResult)}, nil
		}
		hover, err := client.Hover(ctx, posParams)
		if err != nil {
			return nil, fmt.Errorf("hover: %w", err)
		}
		if hover == nil {
			return &CodeIntelligenceResult{}, nil
		}
		result := parseHoverMarkdown(hover.Contents.Value)
		r.hoverCache.Set(key, result, string(pathToURI(path)))
		return &CodeIntelligenceResult{Hover: result}, nil

	case IntelSignature:
		key := cacheKey("sig", path, params.Line, params.Character)
		if cached, ok := r.hoverCache.Get(key); ok {
			return &CodeIntelligenceResult{Signature: cached.(*SignatureResult)}, nil
		}
		help, err := client.SignatureHelp(ctx, posParams)
		if err != nil {
			return nil, fmt.Errorf("signatureHelp: %w", err)
		}
		if help == nil || len(help.Signatures) == 0 {
			return &CodeIntelligenceResult{}, nil
		}
		idx := 0
		if help.ActiveSignature != nil && int(*help.ActiveSignature) < len(help.Signatures) {
			idx = int(*help.ActiveSignature)
		}
		sig := help.Signatures[idx]
		active := 0
		if sig.ActiveParameter != nil {
			active = int(*sig.ActiveParameter)
		} else if help.ActiveParameter != nil {
			active = int(*help.ActiveParameter)
		}
		result := &SignatureResult{
			Label:           sig.Label,
			Parameters:      resolveParameterLabels(sig),
			ActiveParameter: active,
		}
		r.hoverCache.Set(key, result, string(pathToURI(path)))
		return &CodeIntelligenceResult{Signature: result}, nil

	case IntelCompletion:
		list, err := client.Completion(ctx, protocol.CompletionParams{TextDocumentPositionParams: posParams})
		if err != nil {
			return nil, fmt.Errorf("completion: %w", err)
		}
		if list == nil {
			return &CodeIntelligenceResult{Completion: &CompletionResult{}}, nil
		}
		return &CodeIntelligenceResult{Completion: &CompletionResult{Items: filterAndRankCompletions(list.Items)}}, nil

	default:
		return nil, fmt.Errorf("getCodeIntelligence: unknown type %q", params.Type)
	}
}

// parseHoverMarkdown splits a Markdown hover body into a fenced code
// block (the type signature), an "Example" fenced block if present,
// and everything else as prose.
func parseHoverMarkdown(md string) *HoverResult {
	result := &HoverResult{}
	lines := strings.Split(md, "\n")

	var prose []string
	var inFence bool
	var fenceLines []string
	fenceCount := 0
	inExampleSection := false

	flushFence := func() {
		body := strings.Join(fenceLines, "\n")
		fenceLines = nil
		fenceCount++
		switch {
		case fenceCount == 1:
			result.TypeSignature = body
		case inExampleSection:
			result.Example = body
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				flushFence()
				inFence = false
			} else {
				inFence = true
			}
			continue
		}
		if inFence {
			fenceLines = append(fenceLines, line)
			continue
		}
		if strings.HasPrefix(strings.ToLower(trimmed), "example") {
			inExampleSection = true
			continue
		}
		if trimmed != "" {
			prose = append(prose, trimmed)
		}
	}
	result.Documentation = strings.Join(prose, "\n")
	return result
}

// resolveParameterLabels resolves each ParameterInformation.Label,
// which may be either the literal parameter text or a [start, end)
// offset pair into sig.Label, to its literal text.
func resolveParameterLabels(sig protocol.SignatureInformation) []string {
	out := make([]string, 0, len(sig.Parameters))
	for _, p := range sig.Parameters {
		switch v := p.Label.(type) {
		case string:
			out = append(out, v)
		case []interface{}:
			if len(v) == 2 {
				start, sok := toInt(v[0])
				end, eok := toInt(v[1])
				if sok && eok && start >= 0 && end <= len(sig.Label) && start <= end {
					out = append(out, sig.Label[start:end])
					continue
				}
			}
			out = append(out, fmt.Sprint(v))
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// completionKindPriority ranks CompletionItemKind; lower is better.
// Kinds not listed sort last.
var completionKindPriority = map[protocol.CompletionItemKind]int{
	2:  0, // Method
	3:  1, // Function
	10: 2, // Property
	5:  3, // Field
	6:  4, // Variable
	7:  5, // Class
	8:  6, // Interface
	9:  7, // Module
	21: 8, // Constant
}

func filterAndRankCompletions(items []protocol.CompletionItem) []protocol.CompletionItem {
	var kept []protocol.CompletionItem
	for _, it := range items {
		if it.Deprecated {
			continue
		}
		if strings.HasPrefix(it.Label, "_") || strings.HasPrefix(it.Label, "$") {
			continue
		}
		if testUtilityPattern.MatchString(it.Label) {
			continue
		}
		kept = append(kept, it)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		pi, oki := completionKindPriority[kept[i].Kind]
		pj, okj := completionKindPriority[kept[j].Kind]
		if !oki {
			pi = len(completionKindPriority)
		}
		if !okj {
			pj = len(completionKindPriority)
		}
		if pi != pj {
			return pi < pj
		}
		if kept[i].SortText != kept[j].SortText {
			return kept[i].SortText < kept[j].SortText
		}
		return kept[i].Label < kept[j].Label
	})
	return kept
}
