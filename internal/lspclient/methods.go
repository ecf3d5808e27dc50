package lspclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// Definition sends "textDocument/definition". Servers may reply with
// Location, []Location, or []LocationLink; all three are normalized to
// []Location here since the broker's navigate tool never needs the
// richer LocationLink origin-range data.
func (c *Client) Definition(ctx context.Context, params protocol.TextDocumentPositionParams) ([]protocol.Location, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "textDocument/definition", params, &raw); err != nil {
		return nil, err
	}
	return normalizeLocations(raw)
}

// TypeDefinition sends "textDocument/typeDefinition".
func (c *Client) TypeDefinition(ctx context.Context, params protocol.TextDocumentPositionParams) ([]protocol.Location, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "textDocument/typeDefinition", params, &raw); err != nil {
		return nil, err
	}
	return normalizeLocations(raw)
}

// Implementation sends "textDocument/implementation".
func (c *Client) Implementation(ctx context.Context, params protocol.TextDocumentPositionParams) ([]protocol.Location, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "textDocument/implementation", params, &raw); err != nil {
		return nil, err
	}
	return normalizeLocations(raw)
}

func normalizeLocations(raw json.RawMessage) ([]protocol.Location, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var single protocol.Location
	if err := json.Unmarshal(raw, &single); err == nil && single.URI != "" {
		return []protocol.Location{single}, nil
	}
	// A LocationLink array also decodes structurally into []Location
	// (unknown fields are ignored), so require a non-empty uri before
	// accepting the plain-Location shape.
	var list []protocol.Location
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0].URI != "" {
		return list, nil
	}
	var links []protocol.LocationLink
	if err := json.Unmarshal(raw, &links); err == nil {
		out := make([]protocol.Location, len(links))
		for i, l := range links {
			out[i] = protocol.Location{URI: l.TargetURI, Range: l.TargetSelectionRange}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unrecognized location response shape")
}

// References sends "textDocument/references".
func (c *Client) References(ctx context.Context, pos protocol.TextDocumentPositionParams, includeDeclaration bool) ([]protocol.Location, error) {
	params := protocol.ReferenceParams{
		TextDocumentPositionParams: pos,
		Context:                    protocol.ReferenceContext{IncludeDeclaration: includeDeclaration},
	}
	var result []protocol.Location
	if err := c.Call(ctx, "textDocument/references", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Hover sends "textDocument/hover".
func (c *Client) Hover(ctx context.Context, params protocol.TextDocumentPositionParams) (*protocol.Hover, error) {
	var result protocol.Hover
	raw := json.RawMessage{}
	if err := c.Call(ctx, "textDocument/hover", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SignatureHelp sends "textDocument/signatureHelp".
func (c *Client) SignatureHelp(ctx context.Context, params protocol.TextDocumentPositionParams) (*protocol.SignatureHelp, error) {
	var result protocol.SignatureHelp
	raw := json.RawMessage{}
	if err := c.Call(ctx, "textDocument/signatureHelp", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Completion sends "textDocument/completion".
func (c *Client) Completion(ctx context.Context, params protocol.CompletionParams) (*protocol.CompletionList, error) {
	raw := json.RawMessage{}
	if err := c.Call(ctx, "textDocument/completion", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return &protocol.CompletionList{}, nil
	}
	var list protocol.CompletionList
	if err := json.Unmarshal(raw, &list); err == nil && list.Items != nil {
		return &list, nil
	}
	var items []protocol.CompletionItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("unrecognized completion response shape: %w", err)
	}
	return &protocol.CompletionList{Items: items}, nil
}

// DocumentSymbols sends "textDocument/documentSymbol", preferring the
// hierarchical DocumentSymbol shape and falling back to the flat
// SymbolInformation shape for servers that don't support nesting.
func (c *Client) DocumentSymbols(ctx context.Context, params protocol.DocumentSymbolParams) ([]protocol.DocumentSymbol, []protocol.SymbolInformation, error) {
	raw := json.RawMessage{}
	if err := c.Call(ctx, "textDocument/documentSymbol", params, &raw); err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil, nil
	}
	var hierarchical []protocol.DocumentSymbol
	if err := json.Unmarshal(raw, &hierarchical); err == nil && len(hierarchical) > 0 {
		return hierarchical, nil, nil
	}
	var flat []protocol.SymbolInformation
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, nil, fmt.Errorf("unrecognized documentSymbol response shape: %w", err)
	}
	return nil, flat, nil
}

// WorkspaceSymbols sends "workspace/symbol".
func (c *Client) WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error) {
	raw := json.RawMessage{}
	if err := c.Call(ctx, "workspace/symbol", protocol.WorkspaceSymbolParams{Query: query}, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var result []protocol.SymbolInformation
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Rename sends "textDocument/rename".
func (c *Client) Rename(ctx context.Context, params protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	var result protocol.WorkspaceEdit
	if err := c.Call(ctx, "textDocument/rename", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CodeAction sends "textDocument/codeAction".
func (c *Client) CodeAction(ctx context.Context, params protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	raw := json.RawMessage{}
	if err := c.Call(ctx, "textDocument/codeAction", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var result []protocol.CodeAction
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CodeLens sends "textDocument/codeLens".
func (c *Client) CodeLens(ctx context.Context, params protocol.CodeLensParams) ([]protocol.CodeLens, error) {
	var result []protocol.CodeLens
	if err := c.Call(ctx, "textDocument/codeLens", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveCodeLens sends "codeLens/resolve" for a lens the server
// returned without a pre-attached Command.
func (c *Client) ResolveCodeLens(ctx context.Context, lens protocol.CodeLens) (protocol.CodeLens, error) {
	var result protocol.CodeLens
	if err := c.Call(ctx, "codeLens/resolve", lens, &result); err != nil {
		return protocol.CodeLens{}, err
	}
	return result, nil
}

// Formatting sends "textDocument/formatting".
func (c *Client) Formatting(ctx context.Context, params protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	var result []protocol.TextEdit
	if err := c.Call(ctx, "textDocument/formatting", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// RangeFormatting sends "textDocument/rangeFormatting".
func (c *Client) RangeFormatting(ctx context.Context, params protocol.DocumentRangeFormattingParams) ([]protocol.TextEdit, error) {
	var result []protocol.TextEdit
	if err := c.Call(ctx, "textDocument/rangeFormatting", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SemanticTokens sends "textDocument/semanticTokens/full".
func (c *Client) SemanticTokens(ctx context.Context, params protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	var result protocol.SemanticTokens
	if err := c.Call(ctx, "textDocument/semanticTokens/full", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExecuteCommand sends "workspace/executeCommand".
func (c *Client) ExecuteCommand(ctx context.Context, params protocol.ExecuteCommandParams) (interface{}, error) {
	var result interface{}
	if err := c.Call(ctx, "workspace/executeCommand", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// PrepareCallHierarchy sends "textDocument/prepareCallHierarchy".
func (c *Client) PrepareCallHierarchy(ctx context.Context, params protocol.CallHierarchyPrepareParams) ([]protocol.CallHierarchyItem, error) {
	var result []protocol.CallHierarchyItem
	if err := c.Call(ctx, "textDocument/prepareCallHierarchy", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// IncomingCalls sends "callHierarchy/incomingCalls".
func (c *Client) IncomingCalls(ctx context.Context, item protocol.CallHierarchyItem) ([]protocol.CallHierarchyIncomingCall, error) {
	var result []protocol.CallHierarchyIncomingCall
	params := protocol.CallHierarchyIncomingCallsParams{Item: item}
	if err := c.Call(ctx, "callHierarchy/incomingCalls", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// OutgoingCalls sends "callHierarchy/outgoingCalls".
func (c *Client) OutgoingCalls(ctx context.Context, item protocol.CallHierarchyItem) ([]protocol.CallHierarchyOutgoingCall, error) {
	var result []protocol.CallHierarchyOutgoingCall
	params := protocol.CallHierarchyOutgoingCallsParams{Item: item}
	if err := c.Call(ctx, "callHierarchy/outgoingCalls", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
