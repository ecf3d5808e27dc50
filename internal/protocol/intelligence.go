package protocol

// Hover is the payload returned by "textDocument/hover".
type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

// ParameterInformation describes one parameter of a SignatureInformation.
type ParameterInformation struct {
	Label         interface{}    `json:"label"`
	Documentation *MarkupContent `json:"documentation,omitempty"`
}

// SignatureInformation describes one overload in a SignatureHelp result.
type SignatureInformation struct {
	Label           string                 `json:"label"`
	Documentation   *MarkupContent         `json:"documentation,omitempty"`
	Parameters      []ParameterInformation `json:"parameters,omitempty"`
	ActiveParameter *uint32                `json:"activeParameter,omitempty"`
}

// SignatureHelp is the payload returned by "textDocument/signatureHelp".
type SignatureHelp struct {
	Signatures      []SignatureInformation `json:"signatures"`
	ActiveSignature *uint32                `json:"activeSignature,omitempty"`
	ActiveParameter *uint32                `json:"activeParameter,omitempty"`
}

// CompletionItemKind enumerates the icon/category of a completion item.
type CompletionItemKind int

// CompletionItem is one entry of a completion list.
type CompletionItem struct {
	Label            string              `json:"label"`
	Kind             CompletionItemKind  `json:"kind,omitempty"`
	Detail           string              `json:"detail,omitempty"`
	Documentation    *MarkupContent      `json:"documentation,omitempty"`
	SortText         string              `json:"sortText,omitempty"`
	FilterText       string              `json:"filterText,omitempty"`
	InsertText       string              `json:"insertText,omitempty"`
	TextEdit         *TextEdit           `json:"textEdit,omitempty"`
	Deprecated       bool                `json:"deprecated,omitempty"`
}

// CompletionList is the payload returned by "textDocument/completion".
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

// CompletionParams is the payload of "textDocument/completion".
type CompletionParams struct {
	TextDocumentPositionParams
	Context *CompletionContext `json:"context,omitempty"`
}

// CompletionContext tells the server how completion was triggered.
type CompletionContext struct {
	TriggerKind      int     `json:"triggerKind"`
	TriggerCharacter *string `json:"triggerCharacter,omitempty"`
}

// ReferenceContext narrows a references request.
type ReferenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

// ReferenceParams is the payload of "textDocument/references".
type ReferenceParams struct {
	TextDocumentPositionParams
	Context ReferenceContext `json:"context"`
}

// CallHierarchyPrepareParams is the payload of
// "textDocument/prepareCallHierarchy".
type CallHierarchyPrepareParams struct {
	TextDocumentPositionParams
}

// SemanticTokensParams is the payload of "textDocument/semanticTokens/full".
type SemanticTokensParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// SemanticTokens is the raw, delta-encoded token payload: groups of 5
// integers (deltaLine, deltaStart, length, tokenType, tokenModifiers).
type SemanticTokens struct {
	ResultID string   `json:"resultId,omitempty"`
	Data     []uint32 `json:"data"`
}

// CallHierarchyItem identifies one node of a call hierarchy tree.
type CallHierarchyItem struct {
	Name           string      `json:"name"`
	Kind           SymbolKind  `json:"kind"`
	Detail         string      `json:"detail,omitempty"`
	URI            DocumentUri `json:"uri"`
	Range          Range       `json:"range"`
	SelectionRange Range       `json:"selectionRange"`
	Data           interface{} `json:"data,omitempty"`
}

// CallHierarchyIncomingCallsParams is the payload of
// "callHierarchy/incomingCalls".
type CallHierarchyIncomingCallsParams struct {
	Item CallHierarchyItem `json:"item"`
}

// CallHierarchyIncomingCall pairs a caller item with the ranges it calls from.
type CallHierarchyIncomingCall struct {
	From       CallHierarchyItem `json:"from"`
	FromRanges []Range           `json:"fromRanges"`
}

// CallHierarchyOutgoingCallsParams is the payload of
// "callHierarchy/outgoingCalls".
type CallHierarchyOutgoingCallsParams struct {
	Item CallHierarchyItem `json:"item"`
}

// CallHierarchyOutgoingCall pairs a callee item with the ranges it's called at.
type CallHierarchyOutgoingCall struct {
	To         CallHierarchyItem `json:"to"`
	FromRanges []Range           `json:"fromRanges"`
}
