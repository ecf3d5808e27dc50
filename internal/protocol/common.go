package protocol

// DocumentUri is a "file://..." (or other scheme) URI identifying a
// text document. Edit-accepting tools and the transaction manager
// reject any URI whose scheme is not "file".
type DocumentUri string

// URI is a generic LSP URI, used for workspace folders.
type URI string

// Position is a zero-based line/character offset in a document.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Range is a start/end pair of Positions. End is exclusive.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location identifies a range within one document.
type Location struct {
	URI   DocumentUri `json:"uri"`
	Range Range       `json:"range"`
}

// LocationLink is the richer form of Location returned by servers that
// support it for definition/implementation/typeDefinition requests.
type LocationLink struct {
	OriginSelectionRange *Range      `json:"originSelectionRange,omitempty"`
	TargetURI            DocumentUri `json:"targetUri"`
	TargetRange          Range       `json:"targetRange"`
	TargetSelectionRange Range       `json:"targetSelectionRange"`
}

// TextDocumentIdentifier identifies a text document by URI.
type TextDocumentIdentifier struct {
	URI DocumentUri `json:"uri"`
}

// VersionedTextDocumentIdentifier adds a version number, required on
// document-changing requests so the server can detect staleness.
type VersionedTextDocumentIdentifier struct {
	TextDocumentIdentifier
	Version int32 `json:"version"`
}

// TextDocumentPositionParams is the common (uri, position) pair shared
// by definition/hover/references/etc. requests.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// TextEdit is a single textual change applicable to one document.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// MarkupContent is LSP's tagged string union for hover/completion docs.
type MarkupContent struct {
	Kind  string `json:"kind"` // "plaintext" | "markdown"
	Value string `json:"value"`
}

// WorkDoneProgressParams is embedded by requests that support a
// progress token; unused fields are simply omitted on the wire.
type WorkDoneProgressParams struct {
	WorkDoneToken *string `json:"workDoneToken,omitempty"`
}

// TraceValue controls protocol tracing verbosity requested by the client.
type TraceValue string

const (
	TraceOff     TraceValue = "off"
	TraceMessage TraceValue = "messages"
	TraceVerbose TraceValue = "verbose"
)
