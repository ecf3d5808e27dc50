package protocol

// TextDocumentItem is the full content of a document at open time.
type TextDocumentItem struct {
	URI        DocumentUri `json:"uri"`
	LanguageID string      `json:"languageId"`
	Version    int32       `json:"version"`
	Text       string      `json:"text"`
}

// DidOpenTextDocumentParams is the payload of "textDocument/didOpen".
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// TextDocumentContentChangeEvent is one incremental or full edit sent on
// "textDocument/didChange". The broker always sends full-document sync
// (Range nil), since it tracks whole-file contents rather than diffing.
type TextDocumentContentChangeEvent struct {
	Range       *Range `json:"range,omitempty"`
	RangeLength *int   `json:"rangeLength,omitempty"`
	Text        string `json:"text"`
}

// DidChangeTextDocumentParams is the payload of "textDocument/didChange".
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier   `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent  `json:"contentChanges"`
}

// DidCloseTextDocumentParams is the payload of "textDocument/didClose".
type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// TextDocumentSaveReason enumerates why a didSave fired.
type TextDocumentSaveReason int

const (
	SaveManual     TextDocumentSaveReason = 1
	SaveAfterDelay TextDocumentSaveReason = 2
	SaveFocusOut   TextDocumentSaveReason = 3
)

// DidSaveTextDocumentParams is the payload of "textDocument/didSave".
type DidSaveTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Text         *string                `json:"text,omitempty"`
}

// FileChangeType enumerates the kind of change reported for a watched file.
type FileChangeType int

const (
	FileCreated FileChangeType = 1
	FileChanged FileChangeType = 2
	FileDeleted FileChangeType = 3
)

// FileEvent is one entry in a "workspace/didChangeWatchedFiles" notification.
type FileEvent struct {
	URI  DocumentUri    `json:"uri"`
	Type FileChangeType `json:"type"`
}

// DidChangeWatchedFilesParams is the payload of
// "workspace/didChangeWatchedFiles".
type DidChangeWatchedFilesParams struct {
	Changes []FileEvent `json:"changes"`
}

// FileSystemWatcher is one entry in a dynamic file-watch registration.
type FileSystemWatcher struct {
	GlobPattern string `json:"globPattern"`
	Kind        *int   `json:"kind,omitempty"`
}

// DidChangeWatchedFilesRegistrationOptions is the registerCapability
// options payload for "workspace/didChangeWatchedFiles".
type DidChangeWatchedFilesRegistrationOptions struct {
	Watchers []FileSystemWatcher `json:"watchers"`
}

// Registration is one entry of a "client/registerCapability" request.
type Registration struct {
	ID              string      `json:"id"`
	Method          string      `json:"method"`
	RegisterOptions interface{} `json:"registerOptions,omitempty"`
}

// RegistrationParams is the payload of "client/registerCapability".
type RegistrationParams struct {
	Registrations []Registration `json:"registrations"`
}

// ConfigurationItem scopes one entry of a "workspace/configuration" request.
type ConfigurationItem struct {
	ScopeURI *DocumentUri `json:"scopeUri,omitempty"`
	Section  string       `json:"section,omitempty"`
}

// ConfigurationParams is the payload of "workspace/configuration".
type ConfigurationParams struct {
	Items []ConfigurationItem `json:"items"`
}

// MessageType enumerates "window/logMessage" / "window/showMessage"
// severities.
type MessageType int

const (
	MessageError   MessageType = 1
	MessageWarning MessageType = 2
	MessageInfo    MessageType = 3
	MessageLog     MessageType = 4
)

// LogMessageParams is the payload of "window/logMessage".
type LogMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// ShowMessageParams is the payload of "window/showMessage".
type ShowMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}
