package protocol

// ClientInfo identifies the connecting client to the server.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// WorkspaceFolder is one root of a multi-root workspace.
type WorkspaceFolder struct {
	URI  URI    `json:"uri"`
	Name string `json:"name"`
}

// TextDocumentClientCapabilities advertises the subset of text document
// features the broker exercises on behalf of its tools.
type TextDocumentClientCapabilities struct {
	Synchronization    *TextDocumentSyncClientCapabilities   `json:"synchronization,omitempty"`
	Completion         *CompletionClientCapabilities         `json:"completion,omitempty"`
	Hover              *HoverClientCapabilities              `json:"hover,omitempty"`
	SignatureHelp      *SignatureHelpClientCapabilities      `json:"signatureHelp,omitempty"`
	Definition         *DefinitionClientCapabilities         `json:"definition,omitempty"`
	References         *ReferencesClientCapabilities         `json:"references,omitempty"`
	DocumentSymbol     *DocumentSymbolClientCapabilities     `json:"documentSymbol,omitempty"`
	CodeAction         *CodeActionClientCapabilities         `json:"codeAction,omitempty"`
	CodeLens           *CodeLensClientCapabilities           `json:"codeLens,omitempty"`
	Rename             *RenameClientCapabilities             `json:"rename,omitempty"`
	PublishDiagnostics *PublishDiagnosticsClientCapabilities `json:"publishDiagnostics,omitempty"`
	CallHierarchy      *CallHierarchyClientCapabilities      `json:"callHierarchy,omitempty"`
}

type TextDocumentSyncClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	DidSave             bool `json:"didSave,omitempty"`
}

type CompletionClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	CompletionItem      *struct {
		SnippetSupport bool `json:"snippetSupport,omitempty"`
	} `json:"completionItem,omitempty"`
}

type HoverClientCapabilities struct {
	DynamicRegistration bool     `json:"dynamicRegistration,omitempty"`
	ContentFormat       []string `json:"contentFormat,omitempty"`
}

type SignatureHelpClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type DefinitionClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	LinkSupport         bool `json:"linkSupport,omitempty"`
}

type ReferencesClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type DocumentSymbolClientCapabilities struct {
	DynamicRegistration               bool `json:"dynamicRegistration,omitempty"`
	HierarchicalDocumentSymbolSupport bool `json:"hierarchicalDocumentSymbolSupport,omitempty"`
}

type CodeActionClientCapabilities struct {
	DynamicRegistration      bool `json:"dynamicRegistration,omitempty"`
	CodeActionLiteralSupport *struct {
		CodeActionKind struct {
			ValueSet []string `json:"valueSet"`
		} `json:"codeActionKind"`
	} `json:"codeActionLiteralSupport,omitempty"`
}

type CodeLensClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type RenameClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	PrepareSupport      bool `json:"prepareSupport,omitempty"`
}

type PublishDiagnosticsClientCapabilities struct {
	RelatedInformation bool `json:"relatedInformation,omitempty"`
	VersionSupport     bool `json:"versionSupport,omitempty"`
	TagSupport         *struct {
		ValueSet []int `json:"valueSet"`
	} `json:"tagSupport,omitempty"`
}

type CallHierarchyClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

// WorkspaceClientCapabilities advertises workspace-level features.
type WorkspaceClientCapabilities struct {
	ApplyEdit     bool `json:"applyEdit,omitempty"`
	WorkspaceEdit *struct {
		DocumentChanges    bool     `json:"documentChanges,omitempty"`
		ResourceOperations []string `json:"resourceOperations,omitempty"`
	} `json:"workspaceEdit,omitempty"`
	DidChangeWatchedFiles *struct {
		DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	} `json:"didChangeWatchedFiles,omitempty"`
	Symbol *struct {
		DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	} `json:"symbol,omitempty"`
	ExecuteCommand *struct {
		DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	} `json:"executeCommand,omitempty"`
	Configuration    bool `json:"configuration,omitempty"`
	WorkspaceFolders bool `json:"workspaceFolders,omitempty"`
}

// ClientCapabilities is the capability set the broker advertises when
// initializing every managed language server.
type ClientCapabilities struct {
	Workspace    *WorkspaceClientCapabilities    `json:"workspace,omitempty"`
	TextDocument *TextDocumentClientCapabilities `json:"textDocument,omitempty"`
	Window       *struct {
		WorkDoneProgress bool `json:"workDoneProgress,omitempty"`
	} `json:"window,omitempty"`
}

// InitializeParams is the payload of "initialize".
type InitializeParams struct {
	ProcessID             *int               `json:"processId"`
	ClientInfo            *ClientInfo        `json:"clientInfo,omitempty"`
	RootURI               *DocumentUri       `json:"rootUri"`
	RootPath              *string            `json:"rootPath,omitempty"`
	InitializationOptions interface{}        `json:"initializationOptions,omitempty"`
	Capabilities          ClientCapabilities `json:"capabilities"`
	Trace                 TraceValue         `json:"trace,omitempty"`
	WorkspaceFolders      []WorkspaceFolder  `json:"workspaceFolders,omitempty"`
}

// TextDocumentSyncOptions describes how the server wants documents synced.
type TextDocumentSyncOptions struct {
	OpenClose bool        `json:"openClose,omitempty"`
	Change    int         `json:"change,omitempty"` // 0=None 1=Full 2=Incremental
	Save      interface{} `json:"save,omitempty"`
}

// ServerCapabilities is the set of features the connected server reports
// supporting in its initialize reply. No request path checks it before
// sending a feature request.
type ServerCapabilities struct {
	TextDocumentSync           interface{} `json:"textDocumentSync,omitempty"`
	HoverProvider              interface{} `json:"hoverProvider,omitempty"`
	CompletionProvider         interface{} `json:"completionProvider,omitempty"`
	SignatureHelpProvider      interface{} `json:"signatureHelpProvider,omitempty"`
	DefinitionProvider         interface{} `json:"definitionProvider,omitempty"`
	TypeDefinitionProvider     interface{} `json:"typeDefinitionProvider,omitempty"`
	ImplementationProvider     interface{} `json:"implementationProvider,omitempty"`
	ReferencesProvider         interface{} `json:"referencesProvider,omitempty"`
	DocumentSymbolProvider     interface{} `json:"documentSymbolProvider,omitempty"`
	WorkspaceSymbolProvider    interface{} `json:"workspaceSymbolProvider,omitempty"`
	CodeActionProvider         interface{} `json:"codeActionProvider,omitempty"`
	CodeLensProvider           interface{} `json:"codeLensProvider,omitempty"`
	RenameProvider             interface{} `json:"renameProvider,omitempty"`
	ExecuteCommandProvider     interface{} `json:"executeCommandProvider,omitempty"`
	CallHierarchyProvider      interface{} `json:"callHierarchyProvider,omitempty"`
	DocumentFormattingProvider interface{} `json:"documentFormattingProvider,omitempty"`
	Workspace                  *struct {
		WorkspaceFolders *struct {
			Supported           bool        `json:"supported,omitempty"`
			ChangeNotifications interface{} `json:"changeNotifications,omitempty"`
		} `json:"workspaceFolders,omitempty"`
	} `json:"workspace,omitempty"`
}

// supports reports whether a capability field is present and not
// explicitly false/nil, the common LSP idiom where a capability may be
// a bool, an options object, or absent entirely.
func (sc ServerCapabilities) supports(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func (sc ServerCapabilities) SupportsHover() bool      { return sc.supports(sc.HoverProvider) }
func (sc ServerCapabilities) SupportsDefinition() bool { return sc.supports(sc.DefinitionProvider) }
func (sc ServerCapabilities) SupportsReferences() bool { return sc.supports(sc.ReferencesProvider) }
func (sc ServerCapabilities) SupportsRename() bool     { return sc.supports(sc.RenameProvider) }
func (sc ServerCapabilities) SupportsCodeAction() bool { return sc.supports(sc.CodeActionProvider) }
func (sc ServerCapabilities) SupportsCodeLens() bool   { return sc.supports(sc.CodeLensProvider) }
func (sc ServerCapabilities) SupportsCallHierarchy() bool {
	return sc.supports(sc.CallHierarchyProvider)
}
func (sc ServerCapabilities) SupportsWorkspaceSymbol() bool {
	return sc.supports(sc.WorkspaceSymbolProvider)
}
func (sc ServerCapabilities) SupportsDocumentSymbol() bool {
	return sc.supports(sc.DocumentSymbolProvider)
}
func (sc ServerCapabilities) SupportsCompletion() bool {
	return sc.supports(sc.CompletionProvider)
}
func (sc ServerCapabilities) SupportsSignatureHelp() bool {
	return sc.supports(sc.SignatureHelpProvider)
}
func (sc ServerCapabilities) SupportsExecuteCommand() bool {
	return sc.supports(sc.ExecuteCommandProvider)
}

// InitializeResult is the payload returned in reply to "initialize".
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   *ClientInfo        `json:"serverInfo,omitempty"`
}
