package protocol

import "encoding/json"

// WorkspaceEdit describes changes to many resources in the workspace.
// Per spec.md §3, either Changes and/or DocumentChanges may be set; when
// both are present, the edit applier applies both (Changes first, then
// DocumentChanges in order).
type WorkspaceEdit struct {
	Changes         map[DocumentUri][]TextEdit `json:"changes,omitempty"`
	DocumentChanges []DocumentChange           `json:"documentChanges,omitempty"`
}

// DocumentChange is a tagged union: exactly one of TextDocumentEdit,
// CreateFile, RenameFile, DeleteFile is non-nil.
type DocumentChange struct {
	TextDocumentEdit *TextDocumentEdit `json:"-"`
	CreateFile       *CreateFile       `json:"-"`
	RenameFile       *RenameFile       `json:"-"`
	DeleteFile       *DeleteFile       `json:"-"`
}

// resourceOpEnvelope mirrors the "kind" discriminator LSP uses on the
// wire for resource operations (create/rename/delete), as opposed to a
// TextDocumentEdit which has no "kind" field.
type resourceOpEnvelope struct {
	Kind string `json:"kind,omitempty"`
}

// MarshalJSON emits the wire shape appropriate to whichever member is set.
func (d DocumentChange) MarshalJSON() ([]byte, error) {
	switch {
	case d.TextDocumentEdit != nil:
		return json.Marshal(d.TextDocumentEdit)
	case d.CreateFile != nil:
		return json.Marshal(d.CreateFile)
	case d.RenameFile != nil:
		return json.Marshal(d.RenameFile)
	case d.DeleteFile != nil:
		return json.Marshal(d.DeleteFile)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON distinguishes the four shapes by probing for a "kind"
// field (create/rename/delete) versus a "textDocument" field (edit).
func (d *DocumentChange) UnmarshalJSON(data []byte) error {
	var probe struct {
		Kind         string          `json:"kind"`
		TextDocument json.RawMessage `json:"textDocument"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch probe.Kind {
	case "create":
		var cf CreateFile
		if err := json.Unmarshal(data, &cf); err != nil {
			return err
		}
		d.CreateFile = &cf
	case "rename":
		var rf RenameFile
		if err := json.Unmarshal(data, &rf); err != nil {
			return err
		}
		d.RenameFile = &rf
	case "delete":
		var df DeleteFile
		if err := json.Unmarshal(data, &df); err != nil {
			return err
		}
		d.DeleteFile = &df
	default:
		var te TextDocumentEdit
		if err := json.Unmarshal(data, &te); err != nil {
			return err
		}
		d.TextDocumentEdit = &te
	}
	return nil
}

// TextDocumentEdit edits to a specific versioned document.
type TextDocumentEdit struct {
	TextDocument VersionedTextDocumentIdentifier `json:"textDocument"`
	Edits        []TextEdit                      `json:"edits"`
}

// CreateFileOptions governs create/rename conflict behavior.
type CreateFileOptions struct {
	Overwrite      bool `json:"overwrite,omitempty"`
	IgnoreIfExists bool `json:"ignoreIfExists,omitempty"`
}

// CreateFile is a resource operation creating a new file.
type CreateFile struct {
	Kind    string             `json:"kind"` // "create"
	URI     DocumentUri        `json:"uri"`
	Options *CreateFileOptions `json:"options,omitempty"`
}

// RenameFile is a resource operation renaming/moving a file.
type RenameFile struct {
	Kind    string             `json:"kind"` // "rename"
	OldURI  DocumentUri        `json:"oldUri"`
	NewURI  DocumentUri        `json:"newUri"`
	Options *CreateFileOptions `json:"options,omitempty"`
}

// DeleteFileOptions governs delete behavior.
type DeleteFileOptions struct {
	Recursive         bool `json:"recursive,omitempty"`
	IgnoreIfNotExists bool `json:"ignoreIfNotExists,omitempty"`
}

// DeleteFile is a resource operation deleting a file.
type DeleteFile struct {
	Kind    string             `json:"kind"` // "delete"
	URI     DocumentUri        `json:"uri"`
	Options *DeleteFileOptions `json:"options,omitempty"`
}

// ApplyWorkspaceEditParams is the payload of the server-to-client
// request "workspace/applyEdit".
type ApplyWorkspaceEditParams struct {
	Label string        `json:"label,omitempty"`
	Edit  WorkspaceEdit `json:"edit"`
}

// ApplyWorkspaceEditResult is the client's reply to "workspace/applyEdit".
type ApplyWorkspaceEditResult struct {
	Applied       bool    `json:"applied"`
	FailureReason string  `json:"failureReason,omitempty"`
	FailedChange  *uint32 `json:"failedChange,omitempty"`
}

// RenameParams is the payload of "textDocument/rename".
type RenameParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
	NewName      string                 `json:"newName"`
}

// CodeActionContext narrows a codeAction request to specific diagnostics/kinds.
type CodeActionContext struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	Only        []string     `json:"only,omitempty"`
}

// CodeActionParams is the payload of "textDocument/codeAction".
type CodeActionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Context      CodeActionContext      `json:"context"`
}

// CodeAction is either a literal edit+command, or a lazily resolvable action.
type CodeAction struct {
	Title       string         `json:"title"`
	Kind        string         `json:"kind,omitempty"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
	IsPreferred bool           `json:"isPreferred,omitempty"`
	Disabled    *struct {
		Reason string `json:"reason"`
	} `json:"disabled,omitempty"`
	Edit    *WorkspaceEdit `json:"edit,omitempty"`
	Command *Command       `json:"command,omitempty"`
}

// Command identifies a server-side command with opaque arguments.
type Command struct {
	Title     string        `json:"title"`
	Command   string        `json:"command"`
	Arguments []interface{} `json:"arguments,omitempty"`
}

// ExecuteCommandParams is the payload of "workspace/executeCommand".
type ExecuteCommandParams struct {
	Command   string        `json:"command"`
	Arguments []interface{} `json:"arguments,omitempty"`
}

// FormattingOptions carries the whitespace conventions a formatting
// request should produce.
type FormattingOptions struct {
	TabSize                uint32 `json:"tabSize"`
	InsertSpaces           bool   `json:"insertSpaces"`
	TrimTrailingWhitespace bool   `json:"trimTrailingWhitespace,omitempty"`
	InsertFinalNewline     bool   `json:"insertFinalNewline,omitempty"`
	TrimFinalNewlines      bool   `json:"trimFinalNewlines,omitempty"`
}

// DocumentFormattingParams is the payload of "textDocument/formatting".
type DocumentFormattingParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Options      FormattingOptions      `json:"options"`
}

// DocumentRangeFormattingParams is the payload of
// "textDocument/rangeFormatting".
type DocumentRangeFormattingParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Options      FormattingOptions      `json:"options"`
}

// CodeLensParams is the payload of "textDocument/codeLens".
type CodeLensParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// CodeLens is a command annotation anchored at a range.
type CodeLens struct {
	Range   Range       `json:"range"`
	Command *Command    `json:"command,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
