package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentChange_UnmarshalDiscriminatesByKind(t *testing.T) {
	payload := `[
		{"kind":"create","uri":"file:///p/new.ts"},
		{"kind":"rename","oldUri":"file:///p/a.ts","newUri":"file:///p/b.ts"},
		{"kind":"delete","uri":"file:///p/gone.ts"},
		{"textDocument":{"uri":"file:///p/x.ts","version":4},"edits":[{"range":{"start":{"line":0,"character":0},"end":{"line":0,"character":5}},"newText":"hello"}]}
	]`

	var changes []DocumentChange
	require.NoError(t, json.Unmarshal([]byte(payload), &changes))
	require.Len(t, changes, 4)

	require.NotNil(t, changes[0].CreateFile)
	assert.Equal(t, DocumentUri("file:///p/new.ts"), changes[0].CreateFile.URI)

	require.NotNil(t, changes[1].RenameFile)
	assert.Equal(t, DocumentUri("file:///p/a.ts"), changes[1].RenameFile.OldURI)
	assert.Equal(t, DocumentUri("file:///p/b.ts"), changes[1].RenameFile.NewURI)

	require.NotNil(t, changes[2].DeleteFile)

	require.NotNil(t, changes[3].TextDocumentEdit)
	assert.Equal(t, int32(4), changes[3].TextDocumentEdit.TextDocument.Version)
	require.Len(t, changes[3].TextDocumentEdit.Edits, 1)
	assert.Equal(t, "hello", changes[3].TextDocumentEdit.Edits[0].NewText)
}

func TestDocumentChange_MarshalRoundTrip(t *testing.T) {
	original := WorkspaceEdit{
		DocumentChanges: []DocumentChange{
			{CreateFile: &CreateFile{Kind: "create", URI: "file:///p/new.ts"}},
			{TextDocumentEdit: &TextDocumentEdit{
				TextDocument: VersionedTextDocumentIdentifier{
					TextDocumentIdentifier: TextDocumentIdentifier{URI: "file:///p/new.ts"},
					Version:                1,
				},
				Edits: []TextEdit{{NewText: "x"}},
			}},
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded WorkspaceEdit
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.DocumentChanges, 2)
	assert.NotNil(t, decoded.DocumentChanges[0].CreateFile)
	assert.NotNil(t, decoded.DocumentChanges[1].TextDocumentEdit)
}

func TestMessage_Classification(t *testing.T) {
	id := int64(7)

	request := &Message{JSONRPC: "2.0", ID: &id, Method: "textDocument/hover"}
	assert.True(t, request.IsRequest())
	assert.False(t, request.IsNotification())
	assert.False(t, request.IsResponse())

	notification := &Message{JSONRPC: "2.0", Method: "initialized"}
	assert.True(t, notification.IsNotification())
	assert.False(t, notification.IsRequest())

	response := &Message{JSONRPC: "2.0", ID: &id, Result: json.RawMessage(`{}`)}
	assert.True(t, response.IsResponse())
	assert.False(t, response.IsRequest())
}
