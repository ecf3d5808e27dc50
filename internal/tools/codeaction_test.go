package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

func action(title string, preferred bool) protocol.CodeAction {
	return protocol.CodeAction{Title: title, IsPreferred: preferred}
}

func TestFilterCodeActions_PreferredNarrowing(t *testing.T) {
	actions := []protocol.CodeAction{
		action("Add missing import", true),
		action("Ignore diagnostic", false),
		action("Add all missing imports", false),
	}

	got := filterCodeActions(actions, "", false)
	require.Len(t, got, 1)
	assert.Equal(t, "Add missing import", got[0].Title)
}

func TestFilterCodeActions_NoPreferredFallsBackToFullSet(t *testing.T) {
	actions := []protocol.CodeAction{
		action("Extract function", false),
		action("Extract constant", false),
	}
	got := filterCodeActions(actions, "", false)
	assert.Len(t, got, 2)
}

func TestFilterCodeActions_IncludeAllBypassesPreferred(t *testing.T) {
	actions := []protocol.CodeAction{
		action("Add missing import", true),
		action("Ignore diagnostic", false),
	}
	got := filterCodeActions(actions, "", true)
	assert.Len(t, got, 2)
}

func TestFilterCodeActions_TitleFilterIsCaseInsensitive(t *testing.T) {
	actions := []protocol.CodeAction{
		action("Add missing import", false),
		action("Remove unused variable", false),
	}
	got := filterCodeActions(actions, "IMPORT", false)
	require.Len(t, got, 1)
	assert.Equal(t, "Add missing import", got[0].Title)
}

func TestFilterCodeActions_TitleFilterAppliesBeforePreferredNarrowing(t *testing.T) {
	actions := []protocol.CodeAction{
		action("Add missing import", true),
		action("Remove unused variable", false),
	}
	// Title filter excludes the only preferred action; the surviving
	// non-preferred one is still returned.
	got := filterCodeActions(actions, "unused", false)
	require.Len(t, got, 1)
	assert.Equal(t, "Remove unused variable", got[0].Title)
}
