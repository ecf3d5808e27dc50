package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// fakeHierarchyClient drives the call-hierarchy walk from canned
// caller/callee maps keyed by item name.
type fakeHierarchyClient struct {
	prepared []protocol.CallHierarchyItem
	incoming map[string][]protocol.CallHierarchyItem
	outgoing map[string][]protocol.CallHierarchyItem
}

func (f *fakeHierarchyClient) PrepareCallHierarchy(ctx context.Context, params protocol.CallHierarchyPrepareParams) ([]protocol.CallHierarchyItem, error) {
	return f.prepared, nil
}

func (f *fakeHierarchyClient) IncomingCalls(ctx context.Context, item protocol.CallHierarchyItem) ([]protocol.CallHierarchyIncomingCall, error) {
	var out []protocol.CallHierarchyIncomingCall
	for _, from := range f.incoming[item.Name] {
		out = append(out, protocol.CallHierarchyIncomingCall{From: from})
	}
	return out, nil
}

func (f *fakeHierarchyClient) OutgoingCalls(ctx context.Context, item protocol.CallHierarchyItem) ([]protocol.CallHierarchyOutgoingCall, error) {
	var out []protocol.CallHierarchyOutgoingCall
	for _, to := range f.outgoing[item.Name] {
		out = append(out, protocol.CallHierarchyOutgoingCall{To: to})
	}
	return out, nil
}

func hierarchyItem(name string, uri protocol.DocumentUri, line, char uint32) protocol.CallHierarchyItem {
	return protocol.CallHierarchyItem{
		Name: name, Kind: protocol.Function, URI: uri,
		SelectionRange: protocol.Range{
			Start: protocol.Position{Line: line, Character: char},
			End:   protocol.Position{Line: line, Character: char + uint32(len(name))},
		},
	}
}

func TestFindCallHierarchy_SelfRecursionAppearsOnceWithoutExpansion(t *testing.T) {
	factorial := hierarchyItem("factorial", "file:///p/rec.ts", 0, 16)
	fake := &fakeHierarchyClient{
		prepared: []protocol.CallHierarchyItem{factorial},
		outgoing: map[string][]protocol.CallHierarchyItem{"factorial": {factorial}},
	}

	r := &Registry{}
	result, err := r.findCallHierarchy(context.Background(), fake, protocol.TextDocumentPositionParams{}, FindUsagesParams{
		Type: UsageCallHierarchy, Direction: "outgoing", MaxDepth: 3,
	})
	require.NoError(t, err)

	require.Len(t, result.CallTree, 1)
	root := result.CallTree[0]
	assert.Equal(t, "factorial", root.Item.Name)
	require.Len(t, root.Outgoing, 1, "the recursive call appears once")
	assert.Equal(t, "factorial", root.Outgoing[0].Item.Name)
	assert.Empty(t, root.Outgoing[0].Outgoing, "the cycle is not expanded further")
}

func TestFindCallHierarchy_MaxDepthBoundsTheWalk(t *testing.T) {
	uri := protocol.DocumentUri("file:///p/chain.go")
	a := hierarchyItem("a", uri, 0, 5)
	b := hierarchyItem("b", uri, 10, 5)
	c := hierarchyItem("c", uri, 20, 5)
	d := hierarchyItem("d", uri, 30, 5)
	fake := &fakeHierarchyClient{
		prepared: []protocol.CallHierarchyItem{a},
		outgoing: map[string][]protocol.CallHierarchyItem{
			"a": {b}, "b": {c}, "c": {d},
		},
	}

	r := &Registry{}
	result, err := r.findCallHierarchy(context.Background(), fake, protocol.TextDocumentPositionParams{}, FindUsagesParams{
		Type: UsageCallHierarchy, Direction: "outgoing", MaxDepth: 2,
	})
	require.NoError(t, err)

	root := result.CallTree[0]
	require.Len(t, root.Outgoing, 1)
	nodeB := root.Outgoing[0]
	assert.Equal(t, "b", nodeB.Item.Name)
	require.Len(t, nodeB.Outgoing, 1)
	nodeC := nodeB.Outgoing[0]
	assert.Equal(t, "c", nodeC.Item.Name)
	assert.Empty(t, nodeC.Outgoing, "walk stops at maxDepth")
}

func TestFindCallHierarchy_IncomingDeduplicatesSharedCaller(t *testing.T) {
	uri := protocol.DocumentUri("file:///p/fan.go")
	target := hierarchyItem("handler", uri, 0, 5)
	caller := hierarchyItem("dispatch", uri, 10, 5)
	fake := &fakeHierarchyClient{
		prepared: []protocol.CallHierarchyItem{target},
		incoming: map[string][]protocol.CallHierarchyItem{
			"handler":  {caller},
			"dispatch": {caller}, // dispatch calls itself through a helper
		},
	}

	r := &Registry{}
	result, err := r.findCallHierarchy(context.Background(), fake, protocol.TextDocumentPositionParams{}, FindUsagesParams{
		Type: UsageCallHierarchy, Direction: "incoming", MaxDepth: 5,
	})
	require.NoError(t, err)

	root := result.CallTree[0]
	require.Len(t, root.Incoming, 1)
	dispatch := root.Incoming[0]
	assert.Equal(t, "dispatch", dispatch.Item.Name)
	require.Len(t, dispatch.Incoming, 1)
	assert.Empty(t, dispatch.Incoming[0].Incoming, "already-seen caller's subtree is elided")
}

func TestFindCallHierarchy_NoItemsReturnsFallback(t *testing.T) {
	r := &Registry{}
	result, err := r.findCallHierarchy(context.Background(), &fakeHierarchyClient{}, protocol.TextDocumentPositionParams{}, FindUsagesParams{
		Type: UsageCallHierarchy,
	})
	require.NoError(t, err)
	assert.Empty(t, result.CallTree)
	assert.NotEmpty(t, result.Fallback)
}

func TestFindCallHierarchy_BothDirectionsByDefault(t *testing.T) {
	uri := protocol.DocumentUri("file:///p/both.go")
	target := hierarchyItem("target", uri, 0, 5)
	caller := hierarchyItem("caller", uri, 10, 5)
	callee := hierarchyItem("callee", uri, 20, 5)
	fake := &fakeHierarchyClient{
		prepared: []protocol.CallHierarchyItem{target},
		incoming: map[string][]protocol.CallHierarchyItem{"target": {caller}},
		outgoing: map[string][]protocol.CallHierarchyItem{"target": {callee}},
	}

	r := &Registry{}
	result, err := r.findCallHierarchy(context.Background(), fake, protocol.TextDocumentPositionParams{}, FindUsagesParams{
		Type: UsageCallHierarchy,
	})
	require.NoError(t, err)

	root := result.CallTree[0]
	require.Len(t, root.Incoming, 1)
	require.Len(t, root.Outgoing, 1)
	assert.Equal(t, "caller", root.Incoming[0].Item.Name)
	assert.Equal(t, "callee", root.Outgoing[0].Item.Name)
}
