package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/adapters/memory"
	"github.com/aretw0/folio/pkg/dnd"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
	"github.com/aretw0/folio/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer returns a server whose document "doc" has root n1 and body slot n2.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	manager := session.NewManager(memory.NewStore(),
		session.WithEditorOptions(folio.WithIDGenerator(registry.NewSequence("n"))),
	)
	s := NewServer(manager)
	_, err := s.handleCreate(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{"document_id": "doc"})
	require.NoError(t, err)
	return s
}

func toolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

const insertText = `{"type":"InsertNode","payload":{"slotId":"n2","index":0,"nodeType":"text","props":{"content":"Hello {{.name}}"}}}`

func TestServer_DispatchUndoRedo(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	args := map[string]interface{}{"document_id": "doc", "commands": insertText}

	res, err := s.handleDispatch(ctx, mcp.CallToolRequest{}, args)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, res.CanUndo)
	require.NotNil(t, res.Diff)
	assert.Equal(t, []domain.NodeID{"n3"}, res.Diff.AddedNodes)

	res, err = s.handleUndo(ctx, mcp.CallToolRequest{}, map[string]interface{}{"document_id": "doc"})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, res.CanRedo)
	assert.Equal(t, []domain.NodeID{"n3"}, res.Diff.RemovedNodes)

	res, err = s.handleUndo(ctx, mcp.CallToolRequest{}, map[string]interface{}{"document_id": "doc"})
	require.NoError(t, err)
	assert.False(t, res.Applied, "nothing left to undo")
	assert.Nil(t, res.Diff)

	res, err = s.handleRedo(ctx, mcp.CallToolRequest{}, map[string]interface{}{"document_id": "doc"})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.CanRedo)
}

func TestServer_DispatchErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleDispatch(ctx, mcp.CallToolRequest{}, map[string]interface{}{"document_id": "doc"})
	assert.ErrorContains(t, err, "commands")

	_, err = s.handleDispatch(ctx, mcp.CallToolRequest{}, map[string]interface{}{"document_id": "doc", "commands": `{"type":"Explode"}`})
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)

	_, err = s.handleDispatch(ctx, mcp.CallToolRequest{}, map[string]interface{}{"document_id": "missing", "commands": insertText})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	bad := `{"type":"RemoveNode","payload":{"nodeId":"n1"}}`
	_, err = s.handleDispatch(ctx, mcp.CallToolRequest{}, map[string]interface{}{"document_id": "doc", "commands": bad})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.handleCreate(ctx, mcp.CallToolRequest{}, map[string]interface{}{"document_id": "doc"})
	assert.ErrorIs(t, err, session.ErrDocumentExists)
}

func TestServer_DragAndDrop(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	// [n4 container (slot n5), n3 text]
	cmds := `[` + insertText + `,{"type":"InsertNode","payload":{"slotId":"n2","index":0,"nodeType":"container"}}]`
	_, err := s.handleDispatch(ctx, mcp.CallToolRequest{}, map[string]interface{}{"document_id": "doc", "commands": cmds})
	require.NoError(t, err)

	zones, err := s.handleDropZones(ctx, mcp.CallToolRequest{}, map[string]interface{}{"document_id": "doc", "node_id": "n3"})
	require.NoError(t, err)
	assert.Contains(t, zones.Zones, dnd.Zone{Target: "n4", Position: dnd.Inside, Slot: "n5"})

	res, err := s.handleDrop(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"document_id": "doc", "node_id": "n3", "target_id": "n4", "position": "inside",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.SlotID{"n2", "n5"}, res.Diff.ChangedSlots)

	doc, err := s.manager.Load(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []domain.NodeID{"n3"}, doc.Slots["n5"].Children)

	_, err = s.handleDrop(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"document_id": "doc", "node_id": "n4", "target_id": "n3", "position": "inside",
	})
	assert.ErrorIs(t, err, domain.ErrNotAllowed, "a node cannot land inside its own descendant")
}

func TestServer_TextTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	_, err := s.handleDispatch(ctx, mcp.CallToolRequest{}, map[string]interface{}{"document_id": "doc", "commands": insertText})
	require.NoError(t, err)

	res, err := s.handleOutline(ctx, toolRequest("outline", map[string]any{"document_id": "doc"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "- document")

	res, err = s.handlePreview(ctx, toolRequest("preview", map[string]any{"document_id": "doc", "scope": `{"name":"Ada"}`}))
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada\n", resultText(t, res))

	res, err = s.handleGet(ctx, toolRequest("get_document", map[string]any{"document_id": "doc", "format": "yaml"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "rootNodeId: n1")

	res, err = s.handleGet(ctx, toolRequest("get_document", map[string]any{"document_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_ReadDocument(t *testing.T) {
	s := newTestServer(t)
	req := mcp.ReadResourceRequest{}
	req.Params.URI = documentURIPrefix + "doc"

	contents, err := s.readDocument(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)
	assert.Contains(t, text.Text, `"rootNodeId": "n1"`)

	req.Params.URI = documentURIPrefix + "missing"
	_, err = s.readDocument(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
