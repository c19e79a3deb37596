package runtime_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/aretw0/folio/internal/logging"
	"github.com/aretw0/folio/internal/runtime"
	"github.com/aretw0/folio/pkg/columns"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
	"github.com/aretw0/folio/pkg/table"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t      *testing.T
	engine *runtime.Engine
	doc    *domain.Document
	body   domain.SlotID
}

func newHarness(t *testing.T, opts ...runtime.EngineOption) *harness {
	t.Helper()
	reg := components.Builtin()
	ids := registry.NewSequence("n")
	doc, err := reg.NewDocument(components.TypeDocument, ids)
	require.NoError(t, err)
	opts = append([]runtime.EngineOption{runtime.WithIDGenerator(ids)}, opts...)
	return &harness{t: t, engine: runtime.NewEngine(reg, opts...), doc: doc, body: doc.Nodes[doc.Root].Slots[0]}
}

func (h *harness) insert(slot domain.SlotID, index int, nodeType string, props map[string]any) domain.NodeID {
	h.t.Helper()
	res, err := h.engine.Dispatch(h.doc, domain.InsertNode{Slot: slot, Index: index, Type: nodeType, Props: props})
	require.NoError(h.t, err)
	h.doc = res.Document
	return res.Inverse.(domain.RemoveNode).Node
}

func (h *harness) children(slot domain.SlotID) []domain.NodeID {
	return h.doc.Slots[slot].Children
}

func (h *harness) firstSlot(node domain.NodeID) domain.SlotID {
	return h.doc.Nodes[node].Slots[0]
}

func TestDispatch_RoundTrip(t *testing.T) {
	build := func(t *testing.T) (*harness, map[string]domain.NodeID) {
		h := newHarness(t)
		ids := map[string]domain.NodeID{}
		ids["box"] = h.insert(h.body, 0, components.TypeContainer, nil)
		ids["intro"] = h.insert(h.body, 1, components.TypeText, map[string]any{"content": "intro"})
		ids["inner"] = h.insert(h.firstSlot(ids["box"]), 0, components.TypeText, map[string]any{"content": "inner", "style": "bold"})
		ids["loop"] = h.insert(h.firstSlot(ids["box"]), 1, components.TypeLoop, map[string]any{"expression": "items"})
		return h, ids
	}
	ref, ids := build(t)

	tests := []struct {
		name string
		cmd  domain.Command
	}{
		{"insert text", domain.InsertNode{Slot: ref.body, Index: 1, Type: components.TypeText}},
		{"insert table", domain.InsertNode{Slot: ref.body, Index: 0, Type: components.TypeTable}},
		{"remove subtree", domain.RemoveNode{Node: ids["box"]}},
		{"remove leaf", domain.RemoveNode{Node: ids["inner"]}},
		{"update set", domain.UpdateNodeProps{Node: ids["inner"], Set: map[string]any{"content": "changed", "color": "red"}}},
		{"update unset", domain.UpdateNodeProps{Node: ids["inner"], Unset: []string{"style", "absent"}}},
		{"move up a level", domain.MoveNode{Node: ids["inner"], Slot: ref.body, Index: 2}},
		{"move within slot", domain.MoveNode{Node: ids["intro"], Slot: ref.body, Index: 0}},
		{"move into loop", domain.MoveNode{Node: ids["intro"], Slot: ref.firstSlot(ids["loop"]), Index: 0}},
		{"batch", domain.Batch{Commands: []domain.Command{
			domain.RemoveNode{Node: ids["intro"]},
			domain.InsertNode{Slot: ref.body, Index: 0, Type: components.TypeConditional},
			domain.UpdateNodeProps{Node: ids["loop"], Set: map[string]any{"itemName": "row"}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := build(t)
			before := h.doc

			res, err := h.engine.Dispatch(before, tt.cmd)
			require.NoError(t, err)
			undo, err := h.engine.Dispatch(res.Document, res.Inverse)
			require.NoError(t, err)
			if diff := cmp.Diff(before, undo.Document); diff != "" {
				t.Fatalf("inverse did not restore the document (-want +got):\n%s", diff)
			}
			redo, err := h.engine.Dispatch(undo.Document, undo.Inverse)
			require.NoError(t, err)
			if diff := cmp.Diff(res.Document, redo.Document); diff != "" {
				t.Fatalf("redo did not reproduce the edit (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDispatch_DoesNotMutateInput(t *testing.T) {
	h := newHarness(t)
	box := h.insert(h.body, 0, components.TypeContainer, nil)
	before := h.doc
	snapshot := *before.Slots[h.body]

	res, err := h.engine.Dispatch(before, domain.RemoveNode{Node: box})
	require.NoError(t, err)

	assert.Equal(t, snapshot, *before.Slots[h.body])
	assert.Contains(t, before.Nodes, box)
	assert.NotContains(t, res.Document.Nodes, box)
}

func TestDispatch_Rejections(t *testing.T) {
	h := newHarness(t)
	box := h.insert(h.body, 0, components.TypeContainer, nil)
	leaf := h.insert(h.firstSlot(box), 0, components.TypeText, nil)

	tests := []struct {
		name string
		cmd  domain.Command
		want error
	}{
		{"missing slot", domain.InsertNode{Slot: "nope", Type: components.TypeText}, domain.ErrSlotNotFound},
		{"index past end", domain.InsertNode{Slot: h.body, Index: 5, Type: components.TypeText}, domain.ErrOutOfRange},
		{"unknown type", domain.InsertNode{Slot: h.body, Type: "image"}, domain.ErrUnknownNodeType},
		{"second root", domain.InsertNode{Slot: h.body, Type: components.TypeDocument}, domain.ErrNotAllowed},
		{"bad props", domain.InsertNode{Slot: h.body, Type: components.TypeLoop, Props: map[string]any{"itemName": ""}}, domain.ErrInvalidProps},
		{"remove root", domain.RemoveNode{Node: h.doc.Root}, domain.ErrNotAllowed},
		{"remove missing", domain.RemoveNode{Node: "ghost"}, domain.ErrNodeNotFound},
		{"update missing", domain.UpdateNodeProps{Node: "ghost"}, domain.ErrNodeNotFound},
		{"move into own subtree", domain.MoveNode{Node: box, Slot: h.firstSlot(box)}, domain.ErrNotAllowed},
		{"move root", domain.MoveNode{Node: h.doc.Root, Slot: h.body}, domain.ErrNotAllowed},
		{"move past end", domain.MoveNode{Node: leaf, Slot: h.body, Index: 3}, domain.ErrOutOfRange},
		{"unknown command", unknown{}, domain.ErrUnknownCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.engine.Dispatch(h.doc, tt.cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, res.Document)
		})
	}

	assert.True(t, runtime.IsValidation(domain.ErrOutOfRange))
	assert.False(t, runtime.IsValidation(domain.ErrUnknownCommand))
}

type unknown struct{}

func (unknown) CommandType() string { return "Unknown" }

func TestUpdateNodeProps_Inverse(t *testing.T) {
	h := newHarness(t)
	leaf := h.insert(h.body, 0, components.TypeText, map[string]any{"content": "a", "style": "bold"})

	res, err := h.engine.Dispatch(h.doc, domain.UpdateNodeProps{
		Node:  leaf,
		Set:   map[string]any{"content": "b", "size": 12},
		Unset: []string{"style"},
	})
	require.NoError(t, err)

	assert.False(t, res.StructureChanged)
	assert.Equal(t, domain.UpdateNodeProps{
		Node:  leaf,
		Set:   map[string]any{"content": "a", "style": "bold"},
		Unset: []string{"size"},
	}, res.Inverse)
}

func TestMoveNode_SameSlotIndexAfterDetach(t *testing.T) {
	h := newHarness(t)
	a := h.insert(h.body, 0, components.TypeText, nil)
	b := h.insert(h.body, 1, components.TypeText, nil)
	c := h.insert(h.body, 2, components.TypeText, nil)

	res, err := h.engine.Dispatch(h.doc, domain.MoveNode{Node: a, Slot: h.body, Index: 2})
	require.NoError(t, err)

	assert.Equal(t, []domain.NodeID{b, c, a}, res.Document.Slots[h.body].Children)
	assert.Equal(t, domain.MoveNode{Node: a, Slot: h.body, Index: 0}, res.Inverse)
}

func TestBatch_Atomic(t *testing.T) {
	h := newHarness(t)
	before := h.doc

	_, err := h.engine.Dispatch(h.doc, domain.Batch{Commands: []domain.Command{
		domain.InsertNode{Slot: h.body, Type: components.TypeText},
		domain.RemoveNode{Node: "ghost"},
	}})

	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	assert.Empty(t, before.Slots[h.body].Children)
}

func TestHooksAndLogging(t *testing.T) {
	var applied, rejected []*domain.CommandEvent
	var buf bytes.Buffer
	h := newHarness(t,
		runtime.WithLogger(logging.NewWithWriter(&buf, slog.LevelDebug, false)),
		runtime.WithHooks(domain.Hooks{
			OnApplied:  func(e *domain.CommandEvent) { applied = append(applied, e) },
			OnRejected: func(e *domain.CommandEvent) { rejected = append(rejected, e) },
		}),
	)

	h.insert(h.body, 0, components.TypeText, nil)
	_, err := h.engine.Dispatch(h.doc, domain.RemoveNode{Node: "ghost"})
	require.Error(t, err)

	require.Len(t, applied, 1)
	assert.Equal(t, domain.EventCommandApplied, applied[0].Type)
	assert.Equal(t, domain.CommandInsertNode, applied[0].Command)
	assert.True(t, applied[0].StructureChanged)

	require.Len(t, rejected, 1)
	assert.ErrorIs(t, rejected[0].Err, domain.ErrNodeNotFound)

	assert.Contains(t, buf.String(), "command applied")
	assert.Contains(t, buf.String(), "command rejected")
	assert.Contains(t, buf.String(), "err=")
}

func TestDispatch_NilInputs(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Dispatch(nil, domain.RemoveNode{Node: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = h.engine.Dispatch(h.doc, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInsertNode_RestoreRejections(t *testing.T) {
	h := newHarness(t)
	leaf := h.insert(h.body, 0, components.TypeText, nil)

	box := func(id domain.NodeID, nodeType string, slots ...domain.SlotID) *domain.Node {
		return &domain.Node{ID: id, Type: nodeType, Slots: slots}
	}
	children := func(id domain.SlotID, owner domain.NodeID, kids ...domain.NodeID) *domain.Slot {
		return &domain.Slot{ID: id, Owner: owner, Name: components.SlotChildren, Children: kids}
	}

	tests := []struct {
		name    string
		restore *domain.Subtree
		want    error
	}{
		{"steals a document slot", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x", components.TypeContainer, h.body)},
		}, domain.ErrInvalidSubtree},
		{"adopts a document node", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x", components.TypeContainer, "sx")},
			Slots: []*domain.Slot{children("sx", "x", leaf)},
		}, domain.ErrInvalidSubtree},
		{"slot capture", &domain.Subtree{
			Slots: []*domain.Slot{children("sx", h.doc.Root)},
		}, domain.ErrInvalidSubtree},
		{"unknown type", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x", "image")},
		}, domain.ErrUnknownNodeType},
		{"invalid props", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{{ID: "x", Type: components.TypeLoop, Props: map[string]any{"itemName": ""}}},
		}, domain.ErrInvalidProps},
		{"nested root type", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x", components.TypeContainer, "sx"), box("y", components.TypeDocument)},
			Slots: []*domain.Slot{children("sx", "x", "y")},
		}, domain.ErrNotAllowed},
		{"table without cells", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{{ID: "x", Type: components.TypeTable, Props: map[string]any{"rows": 1, "columns": 1}}},
		}, domain.ErrCardinality},
		{"id in use", &domain.Subtree{
			Root:  leaf,
			Nodes: []*domain.Node{box(leaf, components.TypeText)},
		}, domain.ErrNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.engine.Dispatch(h.doc, domain.InsertNode{Slot: h.body, Restore: tt.restore})
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, res.Document)
		})
	}

	res, err := h.engine.Dispatch(h.doc, domain.InsertNode{Slot: h.body, Index: 1, Restore: &domain.Subtree{
		Root:  "x",
		Nodes: []*domain.Node{box("x", components.TypeContainer, "sx"), box("y", components.TypeText)},
		Slots: []*domain.Slot{children("sx", "x", "y")},
	}})
	require.NoError(t, err)
	assert.Equal(t, []domain.NodeID{leaf, "x"}, res.Document.Slots[h.body].Children)
	assert.Equal(t, []domain.NodeID{"y"}, res.Document.Slots["sx"].Children)
}

func TestUpdateNodeProps_StoresCanonicalProps(t *testing.T) {
	h := newHarness(t)
	tbl := h.insert(h.body, 0, components.TypeTable, nil)
	cols := h.insert(h.body, 1, components.TypeColumns, nil)

	// JSON decoding yields float64 numbers and []any lists.
	res, err := h.engine.Dispatch(h.doc, domain.UpdateNodeProps{Node: tbl, Set: map[string]any{"columnWidths": []any{30.0, 70.0}}})
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 70}, res.Document.Nodes[tbl].Props["columnWidths"])
	undo, err := h.engine.Dispatch(res.Document, res.Inverse)
	require.NoError(t, err)
	assert.True(t, domain.Equal(h.doc, undo.Document))
	h.doc = res.Document

	res, err = h.engine.Dispatch(h.doc, domain.UpdateNodeProps{Node: cols, Set: map[string]any{"gap": 10}})
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Document.Nodes[cols].Props["gap"])
	h.doc = res.Document

	for _, cmd := range []domain.Command{
		table.SetTableHeaderRows{Node: tbl, Count: 1},
		table.AddTableRow{Node: tbl, Position: 1},
		table.AddTableColumn{Node: tbl, Position: 2},
		columns.AddColumnSlot{Node: cols, Position: 1},
	} {
		res, err := h.engine.Dispatch(h.doc, cmd)
		require.NoError(t, err, cmd.CommandType())
		back, err := h.engine.Dispatch(res.Document, res.Inverse)
		require.NoError(t, err, cmd.CommandType())
		if diff := cmp.Diff(h.doc, back.Document); diff != "" {
			t.Fatalf("%s inverse did not restore the document (-want +got):\n%s", cmd.CommandType(), diff)
		}
	}
}
