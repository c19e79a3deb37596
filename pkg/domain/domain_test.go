package domain_test

import (
	"testing"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample builds root(r) -> children(s1) -> [box(a) -> children(s2) -> [leaf(b)], leaf(c)].
func sample() *domain.Document {
	doc := domain.NewDocument(
		&domain.Node{ID: "r", Type: "document", Slots: []domain.SlotID{"s1"}},
		[]*domain.Slot{{ID: "s1", Owner: "r", Name: "children", Children: []domain.NodeID{"a", "c"}}},
	)
	doc.Nodes["a"] = &domain.Node{ID: "a", Type: "container", Slots: []domain.SlotID{"s2"}}
	doc.Nodes["b"] = &domain.Node{ID: "b", Type: "text", Slots: []domain.SlotID{}, Props: map[string]any{"content": "x"}}
	doc.Nodes["c"] = &domain.Node{ID: "c", Type: "text", Slots: []domain.SlotID{}}
	doc.Slots["s2"] = &domain.Slot{ID: "s2", Owner: "a", Name: "children", Children: []domain.NodeID{"b"}}
	return doc
}

func TestQueries(t *testing.T) {
	doc := sample()

	n, ok := domain.FindNode(doc, "a")
	require.True(t, ok)
	s, ok := domain.FindSlotByName(doc, n, "children")
	require.True(t, ok)
	assert.Equal(t, domain.SlotID("s2"), s.ID)

	_, ok = domain.FindSlotByName(doc, n, "missing")
	assert.False(t, ok)

	parent, index, ok := domain.ParentOf(doc, "c")
	require.True(t, ok)
	assert.Equal(t, domain.SlotID("s1"), parent.ID)
	assert.Equal(t, 1, index)

	_, _, ok = domain.ParentOf(doc, "r")
	assert.False(t, ok)

	nodes, slots := domain.CollectSubtree(doc, "a")
	assert.Equal(t, []domain.NodeID{"a", "b"}, nodes)
	assert.Equal(t, []domain.SlotID{"s2"}, slots)

	assert.True(t, domain.Contains(doc, "r", "b"))
	assert.False(t, domain.Contains(doc, "a", "c"))
}

func TestTx_CopyOnWrite(t *testing.T) {
	doc := sample()
	tx := domain.Begin(doc)

	require.NoError(t, tx.InsertChild("s2", 1, "c"))
	_, err := tx.RemoveChild("s1", "c")
	require.NoError(t, err)
	next := tx.Commit()

	assert.Equal(t, []domain.NodeID{"a", "c"}, doc.Slots["s1"].Children, "base untouched")
	assert.Equal(t, []domain.NodeID{"b"}, doc.Slots["s2"].Children, "base untouched")
	assert.Equal(t, []domain.NodeID{"a"}, next.Slots["s1"].Children)
	assert.Equal(t, []domain.NodeID{"b", "c"}, next.Slots["s2"].Children)

	assert.Same(t, doc.Nodes["b"], next.Nodes["b"], "unchanged entries are shared")
	assert.NotSame(t, doc.Slots["s2"], next.Slots["s2"])
}

func TestTx_NoWritesReturnsBase(t *testing.T) {
	doc := sample()
	tx := domain.Begin(doc)

	require.NoError(t, tx.RenameSlot("s1", "children"))
	assert.Same(t, doc, tx.Commit())
}

func TestTx_Errors(t *testing.T) {
	tx := domain.Begin(sample())

	assert.ErrorIs(t, tx.InsertChild("nope", 0, "x"), domain.ErrSlotNotFound)
	assert.ErrorIs(t, tx.InsertChild("s1", 5, "x"), domain.ErrOutOfRange)
	_, err := tx.RemoveChild("s1", "b")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubtree_RemoveAndRestore(t *testing.T) {
	doc := sample()
	st, err := domain.CaptureNode(doc, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())

	tx := domain.Begin(doc)
	_, err = tx.RemoveChild("s1", "a")
	require.NoError(t, err)
	tx.Remove(st)
	removed := tx.Commit()
	assert.NotContains(t, removed.Nodes, domain.NodeID("b"))
	assert.NotContains(t, removed.Slots, domain.SlotID("s2"))

	tx = domain.Begin(removed)
	require.NoError(t, tx.Restore(st))
	require.NoError(t, tx.InsertChild("s1", 0, "a"))
	assert.True(t, domain.Equal(doc, tx.Commit()))

	tx = domain.Begin(doc)
	assert.ErrorIs(t, tx.Restore(st), domain.ErrNotAllowed, "IDs already in use")
}

func TestSubtree_Check(t *testing.T) {
	doc := sample()
	nodeCapture, err := domain.CaptureNode(doc, "a")
	require.NoError(t, err)
	slotCapture, err := domain.CaptureSlot(doc, "s2")
	require.NoError(t, err)
	require.NoError(t, nodeCapture.Check())
	require.NoError(t, slotCapture.Check())

	box := func(id domain.NodeID, slots ...domain.SlotID) *domain.Node {
		return &domain.Node{ID: id, Type: "container", Slots: slots}
	}
	slot := func(id domain.SlotID, owner domain.NodeID, children ...domain.NodeID) *domain.Slot {
		return &domain.Slot{ID: id, Owner: owner, Name: "children", Children: children}
	}

	tests := []struct {
		name string
		st   *domain.Subtree
	}{
		{"nil", nil},
		{"root not captured", &domain.Subtree{Root: "x"}},
		{"slot outside the subtree", &domain.Subtree{Root: "x", Nodes: []*domain.Node{box("x", "s1")}}},
		{"slot owned by another node", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x", "sx")},
			Slots: []*domain.Slot{slot("sx", "r")},
		}},
		{"slot listed twice", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x", "sx", "sx")},
			Slots: []*domain.Slot{slot("sx", "x")},
		}},
		{"unlisted slot", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x")},
			Slots: []*domain.Slot{slot("sx", "x")},
		}},
		{"child outside the subtree", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x", "sx")},
			Slots: []*domain.Slot{slot("sx", "x", "c")},
		}},
		{"root as child", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x", "sx")},
			Slots: []*domain.Slot{slot("sx", "x", "x")},
		}},
		{"two parents", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x", "sx", "sy"), box("y")},
			Slots: []*domain.Slot{slot("sx", "x", "y"), slot("sy", "x", "y")},
		}},
		{"detached cycle", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x"), box("y", "sy")},
			Slots: []*domain.Slot{slot("sy", "y", "y")},
		}},
		{"duplicate node", &domain.Subtree{
			Root:  "x",
			Nodes: []*domain.Node{box("x"), box("x")},
		}},
		{"slot capture without slots", &domain.Subtree{}},
		{"top slot owned inside", &domain.Subtree{
			Nodes: []*domain.Node{box("y", "sy")},
			Slots: []*domain.Slot{slot("sy", "y", "y")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.st.Check()
			assert.ErrorIs(t, err, domain.ErrInvalidSubtree)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestDiff(t *testing.T) {
	doc := sample()
	assert.Nil(t, domain.Diff(doc, doc))

	tx := domain.Begin(doc)
	tx.PutNode(&domain.Node{ID: "d", Type: "text", Slots: []domain.SlotID{}})
	require.NoError(t, tx.InsertChild("s1", 2, "d"))
	tx.DeleteNode("c")
	next := tx.Commit()

	d := domain.Diff(doc, next)
	require.NotNil(t, d)
	assert.Equal(t, []domain.NodeID{"d"}, d.AddedNodes)
	assert.Equal(t, []domain.NodeID{"c"}, d.RemovedNodes)
	assert.Empty(t, d.ChangedNodes)
	assert.Equal(t, []domain.SlotID{"s1"}, d.ChangedSlots)

	initial := domain.Diff(nil, doc)
	assert.Len(t, initial.AddedNodes, 4)
	assert.Len(t, initial.AddedSlots, 2)
}

func TestEqual(t *testing.T) {
	a, b := sample(), sample()
	assert.True(t, domain.Equal(a, b))

	b.Nodes["b"] = &domain.Node{ID: "b", Type: "text", Slots: []domain.SlotID{}, Props: map[string]any{"content": "y"}}
	assert.False(t, domain.Equal(a, b))
	assert.False(t, domain.Equal(a, nil))
}

func TestHooksChain(t *testing.T) {
	var calls []string
	h := domain.Hooks{OnApplied: func(*domain.CommandEvent) { calls = append(calls, "first") }}
	h = h.Chain(domain.Hooks{
		OnApplied:  func(*domain.CommandEvent) { calls = append(calls, "second") },
		OnRejected: func(*domain.CommandEvent) { calls = append(calls, "rejected") },
	})

	h.OnApplied(&domain.CommandEvent{})
	h.OnRejected(&domain.CommandEvent{})
	assert.Equal(t, []string{"first", "second", "rejected"}, calls)
}
