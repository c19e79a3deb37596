package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ContractDocument builds a small document with nested slots, used by the store contract.
func ContractDocument() *domain.Document {
	doc := domain.NewDocument(
		&domain.Node{ID: "root", Type: "document", Slots: []domain.SlotID{"root-children"}},
		[]*domain.Slot{{ID: "root-children", Owner: "root", Name: "children", Children: []domain.NodeID{"box", "note"}}},
	)
	doc.Nodes["box"] = &domain.Node{ID: "box", Type: "container", Slots: []domain.SlotID{"box-children"}}
	doc.Slots["box-children"] = &domain.Slot{ID: "box-children", Owner: "box", Name: "children", Children: []domain.NodeID{}}
	doc.Nodes["note"] = &domain.Node{ID: "note", Type: "text", Slots: []domain.SlotID{}, Props: map[string]any{"content": "hello"}}
	return doc
}

// RunDocumentStoreContract runs a suite of tests to verify that a DocumentStore implementation
// adheres to the defined interface contract.
func RunDocumentStoreContract(t *testing.T, store DocumentStore) {
	ctx := context.Background()
	docID := "contract-test-doc-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		doc := ContractDocument()

		err := store.Save(ctx, docID, doc)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err, "Load should not return error")
		assert.True(t, domain.Equal(doc, loaded), "loaded document should equal the saved one")
		assert.Equal(t, []domain.NodeID{}, loaded.Slots["box-children"].Children)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		doc := ContractDocument()
		doc.Nodes["note"] = &domain.Node{ID: "note", Type: "text", Slots: []domain.SlotID{}, Props: map[string]any{"content": "bye"}}
		require.NoError(t, store.Save(ctx, docID, doc))

		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, "bye", loaded.Nodes["note"].Props["content"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, docID, ContractDocument())
		require.NoError(t, err)

		err = store.Delete(ctx, docID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound, "Load after Delete should return ErrDocumentNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := docID + "-1"
		id2 := docID + "-2"
		_ = store.Save(ctx, id1, ContractDocument())
		_ = store.Save(ctx, id2, ContractDocument())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
