package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/folio/pkg/adapters/file"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunDocumentStoreContract(t, store)
}

func TestFileStore_YAMLContract(t *testing.T) {
	store := file.New(t.TempDir(), file.WithFormat(codec.FormatYAML))
	ports.RunDocumentStoreContract(t, store)
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "invoice", ports.ContractDocument()))
	_, err := os.Stat(filepath.Join(dir, "invoice.json"))
	require.NoError(t, err)

	// Stray files are not documents.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.json"), []byte("{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice"}, ids)
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_InvalidIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "../escape", "a/b", ".hidden"} {
		err := store.Save(ctx, id, ports.ContractDocument())
		assert.ErrorIs(t, err, file.ErrInvalidID, id)
		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, file.ErrInvalidID, id)
	}
}

func TestFileStore_AcceptsHandEditedJSON(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`{
		// edited by hand
		"rootNodeId": "r",
		"nodes": {"r": {"id": "r", "type": "document", "slots": []}},
	}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hand.json"), data, 0o644))

	doc, err := file.New(dir).Load(context.Background(), "hand")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeID("r"), doc.Root)
	assert.Equal(t, domain.FormatVersion, doc.Version)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644))

	_, err := file.New(dir).Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDocumentNotFound)
}
