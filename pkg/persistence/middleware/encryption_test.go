package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/adapters/file"
	"github.com/aretw0/folio/pkg/adapters/memory"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/persistence/middleware"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/aretw0/folio/pkg/registry"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func secretDocument(t *testing.T, content string) *domain.Document {
	t.Helper()
	ed, err := folio.New(nil, folio.WithIDGenerator(registry.NewSequence("n")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ed.Dispatch(domain.InsertNode{Slot: "n2", Type: "text", Props: map[string]any{"content": content}}); err != nil {
		t.Fatal(err)
	}
	return ed.Document()
}

func encrypted(t *testing.T, store ports.DocumentStore, config middleware.EncryptionConfig) ports.DocumentStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(config)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware failed: %v", err)
	}
	return mw(store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	// Setup
	underlyingStore := memory.NewStore()
	secureStore := encrypted(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	original := secretDocument(t, "my-secret-sauce")

	// 1. Save
	if err := secureStore.Save(ctx, "doc", original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Verify Underlying Store directly (Should be encrypted)
	stored, err := underlyingStore.Load(ctx, "doc")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if len(stored.Nodes) != 1 || stored.Nodes[stored.Root].Type != middleware.EnvelopeNodeType {
		t.Fatalf("Expected an envelope document, got %+v", stored.Nodes)
	}
	if _, ok := stored.Nodes["n3"]; ok {
		t.Fatal("Expected content node to be hidden")
	}

	// 3. Load via Middleware (Should be decrypted)
	loaded, err := secureStore.Load(ctx, "doc")
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if !domain.Equal(original, loaded) {
		t.Errorf("Decrypted document differs from the original")
	}

	// 4. Listing and deletion pass through
	ids, err := secureStore.List(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "doc" {
		t.Fatalf("List = %v, %v", ids, err)
	}
	if err := secureStore.Delete(ctx, "doc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := secureStore.Load(ctx, "doc"); err != domain.ErrDocumentNotFound {
		t.Errorf("Expected ErrDocumentNotFound after delete, got %v", err)
	}
}

func TestEncryptionMiddleware_FileStore(t *testing.T) {
	dir := t.TempDir()
	secureStore := encrypted(t, file.New(dir), middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	if err := secureStore.Save(ctx, "doc", secretDocument(t, "my-secret-sauce")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "doc.json"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(raw), "my-secret-sauce") {
		t.Fatal("Plaintext leaked to disk")
	}

	loaded, err := secureStore.Load(ctx, "doc")
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Nodes["n3"].Props["content"] != "my-secret-sauce" {
		t.Errorf("Expected 'my-secret-sauce', got %v", loaded.Nodes["n3"].Props["content"])
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	// Setup
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := encrypted(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: oldKey})

	ctx := context.Background()

	// 1. Save with OLD key
	if err := secureStoreOld.Save(ctx, "doc", secretDocument(t, "encrypted-with-old-key")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Load with NEW key (Active) + OLD key (Fallback)
	secureStoreNew := encrypted(t, underlyingStore, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})

	loaded, err := secureStoreNew.Load(ctx, "doc")
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.Nodes["n3"].Props["content"] != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	// 3. Save again (Should now use the NEW key)
	if err := secureStoreNew.Save(ctx, "doc", secretDocument(t, "encrypted-with-new-key")); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	// 4. Verify we CANNOT load with just OLD key anymore
	if _, err := secureStoreOld.Load(ctx, "doc"); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_PlainDocument(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	if err := underlyingStore.Save(ctx, "plain", secretDocument(t, "visible")); err != nil {
		t.Fatal(err)
	}

	secureStore := encrypted(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if _, err := secureStore.Load(ctx, "plain"); err == nil || !strings.Contains(err.Error(), "envelope") {
		t.Errorf("Expected ErrNotEncrypted, got %v", err)
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	if _, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")}); err == nil {
		t.Error("Expected error for invalid key size")
	}
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	if err == nil {
		t.Error("Expected error for invalid fallback key size")
	}
}

func TestChain(t *testing.T) {
	var order []string
	trace := func(name string) middleware.Middleware {
		return func(next ports.DocumentStore) ports.DocumentStore {
			return tracingStore{DocumentStore: next, name: name, order: &order}
		}
	}
	store := middleware.Chain(memory.NewStore(), trace("outer"), trace("inner"))
	_ = store.Delete(context.Background(), "doc")
	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("Expected outer,inner, got %v", order)
	}
}

type tracingStore struct {
	ports.DocumentStore
	name  string
	order *[]string
}

func (s tracingStore) Delete(ctx context.Context, id string) error {
	*s.order = append(*s.order, s.name)
	return s.DocumentStore.Delete(ctx, id)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunDocumentStoreContract(t, encrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}
