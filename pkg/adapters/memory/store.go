package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/folio/pkg/domain"
)

// Store implements ports.DocumentStore in memory.
// Documents are immutable values, so they are kept and handed out without copying.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Document
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Document),
	}
}

// Save keeps the document in memory.
func (s *Store) Save(ctx context.Context, id string, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = doc
	return nil
}

// Load retrieves the document from memory.
func (s *Store) Load(ctx context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes the document.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored document IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
