package ports

import (
	"context"

	"github.com/aretw0/folio/pkg/domain"
)

// DocumentStore defines the interface for persisting documents.
type DocumentStore interface {
	// Save persists the document under id, replacing any previous version.
	Save(ctx context.Context, id string, doc *domain.Document) error

	// Load retrieves the document stored under id.
	// Returns domain.ErrDocumentNotFound if there is none.
	Load(ctx context.Context, id string) (*domain.Document, error)

	// Delete removes the document stored under id. Deleting a missing document is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored documents.
	List(ctx context.Context) ([]string, error)
}
