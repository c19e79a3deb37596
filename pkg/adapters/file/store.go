package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/natefinch/atomic"
)

// ErrInvalidID is returned for document IDs that cannot be used as file names.
var ErrInvalidID = errors.New("invalid document id")

// Store implements ports.DocumentStore using the local filesystem.
// It stores one document per file in a configured directory.
type Store struct {
	BasePath string
	format   codec.Format
}

// Option configures a Store.
type Option func(*Store)

// WithFormat selects the on-disk encoding. JSON is the default.
func WithFormat(format codec.Format) Option {
	return func(s *Store) {
		s.format = format
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".folio/documents".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".folio", "documents")
	}
	s := &Store{BasePath: basePath, format: codec.FormatJSON}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ext() string {
	if s.format == codec.FormatYAML {
		return ".yaml"
	}
	return ".json"
}

func (s *Store) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.BasePath, id+s.ext()), nil
}

// Save writes the document atomically: readers see either the old file or the new one.
func (s *Store) Save(ctx context.Context, id string, doc *domain.Document) error {
	destPath, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure document directory: %w", err)
	}

	data, err := codec.Marshal(doc, s.format)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := atomic.WriteFile(destPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write document file: %w", err)
	}
	return nil
}

// Load reads the document file.
func (s *Store) Load(ctx context.Context, id string) (*domain.Document, error) {
	filePath, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}

	doc, err := codec.Unmarshal(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filePath, err)
	}
	return doc, nil
}

// Delete removes the document file.
func (s *Store) Delete(ctx context.Context, id string) error {
	filePath, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document file: %w", err)
	}
	return nil
}

// List returns the IDs of the documents in the directory, in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != s.ext() {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, s.ext()))
	}
	sort.Strings(ids)
	return ids, nil
}
