package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/logging"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/history"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/aretw0/folio/pkg/registry"
	"github.com/aretw0/folio/pkg/validate"
)

// ErrDocumentExists is returned by Create when the ID is already taken.
var ErrDocumentExists = errors.New("document already exists")

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates editing sessions over a document store. Each open document has
// one folio.Editor whose history lives in memory; every successful edit is written
// back to the store before the call returns.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store    ports.DocumentStore
	registry *registry.Registry

	mu      sync.Mutex               // Guards locks and editors
	locks   map[string]*lockEntry    // Active per-document locks
	editors map[string]*folio.Editor // Open editors

	locker     ports.DistributedLocker // Optional distributed locker
	lockTTL    time.Duration
	editorOpts []folio.Option
	logger     *slog.Logger

	obsMu        sync.RWMutex
	nextObserver int
	observers    map[int]func(id string, c folio.Change)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking. With a locker, the manager assumes other
// replicas write to the same store and re-reads each document before touching it.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRegistry sets the component registry used for new documents, loading and editing.
func WithRegistry(reg *registry.Registry) Option {
	return func(m *Manager) {
		m.registry = reg
	}
}

// WithEditorOptions passes options to every Editor the manager opens.
func WithEditorOptions(opts ...folio.Option) Option {
	return func(m *Manager) {
		m.editorOpts = append(m.editorOpts, opts...)
	}
}

// NewManager creates a new session Manager with the given document store.
func NewManager(store ports.DocumentStore, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		locks:     make(map[string]*lockEntry),
		editors:   make(map[string]*folio.Editor),
		observers: make(map[int]func(string, folio.Change)),
		lockTTL:   DefaultLockTTL,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = components.Builtin()
	}
	m.editorOpts = append([]folio.Option{folio.WithRegistry(m.registry), folio.WithLogger(m.logger)}, m.editorOpts...)
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock executes a function while holding the lock for the document.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"document_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Create stores a new empty document under id.
func (m *Manager) Create(ctx context.Context, id string) (*domain.Document, error) {
	var doc *domain.Document
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		_, err := m.store.Load(ctx, id)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrDocumentExists, id)
		}
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			return fmt.Errorf("failed to check document existence: %w", err)
		}
		doc, err = m.create(ctx, id)
		return err
	})
	return doc, err
}

// LoadOrCreate loads a document, creating an empty one if it does not exist.
func (m *Manager) LoadOrCreate(ctx context.Context, id string) (*domain.Document, error) {
	var doc *domain.Document
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		ed, err := m.editor(ctx, id)
		if err == nil {
			doc = ed.Document()
			return nil
		}
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			return err
		}
		doc, err = m.create(ctx, id)
		return err
	})
	return doc, err
}

func (m *Manager) create(ctx context.Context, id string) (*domain.Document, error) {
	ed, err := folio.New(nil, m.editorOpts...)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, id, ed.Document()); err != nil {
		return nil, fmt.Errorf("failed to initialize document: %w", err)
	}
	m.open(id, ed)
	m.logger.Debug("document created", "document_id", id)
	return ed.Document(), nil
}

// Load returns the current value of a document.
func (m *Manager) Load(ctx context.Context, id string) (*domain.Document, error) {
	var doc *domain.Document
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		ed, err := m.editor(ctx, id)
		if err != nil {
			return err
		}
		doc = ed.Document()
		return nil
	})
	return doc, err
}

// Save replaces a document. The value is normalized and validated first; the open
// editor, if any, restarts with an empty history.
func (m *Manager) Save(ctx context.Context, id string, doc *domain.Document) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		doc, err := m.prepare(doc)
		if err != nil {
			return err
		}
		if err := m.store.Save(ctx, id, doc); err != nil {
			return err
		}
		if ed := m.cached(id); ed != nil {
			ed.Reset(doc)
		}
		return nil
	})
}

// Dispatch applies cmd to the document and persists the result.
func (m *Manager) Dispatch(ctx context.Context, id string, cmd domain.Command) (domain.Result, error) {
	var res domain.Result
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		ed, err := m.editor(ctx, id)
		if err != nil {
			return err
		}
		res, err = ed.Dispatch(cmd)
		if err != nil {
			return err
		}
		return m.persist(ctx, id, ed)
	})
	return res, err
}

// Undo reverts the last command applied to the document. ok is false when there was
// nothing to undo. The result carries the document after the step and whether it changed
// structure; it has no inverse.
func (m *Manager) Undo(ctx context.Context, id string) (res domain.Result, ok bool, err error) {
	return m.step(ctx, id, (*folio.Editor).Undo)
}

// Redo re-applies the last undone command.
func (m *Manager) Redo(ctx context.Context, id string) (res domain.Result, ok bool, err error) {
	return m.step(ctx, id, (*folio.Editor).Redo)
}

func (m *Manager) step(ctx context.Context, id string, move func(*folio.Editor) (bool, error)) (domain.Result, bool, error) {
	var (
		res domain.Result
		ok  bool
	)
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		ed, err := m.editor(ctx, id)
		if err != nil {
			return err
		}
		unsubscribe := ed.Subscribe(func(c folio.Change) {
			res.StructureChanged = c.StructureChanged
		})
		ok, err = move(ed)
		unsubscribe()
		if err != nil {
			return err
		}
		res.Document = ed.Document()
		if !ok {
			return nil
		}
		return m.persist(ctx, id, ed)
	})
	return res, ok, err
}

// History reports undo/redo availability for the document.
func (m *Manager) History(ctx context.Context, id string) (history.Availability, error) {
	var av history.Availability
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		ed, err := m.editor(ctx, id)
		if err != nil {
			return err
		}
		av = history.Availability{CanUndo: ed.CanUndo(), CanRedo: ed.CanRedo()}
		return nil
	})
	return av, err
}

// Delete removes the document from the store and closes its editor.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.Evict(id)
		return m.store.Delete(ctx, id)
	})
}

// Evict closes the in-memory editor of a document, dropping its history.
// The stored document is untouched.
func (m *Manager) Evict(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.editors, id)
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying document store.
func (m *Manager) Store() ports.DocumentStore {
	return m.store
}

// Registry returns the component registry.
func (m *Manager) Registry() *registry.Registry {
	return m.registry
}

// editor returns the open editor of a document, loading it from the store if needed.
// Must be called under the document lock.
func (m *Manager) editor(ctx context.Context, id string) (*folio.Editor, error) {
	ed := m.cached(id)
	if ed != nil && m.locker == nil {
		return ed, nil
	}

	stored, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			m.Evict(id)
			return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
		}
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	doc, err := m.prepare(stored)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}

	if ed != nil {
		if !domain.Equal(ed.Document(), doc) {
			m.logger.Debug("document changed in store, history dropped", "document_id", id)
			ed.Reset(doc)
		}
		return ed, nil
	}

	ed, err = folio.New(doc, m.editorOpts...)
	if err != nil {
		return nil, err
	}
	m.open(id, ed)
	return ed, nil
}

// prepare brings a document from outside the engine into canonical, valid form.
func (m *Manager) prepare(doc *domain.Document) (*domain.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrValidation)
	}
	doc, err := codec.Normalize(m.registry, doc)
	if err != nil {
		return nil, err
	}
	if err := validate.Document(m.registry, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// persist writes the editor's document. On failure the editor is closed so that the
// next access starts again from what the store holds.
func (m *Manager) persist(ctx context.Context, id string, ed *folio.Editor) error {
	if err := m.store.Save(ctx, id, ed.Document()); err != nil {
		m.Evict(id)
		m.logger.Warn("failed to persist document, editor closed", "document_id", id, "err", err)
		return fmt.Errorf("failed to save document %s: %w", id, err)
	}
	return nil
}

func (m *Manager) cached(id string) *folio.Editor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editors[id]
}

// open caches ed and forwards its changes to the manager's subscribers.
func (m *Manager) open(id string, ed *folio.Editor) {
	ed.Subscribe(func(c folio.Change) {
		m.notify(id, c)
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editors[id] = ed
}

// Subscribe registers fn to receive every change of every open document, including
// resets caused by Save or by another replica writing to the store. fn runs under the
// document lock and must not call back into the manager for the same document.
func (m *Manager) Subscribe(fn func(id string, c folio.Change)) func() {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.nextObserver++
	key := m.nextObserver
	m.observers[key] = fn
	return func() {
		m.obsMu.Lock()
		defer m.obsMu.Unlock()
		delete(m.observers, key)
	}
}

func (m *Manager) notify(id string, c folio.Change) {
	m.obsMu.RLock()
	defer m.obsMu.RUnlock()
	for _, fn := range m.observers {
		fn(id, c)
	}
}
