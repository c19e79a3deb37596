package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/config"
	"github.com/aretw0/folio/internal/logging"
	"github.com/aretw0/folio/pkg/adapters/file"
	"github.com/aretw0/folio/pkg/adapters/memory"
	"github.com/aretw0/folio/pkg/adapters/redis"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/persistence/middleware"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/aretw0/folio/pkg/session"
)

// NewLogger builds the application logger from the log configuration.
// It writes to Stderr to keep Stdout for documents and command output.
func NewLogger(cfg config.LogConfig) (*slog.Logger, error) {
	return newLogger(os.Stderr, cfg)
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(w, level, cfg.JSON), nil
}

// Backend is an opened document store with its optional locker.
type Backend struct {
	Store  ports.DocumentStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the store's connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenStore creates the configured document store. A Redis store comes with a Redis
// locker so that several servers can share it. With an encryption key the store is
// wrapped to keep documents encrypted at rest.
func OpenStore(cfg config.StoreConfig) (*Backend, error) {
	backend, err := openDriver(cfg)
	if err != nil {
		return nil, err
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		backend.Close()
		return nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			backend.Close()
			return nil, err
		}
		backend.Store = mw(backend.Store)
	}
	return backend, nil
}

func openDriver(cfg config.StoreConfig) (*Backend, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return &Backend{Store: memory.NewStore()}, nil
	case config.StoreFile:
		return &Backend{Store: file.New(cfg.Path, file.WithFormat(codec.Format(cfg.Format)))}, nil
	case config.StoreRedis:
		opts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		return &Backend{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), store.Prefix()),
			close:  store.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// NewManager opens the configured store and builds a session manager over it.
// hooks receive every dispatched command.
func NewManager(cfg config.Config, logger *slog.Logger, hooks domain.Hooks) (*session.Manager, *Backend, error) {
	backend, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	editorOpts := []folio.Option{
		folio.WithHistoryLimit(cfg.History.Limit),
		folio.WithHooks(hooks),
	}
	if cfg.History.Mode == config.HistorySnapshots {
		editorOpts = append(editorOpts, folio.WithSnapshotHistory())
	}
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithEditorOptions(editorOpts...),
	}
	if backend.Locker != nil {
		opts = append(opts, session.WithLocker(backend.Locker))
		if cfg.Store.Redis.LockTTL > 0 {
			opts = append(opts, session.WithLockTTL(cfg.Store.Redis.LockTTL))
		}
	}
	return session.NewManager(backend.Store, opts...), backend, nil
}
