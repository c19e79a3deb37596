package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/folio/internal/logging"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
)

// Engine validates commands and applies them to documents.
// It holds no document state: every call takes a document value and returns a new one.
type Engine struct {
	registry *registry.Registry
	ids      registry.IDGenerator
	logger   *slog.Logger
	hooks    domain.Hooks
	now      func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Chain(hooks)
	}
}

// WithIDGenerator sets the generator used for new nodes and slots.
func WithIDGenerator(ids registry.IDGenerator) EngineOption {
	return func(e *Engine) {
		if ids != nil {
			e.ids = ids
		}
	}
}

// NewEngine creates an engine over the given component registry.
func NewEngine(reg *registry.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: reg,
		ids:      registry.UUIDs{},
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the component registry used for routing.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// IDs returns the ID generator used for new nodes and slots.
func (e *Engine) IDs() registry.IDGenerator {
	return e.ids
}

// Dispatch applies cmd to doc. On error doc is unchanged and the Result is zero.
func (e *Engine) Dispatch(doc *domain.Document, cmd domain.Command) (domain.Result, error) {
	if doc == nil {
		return domain.Result{}, fmt.Errorf("%w: nil document", domain.ErrValidation)
	}
	if cmd == nil {
		return domain.Result{}, fmt.Errorf("%w: nil command", domain.ErrValidation)
	}

	start := e.now()
	res, err := e.apply(doc, cmd)
	event := &domain.CommandEvent{
		Timestamp: start,
		Command:   cmd.CommandType(),
		Duration:  e.now().Sub(start),
	}

	if err != nil {
		event.Type = domain.EventCommandRejected
		event.Err = err
		e.logger.Warn("command rejected", "command", cmd.CommandType(), "err", err)
		if e.hooks.OnRejected != nil {
			e.hooks.OnRejected(event)
		}
		return domain.Result{}, err
	}

	event.Type = domain.EventCommandApplied
	event.StructureChanged = res.StructureChanged
	e.logger.Debug("command applied",
		"command", cmd.CommandType(),
		"structure_changed", res.StructureChanged,
		"inverse", res.Inverse.CommandType(),
	)
	if e.hooks.OnApplied != nil {
		e.hooks.OnApplied(event)
	}
	return res, nil
}

func (e *Engine) apply(doc *domain.Document, cmd domain.Command) (domain.Result, error) {
	switch c := cmd.(type) {
	case domain.InsertNode:
		return e.insertNode(doc, c)
	case domain.RemoveNode:
		return e.removeNode(doc, c)
	case domain.UpdateNodeProps:
		return e.updateNodeProps(doc, c)
	case domain.MoveNode:
		return e.moveNode(doc, c)
	case domain.Batch:
		return e.applyBatch(doc, c)
	}

	comp, err := e.registry.HandlerFor(cmd.CommandType())
	if err != nil {
		return domain.Result{}, err
	}
	res, err := comp.Handler(e.env(), doc, cmd)
	if err != nil {
		return domain.Result{}, err
	}
	if res.Document == nil || res.Inverse == nil {
		return domain.Result{}, fmt.Errorf("handler for %s returned an incomplete result", cmd.CommandType())
	}
	return res, nil
}

func (e *Engine) env() registry.Env {
	return registry.Env{Registry: e.registry, IDs: e.ids, Logger: e.logger}
}

// IsValidation reports whether err is a precondition failure (as opposed to a
// configuration error such as an unknown command type).
func IsValidation(err error) bool {
	return errors.Is(err, domain.ErrValidation)
}
