package folio

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/folio/internal/logging"
	"github.com/aretw0/folio/internal/runtime"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/history"
	"github.com/aretw0/folio/pkg/registry"
	"github.com/aretw0/folio/pkg/table"
)

// ChangeKind tells how the document of an Editor changed.
type ChangeKind string

const (
	ChangeDispatch ChangeKind = "dispatch"
	ChangeUndo     ChangeKind = "undo"
	ChangeRedo     ChangeKind = "redo"
	ChangeReset    ChangeKind = "reset"
)

// Change describes a new document value published by an Editor.
type Change struct {
	Kind ChangeKind
	// Command is the dispatched command; nil for undo, redo and reset.
	Command          domain.Command
	Document         *domain.Document
	Diff             *domain.DocumentDiff
	StructureChanged bool
}

// Editor is the high-level entry point for the Folio library.
// It owns a current document, applies commands through the engine and records their
// inverses for undo. An Editor is not safe for concurrent use; pkg/session serializes
// access when several callers share one.
type Editor struct {
	engine   *runtime.Engine
	registry *registry.Registry
	history  undoStack
	doc      *domain.Document
	logger   *slog.Logger

	ids          registry.IDGenerator
	hooks        domain.Hooks
	historyLimit int
	snapshots    bool

	nextObserver int
	observers    []changeObserver
}

type changeObserver struct {
	id int
	fn func(Change)
}

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithRegistry replaces the built-in component registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Editor) {
		e.registry = reg
	}
}

// WithHistoryLimit bounds the number of undo entries.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) {
		e.historyLimit = n
	}
}

// WithSnapshotHistory records whole-document snapshots for undo instead of command
// inverses. Undo then restores a stored value without dispatching anything.
func WithSnapshotHistory() Option {
	return func(e *Editor) {
		e.snapshots = true
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithHooks registers observability hooks on the engine.
func WithHooks(hooks domain.Hooks) Option {
	return func(e *Editor) {
		e.hooks = e.hooks.Chain(hooks)
	}
}

// WithIDGenerator sets the generator for new node and slot IDs.
func WithIDGenerator(ids registry.IDGenerator) Option {
	return func(e *Editor) {
		e.ids = ids
	}
}

// New creates an Editor over doc. A nil doc starts a new empty document.
func New(doc *domain.Document, opts ...Option) (*Editor, error) {
	e := &Editor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = components.Builtin()
	}
	if e.ids == nil {
		e.ids = registry.UUIDs{}
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}

	e.engine = runtime.NewEngine(e.registry,
		runtime.WithLogger(e.logger),
		runtime.WithHooks(e.hooks),
		runtime.WithIDGenerator(e.ids),
	)
	if e.snapshots {
		e.history = snapshotStack{history.NewSnapshots(history.WithLimit(e.historyLimit))}
	} else {
		e.history = commandStack{history.NewCommands(e.engine, history.WithLimit(e.historyLimit))}
	}

	if doc == nil {
		var err error
		doc, err = NewDocument(e.registry, e.ids)
		if err != nil {
			return nil, err
		}
	}
	e.doc = doc
	return e, nil
}

// NewDocument creates an empty document rooted at a "document" node.
func NewDocument(reg *registry.Registry, ids registry.IDGenerator) (*domain.Document, error) {
	if ids == nil {
		ids = registry.UUIDs{}
	}
	return reg.NewDocument(components.TypeDocument, ids)
}

// Document returns the current document value.
func (e *Editor) Document() *domain.Document {
	return e.doc
}

// Registry returns the component registry.
func (e *Editor) Registry() *registry.Registry {
	return e.registry
}

// Dispatch applies cmd to the current document and records it for undo.
// On error the document and the history are unchanged.
func (e *Editor) Dispatch(cmd domain.Command) (domain.Result, error) {
	res, err := e.engine.Dispatch(e.doc, cmd)
	if err != nil {
		return domain.Result{}, err
	}
	e.history.record(e.doc, cmd, res)
	e.publish(Change{
		Kind:             ChangeDispatch,
		Command:          cmd,
		Document:         res.Document,
		Diff:             domain.Diff(e.doc, res.Document),
		StructureChanged: res.StructureChanged,
	})
	return res, nil
}

// Batch applies cmds as one undo entry. Either all apply or none do.
func (e *Editor) Batch(cmds ...domain.Command) (domain.Result, error) {
	return e.Dispatch(domain.Batch{Commands: cmds})
}

// BeginBatch starts grouping dispatched commands into a single undo entry. Each command
// still applies on its own, so a failure inside the batch keeps the earlier ones.
// Batches nest; EndBatch closes the innermost.
func (e *Editor) BeginBatch() {
	e.history.BeginBatch()
}

// EndBatch closes the innermost batch opened by BeginBatch.
func (e *Editor) EndBatch() {
	e.history.EndBatch()
}

// Undo reverts the most recent command. It reports false when there is nothing to undo.
func (e *Editor) Undo() (bool, error) {
	return e.step(ChangeUndo, e.history.undo)
}

// Redo re-applies the most recently undone command.
func (e *Editor) Redo() (bool, error) {
	return e.step(ChangeRedo, e.history.redo)
}

func (e *Editor) step(kind ChangeKind, move func(*domain.Document) (domain.Result, bool, error)) (bool, error) {
	res, ok, err := move(e.doc)
	if err != nil || !ok {
		return false, err
	}
	e.publish(Change{
		Kind:             kind,
		Document:         res.Document,
		Diff:             domain.Diff(e.doc, res.Document),
		StructureChanged: res.StructureChanged,
	})
	return true, nil
}

// CanUndo reports whether Undo has something to revert.
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether Redo has something to re-apply.
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// Reset replaces the current document and clears the history.
func (e *Editor) Reset(doc *domain.Document) {
	e.history.Clear()
	e.publish(Change{
		Kind:             ChangeReset,
		Document:         doc,
		Diff:             domain.Diff(e.doc, doc),
		StructureChanged: true,
	})
}

// MergeCells merges a table selection after growing it over any merge it partially
// covers, so a user-drawn rectangle never conflicts with existing regions.
func (e *Editor) MergeCells(node domain.NodeID, sel table.CellSelection) (domain.Result, error) {
	n, ok := domain.FindNode(e.doc, node)
	if !ok {
		return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, node)
	}
	p, err := table.PropsOf(n)
	if err != nil {
		return domain.Result{}, err
	}
	sel = table.ExpandSelectionForMerges(sel, p.Merges)
	return e.Dispatch(table.MergeTableCells{
		Node:     node,
		StartRow: sel.StartRow,
		StartCol: sel.StartCol,
		EndRow:   sel.EndRow,
		EndCol:   sel.EndCol,
	})
}

// Subscribe registers fn to receive every new document value. The returned function
// removes the subscription.
func (e *Editor) Subscribe(fn func(Change)) func() {
	e.nextObserver++
	id := e.nextObserver
	e.observers = append(e.observers, changeObserver{id: id, fn: fn})
	return func() {
		for i, o := range e.observers {
			if o.id == id {
				e.observers = append(e.observers[:i:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

// SubscribeHistory registers fn to receive undo/redo availability after every change.
func (e *Editor) SubscribeHistory(fn func(history.Availability)) func() {
	return e.history.Subscribe(fn)
}

func (e *Editor) publish(c Change) {
	e.doc = c.Document
	for _, o := range append([]changeObserver(nil), e.observers...) {
		o.fn(c)
	}
}
