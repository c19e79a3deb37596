package history

import "github.com/aretw0/folio/pkg/domain"

// Snapshots is the whole-document history.
type Snapshots struct {
	limit     int
	past      []*domain.Document
	future    []*domain.Document
	depth     int
	batched   bool
	observers observers
}

// NewSnapshots creates an empty snapshot history.
func NewSnapshots(opts ...Option) *Snapshots {
	return &Snapshots{limit: newConfig(opts).limit}
}

// Push records doc, the state before a mutation, and discards the redo stack.
// Inside a batch only the first push is recorded.
func (h *Snapshots) Push(doc *domain.Document) {
	if h.depth > 0 {
		if h.batched {
			return
		}
		h.batched = true
	}
	h.past = bounded(h.past, doc, h.limit)
	h.future = nil
	if h.depth == 0 {
		h.notify()
	}
}

// Undo returns the previous document and remembers current for Redo.
func (h *Snapshots) Undo(current *domain.Document) (*domain.Document, bool) {
	if len(h.past) == 0 {
		return nil, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, current)
	h.notify()
	return prev, true
}

// Redo returns the next document and remembers current for Undo.
func (h *Snapshots) Redo(current *domain.Document) (*domain.Document, bool) {
	if len(h.future) == 0 {
		return nil, false
	}
	next := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = bounded(h.past, current, h.limit)
	h.notify()
	return next, true
}

// BeginBatch starts collapsing pushes into one entry. Batches nest.
func (h *Snapshots) BeginBatch() {
	if h.depth == 0 {
		h.batched = false
	}
	h.depth++
}

// EndBatch closes the innermost batch. Closing the outermost one sends a single
// notification if anything was pushed.
func (h *Snapshots) EndBatch() {
	if h.depth == 0 {
		return
	}
	h.depth--
	if h.depth == 0 && h.batched {
		h.batched = false
		h.notify()
	}
}

// InBatch reports whether a batch is open.
func (h *Snapshots) InBatch() bool { return h.depth > 0 }

// CanUndo reports whether Undo has an entry to apply.
func (h *Snapshots) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether Redo has an entry to apply.
func (h *Snapshots) CanRedo() bool { return len(h.future) > 0 }

// Len returns the number of undo entries.
func (h *Snapshots) Len() int { return len(h.past) }

// Clear drops every entry.
func (h *Snapshots) Clear() {
	h.past, h.future = nil, nil
	h.notify()
}

// Availability returns the current flags.
func (h *Snapshots) Availability() Availability {
	return Availability{CanUndo: h.CanUndo(), CanRedo: h.CanRedo()}
}

// Subscribe registers fn to be called after every change. The returned function
// removes the subscription.
func (h *Snapshots) Subscribe(fn func(Availability)) func() {
	return h.observers.subscribe(fn)
}

func (h *Snapshots) notify() {
	h.observers.notify(h.Availability())
}
