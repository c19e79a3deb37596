package history

import (
	"fmt"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/ports"
)

type entry struct {
	command domain.Command
	inverse domain.Command
}

// Commands is the command-inverse history.
type Commands struct {
	dispatcher ports.CommandDispatcher
	limit      int
	undo       []entry
	redo       []entry
	depth      int
	group      []entry
	observers  observers
}

// NewCommands creates a history that replays inverses through dispatcher.
func NewCommands(dispatcher ports.CommandDispatcher, opts ...Option) *Commands {
	return &Commands{dispatcher: dispatcher, limit: newConfig(opts).limit}
}

// Push records an applied command with its inverse and discards the redo stack.
// Inside a batch the entry joins the batch group instead.
func (h *Commands) Push(cmd, inverse domain.Command) {
	if h.depth > 0 {
		h.group = append(h.group, entry{command: cmd, inverse: inverse})
		h.redo = nil
		return
	}
	h.undo = bounded(h.undo, entry{command: cmd, inverse: inverse}, h.limit)
	h.redo = nil
	h.notify()
}

// Undo dispatches the most recent inverse against current.
// With nothing to undo it returns current and false. If the inverse fails, the
// history is left as it was.
func (h *Commands) Undo(current *domain.Document) (*domain.Document, bool, error) {
	res, ok, err := h.UndoResult(current)
	if !ok {
		return current, false, err
	}
	return res.Document, true, nil
}

// UndoResult is Undo returning the full result of the dispatched inverse.
func (h *Commands) UndoResult(current *domain.Document) (domain.Result, bool, error) {
	if len(h.undo) == 0 {
		return domain.Result{}, false, nil
	}
	e := h.undo[len(h.undo)-1]
	res, err := h.dispatcher.Dispatch(current, e.inverse)
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("undo %s: %w", e.command.CommandType(), err)
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, entry{command: res.Inverse, inverse: e.inverse})
	h.notify()
	return res, true, nil
}

// Redo re-applies the most recently undone command against current.
func (h *Commands) Redo(current *domain.Document) (*domain.Document, bool, error) {
	res, ok, err := h.RedoResult(current)
	if !ok {
		return current, false, err
	}
	return res.Document, true, nil
}

// RedoResult is Redo returning the full result of the re-applied command.
func (h *Commands) RedoResult(current *domain.Document) (domain.Result, bool, error) {
	if len(h.redo) == 0 {
		return domain.Result{}, false, nil
	}
	e := h.redo[len(h.redo)-1]
	res, err := h.dispatcher.Dispatch(current, e.command)
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("redo %s: %w", e.command.CommandType(), err)
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = bounded(h.undo, entry{command: e.command, inverse: res.Inverse}, h.limit)
	h.notify()
	return res, true, nil
}

// BeginBatch starts grouping pushed entries into one. Batches nest.
func (h *Commands) BeginBatch() {
	if h.depth == 0 {
		h.group = nil
	}
	h.depth++
}

// EndBatch closes the innermost batch. Closing the outermost one records the group as a
// single domain.Batch entry whose inverse runs the recorded inverses last-in first-out.
func (h *Commands) EndBatch() {
	if h.depth == 0 {
		return
	}
	h.depth--
	if h.depth > 0 || len(h.group) == 0 {
		return
	}
	group := h.group
	h.group = nil
	if len(group) == 1 {
		h.Push(group[0].command, group[0].inverse)
		return
	}
	cmds := make([]domain.Command, len(group))
	inverses := make([]domain.Command, len(group))
	for i, e := range group {
		cmds[i] = e.command
		inverses[len(group)-1-i] = e.inverse
	}
	h.Push(domain.Batch{Commands: cmds}, domain.Batch{Commands: inverses})
}

// InBatch reports whether a batch is open.
func (h *Commands) InBatch() bool { return h.depth > 0 }

// CanUndo reports whether Undo has an entry to apply.
func (h *Commands) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether Redo has an entry to apply.
func (h *Commands) CanRedo() bool { return len(h.redo) > 0 }

// Len returns the number of undo entries.
func (h *Commands) Len() int { return len(h.undo) }

// Clear drops every entry.
func (h *Commands) Clear() {
	h.undo, h.redo, h.group = nil, nil, nil
	h.notify()
}

// Availability returns the current flags.
func (h *Commands) Availability() Availability {
	return Availability{CanUndo: h.CanUndo(), CanRedo: h.CanRedo()}
}

// Subscribe registers fn to be called after every change. The returned function
// removes the subscription.
func (h *Commands) Subscribe(fn func(Availability)) func() {
	return h.observers.subscribe(fn)
}

func (h *Commands) notify() {
	h.observers.notify(h.Availability())
}
