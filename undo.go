package folio

import (
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/history"
)

// undoStack is the history an Editor records into: command inverses by default, whole
// document snapshots with WithSnapshotHistory.
type undoStack interface {
	record(before *domain.Document, cmd domain.Command, res domain.Result)
	undo(current *domain.Document) (domain.Result, bool, error)
	redo(current *domain.Document) (domain.Result, bool, error)
	BeginBatch()
	EndBatch()
	CanUndo() bool
	CanRedo() bool
	Clear()
	Subscribe(fn func(history.Availability)) func()
}

type commandStack struct {
	*history.Commands
}

func (s commandStack) record(_ *domain.Document, cmd domain.Command, res domain.Result) {
	s.Push(cmd, res.Inverse)
}

func (s commandStack) undo(current *domain.Document) (domain.Result, bool, error) {
	return s.UndoResult(current)
}

func (s commandStack) redo(current *domain.Document) (domain.Result, bool, error) {
	return s.RedoResult(current)
}

type snapshotStack struct {
	*history.Snapshots
}

func (s snapshotStack) record(before *domain.Document, _ domain.Command, _ domain.Result) {
	s.Push(before)
}

func (s snapshotStack) undo(current *domain.Document) (domain.Result, bool, error) {
	prev, ok := s.Undo(current)
	return snapshotResult(current, prev, ok)
}

func (s snapshotStack) redo(current *domain.Document) (domain.Result, bool, error) {
	next, ok := s.Redo(current)
	return snapshotResult(current, next, ok)
}

// snapshotResult treats a jump as structural unless only node props differ.
func snapshotResult(current, target *domain.Document, ok bool) (domain.Result, bool, error) {
	if !ok {
		return domain.Result{}, false, nil
	}
	d := domain.Diff(current, target)
	structural := d != nil && (len(d.AddedNodes) > 0 || len(d.RemovedNodes) > 0 ||
		len(d.AddedSlots) > 0 || len(d.RemovedSlots) > 0 || len(d.ChangedSlots) > 0)
	return domain.Result{Document: target, StructureChanged: structural}, true, nil
}
