package dnd

import (
	"fmt"
	"slices"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/outline"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/aretw0/folio/pkg/registry"
)

// Position places a drop relative to its target node.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
	Inside Position = "inside"
)

// Zone is a place where a dragged node can land.
type Zone struct {
	Target   domain.NodeID `json:"target"`
	Position Position      `json:"position"`
	// Slot is the slot that would receive the node.
	Slot domain.SlotID `json:"slot"`
}

// DragDrop evaluates drops against a registry and applies them through a dispatcher.
type DragDrop struct {
	registry   *registry.Registry
	dispatcher ports.CommandDispatcher
}

// New creates a DragDrop.
func New(reg *registry.Registry, dispatcher ports.CommandDispatcher) *DragDrop {
	return &DragDrop{registry: reg, dispatcher: dispatcher}
}

// CanDrag reports whether the node exists and may be moved.
func (d *DragDrop) CanDrag(doc *domain.Document, id domain.NodeID) bool {
	return d.checkDrag(doc, id) == nil
}

// CanDrop reports whether dragged may land at position relative to target.
func (d *DragDrop) CanDrop(doc *domain.Document, dragged, target domain.NodeID, pos Position) bool {
	_, err := d.destination(doc, dragged, target, pos)
	return err == nil
}

// DropZones lists every valid drop for dragged in document order. Nil if it cannot be
// dragged at all.
func (d *DragDrop) DropZones(doc *domain.Document, dragged domain.NodeID) ([]Zone, error) {
	if !d.CanDrag(doc, dragged) {
		return nil, nil
	}
	var zones []Zone
	err := outline.Walk(doc, func(e outline.Entry) error {
		if e.Node.ID == dragged {
			return outline.SkipChildren
		}
		for _, pos := range []Position{Before, Inside, After} {
			if slot, err := d.destination(doc, dragged, e.Node.ID, pos); err == nil {
				zones = append(zones, Zone{Target: e.Node.ID, Position: pos, Slot: slot.ID})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// Drop moves dragged relative to target. For Inside, index is the position within the
// receiving slot counted after dragged has been detached; a negative index appends.
// Before and After ignore index.
func (d *DragDrop) Drop(doc *domain.Document, dragged, target domain.NodeID, index int, pos Position) (domain.MoveNode, domain.Result, error) {
	slot, err := d.destination(doc, dragged, target, pos)
	if err != nil {
		return domain.MoveNode{}, domain.Result{}, err
	}
	siblings := slices.DeleteFunc(slices.Clone(slot.Children), func(id domain.NodeID) bool { return id == dragged })

	switch pos {
	case Inside:
		if index < 0 {
			index = len(siblings)
		}
		if index > len(siblings) {
			return domain.MoveNode{}, domain.Result{}, fmt.Errorf("%w: index %d not in [0,%d]", domain.ErrOutOfRange, index, len(siblings))
		}
	case Before:
		index = slices.Index(siblings, target)
	case After:
		index = slices.Index(siblings, target) + 1
	}

	cmd := domain.MoveNode{Node: dragged, Slot: slot.ID, Index: index}
	res, err := d.dispatcher.Dispatch(doc, cmd)
	if err != nil {
		return domain.MoveNode{}, domain.Result{}, err
	}
	return cmd, res, nil
}

func (d *DragDrop) checkDrag(doc *domain.Document, id domain.NodeID) error {
	n, ok := domain.FindNode(doc, id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	if id == doc.Root {
		return fmt.Errorf("%w: the root cannot be dragged", domain.ErrNotAllowed)
	}
	comp, err := d.registry.Lookup(n.Type)
	if err != nil {
		return err
	}
	if comp.Fixed {
		return fmt.Errorf("%w: %s nodes cannot be dragged", domain.ErrNotAllowed, n.Type)
	}
	return nil
}

// destination resolves the slot a drop would land in, or why it cannot.
func (d *DragDrop) destination(doc *domain.Document, dragged, target domain.NodeID, pos Position) (*domain.Slot, error) {
	if err := d.checkDrag(doc, dragged); err != nil {
		return nil, err
	}
	targetNode, ok := domain.FindNode(doc, target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, target)
	}
	if domain.Contains(doc, dragged, target) {
		return nil, fmt.Errorf("%w: %s is inside %s", domain.ErrNotAllowed, target, dragged)
	}

	switch pos {
	case Before, After:
		parent, _, ok := domain.ParentOf(doc, target)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no parent slot", domain.ErrNotAllowed, target)
		}
		if err := d.accepts(doc, parent, dragged); err != nil {
			return nil, err
		}
		return parent, nil
	case Inside:
		var lastErr error = fmt.Errorf("%w: %s has no slots", domain.ErrNotAllowed, target)
		for _, v := range outline.Slots(doc, targetNode) {
			if err := d.accepts(doc, v.Slot, dragged); err != nil {
				lastErr = err
				continue
			}
			return v.Slot, nil
		}
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: unknown drop position %q", domain.ErrNotAllowed, pos)
}

func (d *DragDrop) accepts(doc *domain.Document, slot *domain.Slot, dragged domain.NodeID) error {
	owner, ok := domain.FindNode(doc, slot.Owner)
	if !ok {
		return fmt.Errorf("%w: owner %s of slot %s", domain.ErrNodeNotFound, slot.Owner, slot.ID)
	}
	ownerComp, err := d.registry.Lookup(owner.Type)
	if err != nil {
		return err
	}
	childComp, err := d.registry.Lookup(doc.Nodes[dragged].Type)
	if err != nil {
		return err
	}
	if !ownerComp.Accepts(childComp) {
		return fmt.Errorf("%w: %s does not accept %s children", domain.ErrNotAllowed, owner.Type, childComp.Type)
	}
	if ownerComp.CanInsert != nil {
		return ownerComp.CanInsert(doc, owner, slot)
	}
	return nil
}
