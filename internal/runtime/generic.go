package runtime

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
)

// targetSlot resolves a slot and the component of its owner for an insertion.
func (e *Engine) targetSlot(doc *domain.Document, slotID domain.SlotID) (*domain.Slot, *domain.Node, *registry.Component, error) {
	slot, ok := domain.FindSlot(doc, slotID)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s", domain.ErrSlotNotFound, slotID)
	}
	owner, ok := domain.FindNode(doc, slot.Owner)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: owner %s of slot %s", domain.ErrNodeNotFound, slot.Owner, slotID)
	}
	comp, err := e.registry.Lookup(owner.Type)
	if err != nil {
		return nil, nil, nil, err
	}
	return slot, owner, comp, nil
}

// checkPlacement verifies that a node of childType may live in slot.
func (e *Engine) checkPlacement(doc *domain.Document, slot *domain.Slot, owner *domain.Node, ownerComp *registry.Component, childType string) error {
	childComp, err := e.registry.Lookup(childType)
	if err != nil {
		return err
	}
	if !ownerComp.Accepts(childComp) {
		return fmt.Errorf("%w: %s does not accept %s children", domain.ErrNotAllowed, owner.Type, childType)
	}
	if ownerComp.CanInsert != nil {
		if err := ownerComp.CanInsert(doc, owner, slot); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) insertNode(doc *domain.Document, c domain.InsertNode) (domain.Result, error) {
	slot, owner, ownerComp, err := e.targetSlot(doc, c.Slot)
	if err != nil {
		return domain.Result{}, err
	}
	if c.Index < 0 || c.Index > len(slot.Children) {
		return domain.Result{}, fmt.Errorf("%w: index %d not in [0,%d]", domain.ErrOutOfRange, c.Index, len(slot.Children))
	}

	tx := domain.Begin(doc)
	var rootID domain.NodeID

	if c.Restore != nil {
		if err := e.registry.CheckSubtree(doc, c.Restore); err != nil {
			return domain.Result{}, err
		}
		root, ok := restoreRoot(c.Restore)
		if !ok {
			return domain.Result{}, fmt.Errorf("%w: restore payload has no root node", domain.ErrInvalidSubtree)
		}
		if err := e.checkPlacement(doc, slot, owner, ownerComp, root.Type); err != nil {
			return domain.Result{}, err
		}
		if err := tx.Restore(c.Restore); err != nil {
			return domain.Result{}, err
		}
		rootID = root.ID
	} else {
		if err := e.checkPlacement(doc, slot, owner, ownerComp, c.Type); err != nil {
			return domain.Result{}, err
		}
		node, slots, err := e.registry.NewNode(c.Type, c.Props, e.ids)
		if err != nil {
			return domain.Result{}, err
		}
		tx.PutNode(node)
		for _, s := range slots {
			tx.PutSlot(s)
		}
		rootID = node.ID
	}

	if err := tx.InsertChild(slot.ID, c.Index, rootID); err != nil {
		return domain.Result{}, err
	}
	next := tx.Commit()
	if c.Restore != nil {
		if err := e.registry.ValidateNodes(next, c.Restore.Nodes); err != nil {
			return domain.Result{}, err
		}
	}

	return domain.Result{
		Document:         next,
		Inverse:          domain.RemoveNode{Node: rootID},
		StructureChanged: true,
	}, nil
}

func restoreRoot(st *domain.Subtree) (*domain.Node, bool) {
	for _, n := range st.Nodes {
		if n.ID == st.Root {
			return n, true
		}
	}
	return nil, false
}

func (e *Engine) removeNode(doc *domain.Document, c domain.RemoveNode) (domain.Result, error) {
	if _, ok := domain.FindNode(doc, c.Node); !ok {
		return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, c.Node)
	}
	if c.Node == doc.Root {
		return domain.Result{}, fmt.Errorf("%w: cannot remove the root node", domain.ErrNotAllowed)
	}
	parent, _, ok := domain.ParentOf(doc, c.Node)
	if !ok {
		return domain.Result{}, fmt.Errorf("%w: node %s is detached", domain.ErrNotAllowed, c.Node)
	}

	st, err := domain.CaptureNode(doc, c.Node)
	if err != nil {
		return domain.Result{}, err
	}

	tx := domain.Begin(doc)
	index, err := tx.RemoveChild(parent.ID, c.Node)
	if err != nil {
		return domain.Result{}, err
	}
	tx.Remove(st)

	return domain.Result{
		Document:         tx.Commit(),
		Inverse:          domain.InsertNode{Slot: parent.ID, Index: index, Restore: st},
		StructureChanged: true,
	}, nil
}

func (e *Engine) updateNodeProps(doc *domain.Document, c domain.UpdateNodeProps) (domain.Result, error) {
	node, ok := domain.FindNode(doc, c.Node)
	if !ok {
		return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, c.Node)
	}
	comp, err := e.registry.Lookup(node.Type)
	if err != nil {
		return domain.Result{}, err
	}

	keys := slices.Collect(maps.Keys(c.Set))
	keys = append(keys, c.Unset...)
	for _, k := range keys {
		if comp.IsReserved(k) {
			return domain.Result{}, fmt.Errorf("%w: property %q of %s is managed by its own commands", domain.ErrNotAllowed, k, node.Type)
		}
	}

	// Every stored bag is canonical, so the inverse restores normalized prior values.
	prior, err := comp.Normalize(node.Props)
	if err != nil {
		return domain.Result{}, err
	}

	inverse := domain.UpdateNodeProps{Node: node.ID}
	next := maps.Clone(prior)
	if next == nil {
		next = make(map[string]any)
	}
	record := func(k string) {
		if old, existed := prior[k]; existed {
			if inverse.Set == nil {
				inverse.Set = make(map[string]any)
			}
			inverse.Set[k] = old
		} else if !slices.Contains(inverse.Unset, k) {
			inverse.Unset = append(inverse.Unset, k)
		}
	}
	for _, k := range c.Unset {
		if _, existed := prior[k]; !existed {
			continue
		}
		record(k)
		delete(next, k)
	}
	for k, v := range c.Set {
		if _, recorded := inverse.Set[k]; !recorded {
			record(k)
		}
		next[k] = v
	}
	sort.Strings(inverse.Unset)

	next, err = comp.Normalize(next)
	if err != nil {
		return domain.Result{}, err
	}

	updated := node.Clone()
	updated.Props = next
	tx := domain.Begin(doc)
	tx.PutNode(updated)
	newDoc := tx.Commit()

	if comp.Validate != nil {
		if err := comp.Validate(newDoc, updated); err != nil {
			return domain.Result{}, err
		}
	}

	return domain.Result{
		Document:         newDoc,
		Inverse:          inverse,
		StructureChanged: false,
	}, nil
}

func (e *Engine) moveNode(doc *domain.Document, c domain.MoveNode) (domain.Result, error) {
	node, ok := domain.FindNode(doc, c.Node)
	if !ok {
		return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, c.Node)
	}
	if c.Node == doc.Root {
		return domain.Result{}, fmt.Errorf("%w: cannot move the root node", domain.ErrNotAllowed)
	}
	from, _, ok := domain.ParentOf(doc, c.Node)
	if !ok {
		return domain.Result{}, fmt.Errorf("%w: node %s is detached", domain.ErrNotAllowed, c.Node)
	}
	slot, owner, ownerComp, err := e.targetSlot(doc, c.Slot)
	if err != nil {
		return domain.Result{}, err
	}
	if domain.Contains(doc, c.Node, owner.ID) {
		return domain.Result{}, fmt.Errorf("%w: cannot move %s into its own subtree", domain.ErrNotAllowed, c.Node)
	}
	if err := e.checkPlacement(doc, slot, owner, ownerComp, node.Type); err != nil {
		return domain.Result{}, err
	}

	tx := domain.Begin(doc)
	fromIndex, err := tx.RemoveChild(from.ID, c.Node)
	if err != nil {
		return domain.Result{}, err
	}
	if err := tx.InsertChild(slot.ID, c.Index, c.Node); err != nil {
		return domain.Result{}, err
	}

	return domain.Result{
		Document:         tx.Commit(),
		Inverse:          domain.MoveNode{Node: c.Node, Slot: from.ID, Index: fromIndex},
		StructureChanged: true,
	}, nil
}
