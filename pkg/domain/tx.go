package domain

import (
	"fmt"
	"maps"
	"slices"
)

// Tx builds a new Document from a base Document without modifying the base.
// The node and slot maps are copied on the first write; every Put stores a value the
// caller must not touch afterwards. Reads see the pending state.
type Tx struct {
	base  *Document
	nodes map[NodeID]*Node
	slots map[SlotID]*Slot
	dirty bool
}

// Begin starts a transaction on doc.
func Begin(doc *Document) *Tx {
	return &Tx{base: doc, nodes: doc.Nodes, slots: doc.Slots}
}

func (tx *Tx) detach() {
	if tx.dirty {
		return
	}
	tx.nodes = maps.Clone(tx.base.Nodes)
	tx.slots = maps.Clone(tx.base.Slots)
	if tx.nodes == nil {
		tx.nodes = make(map[NodeID]*Node)
	}
	if tx.slots == nil {
		tx.slots = make(map[SlotID]*Slot)
	}
	tx.dirty = true
}

// Node returns the pending value of a node.
func (tx *Tx) Node(id NodeID) (*Node, bool) {
	n, ok := tx.nodes[id]
	return n, ok
}

// Slot returns the pending value of a slot.
func (tx *Tx) Slot(id SlotID) (*Slot, bool) {
	s, ok := tx.slots[id]
	return s, ok
}

// PutNode stores n, replacing any node with the same ID.
func (tx *Tx) PutNode(n *Node) {
	tx.detach()
	tx.nodes[n.ID] = n
}

// PutSlot stores s, replacing any slot with the same ID.
func (tx *Tx) PutSlot(s *Slot) {
	tx.detach()
	tx.slots[s.ID] = s
}

// DeleteNode removes a node entry. Slots and parent references are not touched.
func (tx *Tx) DeleteNode(id NodeID) {
	tx.detach()
	delete(tx.nodes, id)
}

// DeleteSlot removes a slot entry.
func (tx *Tx) DeleteSlot(id SlotID) {
	tx.detach()
	delete(tx.slots, id)
}

// InsertChild inserts child into slot at index.
func (tx *Tx) InsertChild(slotID SlotID, index int, child NodeID) error {
	s, ok := tx.slots[slotID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
	}
	if index < 0 || index > len(s.Children) {
		return fmt.Errorf("%w: index %d not in [0,%d]", ErrOutOfRange, index, len(s.Children))
	}
	ns := s.Clone()
	ns.Children = slices.Insert(ns.Children, index, child)
	tx.PutSlot(ns)
	return nil
}

// RemoveChild detaches child from slot and returns its former index.
func (tx *Tx) RemoveChild(slotID SlotID, child NodeID) (int, error) {
	s, ok := tx.slots[slotID]
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
	}
	i := slices.Index(s.Children, child)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s is not a child of slot %s", ErrNodeNotFound, child, slotID)
	}
	ns := s.Clone()
	ns.Children = slices.Delete(ns.Children, i, i+1)
	tx.PutSlot(ns)
	return i, nil
}

// SetChildren replaces the whole child list of a slot.
func (tx *Tx) SetChildren(slotID SlotID, children []NodeID) error {
	s, ok := tx.slots[slotID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
	}
	ns := s.Clone()
	ns.Children = slices.Clone(children)
	if ns.Children == nil {
		ns.Children = []NodeID{}
	}
	tx.PutSlot(ns)
	return nil
}

// RenameSlot changes the name of a slot, keeping its ID and children.
func (tx *Tx) RenameSlot(slotID SlotID, name string) error {
	s, ok := tx.slots[slotID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
	}
	if s.Name == name {
		return nil
	}
	ns := s.Clone()
	ns.Name = name
	tx.PutSlot(ns)
	return nil
}

// Document returns a read-only view of the pending state, for queries mid-transaction.
func (tx *Tx) Document() *Document {
	return &Document{Version: tx.base.Version, Root: tx.base.Root, Nodes: tx.nodes, Slots: tx.slots}
}

// Commit returns the new document. If nothing was written, the base document is returned.
func (tx *Tx) Commit() *Document {
	if !tx.dirty {
		return tx.base
	}
	doc := &Document{Version: tx.base.Version, Root: tx.base.Root, Nodes: tx.nodes, Slots: tx.slots}
	// Any later write starts from a fresh copy so the committed maps stay frozen.
	tx.base = doc
	tx.dirty = false
	return doc
}
