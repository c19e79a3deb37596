package domain

import (
	"maps"
	"reflect"
	"slices"
)

// FormatVersion is the wire format version written into new documents.
const FormatVersion = 1

// NodeID identifies a Node. IDs are globally unique and stable across edits.
type NodeID string

// SlotID identifies a Slot. IDs are globally unique and stable across renames.
type SlotID string

// Node represents a typed entity in the document tree.
type Node struct {
	ID    NodeID   `json:"id" yaml:"id"`
	Type  string   `json:"type" yaml:"type"`
	Slots []SlotID `json:"slots" yaml:"slots"`

	// Props holds type-specific data. Components decode it into typed structs; keys the
	// component does not know about are carried along untouched. An empty bag is nil.
	Props map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
}

// Clone returns a copy that can be modified without affecting n.
// Prop values are copied shallowly.
func (n *Node) Clone() *Node {
	c := *n
	c.Slots = slices.Clone(n.Slots)
	if c.Slots == nil {
		c.Slots = []SlotID{}
	}
	if n.Props != nil {
		c.Props = maps.Clone(n.Props)
	}
	return &c
}

// Slot is a named, ordered child container owned by a single node.
type Slot struct {
	ID       SlotID   `json:"id" yaml:"id"`
	Owner    NodeID   `json:"ownerNodeId" yaml:"ownerNodeId"`
	Name     string   `json:"name" yaml:"name"`
	Children []NodeID `json:"children" yaml:"children"`
}

// Clone returns a copy that can be modified without affecting s.
func (s *Slot) Clone() *Slot {
	c := *s
	c.Children = slices.Clone(s.Children)
	if c.Children == nil {
		c.Children = []NodeID{}
	}
	return &c
}

// Document is a single rooted tree of nodes and slots.
// The maps and the values they point to must be treated as read-only.
type Document struct {
	Version int              `json:"version" yaml:"version"`
	Root    NodeID           `json:"rootNodeId" yaml:"rootNodeId"`
	Nodes   map[NodeID]*Node `json:"nodes" yaml:"nodes"`
	Slots   map[SlotID]*Slot `json:"slots" yaml:"slots"`
}

// NewDocument creates a document holding only the given root node and its slots.
func NewDocument(root *Node, slots []*Slot) *Document {
	doc := &Document{
		Version: FormatVersion,
		Root:    root.ID,
		Nodes:   map[NodeID]*Node{root.ID: root},
		Slots:   make(map[SlotID]*Slot, len(slots)),
	}
	for _, s := range slots {
		doc.Slots[s.ID] = s
	}
	return doc
}

// FindNode looks up a node by ID.
func FindNode(doc *Document, id NodeID) (*Node, bool) {
	n, ok := doc.Nodes[id]
	return n, ok
}

// FindSlot looks up a slot by ID.
func FindSlot(doc *Document, id SlotID) (*Slot, bool) {
	s, ok := doc.Slots[id]
	return s, ok
}

// FindSlotByName returns the slot of node with the given name.
func FindSlotByName(doc *Document, node *Node, name string) (*Slot, bool) {
	for _, sid := range node.Slots {
		if s, ok := doc.Slots[sid]; ok && s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// ParentOf returns the slot holding nodeID and the node's index in it.
// The root node has no parent.
func ParentOf(doc *Document, nodeID NodeID) (*Slot, int, bool) {
	for _, s := range doc.Slots {
		if i := slices.Index(s.Children, nodeID); i >= 0 {
			return s, i, true
		}
	}
	return nil, -1, false
}

// CollectSubtree returns every node and slot owned beneath nodeID, the node itself included.
// Both lists are in depth-first pre-order. Missing references are skipped.
func CollectSubtree(doc *Document, nodeID NodeID) ([]NodeID, []SlotID) {
	var nodes []NodeID
	var slots []SlotID
	collectNode(doc, nodeID, &nodes, &slots, make(map[NodeID]bool))
	return nodes, slots
}

// CollectSlotSubtree is CollectSubtree for a slot: the slot, then everything beneath its children.
func CollectSlotSubtree(doc *Document, slotID SlotID) ([]NodeID, []SlotID) {
	var nodes []NodeID
	var slots []SlotID
	collectSlot(doc, slotID, &nodes, &slots, make(map[NodeID]bool))
	return nodes, slots
}

func collectNode(doc *Document, id NodeID, nodes *[]NodeID, slots *[]SlotID, seen map[NodeID]bool) {
	n, ok := doc.Nodes[id]
	if !ok || seen[id] {
		return
	}
	seen[id] = true
	*nodes = append(*nodes, id)
	for _, sid := range n.Slots {
		collectSlot(doc, sid, nodes, slots, seen)
	}
}

func collectSlot(doc *Document, id SlotID, nodes *[]NodeID, slots *[]SlotID, seen map[NodeID]bool) {
	s, ok := doc.Slots[id]
	if !ok {
		return
	}
	*slots = append(*slots, id)
	for _, child := range s.Children {
		collectNode(doc, child, nodes, slots, seen)
	}
}

// Contains reports whether target is ancestor itself or lies anywhere beneath it.
func Contains(doc *Document, ancestor, target NodeID) bool {
	nodes, _ := CollectSubtree(doc, ancestor)
	return slices.Contains(nodes, target)
}

// Equal reports whether two documents hold the same nodes and slots, IDs included.
func Equal(a, b *Document) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Version != b.Version || a.Root != b.Root || len(a.Nodes) != len(b.Nodes) || len(a.Slots) != len(b.Slots) {
		return false
	}
	for id, na := range a.Nodes {
		nb, ok := b.Nodes[id]
		if !ok {
			return false
		}
		if na != nb && !reflect.DeepEqual(na, nb) {
			return false
		}
	}
	for id, sa := range a.Slots {
		sb, ok := b.Slots[id]
		if !ok {
			return false
		}
		if sa != sb && !reflect.DeepEqual(sa, sb) {
			return false
		}
	}
	return true
}
