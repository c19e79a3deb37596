package domain

import "fmt"

// Subtree is a captured piece of a document: every node and slot beneath a root,
// with their IDs. Removal commands put a Subtree into their inverse so that undo
// restores the original identities instead of rebuilding equivalent content.
type Subtree struct {
	// Root is the top node for node captures, empty for slot captures.
	Root  NodeID  `json:"root,omitempty" yaml:"root,omitempty"`
	Nodes []*Node `json:"nodes" yaml:"nodes"`
	Slots []*Slot `json:"slots" yaml:"slots"`
}

// CaptureNode copies out the subtree rooted at id.
func CaptureNode(doc *Document, id NodeID) (*Subtree, error) {
	if _, ok := doc.Nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	nodeIDs, slotIDs := CollectSubtree(doc, id)
	return capture(doc, id, nodeIDs, slotIDs), nil
}

// CaptureSlot copies out a slot and everything beneath its children.
func CaptureSlot(doc *Document, id SlotID) (*Subtree, error) {
	if _, ok := doc.Slots[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, id)
	}
	nodeIDs, slotIDs := CollectSlotSubtree(doc, id)
	return capture(doc, "", nodeIDs, slotIDs), nil
}

func capture(doc *Document, root NodeID, nodeIDs []NodeID, slotIDs []SlotID) *Subtree {
	st := &Subtree{
		Root:  root,
		Nodes: make([]*Node, 0, len(nodeIDs)),
		Slots: make([]*Slot, 0, len(slotIDs)),
	}
	for _, id := range nodeIDs {
		st.Nodes = append(st.Nodes, doc.Nodes[id])
	}
	for _, id := range slotIDs {
		st.Slots = append(st.Slots, doc.Slots[id])
	}
	return st
}

// Remove deletes every node and slot of st from the transaction.
// Parent references to the subtree root are left to the caller.
func (tx *Tx) Remove(st *Subtree) {
	for _, n := range st.Nodes {
		tx.DeleteNode(n.ID)
	}
	for _, s := range st.Slots {
		tx.DeleteSlot(s.ID)
	}
}

// Restore puts every node and slot of st back into the transaction.
// It fails if any ID is already in use.
func (tx *Tx) Restore(st *Subtree) error {
	for _, n := range st.Nodes {
		if _, exists := tx.nodes[n.ID]; exists {
			return fmt.Errorf("%w: node %s already exists", ErrNotAllowed, n.ID)
		}
	}
	for _, s := range st.Slots {
		if _, exists := tx.slots[s.ID]; exists {
			return fmt.Errorf("%w: slot %s already exists", ErrNotAllowed, s.ID)
		}
	}
	for _, n := range st.Nodes {
		tx.PutNode(n)
	}
	for _, s := range st.Slots {
		tx.PutSlot(s)
	}
	return nil
}

// Check verifies that st is self-contained. Every slot is listed by exactly one captured
// node that owns it, except the top slot of a slot capture whose owner lies outside. Every
// child is a captured node. Every node except the root hangs exactly once beneath the top.
func (st *Subtree) Check() error {
	if st == nil {
		return fmt.Errorf("%w: no subtree", ErrInvalidSubtree)
	}
	nodes := make(map[NodeID]*Node, len(st.Nodes))
	for _, n := range st.Nodes {
		if n == nil || n.ID == "" {
			return fmt.Errorf("%w: node without an ID", ErrInvalidSubtree)
		}
		if _, dup := nodes[n.ID]; dup {
			return fmt.Errorf("%w: node %s listed twice", ErrInvalidSubtree, n.ID)
		}
		nodes[n.ID] = n
	}
	slots := make(map[SlotID]*Slot, len(st.Slots))
	for _, s := range st.Slots {
		if s == nil || s.ID == "" {
			return fmt.Errorf("%w: slot without an ID", ErrInvalidSubtree)
		}
		if _, dup := slots[s.ID]; dup {
			return fmt.Errorf("%w: slot %s listed twice", ErrInvalidSubtree, s.ID)
		}
		slots[s.ID] = s
	}

	var top SlotID
	if st.Root != "" {
		if _, ok := nodes[st.Root]; !ok {
			return fmt.Errorf("%w: root %s is not captured", ErrInvalidSubtree, st.Root)
		}
	} else {
		if len(st.Slots) == 0 {
			return fmt.Errorf("%w: slot capture without slots", ErrInvalidSubtree)
		}
		top = st.Slots[0].ID
		if _, inside := nodes[st.Slots[0].Owner]; inside {
			return fmt.Errorf("%w: top slot %s is owned inside the subtree", ErrInvalidSubtree, top)
		}
	}

	listed := make(map[SlotID]bool, len(slots))
	for _, n := range st.Nodes {
		for _, sid := range n.Slots {
			s, ok := slots[sid]
			if !ok {
				return fmt.Errorf("%w: node %s lists slot %s outside the subtree", ErrInvalidSubtree, n.ID, sid)
			}
			if s.Owner != n.ID || listed[sid] {
				return fmt.Errorf("%w: slot %s is not owned by node %s alone", ErrInvalidSubtree, sid, n.ID)
			}
			listed[sid] = true
		}
	}
	parents := make(map[NodeID]int, len(nodes))
	for _, s := range st.Slots {
		if s.ID != top && !listed[s.ID] {
			return fmt.Errorf("%w: slot %s is not listed by its owner %s", ErrInvalidSubtree, s.ID, s.Owner)
		}
		for _, child := range s.Children {
			if _, ok := nodes[child]; !ok {
				return fmt.Errorf("%w: slot %s holds node %s outside the subtree", ErrInvalidSubtree, s.ID, child)
			}
			parents[child]++
		}
	}
	for _, n := range st.Nodes {
		want := 1
		if n.ID == st.Root {
			want = 0
		}
		if parents[n.ID] != want {
			return fmt.Errorf("%w: node %s has %d parents, want %d", ErrInvalidSubtree, n.ID, parents[n.ID], want)
		}
	}

	// With single parents, anything the top does not reach sits on a cycle.
	seen := make(map[NodeID]bool, len(nodes))
	var visitSlot func(id SlotID)
	visitNode := func(id NodeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, sid := range nodes[id].Slots {
			visitSlot(sid)
		}
	}
	visitSlot = func(id SlotID) {
		for _, child := range slots[id].Children {
			visitNode(child)
		}
	}
	if st.Root != "" {
		visitNode(st.Root)
	} else {
		visitSlot(top)
	}
	if len(seen) != len(nodes) {
		return fmt.Errorf("%w: %d node(s) unreachable from the top", ErrInvalidSubtree, len(nodes)-len(seen))
	}
	return nil
}

// Len returns the number of captured nodes.
func (st *Subtree) Len() int {
	if st == nil {
		return 0
	}
	return len(st.Nodes)
}
