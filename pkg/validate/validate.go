package validate

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
)

// Document checks doc against the structural invariants:
//
//   - the root exists and is of a root type; no other node is;
//   - every slot is listed by exactly one node, which is its owner;
//   - every non-root node sits in exactly one slot, reachable from the root, with no cycles;
//   - every child is accepted by its slot's owner;
//   - every node's props normalize and its component-level checks pass
//     (table grid shape, merges and covered cells; column slots).
//
// It returns nil or an *AggregateError.
func Document(reg *registry.Registry, doc *domain.Document) error {
	v := &validator{reg: reg, doc: doc, comps: make(map[domain.NodeID]*registry.Component)}
	v.run()
	if len(v.issues) == 0 {
		return nil
	}
	return &AggregateError{Issues: v.issues}
}

type validator struct {
	reg    *registry.Registry
	doc    *domain.Document
	comps  map[domain.NodeID]*registry.Component
	issues []*Issue
}

func (v *validator) add(node domain.NodeID, slot domain.SlotID, sentinel error, format string, args ...any) {
	v.issues = append(v.issues, &Issue{
		Node: node,
		Slot: slot,
		Err:  fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	})
}

func (v *validator) run() {
	doc := v.doc
	if doc.Version > domain.FormatVersion {
		v.add("", "", domain.ErrValidation, "version %d is newer than %d", doc.Version, domain.FormatVersion)
	}
	if _, ok := doc.Nodes[doc.Root]; !ok {
		v.add(doc.Root, "", domain.ErrNodeNotFound, "root node is missing")
		return
	}

	nodeIDs := sorted(doc.Nodes)
	slotIDs := sorted(doc.Slots)

	for _, id := range nodeIDs {
		v.checkNode(id, doc.Nodes[id])
	}

	listedBy := make(map[domain.SlotID]domain.NodeID, len(doc.Slots))
	for _, id := range nodeIDs {
		for _, sid := range doc.Nodes[id].Slots {
			s, ok := doc.Slots[sid]
			if !ok {
				v.add(id, sid, domain.ErrSlotNotFound, "listed slot does not exist")
				continue
			}
			if prev, dup := listedBy[sid]; dup {
				v.add(id, sid, domain.ErrValidation, "slot is also listed by node %s", prev)
				continue
			}
			listedBy[sid] = id
			if s.Owner != id {
				v.add(id, sid, domain.ErrValidation, "slot owner is %s", s.Owner)
			}
		}
	}

	parentOf := make(map[domain.NodeID]domain.SlotID, len(doc.Nodes))
	for _, sid := range slotIDs {
		s := doc.Slots[sid]
		if s.ID != sid {
			v.add("", sid, domain.ErrValidation, "slot is stored under key %s but has ID %s", sid, s.ID)
		}
		if _, ok := listedBy[sid]; !ok {
			v.add(s.Owner, sid, domain.ErrValidation, "slot is not listed by any node")
		}
		owner := v.comps[s.Owner]
		for _, child := range s.Children {
			if _, ok := doc.Nodes[child]; !ok {
				v.add(child, sid, domain.ErrNodeNotFound, "child does not exist")
				continue
			}
			if prev, dup := parentOf[child]; dup {
				v.add(child, sid, domain.ErrValidation, "node is also a child of slot %s", prev)
				continue
			}
			parentOf[child] = sid
			if c := v.comps[child]; owner != nil && c != nil && !owner.Accepts(c) {
				v.add(child, sid, domain.ErrNotAllowed, "%s does not accept %s children", owner.Type, c.Type)
			}
		}
	}

	if _, ok := parentOf[doc.Root]; ok {
		v.add(doc.Root, parentOf[doc.Root], domain.ErrNotAllowed, "root node is a child")
	}
	v.checkReachable(parentOf)

	for _, id := range nodeIDs {
		c := v.comps[id]
		if c == nil || c.Validate == nil {
			continue
		}
		if err := c.Validate(doc, doc.Nodes[id]); err != nil {
			v.issues = append(v.issues, &Issue{Node: id, Err: err})
		}
	}
}

func (v *validator) checkNode(id domain.NodeID, n *domain.Node) {
	if n == nil {
		v.add(id, "", domain.ErrNodeNotFound, "node is null")
		return
	}
	if n.ID != id {
		v.add(id, "", domain.ErrValidation, "node is stored under key %s but has ID %s", id, n.ID)
	}
	c, err := v.reg.Lookup(n.Type)
	if err != nil {
		v.issues = append(v.issues, &Issue{Node: id, Err: err})
		return
	}
	v.comps[id] = c
	if c.Root != (id == v.doc.Root) {
		if c.Root {
			v.add(id, "", domain.ErrNotAllowed, "%s may only be the document root", n.Type)
		} else {
			v.add(id, "", domain.ErrNotAllowed, "%s cannot be the document root", n.Type)
		}
	}
	if _, err := c.Normalize(n.Props); err != nil {
		v.issues = append(v.issues, &Issue{Node: id, Err: err})
	}
}

// checkReachable walks down from the root. Nodes not reached are orphans or sit on a
// cycle detached from the root.
func (v *validator) checkReachable(parentOf map[domain.NodeID]domain.SlotID) {
	doc := v.doc
	seen := make(map[domain.NodeID]bool, len(doc.Nodes))
	var walk func(id domain.NodeID)
	walk = func(id domain.NodeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		n := doc.Nodes[id]
		if n == nil {
			return
		}
		for _, sid := range n.Slots {
			s, ok := doc.Slots[sid]
			if !ok || s.Owner != id {
				continue
			}
			for _, child := range s.Children {
				if _, ok := doc.Nodes[child]; ok && parentOf[child] == sid {
					walk(child)
				}
			}
		}
	}
	walk(doc.Root)

	for _, id := range sorted(doc.Nodes) {
		if seen[id] {
			continue
		}
		if _, hasParent := parentOf[id]; hasParent {
			v.add(id, parentOf[id], domain.ErrNotAllowed, "node is not reachable from the root (cycle)")
		} else {
			v.add(id, "", domain.ErrValidation, "node is not reachable from the root")
		}
	}
}

func sorted[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
