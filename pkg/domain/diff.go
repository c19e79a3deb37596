package domain

import (
	"reflect"
	"slices"
)

// DocumentDiff lists the node and slot IDs that differ between two documents.
// It is designed to be serialized to JSON for partial updates on a client.
type DocumentDiff struct {
	AddedNodes   []NodeID `json:"added_nodes,omitempty"`
	RemovedNodes []NodeID `json:"removed_nodes,omitempty"`
	ChangedNodes []NodeID `json:"changed_nodes,omitempty"`

	AddedSlots   []SlotID `json:"added_slots,omitempty"`
	RemovedSlots []SlotID `json:"removed_slots,omitempty"`
	ChangedSlots []SlotID `json:"changed_slots,omitempty"`
}

// Diff calculates the difference between oldDoc and newDoc.
// If oldDoc is nil, everything in newDoc counts as added (initial load).
// Returns nil when the documents are equal. Pointer-equal entries are skipped without
// a deep comparison, which makes diffing two versions from the same edit history cheap.
func Diff(oldDoc, newDoc *Document) *DocumentDiff {
	if newDoc == nil {
		return nil
	}
	var oldNodes map[NodeID]*Node
	var oldSlots map[SlotID]*Slot
	if oldDoc != nil {
		oldNodes, oldSlots = oldDoc.Nodes, oldDoc.Slots
	}

	d := &DocumentDiff{}
	d.AddedNodes, d.RemovedNodes, d.ChangedNodes = diffMap(oldNodes, newDoc.Nodes)
	d.AddedSlots, d.RemovedSlots, d.ChangedSlots = diffMap(oldSlots, newDoc.Slots)

	if d.IsEmpty() {
		return nil
	}
	return d
}

func diffMap[K ~string, V any](old, new map[K]*V) (added, removed, changed []K) {
	for k, nv := range new {
		ov, exists := old[k]
		switch {
		case !exists:
			added = append(added, k)
		case ov != nv && !reflect.DeepEqual(ov, nv):
			changed = append(changed, k)
		}
	}
	for k := range old {
		if _, exists := new[k]; !exists {
			removed = append(removed, k)
		}
	}
	slices.Sort(added)
	slices.Sort(removed)
	slices.Sort(changed)
	return added, removed, changed
}

// IsEmpty checks if the diff contains any changes.
func (d *DocumentDiff) IsEmpty() bool {
	return len(d.AddedNodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.ChangedNodes) == 0 &&
		len(d.AddedSlots) == 0 &&
		len(d.RemovedSlots) == 0 &&
		len(d.ChangedSlots) == 0
}
