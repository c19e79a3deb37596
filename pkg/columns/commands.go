package columns

import (
	"fmt"
	"slices"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
)

// Columns command types.
const (
	CommandAddColumnSlot    = "AddColumnSlot"
	CommandRemoveColumnSlot = "RemoveColumnSlot"
)

// AddColumnSlot inserts an empty column before Position. Restore replays a column
// captured by RemoveColumnSlot.
type AddColumnSlot struct {
	Node     domain.NodeID   `json:"nodeId"`
	Position int             `json:"position"`
	Restore  *domain.Subtree `json:"restore,omitempty"`
}

func (AddColumnSlot) CommandType() string { return CommandAddColumnSlot }

// RemoveColumnSlot deletes the column at Position with its content.
type RemoveColumnSlot struct {
	Node     domain.NodeID `json:"nodeId"`
	Position int           `json:"position"`
}

func (RemoveColumnSlot) CommandType() string { return CommandRemoveColumnSlot }

func handle(env registry.Env, doc *domain.Document, cmd domain.Command) (domain.Result, error) {
	switch c := cmd.(type) {
	case AddColumnSlot:
		return addColumn(env, doc, c)
	case RemoveColumnSlot:
		return removeColumn(doc, c)
	}
	return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrUnknownCommand, cmd.CommandType())
}

func load(doc *domain.Document, id domain.NodeID) (*domain.Node, Props, []*domain.Slot, error) {
	node, ok := domain.FindNode(doc, id)
	if !ok {
		return nil, Props{}, nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	p, err := PropsOf(node)
	if err != nil {
		return nil, Props{}, nil, err
	}
	slots := make([]*domain.Slot, p.Count)
	for i := range slots {
		s, ok := domain.FindSlotByName(doc, node, SlotName(i))
		if !ok {
			return nil, Props{}, nil, fmt.Errorf("%w: columns %s has no %s", domain.ErrSlotNotFound, id, SlotName(i))
		}
		slots[i] = s
	}
	return node, p, slots, nil
}

func addColumn(env registry.Env, doc *domain.Document, c AddColumnSlot) (domain.Result, error) {
	node, p, slots, err := load(doc, c.Node)
	if err != nil {
		return domain.Result{}, err
	}
	if c.Position < 0 || c.Position > p.Count {
		return domain.Result{}, fmt.Errorf("%w: column position %d not in [0,%d]", domain.ErrOutOfRange, c.Position, p.Count)
	}

	tx := domain.Begin(doc)
	// Rename from the last column down to keep names unique at every step.
	for i := p.Count - 1; i >= c.Position; i-- {
		if err := tx.RenameSlot(slots[i].ID, SlotName(i+1)); err != nil {
			return domain.Result{}, err
		}
	}

	var added domain.SlotID
	if c.Restore != nil {
		if c.Restore.Root != "" || len(c.Restore.Slots) == 0 || c.Restore.Slots[0] == nil || c.Restore.Slots[0].Owner != node.ID || c.Restore.Slots[0].Name != SlotName(c.Position) {
			return domain.Result{}, fmt.Errorf("%w: restore does not hold column %d of %s", domain.ErrInvalidSubtree, c.Position, node.ID)
		}
		if err := env.Registry.CheckSubtree(doc, c.Restore); err != nil {
			return domain.Result{}, err
		}
		if err := tx.Restore(c.Restore); err != nil {
			return domain.Result{}, err
		}
		added = c.Restore.Slots[0].ID
	} else {
		s := newSlot(node.ID, c.Position, env.IDs)
		tx.PutSlot(s)
		added = s.ID
	}

	n := node.Clone()
	n.Slots = slices.Insert(slotIDs(slots), c.Position, added)
	p.Count++
	n.Props = p.Encode()
	tx.PutNode(n)
	next := tx.Commit()
	if c.Restore != nil {
		if err := env.Registry.ValidateNodes(next, c.Restore.Nodes); err != nil {
			return domain.Result{}, err
		}
	}
	return domain.Result{
		Document:         next,
		Inverse:          RemoveColumnSlot{Node: c.Node, Position: c.Position},
		StructureChanged: true,
	}, nil
}

func removeColumn(doc *domain.Document, c RemoveColumnSlot) (domain.Result, error) {
	node, p, slots, err := load(doc, c.Node)
	if err != nil {
		return domain.Result{}, err
	}
	if p.Count <= 1 {
		return domain.Result{}, fmt.Errorf("%w: columns %s has a single column", domain.ErrCardinality, c.Node)
	}
	if c.Position < 0 || c.Position >= p.Count {
		return domain.Result{}, fmt.Errorf("%w: column position %d not in [0,%d)", domain.ErrOutOfRange, c.Position, p.Count)
	}

	st, err := domain.CaptureSlot(doc, slots[c.Position].ID)
	if err != nil {
		return domain.Result{}, err
	}
	tx := domain.Begin(doc)
	tx.Remove(st)
	for i := c.Position + 1; i < p.Count; i++ {
		if err := tx.RenameSlot(slots[i].ID, SlotName(i-1)); err != nil {
			return domain.Result{}, err
		}
	}

	n := node.Clone()
	n.Slots = slices.Delete(slotIDs(slots), c.Position, c.Position+1)
	p.Count--
	n.Props = p.Encode()
	tx.PutNode(n)
	return domain.Result{
		Document:         tx.Commit(),
		Inverse:          AddColumnSlot{Node: c.Node, Position: c.Position, Restore: st},
		StructureChanged: true,
	}, nil
}

func slotIDs(slots []*domain.Slot) []domain.SlotID {
	ids := make([]domain.SlotID, len(slots))
	for i, s := range slots {
		ids[i] = s.ID
	}
	return ids
}
