package table

import (
	"fmt"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
)

// NodeType is the registry type of table nodes.
const NodeType = "table"

// Component returns the registry entry for tables. A new table is 2x2 with even widths.
func Component() registry.Component {
	return registry.Component{
		Type:  NodeType,
		Slots: []string{"cell-{row}-{col}"},
		DefaultProps: map[string]any{
			PropRows:       2,
			PropColumns:    2,
			PropHeaderRows: 0,
		},
		ReservedProps:      []string{PropRows, PropColumns, PropHeaderRows, PropMerges},
		CreateInitialSlots: createCells,
		NormalizeProps:     normalizeProps,
		Validate:           validateTable,
		CanInsert:          canInsert,
		Commands:           commandDecoders(),
		Handler:            handle,
	}
}

func createCells(nodeID domain.NodeID, props map[string]any, ids registry.IDGenerator) []*domain.Slot {
	p, err := DecodeProps(props)
	if err != nil {
		return nil
	}
	slots := make([]*domain.Slot, 0, p.Rows*p.Columns)
	for r := range p.Rows {
		for c := range p.Columns {
			slots = append(slots, newCell(nodeID, CellSlotName(r, c), ids))
		}
	}
	return slots
}

func newCell(owner domain.NodeID, name string, ids registry.IDGenerator) *domain.Slot {
	return &domain.Slot{
		ID:       domain.SlotID(ids.NewID()),
		Owner:    owner,
		Name:     name,
		Children: []domain.NodeID{},
	}
}

// validateTable checks that the node owns exactly its grid of cells in row-major order,
// that widths and merges fit the grid, and that covered cells are empty.
func validateTable(doc *domain.Document, node *domain.Node) error {
	p, err := PropsOf(node)
	if err != nil {
		return err
	}
	if err := p.Check(); err != nil {
		return fmt.Errorf("%w: table %s: %v", domain.ErrInvalidProps, node.ID, err)
	}
	if len(node.Slots) != p.Rows*p.Columns {
		return fmt.Errorf("%w: table %s has %d slots for a %dx%d grid", domain.ErrCardinality, node.ID, len(node.Slots), p.Rows, p.Columns)
	}
	for i, sid := range node.Slots {
		s, ok := doc.Slots[sid]
		if !ok {
			return fmt.Errorf("%w: table %s references %s", domain.ErrSlotNotFound, node.ID, sid)
		}
		r, c := i/p.Columns, i%p.Columns
		if s.Name != CellSlotName(r, c) {
			return fmt.Errorf("%w: table %s slot %d is %q, want %q", domain.ErrValidation, node.ID, i, s.Name, CellSlotName(r, c))
		}
		if len(s.Children) > 0 && IsCellCovered(r, c, p.Merges) {
			return fmt.Errorf("%w: covered cell %s of table %s holds content", domain.ErrMergeConflict, s.Name, node.ID)
		}
	}
	return nil
}

func canInsert(doc *domain.Document, owner *domain.Node, slot *domain.Slot) error {
	r, c, ok := ParseCellSlotName(slot.Name)
	if !ok {
		return nil
	}
	p, err := PropsOf(owner)
	if err != nil {
		return err
	}
	if IsCellCovered(r, c, p.Merges) {
		return fmt.Errorf("%w: cell %s of table %s is covered by a merge", domain.ErrNotAllowed, slot.Name, owner.ID)
	}
	return nil
}
