package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
)

const cellPrefix = "cell-"

// CellSlotName returns the slot name of the cell at (row, col).
func CellSlotName(row, col int) string {
	return cellPrefix + strconv.Itoa(row) + "-" + strconv.Itoa(col)
}

// ParseCellSlotName is the strict inverse of CellSlotName.
// It rejects signs, leading zeros and extra segments.
func ParseCellSlotName(name string) (row, col int, ok bool) {
	rest, found := strings.CutPrefix(name, cellPrefix)
	if !found {
		return 0, 0, false
	}
	rs, cs, found := strings.Cut(rest, "-")
	if !found {
		return 0, 0, false
	}
	row, ok = parseIndex(rs)
	if !ok {
		return 0, 0, false
	}
	col, ok = parseIndex(cs)
	if !ok {
		return 0, 0, false
	}
	return row, col, true
}

func parseIndex(s string) (int, bool) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CellSlots builds the name-to-slot map of a table node. Non-cell slots are ignored.
func CellSlots(doc *domain.Document, node *domain.Node) map[string]*domain.Slot {
	out := make(map[string]*domain.Slot, len(node.Slots))
	for _, sid := range node.Slots {
		s, ok := doc.Slots[sid]
		if !ok {
			continue
		}
		if _, _, isCell := ParseCellSlotName(s.Name); isCell {
			out[s.Name] = s
		}
	}
	return out
}

// CellSlot returns the slot of the cell at (row, col).
func CellSlot(doc *domain.Document, node *domain.Node, row, col int) (*domain.Slot, error) {
	name := CellSlotName(row, col)
	s, ok := domain.FindSlotByName(doc, node, name)
	if !ok {
		return nil, fmt.Errorf("%w: table %s has no %s", domain.ErrSlotNotFound, node.ID, name)
	}
	return s, nil
}
