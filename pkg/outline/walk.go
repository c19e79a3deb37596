package outline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/folio/pkg/columns"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/table"
)

// SkipChildren can be returned by a WalkFunc to skip the children of the current node.
var SkipChildren = errors.New("skip children")

// SlotView is a slot as a reader sees it. Cell is set for table cells.
type SlotView struct {
	Slot *domain.Slot
	Cell *table.Cell
}

// Entry is a node visited by Walk.
type Entry struct {
	Node *domain.Node
	// Parent is the slot holding Node; the zero value for the root.
	Parent SlotView
	Depth  int
}

// WalkFunc is called for every node in document order.
type WalkFunc func(e Entry) error

// Slots returns the slots of node in reading order. Table cells covered by a merge are
// left out and anchors carry their span.
func Slots(doc *domain.Document, node *domain.Node) []SlotView {
	if node.Type == table.NodeType {
		if p, err := table.PropsOf(node); err == nil {
			byName := table.CellSlots(doc, node)
			cells := table.VisibleCells(p)
			views := make([]SlotView, 0, len(cells))
			for i := range cells {
				if s, ok := byName[table.CellSlotName(cells[i].Row, cells[i].Col)]; ok {
					views = append(views, SlotView{Slot: s, Cell: &cells[i]})
				}
			}
			return views
		}
	}
	views := make([]SlotView, 0, len(node.Slots))
	for _, sid := range node.Slots {
		if s, ok := doc.Slots[sid]; ok {
			views = append(views, SlotView{Slot: s})
		}
	}
	return views
}

// Walk visits the document depth-first from the root.
func Walk(doc *domain.Document, fn WalkFunc) error {
	root, ok := doc.Nodes[doc.Root]
	if !ok {
		return fmt.Errorf("%w: root %s", domain.ErrNodeNotFound, doc.Root)
	}
	return walk(doc, Entry{Node: root}, fn)
}

func walk(doc *domain.Document, e Entry, fn WalkFunc) error {
	if err := fn(e); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	for _, view := range Slots(doc, e.Node) {
		for _, child := range view.Slot.Children {
			n, ok := doc.Nodes[child]
			if !ok {
				continue
			}
			if err := walk(doc, Entry{Node: n, Parent: view, Depth: e.Depth + 1}, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Label is a short human description of a node.
func Label(n *domain.Node) string {
	switch n.Type {
	case components.TypeText:
		if p, err := components.DecodeText(n); err == nil {
			return fmt.Sprintf("text %q", truncate(p.Content, 40))
		}
	case components.TypeConditional:
		if p, err := components.DecodeConditional(n); err == nil {
			return fmt.Sprintf("if %s", p.Expression)
		}
	case components.TypeLoop:
		if p, err := components.DecodeLoop(n); err == nil {
			return fmt.Sprintf("for %s in %s", p.ItemName, p.Expression)
		}
	case columns.NodeType:
		if p, err := columns.PropsOf(n); err == nil {
			return fmt.Sprintf("columns x%d", p.Count)
		}
	case table.NodeType:
		if p, err := table.PropsOf(n); err == nil {
			label := fmt.Sprintf("table %dx%d", p.Rows, p.Columns)
			if p.HeaderRows > 0 {
				label += fmt.Sprintf(", %d header", p.HeaderRows)
			}
			return label
		}
	}
	return n.Type
}

func slotLabel(v SlotView) string {
	if c := v.Cell; c != nil {
		label := fmt.Sprintf("cell %d,%d", c.Row, c.Col)
		if c.RowSpan > 1 || c.ColSpan > 1 {
			label += fmt.Sprintf(" (%dx%d)", c.RowSpan, c.ColSpan)
		}
		if c.Header {
			label += " header"
		}
		return label
	}
	return v.Slot.Name
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
