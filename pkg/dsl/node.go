package dsl

import (
	"fmt"

	"github.com/aretw0/folio/pkg/columns"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/table"
)

// SlotBuilder appends nodes to one slot. Every method returns the receiver for chaining.
type SlotBuilder struct {
	builder *Builder
	slot    domain.SlotID
}

// ID returns the slot's ID; empty once the builder failed.
func (s *SlotBuilder) ID() domain.SlotID {
	return s.slot
}

// NodeBuilder gives access to the slots of an inserted node.
type NodeBuilder struct {
	builder *Builder
	id      domain.NodeID
}

// ID returns the node's ID.
func (n *NodeBuilder) ID() domain.NodeID {
	return n.id
}

// Slot returns the node's slot called name.
func (n *NodeBuilder) Slot(name string) *SlotBuilder {
	b := n.builder
	if b.err != nil {
		return &SlotBuilder{builder: b}
	}
	doc := b.editor.Document()
	slot, ok := domain.FindSlotByName(doc, doc.Nodes[n.id], name)
	if !ok {
		b.err = fmt.Errorf("%w: %s has no slot %q", domain.ErrSlotNotFound, n.id, name)
		return &SlotBuilder{builder: b}
	}
	return &SlotBuilder{builder: b, slot: slot.ID}
}

// Node appends a node of any registered type. fill, if not nil, runs with the new node.
func (s *SlotBuilder) Node(nodeType string, props map[string]any, fill func(n *NodeBuilder)) *SlotBuilder {
	node := s.builder.insert(s.slot, nodeType, props)
	if node != nil && fill != nil {
		fill(&NodeBuilder{builder: s.builder, id: node.ID})
	}
	return s
}

// Text appends a text leaf.
func (s *SlotBuilder) Text(content string) *SlotBuilder {
	return s.Node(components.TypeText, map[string]any{"content": content}, nil)
}

// Container appends a container and fills its children.
func (s *SlotBuilder) Container(fill func(s *SlotBuilder)) *SlotBuilder {
	return s.Node(components.TypeContainer, nil, children(fill))
}

// Conditional appends a block shown when expression holds.
func (s *SlotBuilder) Conditional(expression string, fill func(s *SlotBuilder)) *SlotBuilder {
	return s.Node(components.TypeConditional, map[string]any{"expression": expression}, children(fill))
}

// Loop appends a block repeated for each element of expression, bound to item.
func (s *SlotBuilder) Loop(expression, item string, fill func(s *SlotBuilder)) *SlotBuilder {
	props := map[string]any{"expression": expression}
	if item != "" {
		props["itemName"] = item
	}
	return s.Node(components.TypeLoop, props, children(fill))
}

// Columns appends a columns block; fill runs once per column.
func (s *SlotBuilder) Columns(count int, fill func(col int, s *SlotBuilder)) *SlotBuilder {
	return s.Node(columns.NodeType, map[string]any{columns.PropCount: count}, func(n *NodeBuilder) {
		if fill == nil {
			return
		}
		for i := 0; i < count; i++ {
			fill(i, n.Slot(columns.SlotName(i)))
		}
	})
}

// Table appends a rows x cols table; fill runs once per cell, row by row.
func (s *SlotBuilder) Table(rows, cols int, fill func(row, col int, cell *SlotBuilder)) *SlotBuilder {
	props := map[string]any{table.PropRows: rows, table.PropColumns: cols}
	return s.Node(table.NodeType, props, func(n *NodeBuilder) {
		if fill == nil {
			return
		}
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				fill(r, c, n.Slot(table.CellSlotName(r, c)))
			}
		}
	})
}

func children(fill func(s *SlotBuilder)) func(n *NodeBuilder) {
	if fill == nil {
		return nil
	}
	return func(n *NodeBuilder) {
		fill(n.Slot(components.SlotChildren))
	}
}
