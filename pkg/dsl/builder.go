package dsl

import (
	"fmt"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/domain"
)

// Builder manages the document construction.
type Builder struct {
	editor *folio.Editor
	err    error
}

// New creates a builder over a new empty document. Options configure the underlying
// editor, typically its registry and ID generator.
func New(opts ...folio.Option) *Builder {
	ed, err := folio.New(nil, opts...)
	return &Builder{editor: ed, err: err}
}

// Body returns the first slot of the root node.
func (b *Builder) Body() *SlotBuilder {
	if b.err != nil {
		return &SlotBuilder{builder: b}
	}
	doc := b.editor.Document()
	root := doc.Nodes[doc.Root]
	if len(root.Slots) == 0 {
		b.err = fmt.Errorf("%w: root %s has no slots", domain.ErrSlotNotFound, root.ID)
		return &SlotBuilder{builder: b}
	}
	return &SlotBuilder{builder: b, slot: root.Slots[0]}
}

// Build returns the document, or the first error met while building it.
func (b *Builder) Build() (*domain.Document, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.editor.Document(), nil
}

// insert appends a node of nodeType to slot and returns it, or nil once the builder failed.
func (b *Builder) insert(slot domain.SlotID, nodeType string, props map[string]any) *domain.Node {
	if b.err != nil {
		return nil
	}
	s, ok := domain.FindSlot(b.editor.Document(), slot)
	if !ok {
		b.err = fmt.Errorf("%w: %s", domain.ErrSlotNotFound, slot)
		return nil
	}
	index := len(s.Children)
	res, err := b.editor.Dispatch(domain.InsertNode{Slot: slot, Index: index, Type: nodeType, Props: props})
	if err != nil {
		b.err = fmt.Errorf("failed to insert %s: %w", nodeType, err)
		return nil
	}
	id := res.Document.Slots[slot].Children[index]
	return res.Document.Nodes[id]
}
