package dsl

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/outline"
	"github.com/aretw0/folio/pkg/registry"
	"github.com/aretw0/folio/pkg/table"
	"github.com/aretw0/folio/pkg/validate"
)

func TestBuilder_Document(t *testing.T) {
	// 1. Build the document using DSL
	b := New(folio.WithIDGenerator(registry.NewSequence("n")))

	b.Body().
		Text("Hello {{.name}}").
		Conditional("paid", func(s *SlotBuilder) {
			s.Text("Thanks")
		}).
		Loop("items", "item", func(s *SlotBuilder) {
			s.Text("- {{.item}}")
		}).
		Table(1, 2, func(row, col int, cell *SlotBuilder) {
			cell.Text([]string{"a", "b"}[col])
		})

	doc, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	// 2. The result is a valid document
	if err := validate.Document(components.Builtin(), doc); err != nil {
		t.Fatalf("built document is invalid: %v", err)
	}

	// 3. Verify specific nodes
	body := doc.Slots["n2"]
	if len(body.Children) != 4 {
		t.Fatalf("Expected 4 blocks in the body, got %d", len(body.Children))
	}
	greeting := doc.Nodes[body.Children[0]]
	if greeting.ID != "n3" || greeting.Props["content"] != "Hello {{.name}}" {
		t.Errorf("Unexpected first block: %+v", greeting)
	}
	loop, err := components.DecodeLoop(doc.Nodes[body.Children[2]])
	if err != nil {
		t.Fatalf("DecodeLoop() failed: %v", err)
	}
	if loop.ItemName != "item" || loop.Expression != "items" {
		t.Errorf("Unexpected loop props: %+v", loop)
	}
	grid, err := table.PropsOf(doc.Nodes[body.Children[3]])
	if err != nil {
		t.Fatalf("PropsOf() failed: %v", err)
	}
	if grid.Rows != 1 || grid.Columns != 2 {
		t.Errorf("Expected a 1x2 table, got %dx%d", grid.Rows, grid.Columns)
	}

	// 4. Render it
	got, err := outline.Preview(context.Background(), doc, nil, map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("Preview() failed: %v", err)
	}
	want := "Hello Ada\nThanks\n- \na | b\n"
	if got != want {
		t.Errorf("Preview() = %q, want %q", got, want)
	}
}

func TestBuilder_Columns(t *testing.T) {
	b := New()
	var slots []domain.SlotID
	b.Body().Columns(3, func(col int, s *SlotBuilder) {
		slots = append(slots, s.ID())
		if col == 1 {
			s.Text("middle")
		}
	})

	doc, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("Expected 3 column slots, got %d", len(slots))
	}
	if n := len(doc.Slots[slots[1]].Children); n != 1 {
		t.Errorf("Expected 1 node in the middle column, got %d", n)
	}
	if n := len(doc.Slots[slots[0]].Children); n != 0 {
		t.Errorf("Expected an empty first column, got %d nodes", n)
	}
}

func TestBuilder_StopsAtFirstError(t *testing.T) {
	b := New()
	filled := false
	b.Body().
		Node("widget", nil, func(n *NodeBuilder) { filled = true }).
		Text("never inserted")

	if filled {
		t.Error("fill ran for a node that was not inserted")
	}
	_, err := b.Build()
	if !errors.Is(err, domain.ErrUnknownNodeType) {
		t.Fatalf("Expected ErrUnknownNodeType, got %v", err)
	}
}

func TestBuilder_UnknownSlot(t *testing.T) {
	b := New()
	b.Body().Node(components.TypeContainer, nil, func(n *NodeBuilder) {
		n.Slot("sidebar").Text("lost")
	})
	if _, err := b.Build(); !errors.Is(err, domain.ErrSlotNotFound) {
		t.Fatalf("Expected ErrSlotNotFound, got %v", err)
	}
}
