package folio_test

import (
	"fmt"
	"log"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
	"github.com/aretw0/folio/pkg/table"
)

// ExampleEditor_undo builds a table, removes a row that holds content and brings it
// back with undo.
func ExampleEditor_undo() {
	ed, err := folio.New(nil, folio.WithIDGenerator(registry.NewSequence("n")))
	if err != nil {
		log.Fatal(err)
	}
	body := ed.Document().Nodes[ed.Document().Root].Slots[0]

	res, err := ed.Dispatch(domain.InsertNode{Slot: body, Type: table.NodeType})
	if err != nil {
		log.Fatal(err)
	}
	tableID := res.Inverse.(domain.RemoveNode).Node

	cell, _ := table.CellSlot(ed.Document(), ed.Document().Nodes[tableID], 1, 0)
	res, err = ed.Dispatch(domain.InsertNode{Slot: cell.ID, Type: components.TypeText, Props: map[string]any{"content": "Total"}})
	if err != nil {
		log.Fatal(err)
	}
	textID := res.Inverse.(domain.RemoveNode).Node

	if _, err := ed.Dispatch(table.RemoveTableRow{Node: tableID, Position: 1}); err != nil {
		log.Fatal(err)
	}
	_, present := ed.Document().Nodes[textID]
	fmt.Println("after remove:", present)

	if _, err := ed.Undo(); err != nil {
		log.Fatal(err)
	}
	restored := ed.Document().Nodes[textID]
	fmt.Println("after undo:", restored.ID, restored.Props["content"])

	// Output:
	// after remove: false
	// after undo: n8 Total
}
