/*
Package folio is the structural editing core of a block-based document editor.

Documents are trees of typed nodes (text, containers, conditionals, loops, multi-column
layouts and grid tables). Every edit is a serializable Command. The engine applies a
command to an immutable document value and returns the new value together with the
command's exact inverse, so undo restores the previous document including the
identities of deleted nodes and slots.

# Concept

The core is split the hexagonal way. pkg/domain holds the document model, pkg/registry
the per-type component contracts, and internal/runtime the command engine. Node types
with their own structural rules (pkg/table, pkg/columns) register commands and a handler
with the registry, so the engine stays free of type-specific logic. Storage, HTTP and MCP
live in adapters under pkg/adapters.

# Usage

The Editor wraps the engine with a current document and an undo history.

	package main

	import (
		"fmt"
		"log"

		"github.com/aretw0/folio"
		"github.com/aretw0/folio/pkg/domain"
		"github.com/aretw0/folio/pkg/table"
	)

	func main() {
		ed, err := folio.New(nil)
		if err != nil {
			log.Fatal(err)
		}

		body := ed.Document().Nodes[ed.Document().Root].Slots[0]
		res, err := ed.Dispatch(domain.InsertNode{Slot: body, Type: table.NodeType})
		if err != nil {
			log.Fatal(err)
		}
		tableID := res.Inverse.(domain.RemoveNode).Node

		if _, err := ed.Dispatch(table.AddTableRow{Node: tableID, Position: 0}); err != nil {
			log.Fatal(err)
		}
		if _, err := ed.Undo(); err != nil {
			log.Fatal(err)
		}
		fmt.Println(ed.CanRedo()) // true
	}

# Key Packages

  - pkg/domain: Node, Slot, Document, Command, Tx, Diff.
  - pkg/registry: component contracts and ID generation.
  - pkg/table, pkg/columns: grid tables and column layouts.
  - pkg/history: command-inverse and snapshot undo managers.
  - pkg/codec: JSON and YAML documents, command envelopes.
  - pkg/session: editors per document over a DocumentStore.
*/
package folio
