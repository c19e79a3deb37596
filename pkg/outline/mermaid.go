package outline

import (
	"fmt"
	"strings"

	"github.com/aretw0/folio/pkg/columns"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/table"
)

// Overlay highlights nodes on a Mermaid diagram.
type Overlay struct {
	// Changed nodes, usually the Changed and Added sets of a domain.DocumentDiff.
	Changed []domain.NodeID
	// Selected is the node under the cursor, if any.
	Selected domain.NodeID
}

// Mermaid produces a Mermaid flowchart of the document tree.
// Shapes follow the node type:
//   - Root: ((Circle))
//   - Conditional: {Rhombus}
//   - Loop: [[Subroutine]]
//   - Table and columns: [/Parallelogram/]
//   - Default: [Rectangle]
//
// Edges out of multi-slot nodes are labelled with the slot (cell or column).
func Mermaid(doc *domain.Document, overlay *Overlay) (string, error) {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	err := Walk(doc, func(e Entry) error {
		safeID := sanitizeMermaidID(string(e.Node.ID))

		opener, closer := "[", "]"
		switch {
		case e.Node.ID == doc.Root:
			opener, closer = "((", "))"
		case e.Node.Type == components.TypeConditional:
			opener, closer = "{", "}"
		case e.Node.Type == components.TypeLoop:
			opener, closer = "[[", "]]"
		case e.Node.Type == table.NodeType || e.Node.Type == columns.NodeType:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escapeMermaid(Label(e.Node)), closer)

		if e.Parent.Slot == nil {
			return nil
		}
		from := sanitizeMermaidID(string(e.Parent.Slot.Owner))
		if owner, ok := doc.Nodes[e.Parent.Slot.Owner]; ok && len(owner.Slots) > 1 {
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, escapeMermaid(slotLabel(e.Parent)), safeID)
		} else {
			fmt.Fprintf(&sb, "    %s --> %s\n", from, safeID)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef changed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Changed {
			if _, ok := doc.Nodes[id]; !ok {
				continue
			}
			safeID := sanitizeMermaidID(string(id))
			if !seen[safeID] {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s changed;\n", safeID)
			}
		}
		if _, ok := doc.Nodes[overlay.Selected]; ok {
			fmt.Fprintf(&sb, "    class %s selected;\n", sanitizeMermaidID(string(overlay.Selected)))
		}
	}

	return sb.String(), nil
}

var mermaidIDReplacer = strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")

func sanitizeMermaidID(id string) string {
	return mermaidIDReplacer.Replace(id)
}

func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
