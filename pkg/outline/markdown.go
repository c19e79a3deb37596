package outline

import (
	"fmt"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
)

// Markdown renders the document tree as a nested Markdown list. Nodes with more than one
// slot (tables, columns) list their slots as intermediate items.
func Markdown(doc *domain.Document) (string, error) {
	root, ok := doc.Nodes[doc.Root]
	if !ok {
		return "", fmt.Errorf("%w: root %s", domain.ErrNodeNotFound, doc.Root)
	}
	var sb strings.Builder
	writeMarkdown(&sb, doc, root, 0)
	return sb.String(), nil
}

func writeMarkdown(sb *strings.Builder, doc *domain.Document, n *domain.Node, depth int) {
	fmt.Fprintf(sb, "%s- %s\n", indent(depth), escapeMarkdown(Label(n)))

	views := Slots(doc, n)
	named := len(n.Slots) > 1
	for _, v := range views {
		childDepth := depth + 1
		if named {
			fmt.Fprintf(sb, "%s- *%s*\n", indent(depth+1), slotLabel(v))
			childDepth++
		}
		for _, child := range v.Slot.Children {
			if c, ok := doc.Nodes[child]; ok {
				writeMarkdown(sb, doc, c, childDepth)
			}
		}
	}
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

var markdownEscaper = strings.NewReplacer(`*`, `\*`, `_`, `\_`, "`", "\\`", `[`, `\[`, `]`, `\]`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
