// Package components defines the built-in node types and assembles the default registry.
package components

import (
	"github.com/aretw0/folio/pkg/columns"
	"github.com/aretw0/folio/pkg/registry"
	"github.com/aretw0/folio/pkg/table"
)

// Built-in node types.
const (
	TypeDocument    = "document"
	TypeText        = "text"
	TypeContainer   = "container"
	TypeConditional = "conditional"
	TypeLoop        = "loop"
	TypeColumns     = columns.NodeType
	TypeTable       = table.NodeType
)

// SlotChildren is the single slot of document, container, conditional and loop nodes.
const SlotChildren = "children"

// Builtin returns a registry holding every built-in component.
func Builtin() *registry.Registry {
	return registry.New().MustRegister(
		Document(),
		Text(),
		Container(),
		Conditional(),
		Loop(),
		columns.Component(),
		table.Component(),
	)
}

// Document is the root component. It cannot be moved or nested.
func Document() registry.Component {
	return registry.Component{
		Type:  TypeDocument,
		Slots: []string{SlotChildren},
		Root:  true,
		Fixed: true,
	}
}

// Container groups children without adding behavior.
func Container() registry.Component {
	return registry.Component{
		Type:  TypeContainer,
		Slots: []string{SlotChildren},
	}
}
