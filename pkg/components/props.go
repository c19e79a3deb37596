package components

import (
	"fmt"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
)

// TextProps are the props of a text leaf.
type TextProps struct {
	Content string         `mapstructure:"content"`
	Extra   map[string]any `mapstructure:",remain"`
}

// ConditionalProps are the props of a conditional block.
type ConditionalProps struct {
	Expression string         `mapstructure:"expression"`
	Extra      map[string]any `mapstructure:",remain"`
}

// LoopProps are the props of a loop block. ItemName binds each element of the list the
// expression evaluates to.
type LoopProps struct {
	Expression string         `mapstructure:"expression"`
	ItemName   string         `mapstructure:"itemName"`
	Extra      map[string]any `mapstructure:",remain"`
}

// Text is a leaf holding plain content.
func Text() registry.Component {
	return registry.Component{
		Type:         TypeText,
		DefaultProps: map[string]any{"content": ""},
		NormalizeProps: func(props map[string]any) (map[string]any, error) {
			var p TextProps
			if err := registry.DecodeProps(props, &p); err != nil {
				return nil, err
			}
			return registry.EncodeProps(map[string]any{"content": p.Content}, p.Extra), nil
		},
	}
}

// Conditional renders its children when the expression holds.
func Conditional() registry.Component {
	return registry.Component{
		Type:         TypeConditional,
		Slots:        []string{SlotChildren},
		DefaultProps: map[string]any{"expression": ""},
		NormalizeProps: func(props map[string]any) (map[string]any, error) {
			var p ConditionalProps
			if err := registry.DecodeProps(props, &p); err != nil {
				return nil, err
			}
			return registry.EncodeProps(map[string]any{"expression": p.Expression}, p.Extra), nil
		},
	}
}

// Loop repeats its children once per element of the expression's value.
func Loop() registry.Component {
	return registry.Component{
		Type:         TypeLoop,
		Slots:        []string{SlotChildren},
		DefaultProps: map[string]any{"expression": "", "itemName": "item"},
		NormalizeProps: func(props map[string]any) (map[string]any, error) {
			var p LoopProps
			if err := registry.DecodeProps(props, &p); err != nil {
				return nil, err
			}
			if strings.TrimSpace(p.ItemName) == "" {
				return nil, fmt.Errorf("itemName must not be empty")
			}
			return registry.EncodeProps(map[string]any{"expression": p.Expression, "itemName": p.ItemName}, p.Extra), nil
		},
	}
}

// DecodeText reads the typed props of a text node.
func DecodeText(n *domain.Node) (TextProps, error) {
	var p TextProps
	err := decode(n, TypeText, &p)
	return p, err
}

// DecodeConditional reads the typed props of a conditional node.
func DecodeConditional(n *domain.Node) (ConditionalProps, error) {
	var p ConditionalProps
	err := decode(n, TypeConditional, &p)
	return p, err
}

// DecodeLoop reads the typed props of a loop node.
func DecodeLoop(n *domain.Node) (LoopProps, error) {
	var p LoopProps
	err := decode(n, TypeLoop, &p)
	return p, err
}

func decode(n *domain.Node, nodeType string, out any) error {
	if n.Type != nodeType {
		return fmt.Errorf("%w: %s is a %s, not a %s", domain.ErrWrongNodeType, n.ID, n.Type, nodeType)
	}
	if err := registry.DecodeProps(n.Props, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidProps, err)
	}
	return nil
}
