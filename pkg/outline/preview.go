package outline

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"strings"
	"text/template"

	"github.com/aretw0/folio/pkg/columns"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/aretw0/folio/pkg/table"
)

// Preview renders the document as plain text for the given data scope.
// Text content is a text/template executed against the scope; conditionals and loops
// are resolved through eval. With a nil eval every conditional is shown and every loop
// renders its body once without binding its item.
// Table rows are rendered one per line with cells separated by " | ".
func Preview(ctx context.Context, doc *domain.Document, eval ports.Evaluator, scope map[string]any) (string, error) {
	root, ok := doc.Nodes[doc.Root]
	if !ok {
		return "", fmt.Errorf("%w: root %s", domain.ErrNodeNotFound, doc.Root)
	}
	p := &previewer{doc: doc, eval: eval}
	lines, err := p.node(ctx, root, scope)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", nil
	}
	return strings.Join(lines, "\n") + "\n", nil
}

type previewer struct {
	doc  *domain.Document
	eval ports.Evaluator
}

func (p *previewer) node(ctx context.Context, n *domain.Node, scope map[string]any) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch n.Type {
	case components.TypeText:
		props, err := components.DecodeText(n)
		if err != nil {
			return nil, err
		}
		text, err := interpolate(props.Content, scope)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		return []string{text}, nil

	case components.TypeConditional:
		props, err := components.DecodeConditional(n)
		if err != nil {
			return nil, err
		}
		if p.eval != nil {
			v, err := p.eval.Evaluate(ctx, props.Expression, scope)
			if err != nil {
				return nil, fmt.Errorf("node %s: condition %q: %w", n.ID, props.Expression, err)
			}
			if !truthy(v) {
				return nil, nil
			}
		}
		return p.children(ctx, n, scope)

	case components.TypeLoop:
		props, err := components.DecodeLoop(n)
		if err != nil {
			return nil, err
		}
		if p.eval == nil {
			return p.children(ctx, n, scope)
		}
		v, err := p.eval.Evaluate(ctx, props.Expression, scope)
		if err != nil {
			return nil, fmt.Errorf("node %s: loop %q: %w", n.ID, props.Expression, err)
		}
		items, err := toSlice(v)
		if err != nil {
			return nil, fmt.Errorf("node %s: loop %q: %w", n.ID, props.Expression, err)
		}
		var out []string
		for _, item := range items {
			inner := maps.Clone(scope)
			if inner == nil {
				inner = make(map[string]any, 1)
			}
			inner[props.ItemName] = item
			lines, err := p.children(ctx, n, inner)
			if err != nil {
				return nil, err
			}
			out = append(out, lines...)
		}
		return out, nil

	case table.NodeType:
		return p.table(ctx, n, scope)

	case columns.NodeType:
		var out []string
		for _, v := range Slots(p.doc, n) {
			lines, err := p.slot(ctx, v.Slot, scope)
			if err != nil {
				return nil, err
			}
			out = append(out, lines...)
		}
		return out, nil
	}
	return p.children(ctx, n, scope)
}

func (p *previewer) children(ctx context.Context, n *domain.Node, scope map[string]any) ([]string, error) {
	var out []string
	for _, v := range Slots(p.doc, n) {
		lines, err := p.slot(ctx, v.Slot, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

func (p *previewer) slot(ctx context.Context, s *domain.Slot, scope map[string]any) ([]string, error) {
	var out []string
	for _, child := range s.Children {
		c, ok := p.doc.Nodes[child]
		if !ok {
			continue
		}
		lines, err := p.node(ctx, c, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

func (p *previewer) table(ctx context.Context, n *domain.Node, scope map[string]any) ([]string, error) {
	props, err := table.PropsOf(n)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, props.Rows)
	for _, v := range Slots(p.doc, n) {
		lines, err := p.slot(ctx, v.Slot, scope)
		if err != nil {
			return nil, err
		}
		rows[v.Cell.Row] = append(rows[v.Cell.Row], strings.Join(lines, " "))
	}
	out := make([]string, 0, props.Rows)
	for _, cells := range rows {
		if len(cells) == 0 {
			continue
		}
		out = append(out, strings.TrimRight(strings.Join(cells, " | "), " "))
	}
	return out, nil
}

func interpolate(text string, scope map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New("text").Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, scope); err != nil {
		return "", fmt.Errorf("rendering failed during interpolation: %w", err)
	}
	return strings.ReplaceAll(sb.String(), "<no value>", ""), nil
}

func truthy(v any) bool {
	if v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return !rv.IsZero()
}

func toSlice(v any) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}
