package outline

import (
	"context"
	"fmt"
	"strings"
)

// PathEvaluator resolves dotted paths ("customer.items") against the scope. A leading
// "!" negates the truthiness of the value; "true" and "false" are literals. Missing keys
// resolve to nil. It is the evaluator used by the CLI preview.
type PathEvaluator struct{}

func (e PathEvaluator) Evaluate(ctx context.Context, expression string, scope map[string]any) (any, error) {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return nil, fmt.Errorf("empty expression")
	}
	if rest, ok := strings.CutPrefix(expr, "!"); ok {
		v, err := e.Evaluate(ctx, rest, scope)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}
	switch expr {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	var cur any = scope
	for _, part := range strings.Split(expr, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, nil
		}
		cur = m[part]
	}
	return cur, nil
}
