package ports

import "context"

// Evaluator evaluates the expressions held by conditional and loop nodes.
// The expression language belongs to the host; the core only passes strings through.
type Evaluator interface {
	// Evaluate returns the value of expression within scope. Conditionals expect a
	// bool, loops a slice.
	Evaluate(ctx context.Context, expression string, scope map[string]any) (any, error)
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(ctx context.Context, expression string, scope map[string]any) (any, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, expression string, scope map[string]any) (any, error) {
	return f(ctx, expression, scope)
}
