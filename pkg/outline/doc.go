// Package outline provides read-only views of a document: a depth-first walker that
// presents tables as their visible cells, a Markdown outline, a Mermaid diagram and a
// text preview that resolves conditionals and loops through a ports.Evaluator.
package outline
