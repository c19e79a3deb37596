/*
Package dsl provides a Go DSL for programmatically constructing Folio documents.

Nodes are added through the same InsertNode commands an editor dispatches, so every
node gets its component's default props and initial slots, and the result is always a
valid document. This is particularly useful for fixtures, templates generated from code
and unit tests.

Example usage:

	b := dsl.New()
	b.Body().
		Text("Dear {{.customer}},").
		Conditional("paid", func(s *dsl.SlotBuilder) {
			s.Text("Thank you for your payment.")
		}).
		Table(2, 2, func(row, col int, cell *dsl.SlotBuilder) {
			cell.Text(fmt.Sprintf("r%dc%d", row, col))
		})

	doc, err := b.Build()

The first error stops the builder; Build reports it.
*/
package dsl
