// Package columns implements the multi-column layout component.
//
// A columns node owns one slot per column, named "column-0" through "column-{count-1}".
// AddColumnSlot and RemoveColumnSlot keep the names dense by renaming the slots after
// the edited position, the same way table rows are renamed.
package columns
