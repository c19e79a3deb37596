// Package dnd answers drag-and-drop questions for a UI adapter: which nodes can be
// dragged, where they can land, and what command a drop issues.
//
// Everything here is pure except Drop, which dispatches a MoveNode through the given
// dispatcher. Visual feedback stays with the host.
package dnd
