package domain

import "errors"

// ErrValidation is the parent of every command precondition failure.
// Specific sentinels below wrap it, so errors.Is(err, ErrValidation) reports any rejection.
var ErrValidation = errors.New("validation failed")

var (
	// ErrNodeNotFound is returned when a command references a node that is not in the document.
	ErrNodeNotFound = wrapValidation("node not found")

	// ErrSlotNotFound is returned when a command references a slot that is not in the document.
	ErrSlotNotFound = wrapValidation("slot not found")

	// ErrWrongNodeType is returned when a command targets a node of an unexpected type.
	ErrWrongNodeType = wrapValidation("wrong node type")

	// ErrOutOfRange is returned for indices or positions outside the allowed range.
	ErrOutOfRange = wrapValidation("index out of range")

	// ErrCardinality is returned when a removal would go below a floor (e.g. the last table row).
	ErrCardinality = wrapValidation("cardinality floor violated")

	// ErrMergeConflict is returned when a merge would break the merge-region invariants.
	ErrMergeConflict = wrapValidation("merge conflict")

	// ErrNotAllowed is returned when a child type is not accepted by a slot owner, or when a
	// move would create a cycle.
	ErrNotAllowed = wrapValidation("operation not allowed")

	// ErrInvalidProps is returned when properties do not decode into the component's typed props.
	ErrInvalidProps = wrapValidation("invalid properties")

	// ErrInvalidSubtree is returned when a restore payload is not a self-contained subtree.
	ErrInvalidSubtree = wrapValidation("invalid subtree")
)

// ErrUnknownNodeType is returned when a node type has no registered component.
var ErrUnknownNodeType = errors.New("unknown node type")

// ErrUnknownCommand is returned when no handler is registered for a command type.
var ErrUnknownCommand = errors.New("unknown command type")

// ErrDocumentNotFound is returned when a document ID cannot be found in a store.
var ErrDocumentNotFound = errors.New("document not found")

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

func wrapValidation(msg string) error {
	return &validationError{msg: msg}
}
