package domain

// Command describes an edit. Concrete commands are plain structs that serialize to JSON;
// CommandType is the discriminator used for routing and for the wire envelope.
type Command interface {
	CommandType() string
}

// Result is the outcome of a successful dispatch.
type Result struct {
	// Document is the new document value. The input document is left untouched.
	Document *Document

	// Inverse undoes the command when dispatched against Document.
	Inverse Command

	// StructureChanged is false for property-only edits that do not affect layout.
	StructureChanged bool
}

// Generic command types handled by the engine itself.
const (
	CommandInsertNode      = "InsertNode"
	CommandRemoveNode      = "RemoveNode"
	CommandUpdateNodeProps = "UpdateNodeProps"
	CommandMoveNode        = "MoveNode"
)

// InsertNode creates a node of Type in Slot at Index.
// When Restore is set the captured subtree is replayed instead, keeping its IDs;
// Type and Props are then ignored.
type InsertNode struct {
	Slot    SlotID         `json:"slotId"`
	Index   int            `json:"index"`
	Type    string         `json:"nodeType,omitempty"`
	Props   map[string]any `json:"props,omitempty"`
	Restore *Subtree       `json:"restore,omitempty"`
}

func (InsertNode) CommandType() string { return CommandInsertNode }

// RemoveNode deletes a node and everything beneath it.
type RemoveNode struct {
	Node NodeID `json:"nodeId"`
}

func (RemoveNode) CommandType() string { return CommandRemoveNode }

// UpdateNodeProps sets and removes property keys on a node.
type UpdateNodeProps struct {
	Node  NodeID         `json:"nodeId"`
	Set   map[string]any `json:"set,omitempty"`
	Unset []string       `json:"unset,omitempty"`
}

func (UpdateNodeProps) CommandType() string { return CommandUpdateNodeProps }

// MoveNode detaches a node and inserts it into Slot at Index.
// Index counts positions in the target slot after the node has been detached.
type MoveNode struct {
	Node  NodeID `json:"nodeId"`
	Slot  SlotID `json:"slotId"`
	Index int    `json:"index"`
}

func (MoveNode) CommandType() string { return CommandMoveNode }

// CommandBatch is the type of Batch.
const CommandBatch = "Batch"

// Batch applies several commands as one edit. Either every command applies or the
// document is left as it was; the inverse is a Batch of the inverses in reverse order.
type Batch struct {
	Commands []Command `json:"-"`
}

func (Batch) CommandType() string { return CommandBatch }
