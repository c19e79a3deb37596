/*
Package domain contains the document model of the Folio editing core.

A Document is a tree of typed Nodes. Each Node owns zero or more named Slots, and each
Slot holds an ordered list of child Nodes. Slot names are either static ("children") or
parametrized ("cell-0-1", "column-2"), which lets every node type pick its own nesting
shape without a fixed schema.

Documents are values. Node and Slot structs reachable from a Document are never modified
after the Document is built; edits go through a Tx, which copies the two lookup maps and
replaces only the entries it touches. Unchanged nodes and slots are shared by pointer
between versions, so keeping many versions around (undo snapshots) is cheap.

# Key Entities

  - Node: a typed entity with ordered slots and a property bag.
  - Slot: an ordered, named child container owned by exactly one Node.
  - Document: the rooted tree (Root, Nodes, Slots).
  - Command: a serializable description of an edit; every successful Command yields an
    inverse Command in the Result.
  - Subtree: a captured set of nodes and slots, used to restore deleted content with
    its original identities.
*/
package domain
