package table

import (
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
)

// Table command types.
const (
	CommandAddRow        = "AddTableRow"
	CommandRemoveRow     = "RemoveTableRow"
	CommandAddColumn     = "AddTableColumn"
	CommandRemoveColumn  = "RemoveTableColumn"
	CommandMergeCells    = "MergeTableCells"
	CommandUnmergeCells  = "UnmergeTableCells"
	CommandSetHeaderRows = "SetTableHeaderRows"
)

// LineRestore carries what a row or column removal took away, so the inverse insertion
// brings back the original cell slots (IDs and content) and the exact table metadata.
type LineRestore struct {
	// Cells holds one slot capture per cell of the line, ordered along the line.
	Cells      []*domain.Subtree `json:"cells"`
	Merges     []CellMerge       `json:"merges"`
	HeaderRows int               `json:"headerRows"`
}

// CellContent records the children a cell held before a merge migrated them.
type CellContent struct {
	Row      int             `json:"row"`
	Col      int             `json:"col"`
	Children []domain.NodeID `json:"children"`
}

// MergeRestore carries what a merge changed beyond adding its own region.
type MergeRestore struct {
	// Absorbed lists the merges the new region swallowed.
	Absorbed []CellMerge `json:"absorbed"`
	// Cells lists the prior children of every cell whose content the merge changed.
	Cells []CellContent `json:"cells"`
}

// AddTableRow inserts an empty row before Position (Position == rows appends).
type AddTableRow struct {
	Node     domain.NodeID `json:"nodeId"`
	Position int           `json:"position"`
	Restore  *LineRestore  `json:"restore,omitempty"`
}

func (AddTableRow) CommandType() string { return CommandAddRow }

// RemoveTableRow deletes the row at Position and everything in its cells.
type RemoveTableRow struct {
	Node     domain.NodeID `json:"nodeId"`
	Position int           `json:"position"`
}

func (RemoveTableRow) CommandType() string { return CommandRemoveRow }

// AddTableColumn inserts an empty column of the given width before Position.
type AddTableColumn struct {
	Node     domain.NodeID `json:"nodeId"`
	Position int           `json:"position"`
	Width    float64       `json:"width"`
	Restore  *LineRestore  `json:"restore,omitempty"`
}

func (AddTableColumn) CommandType() string { return CommandAddColumn }

// RemoveTableColumn deletes the column at Position and everything in its cells.
type RemoveTableColumn struct {
	Node     domain.NodeID `json:"nodeId"`
	Position int           `json:"position"`
}

func (RemoveTableColumn) CommandType() string { return CommandRemoveColumn }

// MergeTableCells merges the rectangle between two corner cells.
type MergeTableCells struct {
	Node     domain.NodeID `json:"nodeId"`
	StartRow int           `json:"startRow"`
	StartCol int           `json:"startCol"`
	EndRow   int           `json:"endRow"`
	EndCol   int           `json:"endCol"`
}

func (MergeTableCells) CommandType() string { return CommandMergeCells }

// Selection returns the command's rectangle.
func (c MergeTableCells) Selection() CellSelection {
	return CellSelection{StartRow: c.StartRow, StartCol: c.StartCol, EndRow: c.EndRow, EndCol: c.EndCol}
}

// UnmergeTableCells removes the merge anchored at (Row, Col). Content migrated into the
// anchor stays there unless Restore (set only on merge inverses) says otherwise.
type UnmergeTableCells struct {
	Node    domain.NodeID `json:"nodeId"`
	Row     int           `json:"row"`
	Col     int           `json:"col"`
	Restore *MergeRestore `json:"restore,omitempty"`
}

func (UnmergeTableCells) CommandType() string { return CommandUnmergeCells }

// SetTableHeaderRows sets how many leading rows form the header.
type SetTableHeaderRows struct {
	Node  domain.NodeID `json:"nodeId"`
	Count int           `json:"count"`
}

func (SetTableHeaderRows) CommandType() string { return CommandSetHeaderRows }

func commandDecoders() map[string]registry.CommandDecoder {
	return map[string]registry.CommandDecoder{
		CommandAddRow:        registry.JSONDecoder[AddTableRow](),
		CommandRemoveRow:     registry.JSONDecoder[RemoveTableRow](),
		CommandAddColumn:     registry.JSONDecoder[AddTableColumn](),
		CommandRemoveColumn:  registry.JSONDecoder[RemoveTableColumn](),
		CommandMergeCells:    registry.JSONDecoder[MergeTableCells](),
		CommandUnmergeCells:  registry.JSONDecoder[UnmergeTableCells](),
		CommandSetHeaderRows: registry.JSONDecoder[SetTableHeaderRows](),
	}
}
