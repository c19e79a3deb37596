package table

import (
	"cmp"
	"slices"
)

// CellMerge is a rectangular region anchored at (Row, Col).
type CellMerge struct {
	Row     int `json:"row" yaml:"row" mapstructure:"row"`
	Col     int `json:"col" yaml:"col" mapstructure:"col"`
	RowSpan int `json:"rowSpan" yaml:"rowSpan" mapstructure:"rowSpan"`
	ColSpan int `json:"colSpan" yaml:"colSpan" mapstructure:"colSpan"`
}

// Contains reports whether the cell (row, col) lies inside the region.
func (m CellMerge) Contains(row, col int) bool {
	return row >= m.Row && row < m.Row+m.RowSpan && col >= m.Col && col < m.Col+m.ColSpan
}

// Selection returns the region as a normalized selection.
func (m CellMerge) Selection() CellSelection {
	return CellSelection{
		StartRow: m.Row,
		StartCol: m.Col,
		EndRow:   m.Row + m.RowSpan - 1,
		EndCol:   m.Col + m.ColSpan - 1,
	}
}

func (m CellMerge) transpose() CellMerge {
	return CellMerge{Row: m.Col, Col: m.Row, RowSpan: m.ColSpan, ColSpan: m.RowSpan}
}

// CellSelection is a user-drawn rectangle. Start and End may be given in any order.
type CellSelection struct {
	StartRow int `json:"startRow"`
	StartCol int `json:"startCol"`
	EndRow   int `json:"endRow"`
	EndCol   int `json:"endCol"`
}

// Normalize returns the selection with Start at the top-left and End at the bottom-right.
func (s CellSelection) Normalize() CellSelection {
	return CellSelection{
		StartRow: min(s.StartRow, s.EndRow),
		StartCol: min(s.StartCol, s.EndCol),
		EndRow:   max(s.StartRow, s.EndRow),
		EndCol:   max(s.StartCol, s.EndCol),
	}
}

// Rows returns the number of rows spanned by the normalized selection.
func (s CellSelection) Rows() int {
	n := s.Normalize()
	return n.EndRow - n.StartRow + 1
}

// Cols returns the number of columns spanned by the normalized selection.
func (s CellSelection) Cols() int {
	n := s.Normalize()
	return n.EndCol - n.StartCol + 1
}

// Area returns the number of cells in the selection.
func (s CellSelection) Area() int {
	return s.Rows() * s.Cols()
}

// Merge returns the region covering the selection.
func (s CellSelection) Merge() CellMerge {
	n := s.Normalize()
	return CellMerge{Row: n.StartRow, Col: n.StartCol, RowSpan: n.Rows(), ColSpan: n.Cols()}
}

func (s CellSelection) containsMerge(m CellMerge) bool {
	n := s.Normalize()
	return m.Row >= n.StartRow && m.Col >= n.StartCol &&
		m.Row+m.RowSpan-1 <= n.EndRow && m.Col+m.ColSpan-1 <= n.EndCol
}

func (s CellSelection) overlaps(m CellMerge) bool {
	n := s.Normalize()
	return m.Row <= n.EndRow && m.Row+m.RowSpan-1 >= n.StartRow &&
		m.Col <= n.EndCol && m.Col+m.ColSpan-1 >= n.StartCol
}

// FindMergeAt returns the merge whose region contains the cell, if any.
func FindMergeAt(row, col int, merges []CellMerge) (CellMerge, bool) {
	for _, m := range merges {
		if m.Contains(row, col) {
			return m, true
		}
	}
	return CellMerge{}, false
}

// IsCellCovered reports whether the cell lies inside a merge without being its anchor.
func IsCellCovered(row, col int, merges []CellMerge) bool {
	m, ok := FindMergeAt(row, col, merges)
	return ok && (m.Row != row || m.Col != col)
}

// CanMerge reports whether the selection may be merged: it must span more than one cell,
// and every existing merge it touches must lie entirely inside it.
func CanMerge(sel CellSelection, merges []CellMerge) bool {
	if sel.Area() <= 1 {
		return false
	}
	for _, m := range merges {
		if sel.overlaps(m) && !sel.containsMerge(m) {
			return false
		}
	}
	return true
}

// ExpandSelectionForMerges grows the selection until every merge it touches lies fully
// inside it. Each growth can pull in further merges, so it repeats until nothing changes.
func ExpandSelectionForMerges(sel CellSelection, merges []CellMerge) CellSelection {
	cur := sel.Normalize()
	for {
		changed := false
		for _, m := range merges {
			if !cur.overlaps(m) || cur.containsMerge(m) {
				continue
			}
			cur = CellSelection{
				StartRow: min(cur.StartRow, m.Row),
				StartCol: min(cur.StartCol, m.Col),
				EndRow:   max(cur.EndRow, m.Row+m.RowSpan-1),
				EndCol:   max(cur.EndCol, m.Col+m.ColSpan-1),
			}
			changed = true
		}
		if !changed {
			return cur
		}
	}
}

// InsertRowMerges shifts merges for a row inserted at pos.
// Merges starting at or after pos move down; merges spanning across pos grow by one row.
func InsertRowMerges(merges []CellMerge, pos int) []CellMerge {
	out := make([]CellMerge, 0, len(merges))
	for _, m := range merges {
		switch {
		case m.Row >= pos:
			m.Row++
		case m.Row+m.RowSpan > pos:
			m.RowSpan++
		}
		out = append(out, m)
	}
	return sortMerges(out)
}

// RemoveRowMerges shifts merges for the row removed at pos.
// Merges after pos move up, merges ending before pos stay, a single-row merge on pos is
// dropped, and a merge spanning pos shrinks by one row.
func RemoveRowMerges(merges []CellMerge, pos int) []CellMerge {
	out := make([]CellMerge, 0, len(merges))
	for _, m := range merges {
		switch {
		case m.Row > pos:
			m.Row--
		case m.Row+m.RowSpan <= pos:
			// ends before the removed row
		case m.Row == pos && m.RowSpan == 1:
			continue
		default:
			m.RowSpan--
			if m.RowSpan <= 0 {
				continue
			}
		}
		out = append(out, m)
	}
	return sortMerges(out)
}

// InsertColumnMerges is the transpose of InsertRowMerges.
func InsertColumnMerges(merges []CellMerge, pos int) []CellMerge {
	return transposeAll(InsertRowMerges(transposeAll(merges), pos))
}

// RemoveColumnMerges is the transpose of RemoveRowMerges.
func RemoveColumnMerges(merges []CellMerge, pos int) []CellMerge {
	return transposeAll(RemoveRowMerges(transposeAll(merges), pos))
}

func transposeAll(merges []CellMerge) []CellMerge {
	out := make([]CellMerge, len(merges))
	for i, m := range merges {
		out[i] = m.transpose()
	}
	return sortMerges(out)
}

// sortMerges orders merges by anchor, row-major. The canonical order keeps inverses exact.
func sortMerges(merges []CellMerge) []CellMerge {
	slices.SortFunc(merges, func(a, b CellMerge) int {
		if c := cmp.Compare(a.Row, b.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.Col, b.Col)
	})
	return merges
}
