package table

// Cell is a visible grid position with its rendered span. Unmerged cells span 1x1.
type Cell struct {
	Row     int
	Col     int
	RowSpan int
	ColSpan int
	Header  bool
}

// VisibleCells lists the cells a renderer draws, row-major. Covered cells are skipped
// and anchors carry the span of their merge.
func VisibleCells(p Props) []Cell {
	cells := make([]Cell, 0, p.Rows*p.Columns)
	for r := range p.Rows {
		for c := range p.Columns {
			cell := Cell{Row: r, Col: c, RowSpan: 1, ColSpan: 1, Header: r < p.HeaderRows}
			if m, ok := FindMergeAt(r, c, p.Merges); ok {
				if m.Row != r || m.Col != c {
					continue
				}
				cell.RowSpan, cell.ColSpan = m.RowSpan, m.ColSpan
			}
			cells = append(cells, cell)
		}
	}
	return cells
}
