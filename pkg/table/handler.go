package table

import (
	"fmt"
	"slices"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
)

func handle(env registry.Env, doc *domain.Document, cmd domain.Command) (domain.Result, error) {
	switch c := cmd.(type) {
	case AddTableRow:
		return addLine(env, doc, c.Node, byRow, c.Position, 0, c.Restore)
	case RemoveTableRow:
		return removeLine(doc, c.Node, byRow, c.Position)
	case AddTableColumn:
		return addLine(env, doc, c.Node, byColumn, c.Position, c.Width, c.Restore)
	case RemoveTableColumn:
		return removeLine(doc, c.Node, byColumn, c.Position)
	case MergeTableCells:
		return mergeCells(doc, c)
	case UnmergeTableCells:
		return unmergeCells(doc, c)
	case SetTableHeaderRows:
		return setHeaderRows(doc, c)
	}
	return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrUnknownCommand, cmd.CommandType())
}

// grid is a table node loaded for editing.
type grid struct {
	node  *domain.Node
	props Props
	cells map[string]*domain.Slot
}

func load(doc *domain.Document, id domain.NodeID) (*grid, error) {
	node, ok := domain.FindNode(doc, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	p, err := PropsOf(node)
	if err != nil {
		return nil, err
	}
	return &grid{node: node, props: p, cells: CellSlots(doc, node)}, nil
}

func (g *grid) cell(row, col int) (*domain.Slot, error) {
	return g.named(CellSlotName(row, col))
}

func (g *grid) named(name string) (*domain.Slot, error) {
	s, ok := g.cells[name]
	if !ok {
		return nil, fmt.Errorf("%w: table %s has no %s", domain.ErrSlotNotFound, g.node.ID, name)
	}
	return s, nil
}

// lines returns the cell slots indexed by [line][cross].
func (g *grid) lines(ax axis) ([][]*domain.Slot, error) {
	lines, cross := ax.dims(g.props)
	out := make([][]*domain.Slot, lines)
	for l := range lines {
		out[l] = make([]*domain.Slot, cross)
		for c := range cross {
			s, err := g.named(ax.name(l, c))
			if err != nil {
				return nil, err
			}
			out[l][c] = s
		}
	}
	return out, nil
}

// commit checks the new props, stores them with the given row-major cell list and
// finishes the transaction.
func (g *grid) commit(tx *domain.Tx, p Props, slots []domain.SlotID) (*domain.Document, error) {
	if err := p.Check(); err != nil {
		return nil, fmt.Errorf("%w: table %s: %v", domain.ErrInvalidProps, g.node.ID, err)
	}
	n := g.node.Clone()
	n.Props = p.Encode()
	if slots != nil {
		n.Slots = slots
	}
	tx.PutNode(n)
	return tx.Commit(), nil
}

// axis lets row and column edits share one implementation. A line is a row or a
// column; the cross index runs along the line.
type axis int

const (
	byRow axis = iota
	byColumn
)

func (a axis) name(line, cross int) string {
	if a == byRow {
		return CellSlotName(line, cross)
	}
	return CellSlotName(cross, line)
}

func (a axis) dims(p Props) (lines, cross int) {
	if a == byRow {
		return p.Rows, p.Columns
	}
	return p.Columns, p.Rows
}

func (a axis) setLines(p *Props, n int) {
	if a == byRow {
		p.Rows = n
	} else {
		p.Columns = n
	}
}

func (a axis) String() string {
	if a == byRow {
		return "row"
	}
	return "column"
}

// layout lists cell slot IDs row-major, addressing them by (line, cross).
func (a axis) layout(lines, cross int, at func(line, cross int) domain.SlotID) []domain.SlotID {
	rows, cols := lines, cross
	if a == byColumn {
		rows, cols = cross, lines
	}
	out := make([]domain.SlotID, 0, rows*cols)
	for r := range rows {
		for c := range cols {
			if a == byRow {
				out = append(out, at(r, c))
			} else {
				out = append(out, at(c, r))
			}
		}
	}
	return out
}

func addLine(env registry.Env, doc *domain.Document, id domain.NodeID, ax axis, pos int, width float64, restore *LineRestore) (domain.Result, error) {
	g, err := load(doc, id)
	if err != nil {
		return domain.Result{}, err
	}
	lines, cross := ax.dims(g.props)
	if pos < 0 || pos > lines {
		return domain.Result{}, fmt.Errorf("%w: %s position %d not in [0,%d]", domain.ErrOutOfRange, ax, pos, lines)
	}
	if restore != nil && len(restore.Cells) != cross {
		return domain.Result{}, fmt.Errorf("%w: restore holds %d cells for a %s of %d", domain.ErrValidation, len(restore.Cells), ax, cross)
	}

	old, err := g.lines(ax)
	if err != nil {
		return domain.Result{}, err
	}

	tx := domain.Begin(doc)

	// Shift lines at or after pos outward, starting with the last one, so a renamed cell
	// never takes a name that is still in use.
	for l := lines - 1; l >= pos; l-- {
		for c := range cross {
			if err := tx.RenameSlot(old[l][c].ID, ax.name(l+1, c)); err != nil {
				return domain.Result{}, err
			}
		}
	}

	added := make([]domain.SlotID, cross)
	for c := range cross {
		if restore == nil {
			s := newCell(g.node.ID, ax.name(pos, c), env.IDs)
			tx.PutSlot(s)
			added[c] = s.ID
			continue
		}
		st := restore.Cells[c]
		if st == nil || st.Root != "" || len(st.Slots) == 0 || st.Slots[0] == nil || st.Slots[0].Owner != g.node.ID || st.Slots[0].Name != ax.name(pos, c) {
			return domain.Result{}, fmt.Errorf("%w: restore cell %d does not belong to %s %d of table %s", domain.ErrInvalidSubtree, c, ax, pos, g.node.ID)
		}
		if err := env.Registry.CheckSubtree(doc, st); err != nil {
			return domain.Result{}, fmt.Errorf("restore cell %d: %w", c, err)
		}
		if err := tx.Restore(st); err != nil {
			return domain.Result{}, err
		}
		added[c] = st.Slots[0].ID
	}

	p := g.props
	ax.setLines(&p, lines+1)
	if restore != nil {
		p.Merges = slices.Clone(restore.Merges)
		p.HeaderRows = restore.HeaderRows
	} else if ax == byRow {
		p.Merges = InsertRowMerges(p.Merges, pos)
		if pos < p.HeaderRows {
			p.HeaderRows++
		}
	} else {
		p.Merges = InsertColumnMerges(p.Merges, pos)
	}
	if ax == byColumn {
		if width <= 0 {
			width = 100 / float64(lines+1)
		}
		p.ColumnWidths = slices.Insert(slices.Clone(p.ColumnWidths), pos, width)
	}

	slots := ax.layout(lines+1, cross, func(l, c int) domain.SlotID {
		switch {
		case l < pos:
			return old[l][c].ID
		case l == pos:
			return added[c]
		default:
			return old[l-1][c].ID
		}
	})
	next, err := g.commit(tx, p, slots)
	if err != nil {
		return domain.Result{}, err
	}
	if restore != nil {
		if err := validateTable(next, next.Nodes[id]); err != nil {
			return domain.Result{}, err
		}
		for _, st := range restore.Cells {
			if err := env.Registry.ValidateNodes(next, st.Nodes); err != nil {
				return domain.Result{}, err
			}
		}
	}

	var inverse domain.Command = RemoveTableRow{Node: id, Position: pos}
	if ax == byColumn {
		inverse = RemoveTableColumn{Node: id, Position: pos}
	}
	return domain.Result{Document: next, Inverse: inverse, StructureChanged: true}, nil
}

func removeLine(doc *domain.Document, id domain.NodeID, ax axis, pos int) (domain.Result, error) {
	g, err := load(doc, id)
	if err != nil {
		return domain.Result{}, err
	}
	lines, cross := ax.dims(g.props)
	if lines <= 1 {
		return domain.Result{}, fmt.Errorf("%w: table %s has a single %s", domain.ErrCardinality, id, ax)
	}
	if pos < 0 || pos >= lines {
		return domain.Result{}, fmt.Errorf("%w: %s position %d not in [0,%d)", domain.ErrOutOfRange, ax, pos, lines)
	}

	old, err := g.lines(ax)
	if err != nil {
		return domain.Result{}, err
	}

	restore := &LineRestore{
		Cells:      make([]*domain.Subtree, cross),
		Merges:     slices.Clone(g.props.Merges),
		HeaderRows: g.props.HeaderRows,
	}
	tx := domain.Begin(doc)
	for c := range cross {
		st, err := domain.CaptureSlot(doc, old[pos][c].ID)
		if err != nil {
			return domain.Result{}, err
		}
		restore.Cells[c] = st
		tx.Remove(st)
	}

	// Pull later lines inward, starting next to the removed one, so each target name has
	// already been vacated.
	for l := pos + 1; l < lines; l++ {
		for c := range cross {
			if err := tx.RenameSlot(old[l][c].ID, ax.name(l-1, c)); err != nil {
				return domain.Result{}, err
			}
		}
	}

	p := g.props
	ax.setLines(&p, lines-1)
	var width float64
	if ax == byRow {
		p.Merges = RemoveRowMerges(p.Merges, pos)
		if pos < p.HeaderRows {
			p.HeaderRows--
		}
	} else {
		p.Merges = RemoveColumnMerges(p.Merges, pos)
		width = p.ColumnWidths[pos]
		p.ColumnWidths = slices.Delete(slices.Clone(p.ColumnWidths), pos, pos+1)
	}

	slots := ax.layout(lines-1, cross, func(l, c int) domain.SlotID {
		if l < pos {
			return old[l][c].ID
		}
		return old[l+1][c].ID
	})
	next, err := g.commit(tx, p, slots)
	if err != nil {
		return domain.Result{}, err
	}

	var inverse domain.Command = AddTableRow{Node: id, Position: pos, Restore: restore}
	if ax == byColumn {
		inverse = AddTableColumn{Node: id, Position: pos, Width: width, Restore: restore}
	}
	return domain.Result{Document: next, Inverse: inverse, StructureChanged: true}, nil
}

func mergeCells(doc *domain.Document, cmd MergeTableCells) (domain.Result, error) {
	g, err := load(doc, cmd.Node)
	if err != nil {
		return domain.Result{}, err
	}
	sel := cmd.Selection().Normalize()
	if sel.StartRow < 0 || sel.StartCol < 0 || sel.EndRow >= g.props.Rows || sel.EndCol >= g.props.Columns {
		return domain.Result{}, fmt.Errorf("%w: selection (%d,%d)-(%d,%d) exceeds the %dx%d grid",
			domain.ErrOutOfRange, sel.StartRow, sel.StartCol, sel.EndRow, sel.EndCol, g.props.Rows, g.props.Columns)
	}
	if sel.Area() <= 1 {
		return domain.Result{}, fmt.Errorf("%w: a merge needs more than one cell", domain.ErrMergeConflict)
	}
	if !CanMerge(sel, g.props.Merges) {
		return domain.Result{}, fmt.Errorf("%w: selection partially overlaps an existing merge", domain.ErrMergeConflict)
	}

	restore := &MergeRestore{}
	merges := make([]CellMerge, 0, len(g.props.Merges)+1)
	for _, m := range g.props.Merges {
		if sel.containsMerge(m) {
			restore.Absorbed = append(restore.Absorbed, m)
			continue
		}
		merges = append(merges, m)
	}
	region := sel.Merge()
	merges = append(merges, region)

	anchor, err := g.cell(region.Row, region.Col)
	if err != nil {
		return domain.Result{}, err
	}
	tx := domain.Begin(doc)
	gathered := slices.Clone(anchor.Children)
	for r := sel.StartRow; r <= sel.EndRow; r++ {
		for c := sel.StartCol; c <= sel.EndCol; c++ {
			if r == region.Row && c == region.Col {
				continue
			}
			s, err := g.cell(r, c)
			if err != nil {
				return domain.Result{}, err
			}
			if len(s.Children) == 0 {
				continue
			}
			restore.Cells = append(restore.Cells, CellContent{Row: r, Col: c, Children: slices.Clone(s.Children)})
			gathered = append(gathered, s.Children...)
			if err := tx.SetChildren(s.ID, nil); err != nil {
				return domain.Result{}, err
			}
		}
	}
	if len(restore.Cells) > 0 {
		restore.Cells = slices.Insert(restore.Cells, 0, CellContent{Row: region.Row, Col: region.Col, Children: slices.Clone(anchor.Children)})
		if err := tx.SetChildren(anchor.ID, gathered); err != nil {
			return domain.Result{}, err
		}
	}

	p := g.props
	p.Merges = sortMerges(merges)
	next, err := g.commit(tx, p, nil)
	if err != nil {
		return domain.Result{}, err
	}

	inverse := UnmergeTableCells{Node: cmd.Node, Row: region.Row, Col: region.Col}
	if len(restore.Absorbed) > 0 || len(restore.Cells) > 0 {
		inverse.Restore = restore
	}
	return domain.Result{Document: next, Inverse: inverse, StructureChanged: true}, nil
}

func unmergeCells(doc *domain.Document, cmd UnmergeTableCells) (domain.Result, error) {
	g, err := load(doc, cmd.Node)
	if err != nil {
		return domain.Result{}, err
	}
	i := slices.IndexFunc(g.props.Merges, func(m CellMerge) bool { return m.Row == cmd.Row && m.Col == cmd.Col })
	if i < 0 {
		return domain.Result{}, fmt.Errorf("%w: no merge anchored at (%d,%d) in table %s", domain.ErrMergeConflict, cmd.Row, cmd.Col, cmd.Node)
	}
	region := g.props.Merges[i]
	merges := slices.Delete(slices.Clone(g.props.Merges), i, i+1)

	tx := domain.Begin(doc)
	if r := cmd.Restore; r != nil {
		for _, m := range r.Absorbed {
			if !region.Selection().containsMerge(m) {
				return domain.Result{}, fmt.Errorf("%w: restored merge at (%d,%d) lies outside the region", domain.ErrMergeConflict, m.Row, m.Col)
			}
			merges = append(merges, m)
		}
		if err := restoreContent(tx, g, region, r.Cells); err != nil {
			return domain.Result{}, err
		}
	}

	p := g.props
	p.Merges = sortMerges(merges)
	next, err := g.commit(tx, p, nil)
	if err != nil {
		return domain.Result{}, err
	}
	sel := region.Selection()
	inverse := MergeTableCells{Node: cmd.Node, StartRow: sel.StartRow, StartCol: sel.StartCol, EndRow: sel.EndRow, EndCol: sel.EndCol}
	return domain.Result{Document: next, Inverse: inverse, StructureChanged: true}, nil
}

// restoreContent puts children back into the cells they occupied before a merge. The
// restored lists must hold exactly the nodes currently found in those cells.
func restoreContent(tx *domain.Tx, g *grid, region CellMerge, cells []CellContent) error {
	var current, restored []domain.NodeID
	for _, cc := range cells {
		if !region.Contains(cc.Row, cc.Col) {
			return fmt.Errorf("%w: restored cell (%d,%d) lies outside the region", domain.ErrMergeConflict, cc.Row, cc.Col)
		}
		s, err := g.cell(cc.Row, cc.Col)
		if err != nil {
			return err
		}
		current = append(current, s.Children...)
		restored = append(restored, cc.Children...)
	}
	slices.Sort(current)
	slices.Sort(restored)
	if !slices.Equal(current, restored) {
		return fmt.Errorf("%w: cell content changed since the merge", domain.ErrMergeConflict)
	}
	for _, cc := range cells {
		s, _ := g.cell(cc.Row, cc.Col)
		if err := tx.SetChildren(s.ID, cc.Children); err != nil {
			return err
		}
	}
	return nil
}

func setHeaderRows(doc *domain.Document, cmd SetTableHeaderRows) (domain.Result, error) {
	g, err := load(doc, cmd.Node)
	if err != nil {
		return domain.Result{}, err
	}
	if cmd.Count < 0 || cmd.Count > g.props.Rows {
		return domain.Result{}, fmt.Errorf("%w: header rows %d not in [0,%d]", domain.ErrOutOfRange, cmd.Count, g.props.Rows)
	}
	inverse := SetTableHeaderRows{Node: cmd.Node, Count: g.props.HeaderRows}
	if cmd.Count == g.props.HeaderRows {
		return domain.Result{Document: doc, Inverse: inverse}, nil
	}
	p := g.props
	p.HeaderRows = cmd.Count
	next, err := g.commit(domain.Begin(doc), p, nil)
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Result{Document: next, Inverse: inverse}, nil
}
