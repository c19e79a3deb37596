package table

import (
	"fmt"
	"slices"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
)

// Property keys of a table node.
const (
	PropRows         = "rows"
	PropColumns      = "columns"
	PropColumnWidths = "columnWidths"
	PropHeaderRows   = "headerRows"
	PropMerges       = "merges"
)

// Props is the typed view of a table node's properties.
type Props struct {
	Rows         int            `mapstructure:"rows"`
	Columns      int            `mapstructure:"columns"`
	ColumnWidths []float64      `mapstructure:"columnWidths"`
	HeaderRows   int            `mapstructure:"headerRows"`
	Merges       []CellMerge    `mapstructure:"merges"`
	Extra        map[string]any `mapstructure:",remain"`
}

// DecodeProps reads the typed props of a table node without filling defaults.
func DecodeProps(props map[string]any) (Props, error) {
	var p Props
	if err := registry.DecodeProps(props, &p); err != nil {
		return Props{}, err
	}
	return p, nil
}

// PropsOf decodes the props of a table node, checking its type.
func PropsOf(node *domain.Node) (Props, error) {
	if node.Type != NodeType {
		return Props{}, fmt.Errorf("%w: %s is a %s, not a %s", domain.ErrWrongNodeType, node.ID, node.Type, NodeType)
	}
	p, err := DecodeProps(node.Props)
	if err != nil {
		return Props{}, fmt.Errorf("%w: %v", domain.ErrInvalidProps, err)
	}
	return p, nil
}

// Encode returns the canonical property bag. Slices are copied.
func (p Props) Encode() map[string]any {
	merges := slices.Clone(p.Merges)
	if merges == nil {
		merges = []CellMerge{}
	}
	widths := slices.Clone(p.ColumnWidths)
	if widths == nil {
		widths = []float64{}
	}
	return registry.EncodeProps(map[string]any{
		PropRows:         p.Rows,
		PropColumns:      p.Columns,
		PropColumnWidths: widths,
		PropHeaderRows:   p.HeaderRows,
		PropMerges:       sortMerges(merges),
	}, p.Extra)
}

// Check validates the props on their own (without looking at slots).
func (p Props) Check() error {
	if p.Rows < 1 || p.Columns < 1 {
		return fmt.Errorf("table must have at least one row and one column, got %dx%d", p.Rows, p.Columns)
	}
	if len(p.ColumnWidths) != p.Columns {
		return fmt.Errorf("columnWidths has %d entries for %d columns", len(p.ColumnWidths), p.Columns)
	}
	for i, w := range p.ColumnWidths {
		if w <= 0 {
			return fmt.Errorf("column %d has non-positive width %v", i, w)
		}
	}
	if p.HeaderRows < 0 || p.HeaderRows > p.Rows {
		return fmt.Errorf("headerRows %d not in [0,%d]", p.HeaderRows, p.Rows)
	}
	for i, m := range p.Merges {
		if m.RowSpan < 1 || m.ColSpan < 1 {
			return fmt.Errorf("merge %d has an empty span", i)
		}
		if m.Row < 0 || m.Col < 0 || m.Row+m.RowSpan > p.Rows || m.Col+m.ColSpan > p.Columns {
			return fmt.Errorf("merge %d (%d,%d %dx%d) exceeds the %dx%d grid", i, m.Row, m.Col, m.RowSpan, m.ColSpan, p.Rows, p.Columns)
		}
		for j := range i {
			if m.Selection().overlaps(p.Merges[j]) {
				return fmt.Errorf("merges %d and %d overlap", j, i)
			}
		}
	}
	return nil
}

// normalizeProps fills missing column widths with an even split, validates and re-encodes.
func normalizeProps(props map[string]any) (map[string]any, error) {
	p, err := DecodeProps(props)
	if err != nil {
		return nil, err
	}
	if p.ColumnWidths == nil && p.Columns > 0 {
		p.ColumnWidths = evenWidths(p.Columns)
	}
	if err := p.Check(); err != nil {
		return nil, err
	}
	return p.Encode(), nil
}

func evenWidths(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 100 / float64(n)
	}
	return w
}
