package columns

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
)

// NodeType is the registry type of multi-column layouts.
const NodeType = "columns"

// Property keys.
const (
	PropCount = "count"
	PropGap   = "gap"
)

const slotPrefix = "column-"

// SlotName returns the slot name of column i.
func SlotName(i int) string {
	return slotPrefix + strconv.Itoa(i)
}

// ParseSlotName is the strict inverse of SlotName.
func ParseSlotName(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, slotPrefix)
	if !ok || rest == "" || (len(rest) > 1 && rest[0] == '0') {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(rest)
	return i, err == nil
}

// Props is the typed view of a columns node.
type Props struct {
	Count int            `mapstructure:"count"`
	Gap   float64        `mapstructure:"gap"`
	Extra map[string]any `mapstructure:",remain"`
}

// PropsOf decodes the props of a columns node, checking its type.
func PropsOf(node *domain.Node) (Props, error) {
	if node.Type != NodeType {
		return Props{}, fmt.Errorf("%w: %s is a %s, not a %s", domain.ErrWrongNodeType, node.ID, node.Type, NodeType)
	}
	var p Props
	if err := registry.DecodeProps(node.Props, &p); err != nil {
		return Props{}, fmt.Errorf("%w: %v", domain.ErrInvalidProps, err)
	}
	return p, nil
}

// Encode returns the canonical property bag.
func (p Props) Encode() map[string]any {
	return registry.EncodeProps(map[string]any{PropCount: p.Count, PropGap: p.Gap}, p.Extra)
}

func normalizeProps(props map[string]any) (map[string]any, error) {
	var p Props
	if err := registry.DecodeProps(props, &p); err != nil {
		return nil, err
	}
	if p.Count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", p.Count)
	}
	if p.Gap < 0 {
		return nil, fmt.Errorf("gap must not be negative, got %v", p.Gap)
	}
	return p.Encode(), nil
}

// Component returns the registry entry for multi-column layouts.
func Component() registry.Component {
	return registry.Component{
		Type:               NodeType,
		Slots:              []string{"column-{i}"},
		DefaultProps:       map[string]any{PropCount: 2, PropGap: 16.0},
		ReservedProps:      []string{PropCount},
		CreateInitialSlots: createSlots,
		NormalizeProps:     normalizeProps,
		Validate:           validate,
		Commands: map[string]registry.CommandDecoder{
			CommandAddColumnSlot:    registry.JSONDecoder[AddColumnSlot](),
			CommandRemoveColumnSlot: registry.JSONDecoder[RemoveColumnSlot](),
		},
		Handler: handle,
	}
}

func createSlots(nodeID domain.NodeID, props map[string]any, ids registry.IDGenerator) []*domain.Slot {
	var p Props
	if err := registry.DecodeProps(props, &p); err != nil {
		return nil
	}
	slots := make([]*domain.Slot, p.Count)
	for i := range slots {
		slots[i] = newSlot(nodeID, i, ids)
	}
	return slots
}

func newSlot(owner domain.NodeID, i int, ids registry.IDGenerator) *domain.Slot {
	return &domain.Slot{ID: domain.SlotID(ids.NewID()), Owner: owner, Name: SlotName(i), Children: []domain.NodeID{}}
}

func validate(doc *domain.Document, node *domain.Node) error {
	p, err := PropsOf(node)
	if err != nil {
		return err
	}
	if len(node.Slots) != p.Count {
		return fmt.Errorf("%w: columns %s has %d slots for count %d", domain.ErrCardinality, node.ID, len(node.Slots), p.Count)
	}
	for i, sid := range node.Slots {
		s, ok := doc.Slots[sid]
		if !ok {
			return fmt.Errorf("%w: columns %s references %s", domain.ErrSlotNotFound, node.ID, sid)
		}
		if s.Name != SlotName(i) {
			return fmt.Errorf("%w: columns %s slot %d is %q, want %q", domain.ErrValidation, node.ID, i, s.Name, SlotName(i))
		}
	}
	return nil
}
