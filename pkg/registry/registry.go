package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/folio/pkg/domain"
)

// Handler applies a component-specific command. It must not modify doc and must return
// a Result whose Inverse undoes the edit exactly.
type Handler func(env Env, doc *domain.Document, cmd domain.Command) (domain.Result, error)

// Env carries the collaborators a Handler may need.
type Env struct {
	Registry *Registry
	IDs      IDGenerator
	Logger   *slog.Logger
}

// CommandDecoder builds a command value from its JSON payload.
type CommandDecoder func(payload []byte) (domain.Command, error)

// Component declares the structural contract of one node type.
type Component struct {
	Type string

	// Slots lists the slot names created for a new node when CreateInitialSlots is nil.
	// Parametrized templates such as "cell-{row}-{col}" are documentation only.
	Slots []string

	// AllowedChildren restricts the node types accepted in this component's slots.
	// Empty means any non-root type.
	AllowedChildren []string

	// Root marks the type that may only appear as the document root.
	Root bool

	// Fixed nodes cannot be dragged.
	Fixed bool

	// DefaultProps are merged under the props given at insertion time.
	DefaultProps map[string]any

	// ReservedProps cannot be changed through UpdateNodeProps; the component's own
	// commands own them.
	ReservedProps []string

	// CreateInitialSlots builds the slots of a freshly created node.
	CreateInitialSlots func(nodeID domain.NodeID, props map[string]any, ids IDGenerator) []*domain.Slot

	// NormalizeProps decodes props into the component's typed form and re-encodes them
	// canonically. It doubles as props validation.
	NormalizeProps func(props map[string]any) (map[string]any, error)

	// Validate checks component-level invariants of a node inside a document.
	Validate func(doc *domain.Document, node *domain.Node) error

	// CanInsert vets content placed into one of the component's slots, for slots that
	// must stay empty such as covered table cells.
	CanInsert func(doc *domain.Document, owner *domain.Node, slot *domain.Slot) error

	// Commands maps the command types this component handles to their decoders.
	Commands map[string]CommandDecoder

	// Handler applies the component's commands.
	Handler Handler
}

// Registry manages the available components.
type Registry struct {
	mu         sync.RWMutex
	components map[string]*Component
	commands   map[string]*Component
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		components: make(map[string]*Component),
		commands:   make(map[string]*Component),
	}
}

// Register adds a component. Registering the same type twice, or claiming a command type
// that another component already handles, is an error.
func (r *Registry) Register(c Component) error {
	if c.Type == "" {
		return fmt.Errorf("component type is required")
	}
	if len(c.Commands) > 0 && c.Handler == nil {
		return fmt.Errorf("component %s declares commands but no handler", c.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[c.Type]; exists {
		return fmt.Errorf("component %s already registered", c.Type)
	}
	for cmdType := range c.Commands {
		if owner, exists := r.commands[cmdType]; exists {
			return fmt.Errorf("command %s already handled by %s", cmdType, owner.Type)
		}
	}

	comp := c
	r.components[c.Type] = &comp
	for cmdType := range c.Commands {
		r.commands[cmdType] = &comp
	}
	return nil
}

// MustRegister is Register for static setup code.
func (r *Registry) MustRegister(components ...Component) *Registry {
	for _, c := range components {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Lookup returns the component for a node type.
func (r *Registry) Lookup(nodeType string) (*Component, error) {
	r.mu.RLock()
	c, ok := r.components[nodeType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownNodeType, nodeType)
	}
	return c, nil
}

// HandlerFor returns the component handling a command type.
func (r *Registry) HandlerFor(commandType string) (*Component, error) {
	r.mu.RLock()
	c, ok := r.commands[commandType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCommand, commandType)
	}
	return c, nil
}

// Decoder returns the payload decoder of a component command type.
func (r *Registry) Decoder(commandType string) (CommandDecoder, bool) {
	c, err := r.HandlerFor(commandType)
	if err != nil {
		return nil, false
	}
	dec, ok := c.Commands[commandType]
	return dec, ok
}

// Types lists the registered node types in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := slices.Collect(maps.Keys(r.components))
	sort.Strings(types)
	return types
}

// Accepts reports whether a node of the child component may be placed in c's slots.
func (c *Component) Accepts(child *Component) bool {
	if child.Root {
		return false
	}
	if len(c.AllowedChildren) == 0 {
		return true
	}
	return slices.Contains(c.AllowedChildren, child.Type)
}

// IsReserved reports whether key is owned by the component's commands.
func (c *Component) IsReserved(key string) bool {
	return slices.Contains(c.ReservedProps, key)
}

// Normalize runs the component's props normalizer, if any. Empty bags become nil.
func (c *Component) Normalize(props map[string]any) (map[string]any, error) {
	out := props
	if c.NormalizeProps != nil {
		var err error
		out, err = c.NormalizeProps(props)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidProps, c.Type, err)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// CheckSubtree verifies a restore payload before it enters doc. The subtree must be
// self-contained, its nodes registered with valid props, and every child accepted by the
// component owning its slot. A slot owner outside the subtree is looked up in doc.
func (r *Registry) CheckSubtree(doc *domain.Document, st *domain.Subtree) error {
	if err := st.Check(); err != nil {
		return err
	}
	comps := make(map[domain.NodeID]*Component, len(st.Nodes))
	for _, n := range st.Nodes {
		c, err := r.Lookup(n.Type)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		if _, err := c.Normalize(n.Props); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		comps[n.ID] = c
	}
	for _, s := range st.Slots {
		owner, ok := comps[s.Owner]
		if !ok {
			n, found := domain.FindNode(doc, s.Owner)
			if !found {
				return fmt.Errorf("%w: owner %s of slot %s", domain.ErrNodeNotFound, s.Owner, s.ID)
			}
			var err error
			if owner, err = r.Lookup(n.Type); err != nil {
				return err
			}
		}
		for _, child := range s.Children {
			if !owner.Accepts(comps[child]) {
				return fmt.Errorf("%w: %s does not accept %s children", domain.ErrNotAllowed, owner.Type, comps[child].Type)
			}
		}
	}
	return nil
}

// ValidateNodes runs the component invariants of the given nodes of doc.
func (r *Registry) ValidateNodes(doc *domain.Document, nodes []*domain.Node) error {
	for _, n := range nodes {
		c, err := r.Lookup(n.Type)
		if err != nil {
			return err
		}
		if c.Validate == nil {
			continue
		}
		node, ok := domain.FindNode(doc, n.ID)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, n.ID)
		}
		if err := c.Validate(doc, node); err != nil {
			return err
		}
	}
	return nil
}

// NewNode creates a node of nodeType with fresh IDs for the node and its initial slots.
// props override the component's DefaultProps key by key.
func (r *Registry) NewNode(nodeType string, props map[string]any, ids IDGenerator) (*domain.Node, []*domain.Slot, error) {
	c, err := r.Lookup(nodeType)
	if err != nil {
		return nil, nil, err
	}

	merged := maps.Clone(c.DefaultProps)
	if merged == nil {
		merged = make(map[string]any, len(props))
	}
	maps.Copy(merged, props)
	merged, err = c.Normalize(merged)
	if err != nil {
		return nil, nil, err
	}

	node := &domain.Node{
		ID:    domain.NodeID(ids.NewID()),
		Type:  nodeType,
		Slots: []domain.SlotID{},
		Props: merged,
	}

	var slots []*domain.Slot
	if c.CreateInitialSlots != nil {
		slots = c.CreateInitialSlots(node.ID, merged, ids)
	} else {
		for _, name := range c.Slots {
			slots = append(slots, &domain.Slot{
				ID:       domain.SlotID(ids.NewID()),
				Owner:    node.ID,
				Name:     name,
				Children: []domain.NodeID{},
			})
		}
	}
	for _, s := range slots {
		node.Slots = append(node.Slots, s.ID)
	}
	return node, slots, nil
}

// NewDocument creates a document whose root is a fresh node of rootType.
func (r *Registry) NewDocument(rootType string, ids IDGenerator) (*domain.Document, error) {
	c, err := r.Lookup(rootType)
	if err != nil {
		return nil, err
	}
	if !c.Root {
		return nil, fmt.Errorf("%w: %s cannot be a document root", domain.ErrNotAllowed, rootType)
	}
	root, slots, err := r.NewNode(rootType, nil, ids)
	if err != nil {
		return nil, err
	}
	return domain.NewDocument(root, slots), nil
}
