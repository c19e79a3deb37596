package history

// Availability reports which history operations are possible.
type Availability struct {
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

// DefaultLimit is the number of entries kept when no limit is configured.
const DefaultLimit = 100

// Option configures a history.
type Option func(*config)

type config struct {
	limit int
}

// WithLimit bounds the number of undo entries. The oldest entries are evicted first.
// Values below 1 keep the default.
func WithLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.limit = n
		}
	}
}

func newConfig(opts []Option) config {
	c := config{limit: DefaultLimit}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type observer struct {
	id int
	fn func(Availability)
}

// observers is an ordered subscriber list.
type observers struct {
	next int
	list []observer
}

func (o *observers) subscribe(fn func(Availability)) func() {
	o.next++
	id := o.next
	o.list = append(o.list, observer{id: id, fn: fn})
	return func() {
		for i, ob := range o.list {
			if ob.id == id {
				o.list = append(o.list[:i:i], o.list[i+1:]...)
				return
			}
		}
	}
}

func (o *observers) notify(a Availability) {
	for _, ob := range append([]observer(nil), o.list...) {
		ob.fn(a)
	}
}

// bounded appends v and drops the oldest entries beyond limit.
func bounded[T any](stack []T, v T, limit int) []T {
	stack = append(stack, v)
	if over := len(stack) - limit; over > 0 {
		clear(stack[:over])
		stack = append(stack[:0:0], stack[over:]...)
	}
	return stack
}
