package registry

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces globally unique node and slot IDs.
type IDGenerator interface {
	NewID() string
}

// UUIDs generates random (version 4) UUIDs.
type UUIDs struct{}

// NewID returns a new random UUID string.
func (UUIDs) NewID() string {
	return uuid.NewString()
}

// Sequence generates predictable IDs ("n1", "n2", ...). Useful in tests and fixtures.
type Sequence struct {
	prefix string
	next   atomic.Int64
}

// NewSequence creates a sequence generator with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// NewID returns the next ID of the sequence.
func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s%d", s.prefix, s.next.Add(1))
}
