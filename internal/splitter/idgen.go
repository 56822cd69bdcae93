// internal/splitter/idgen.go
package splitter

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator supplies scene ids.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random UUIDs with an optional prefix.
type UUIDGenerator struct {
	Prefix string
}

// NewUUIDGenerator returns the default generator ("scene_" + UUID).
func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{Prefix: "scene_"}
}

// NewID implements IDGenerator.
func (g UUIDGenerator) NewID() string {
	return g.Prefix + uuid.NewString()
}

// CounterGenerator issues prefix_1, prefix_2, ... and is safe for concurrent use.
type CounterGenerator struct {
	prefix string
	next   atomic.Int64
}

// NewCounterGenerator creates a counter starting at 1.
func NewCounterGenerator(prefix string) *CounterGenerator {
	return &CounterGenerator{prefix: prefix}
}

// NewID implements IDGenerator.
func (g *CounterGenerator) NewID() string {
	return fmt.Sprintf("%s_%d", g.prefix, g.next.Add(1))
}
