package preprocess

import (
	"time"

	"github.com/opengrants/triagency-cli/internal/table"
)

// Operation is one entry in a chunk's processing history.
type Operation struct {
	Name      string
	Timestamp time.Time
	Details   map[string]any
}

// Chunk is a unit of work: a table fragment, free-form metadata (such as
// the chunk index), and an append-only log of the operations applied to
// it. The chunk performs no validation; it is purely a carrier.
type Chunk struct {
	Frame   *table.Table
	Meta    map[string]any
	history []Operation
}

// NewChunk wraps a table fragment.
func NewChunk(t *table.Table, meta map[string]any) *Chunk {
	if meta == nil {
		meta = make(map[string]any)
	}
	return &Chunk{Frame: t, Meta: meta}
}

// RecordOperation appends an operation to the chunk's history.
func (c *Chunk) RecordOperation(name string, details map[string]any) {
	if details == nil {
		details = make(map[string]any)
	}
	c.history = append(c.history, Operation{
		Name:      name,
		Timestamp: time.Now(),
		Details:   details,
	})
}

// History returns the ordered operation log.
func (c *Chunk) History() []Operation {
	return c.history
}
