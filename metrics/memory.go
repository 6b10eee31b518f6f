package metrics

import (
	"context"
	"sync"
)

// MemoryPublisher is a test implementation that records published batches.
type MemoryPublisher struct {
	mu      sync.Mutex
	batches [][]Datum
	err     error
}

// NewMemoryPublisher creates a publisher for testing.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the batch, or fails with the configured error.
func (m *MemoryPublisher) Publish(ctx context.Context, data []Datum) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	batch := make([]Datum, len(data))
	copy(batch, data)
	m.batches = append(m.batches, batch)
	return nil
}

// SetError makes subsequent Publish calls fail with err. Pass nil to
// restore normal recording.
func (m *MemoryPublisher) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Batches returns all recorded batches.
func (m *MemoryPublisher) Batches() [][]Datum {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Datum, len(m.batches))
	copy(out, m.batches)
	return out
}

// All returns every recorded datum in publication order.
func (m *MemoryPublisher) All() []Datum {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Datum
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}

// Clear discards recorded batches.
func (m *MemoryPublisher) Clear() {
	m.mu.Lock()
	m.batches = nil
	m.mu.Unlock()
}
