package router

import (
	"context"
	"sync"
)

// MemorySink keeps written points in memory.
type MemorySink struct {
	mu     sync.Mutex
	writes [][]Point
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Write(_ context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, append([]Point(nil), points...))
	return nil
}

// Writes returns every batch written so far, oldest first.
func (m *MemorySink) Writes() [][]Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Point(nil), m.writes...)
}

// Points returns all written points flattened.
func (m *MemorySink) Points() []Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Point
	for _, w := range m.writes {
		out = append(out, w...)
	}
	return out
}
