package storage

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when no snapshot exists for a key
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned when using a closed persistence backend
	ErrClosed = errors.New("persistence closed")
)

// Persistence is durable key-value storage for serialized index snapshots.
// Keys are workspace roots; values are opaque.
type Persistence interface {
	SaveSnapshot(ctx context.Context, key string, data []byte) error
	LoadSnapshot(ctx context.Context, key string) ([]byte, error)
	DeleteSnapshot(ctx context.Context, key string) error
	Close() error
}

// MemoryPersistence keeps snapshots in process memory
type MemoryPersistence struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryPersistence creates an empty in-memory backend
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{data: make(map[string][]byte)}
}

// SaveSnapshot stores a copy of data under key
func (m *MemoryPersistence) SaveSnapshot(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

// LoadSnapshot returns a copy of the data stored under key
func (m *MemoryPersistence) LoadSnapshot(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	data, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// DeleteSnapshot removes key. Deleting a missing key is not an error.
func (m *MemoryPersistence) DeleteSnapshot(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, key)
	return nil
}

// Close marks the backend closed
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
