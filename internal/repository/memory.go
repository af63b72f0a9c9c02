package repository

import (
	"context"
	"slices"
	"sync"
)

// MemoryKV keeps blobs in process memory.
type MemoryKV struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryKV constructs an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{blobs: make(map[string][]byte)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *MemoryKV) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = slices.Clone(value)
	return nil
}
