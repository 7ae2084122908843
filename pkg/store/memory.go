package store

import (
	"context"
	"sync"
)

// MemoryBlobs is an in-process backend for tests and local development.
type MemoryBlobs struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemory() *MemoryBlobs {
	return &MemoryBlobs{m: map[string][]byte{}}
}

func (mb *MemoryBlobs) Get(ctx context.Context, name string) ([]byte, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	v, ok := mb.m[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (mb *MemoryBlobs) Put(ctx context.Context, name string, data []byte) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.m[name] = append([]byte(nil), data...)
	return nil
}

func (mb *MemoryBlobs) Close() error { return nil }
