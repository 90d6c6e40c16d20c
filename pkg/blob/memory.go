package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore is an in-memory Store. The optional Fail* hooks run before each
// operation and abort it when they return an error.
type MemoryStore struct {
	mu         sync.RWMutex
	containers map[string]map[string][]byte

	FailSave   func(container, key string) error
	FailGet    func(container, key string) error
	FailDelete func(container, key string) error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{containers: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) Save(ctx context.Context, container, key string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailSave != nil {
		if err := m.FailSave(container, key); err != nil {
			return err
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read blob %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.containers[container]
	if !ok {
		c = make(map[string][]byte)
		m.containers[container] = c
	}
	c[key] = data
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, container, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FailGet != nil {
		if err := m.FailGet(container, key); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.containers[container]
	if !ok {
		return nil, containerNotFound(container)
	}
	data, ok := c[key]
	if !ok {
		return nil, blobNotFound(key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Delete(ctx context.Context, container, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailDelete != nil {
		if err := m.FailDelete(container, key); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.containers[container]
	if !ok {
		return blobNotFound(key)
	}
	if _, ok := c[key]; !ok {
		return blobNotFound(key)
	}
	delete(c, key)
	return nil
}

// Len returns the number of blobs in container.
func (m *MemoryStore) Len(container string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.containers[container])
}

// Has reports whether key exists in container.
func (m *MemoryStore) Has(container, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.containers[container][key]
	return ok
}

func (m *MemoryStore) Close() error {
	return nil
}
