package store

import (
	"bytes"
	"context"
	"sync"
)

// MemoryKV is an in-process KV. Its contents are lost when the process exits.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]memEntry
}

type memEntry struct {
	value   []byte
	version int64
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]memEntry)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok {
		return nil, 0, nil
	}
	return bytes.Clone(e.value), e.version, nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.data[key]
	e.value = bytes.Clone(value)
	e.version++
	m.data[key] = e
	return e.version, nil
}

func (m *MemoryKV) CompareAndSet(_ context.Context, key string, value []byte, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.data[key]
	if e.version != expected {
		return 0, &ConflictError{Key: key, Expected: expected}
	}
	e.value = bytes.Clone(value)
	e.version++
	m.data[key] = e
	return e.version, nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
