// Package kv defines the flat key-value boundary the document store persists
// through. Each key holds one JSON-serialized collection.
package kv

import (
	"context"
	"errors"
	"maps"
	"sync"
)

// Fixed keys, one per entity collection.
const (
	KeyManuscripts  = "manuscripts"
	KeyDocuments    = "documents"
	KeyUserSettings = "userSettings"
)

// ErrUnavailable is returned by a backend that cannot be reached.
var ErrUnavailable = errors.New("key-value backend unavailable")

// Backend is a flat key-value namespace.
type Backend interface {
	// Get returns the value stored under key, or nil with no error when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// PutMany stores all entries in one step.
	PutMany(ctx context.Context, entries map[string][]byte) error
}

// MemoryBackend is an in-process Backend. Setting Unavailable makes every
// call fail with ErrUnavailable.
type MemoryBackend struct {
	mu          sync.Mutex
	data        map[string][]byte
	Unavailable bool
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// Get implements Backend.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return nil, ErrUnavailable
	}
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Put implements Backend.
func (m *MemoryBackend) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return ErrUnavailable
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements Backend.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return ErrUnavailable
	}
	delete(m.data, key)
	return nil
}

// PutMany implements Backend.
func (m *MemoryBackend) PutMany(_ context.Context, entries map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Unavailable {
		return ErrUnavailable
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	for k, v := range entries {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

// Snapshot returns a copy of every stored entry.
func (m *MemoryBackend) Snapshot() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := maps.Clone(m.data)
	for k, v := range out {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
