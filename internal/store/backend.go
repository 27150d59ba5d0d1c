// Package store persists the appointment and doctor collections behind a
// pluggable durable backend, keeping an in-memory copy that stays
// authoritative when the backend misbehaves.
package store

import (
	"context"
	"errors"
	"sync"
)

// Collection names one of the two persisted collections.
type Collection string

const (
	Appointments Collection = "appointments"
	Doctors      Collection = "doctors"
)

// ErrNotFound is returned by a Backend when a collection was never saved.
var ErrNotFound = errors.New("store: collection not found")

// Backend is a durable home for serialized collections. Implementations only
// move bytes; decoding and fallback live in Store.
type Backend interface {
	Name() string
	Load(ctx context.Context, c Collection) ([]byte, error)
	Save(ctx context.Context, c Collection, data []byte) error
	Close() error
}

// MemoryBackend keeps collections for the lifetime of the process.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[Collection][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[Collection][]byte)}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Load(_ context.Context, c Collection) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.data[c]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) Save(_ context.Context, c Collection, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[c] = append([]byte(nil), data...)
	return nil
}

func (b *MemoryBackend) Close() error { return nil }
