package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

var fixedNow = func() time.Time {
	return time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
}

// flakyBackend wraps a MemoryBackend and fails saves while broken is set.
type flakyBackend struct {
	*MemoryBackend
	mu      sync.Mutex
	broken  bool
	saves   int
	loadErr error
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{MemoryBackend: NewMemoryBackend()}
}

func (b *flakyBackend) setBroken(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broken = v
}

func (b *flakyBackend) Load(ctx context.Context, c Collection) ([]byte, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.MemoryBackend.Load(ctx, c)
}

func (b *flakyBackend) Save(ctx context.Context, c Collection, data []byte) error {
	b.mu.Lock()
	b.saves++
	broken := b.broken
	b.mu.Unlock()
	if broken {
		return errors.New("read-only file system")
	}
	return b.MemoryBackend.Save(ctx, c, data)
}
