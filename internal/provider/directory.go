package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrProviderNotFound = errors.New("provider not found")

// Directory is the read-only lookup the booking engine needs from the
// provider directory service.
type Directory interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
	ListProviders(ctx context.Context) ([]Provider, error)
}

// MemoryDirectory is an in-memory Directory used by tests and the
// simulator.
type MemoryDirectory struct {
	mu        sync.RWMutex
	providers map[uuid.UUID]Provider
}

func NewMemoryDirectory(providers ...Provider) *MemoryDirectory {
	d := &MemoryDirectory{providers: make(map[uuid.UUID]Provider)}
	for _, p := range providers {
		d.providers[p.ID] = p
	}
	return d
}

func (d *MemoryDirectory) Add(p Provider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.providers[p.ID] = p
}

func (d *MemoryDirectory) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}

func (d *MemoryDirectory) ListProviders(ctx context.Context) ([]Provider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Provider, 0, len(d.providers))
	for _, p := range d.providers {
		out = append(out, p)
	}
	return out, nil
}
