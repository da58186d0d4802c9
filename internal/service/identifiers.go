package service

import (
	"context"
	"errors"
	"sync"

	"mltm/internal/repository"
)

// Domain errors for identifier resolution.
var (
	ErrMachineNotFound = errors.New("machine not found")
	ErrColorNotFound   = errors.New("color not found")
)

// IdentifierCache memoizes machine-code and color-name lookups for the
// process lifetime. Misses are never cached: a machine may be provisioned
// after the first heartbeat arrives.
type IdentifierCache struct {
	repo repository.Machines

	mu       sync.RWMutex
	machines map[string]int64
	colors   map[string]int64
}

func NewIdentifierCache(repo repository.Machines) *IdentifierCache {
	return &IdentifierCache{
		repo:     repo,
		machines: map[string]int64{},
		colors:   map[string]int64{},
	}
}

var _ Identifiers = (*IdentifierCache)(nil)

func (c *IdentifierCache) ResolveMachine(ctx context.Context, code string) (int64, error) {
	c.mu.RLock()
	id, ok := c.machines[code]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	m, err := c.repo.GetByCode(ctx, code)
	if err != nil {
		return 0, err
	}
	if m == nil {
		return 0, ErrMachineNotFound
	}

	c.mu.Lock()
	c.machines[code] = m.ID
	c.mu.Unlock()
	return m.ID, nil
}

func (c *IdentifierCache) ResolveColor(ctx context.Context, name string) (int64, error) {
	c.mu.RLock()
	id, ok := c.colors[name]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	col, err := c.repo.ColorByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if col == nil {
		return 0, ErrColorNotFound
	}

	c.mu.Lock()
	c.colors[name] = col.ID
	c.mu.Unlock()
	return col.ID, nil
}
