package service

import (
	"context"
	"errors"
	"testing"

	"mltm/internal/models"
)

// countingMachines counts repository hits so memoization is observable.
type countingMachines struct {
	machines map[string]int64
	colors   map[string]int64
	err      error

	codeLookups  int
	colorLookups int
}

func (c *countingMachines) GetByCode(ctx context.Context, code string) (*models.Machine, error) {
	c.codeLookups++
	if c.err != nil {
		return nil, c.err
	}
	id, ok := c.machines[code]
	if !ok {
		return nil, nil
	}
	return &models.Machine{ID: id, Code: code}, nil
}

func (c *countingMachines) ColorByName(ctx context.Context, name string) (*models.StatusColor, error) {
	c.colorLookups++
	if c.err != nil {
		return nil, c.err
	}
	id, ok := c.colors[name]
	if !ok {
		return nil, nil
	}
	return &models.StatusColor{ID: id, Name: name}, nil
}

func (c *countingMachines) List(ctx context.Context) ([]models.Machine, error) { return nil, nil }
func (c *countingMachines) ListColors(ctx context.Context) ([]models.StatusColor, error) {
	return nil, nil
}
func (c *countingMachines) Ping(ctx context.Context) error { return nil }

func TestIdentifierCache_MachineHitIsMemoized(t *testing.T) {
	repo := &countingMachines{machines: map[string]int64{"CNC1": 7}}
	cache := NewIdentifierCache(repo)

	for i := 0; i < 3; i++ {
		id, err := cache.ResolveMachine(context.Background(), "CNC1")
		if err != nil {
			t.Fatalf("ResolveMachine #%d: %v", i, err)
		}
		if id != 7 {
			t.Fatalf("ResolveMachine #%d: expected 7, got %d", i, id)
		}
	}
	if repo.codeLookups != 1 {
		t.Fatalf("expected a single repository lookup, got %d", repo.codeLookups)
	}
}

func TestIdentifierCache_ColorHitIsMemoized(t *testing.T) {
	repo := &countingMachines{colors: map[string]int64{"green": 1}}
	cache := NewIdentifierCache(repo)

	for i := 0; i < 3; i++ {
		id, err := cache.ResolveColor(context.Background(), "green")
		if err != nil {
			t.Fatalf("ResolveColor #%d: %v", i, err)
		}
		if id != 1 {
			t.Fatalf("ResolveColor #%d: expected 1, got %d", i, id)
		}
	}
	if repo.colorLookups != 1 {
		t.Fatalf("expected a single repository lookup, got %d", repo.colorLookups)
	}
}

func TestIdentifierCache_MissIsNotCached(t *testing.T) {
	repo := &countingMachines{machines: map[string]int64{}}
	cache := NewIdentifierCache(repo)

	_, err := cache.ResolveMachine(context.Background(), "NEW-RIG")
	if !errors.Is(err, ErrMachineNotFound) {
		t.Fatalf("expected ErrMachineNotFound, got %v", err)
	}

	// The machine gets provisioned after the first miss.
	repo.machines["NEW-RIG"] = 9

	id, err := cache.ResolveMachine(context.Background(), "NEW-RIG")
	if err != nil {
		t.Fatalf("ResolveMachine after provisioning: %v", err)
	}
	if id != 9 {
		t.Fatalf("expected 9, got %d", id)
	}
	if repo.codeLookups != 2 {
		t.Fatalf("miss must re-hit the repository, got %d lookups", repo.codeLookups)
	}
}

func TestIdentifierCache_ColorMiss(t *testing.T) {
	cache := NewIdentifierCache(&countingMachines{colors: map[string]int64{}})

	_, err := cache.ResolveColor(context.Background(), "magenta")
	if !errors.Is(err, ErrColorNotFound) {
		t.Fatalf("expected ErrColorNotFound, got %v", err)
	}
}

func TestIdentifierCache_RepositoryErrorPropagates(t *testing.T) {
	repo := &countingMachines{err: errors.New("db locked")}
	cache := NewIdentifierCache(repo)

	if _, err := cache.ResolveMachine(context.Background(), "CNC1"); err == nil {
		t.Fatalf("expected repository error")
	}
	if _, err := cache.ResolveColor(context.Background(), "green"); err == nil {
		t.Fatalf("expected repository error")
	}
}
