package pricing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// ConfigStore persists pricing configuration per owner. Owners without a
// stored configuration get the store's defaults.
type ConfigStore interface {
	GetPricingConfig(ctx context.Context, owner string) (Config, error)
	UpdatePricingConfig(ctx context.Context, owner string, updates map[string]decimal.Decimal) (Config, error)
}

// MemoryStore is a process-local ConfigStore.
type MemoryStore struct {
	mu       sync.RWMutex
	defaults Config
	byOwner  map[string]Config
}

var _ ConfigStore = (*MemoryStore)(nil)

// NewMemoryStore returns a store seeded with defaults.
func NewMemoryStore(defaults Config) *MemoryStore {
	return &MemoryStore{defaults: defaults, byOwner: make(map[string]Config)}
}

func (s *MemoryStore) GetPricingConfig(ctx context.Context, owner string) (Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.byOwner[owner]; ok {
		return cfg, nil
	}
	return s.defaults, nil
}

func (s *MemoryStore) UpdatePricingConfig(ctx context.Context, owner string, updates map[string]decimal.Decimal) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byOwner[owner]
	if !ok {
		cur = s.defaults
	}
	next, err := cur.Apply(updates)
	if err != nil {
		return cur, err
	}
	s.byOwner[owner] = next
	return next, nil
}
