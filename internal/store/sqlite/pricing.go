package sqlite

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"artifactlive.org/internal/pricing"
)

var _ pricing.ConfigStore = (*PricingStore)(nil)

// PricingStore keeps per-owner pricing overrides next to the ledger.
type PricingStore struct {
	store    *Store
	defaults pricing.Config
}

// Pricing returns a pricing.ConfigStore on s's database.
func (s *Store) Pricing(defaults pricing.Config) *PricingStore {
	return &PricingStore{store: s, defaults: defaults}
}

func (p *PricingStore) GetPricingConfig(ctx context.Context, owner string) (pricing.Config, error) {
	rows, err := p.store.db.QueryContext(ctx, `
		select config_key, config_value from pricing_config where owner=?
	`, owner)
	if err != nil {
		return pricing.Config{}, err
	}
	defer rows.Close()
	overrides := make(map[string]decimal.Decimal)
	known := p.defaults.Map()
	for rows.Next() {
		var key string
		var val decimal.Decimal
		if err := rows.Scan(&key, &val); err != nil {
			return pricing.Config{}, err
		}
		if _, ok := known[key]; ok {
			overrides[key] = val
		}
	}
	if err := rows.Err(); err != nil {
		return pricing.Config{}, err
	}
	cfg, err := p.defaults.Apply(overrides)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("stored pricing config for %s: %w", owner, err)
	}
	return cfg, nil
}

func (p *PricingStore) UpdatePricingConfig(ctx context.Context, owner string, updates map[string]decimal.Decimal) (pricing.Config, error) {
	cur, err := p.GetPricingConfig(ctx, owner)
	if err != nil {
		return pricing.Config{}, err
	}
	next, err := cur.Apply(updates)
	if err != nil {
		return cur, err
	}

	tx, err := p.store.db.BeginTx(ctx, nil)
	if err != nil {
		return cur, err
	}
	defer func() { _ = tx.Rollback() }()
	now := formatTime(p.store.now())
	for _, key := range pricing.Keys() {
		val, ok := updates[key]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			insert into pricing_config(owner, config_key, config_value, updated_at)
			values (?,?,?,?)
			on conflict (owner, config_key) do update
			set config_value = excluded.config_value, updated_at = excluded.updated_at
		`, owner, key, val.String(), now); err != nil {
			return cur, err
		}
	}
	if err := tx.Commit(); err != nil {
		return cur, err
	}
	return next, nil
}
