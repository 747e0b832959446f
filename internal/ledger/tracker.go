// Package ledger tracks the last observed display price per article and
// computes price-drop deltas against it.
package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
	"github.com/blinovmaxim/TgBotStore/internal/metrics"
)

// Store persists the article → last known price mapping as a whole.
type Store interface {
	Load(ctx context.Context) (map[string]decimal.Decimal, error)
	Save(ctx context.Context, prices map[string]decimal.Decimal) error
	Close() error
}

// Stats aggregates price movement across the current catalog.
type Stats struct {
	Increased       int             `json:"increased"`
	Decreased       int             `json:"decreased"`
	TotalDiscount   decimal.Decimal `json:"total_discount"`
	AverageDiscount decimal.Decimal `json:"average_discount"`
}

// Tracker owns the in-memory price ledger and is its only mutator. Every
// mutation is persisted through the store; a persistence failure is logged
// and the in-memory state kept, so the next successful write catches up.
type Tracker struct {
	mu     sync.Mutex
	store  Store
	prices map[string]decimal.Decimal
	logger *zap.Logger
}

// NewTracker loads the persisted ledger. A load failure starts an empty
// ledger rather than failing the process.
func NewTracker(ctx context.Context, store Store, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	prices, err := store.Load(ctx)
	if err != nil {
		logger.Error("ledger load failed, starting empty", zap.Error(err))
		prices = make(map[string]decimal.Decimal)
	}
	if prices == nil {
		prices = make(map[string]decimal.Decimal)
	}
	return &Tracker{store: store, prices: prices, logger: logger}
}

// RecordAndDiff compares the current price against the stored baseline and
// returns the discount amount when the price dropped. The baseline is always
// updated to the current price after the diff is computed, so repeated drops
// compare against the last-seen price, not the original one. Repeated
// identical observations are idempotent.
func (t *Tracker) RecordAndDiff(ctx context.Context, article string, current decimal.Decimal) (decimal.Decimal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prior, seen := t.prices[article]
	dropped := seen && current.LessThan(prior)

	if !seen || !current.Equal(prior) {
		t.prices[article] = current
		t.persistLocked(ctx)
	}
	if !dropped {
		return decimal.Zero, false
	}
	metrics.ObserveDiscount()
	return prior.Sub(current), true
}

// Statistics compares every catalog product's display price against its
// ledger entry. The average discount is zero when no decreases were seen.
func (t *Tracker) Statistics(products []catalog.Product) Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{TotalDiscount: decimal.Zero, AverageDiscount: decimal.Zero}
	for _, p := range products {
		prior, ok := t.prices[p.Article]
		if !ok {
			continue
		}
		switch {
		case p.DisplayPrice.GreaterThan(prior):
			stats.Increased++
		case p.DisplayPrice.LessThan(prior):
			stats.Decreased++
			stats.TotalDiscount = stats.TotalDiscount.Add(prior.Sub(p.DisplayPrice))
		}
	}
	if stats.Decreased > 0 {
		stats.AverageDiscount = stats.TotalDiscount.Div(decimal.NewFromInt(int64(stats.Decreased)))
	}
	return stats
}

// Close releases the underlying store.
func (t *Tracker) Close() error {
	return t.store.Close()
}

func (t *Tracker) persistLocked(ctx context.Context) {
	snapshot := make(map[string]decimal.Decimal, len(t.prices))
	for k, v := range t.prices {
		snapshot[k] = v
	}
	if err := t.store.Save(ctx, snapshot); err != nil {
		t.logger.Error("ledger save failed", zap.Error(err))
	}
}
