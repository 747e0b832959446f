// Package reaper deletes channel posts for products no longer in stock.
package reaper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
	"github.com/blinovmaxim/TgBotStore/internal/metrics"
)

// Config controls the reaping loop.
type Config struct {
	Interval      time.Duration
	MessageWindow int
}

// Reaper cross-references recent channel posts against the current in-stock
// set and deletes posts referencing unavailable items. The reconciliation is
// heuristic: it relies on the channel exposing a bounded recent-message
// window and on articles being embedded verbatim in post bodies.
type Reaper struct {
	cfg     Config
	cache   *catalog.Cache
	channel catalog.ChannelPublisher
	logger  *zap.Logger
}

// New constructs a Reaper.
func New(cfg Config, cache *catalog.Cache, channel catalog.ChannelPublisher, logger *zap.Logger) *Reaper {
	if cfg.Interval == 0 {
		cfg.Interval = 48 * time.Hour
	}
	if cfg.MessageWindow == 0 {
		cfg.MessageWindow = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reaper{cfg: cfg, cache: cache, channel: channel, logger: logger}
}

// Run sweeps until the context finishes. Sweep errors are logged and
// retried on the next tick.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error("reap sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep scans the recent message window once and deletes stale posts.
// Individual delete failures are logged and do not abort the scan.
func (r *Reaper) Sweep(ctx context.Context) error {
	products, err := r.cache.Get(ctx)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	known := make([]string, 0, len(products))
	inStock := make(map[string]struct{})
	seen := make(map[string]struct{})
	for _, p := range products {
		if p.Article == "" {
			continue
		}
		// First occurrence wins, matching catalog lookup semantics for
		// duplicate articles.
		if _, dup := seen[p.Article]; dup {
			continue
		}
		seen[p.Article] = struct{}{}
		known = append(known, p.Article)
		if p.InStock() {
			inStock[p.Article] = struct{}{}
		}
	}

	messages, err := r.channel.RecentMessages(ctx, r.cfg.MessageWindow)
	if err != nil {
		return fmt.Errorf("fetch recent messages: %w", err)
	}

	deleted := 0
	for _, msg := range messages {
		article, ok := matchArticle(msg.Text, known)
		if !ok {
			continue
		}
		if _, available := inStock[article]; available {
			continue
		}
		if err := r.channel.Delete(ctx, msg.ID); err != nil {
			r.logger.Error("stale post delete failed",
				zap.Int64("message_id", msg.ID),
				zap.String("article", article),
				zap.Error(err))
			continue
		}
		metrics.ObservePostDeleted()
		deleted++
		r.logger.Info("stale post deleted",
			zap.Int64("message_id", msg.ID),
			zap.String("article", article))
	}
	if deleted > 0 {
		r.logger.Info("reap sweep finished", zap.Int("deleted", deleted))
	}
	return nil
}
