// Package autopost implements the timed loop that announces products to the
// channel.
package autopost

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
	"github.com/blinovmaxim/TgBotStore/internal/ledger"
	"github.com/blinovmaxim/TgBotStore/internal/metrics"
)

// discountThreshold is the minimum price drop that earns the discount
// message variant.
var discountThreshold = decimal.NewFromInt(100)

// orderButtonLabel is the label of the action attached to every post.
const orderButtonLabel = "🛍 Замовити"

// Config controls the posting loop.
type Config struct {
	Interval time.Duration
}

// Poster picks one in-stock product per cycle, uniformly at random, and
// publishes it to the channel with price-drop highlighting.
type Poster struct {
	cfg     Config
	cache   *catalog.Cache
	tracker *ledger.Tracker
	channel catalog.ChannelPublisher
	pick    func(n int) int
	logger  *zap.Logger
}

// New constructs a Poster.
func New(
	cfg Config,
	cache *catalog.Cache,
	tracker *ledger.Tracker,
	channel catalog.ChannelPublisher,
	logger *zap.Logger,
) *Poster {
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poster{
		cfg:     cfg,
		cache:   cache,
		tracker: tracker,
		channel: channel,
		pick:    rand.IntN,
		logger:  logger,
	}
}

// Run posts until the context finishes. A failed cycle is logged and the
// loop sleeps through to the next one; a single bad product or transient
// send failure never terminates the loop.
func (p *Poster) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		if err := p.cycle(ctx); err != nil {
			p.logger.Error("posting cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poster) cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("posting cycle panicked: %v", r)
		}
	}()

	available, err := p.cache.InStock(ctx)
	if err != nil {
		return err
	}
	if len(available) == 0 {
		p.logger.Info("no products in stock, skipping cycle")
		return nil
	}
	product := available[p.pick(len(available))]
	return p.publish(ctx, product)
}

func (p *Poster) publish(ctx context.Context, product catalog.Product) error {
	discount, dropped := p.tracker.RecordAndDiff(ctx, product.Article, product.DisplayPrice)
	if !dropped || discount.LessThan(discountThreshold) {
		discount = decimal.Zero
	}

	text := composeText(product, discount)
	action := &catalog.Action{Label: orderButtonLabel, Token: product.Article}
	variant := metrics.PostRegular
	if discount.IsPositive() {
		variant = metrics.PostDiscount
	}

	images := validImages(product, maxImages)
	if len(images) == 0 {
		if _, err := p.channel.SendText(ctx, text, action); err != nil {
			return fmt.Errorf("send text post: %w", err)
		}
		metrics.ObservePost(variant)
		p.logger.Info("product posted", zap.String("article", product.Article), zap.String("name", product.Name))
		return nil
	}

	if _, err := p.channel.SendPhoto(ctx, images[0], text, action); err != nil {
		// Degrade to a text-only post carrying the same order button.
		p.logger.Warn("photo delivery failed, falling back to text",
			zap.String("article", product.Article), zap.Error(err))
		if _, err := p.channel.SendText(ctx, text, action); err != nil {
			return fmt.Errorf("send fallback text post: %w", err)
		}
		metrics.ObservePost(metrics.PostTextFallback)
		return nil
	}
	if len(images) > 1 {
		if _, err := p.channel.SendPhotoGroup(ctx, images[1:]); err != nil {
			p.logger.Warn("photo group delivery failed",
				zap.String("article", product.Article), zap.Error(err))
		}
	}
	metrics.ObservePost(variant)
	p.logger.Info("product posted", zap.String("article", product.Article), zap.String("name", product.Name))
	return nil
}
