// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/api"
	"github.com/blinovmaxim/TgBotStore/internal/archive"
	"github.com/blinovmaxim/TgBotStore/internal/autopost"
	"github.com/blinovmaxim/TgBotStore/internal/catalog"
	memorychannel "github.com/blinovmaxim/TgBotStore/internal/channel/memory"
	"github.com/blinovmaxim/TgBotStore/internal/channel/telegram"
	"github.com/blinovmaxim/TgBotStore/internal/clock/system"
	"github.com/blinovmaxim/TgBotStore/internal/config"
	"github.com/blinovmaxim/TgBotStore/internal/crm"
	"github.com/blinovmaxim/TgBotStore/internal/events"
	"github.com/blinovmaxim/TgBotStore/internal/feed"
	"github.com/blinovmaxim/TgBotStore/internal/hash/sha256"
	"github.com/blinovmaxim/TgBotStore/internal/ledger"
	"github.com/blinovmaxim/TgBotStore/internal/metrics"
	"github.com/blinovmaxim/TgBotStore/internal/reaper"
)

// App holds all the shared, long-lived services for the store pipeline. It
// is initialized once at startup and passed to the components that need it.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	cache       *catalog.Cache
	tracker     *ledger.Tracker
	ledgerStore ledger.Store
	channel     catalog.ChannelPublisher
	orderSink   catalog.OrderSink
	eventPub    catalog.EventPublisher
	gcsClient   *gcs.Client

	fetcher *feed.Fetcher
	poster  *autopost.Poster
	reaper  *reaper.Reaper
	server  *api.Server
}

// New creates and initializes an App based on the loaded configuration. It
// is the central point for service initialization and fails fast if any
// critical collaborator cannot be constructed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	metrics.Init()

	parser := feed.NewParser(cfg.Catalog.ExcludeTerm, logger.Named("parser"))
	a.cache = catalog.NewCache(func(_ context.Context) ([]catalog.Product, error) {
		products, _, err := parser.Parse(cfg.Feed.LocalPath)
		return products, err
	})

	store, err := a.newLedgerStore(ctx)
	if err != nil {
		return nil, err
	}
	a.ledgerStore = store
	a.tracker = ledger.NewTracker(ctx, store, logger.Named("ledger"))

	channel, err := a.newChannel()
	if err != nil {
		return nil, err
	}
	a.channel = channel

	blobStore, err := a.newArchive(ctx)
	if err != nil {
		return nil, err
	}
	eventPub, err := a.newEvents(ctx)
	if err != nil {
		return nil, err
	}
	a.eventPub = eventPub

	if cfg.CRM.Enabled {
		sink, err := crm.New(crm.Config{
			APIKey: cfg.CRM.APIKey,
			Domain: cfg.CRM.Domain,
		}, logger.Named("crm"))
		if err != nil {
			return nil, fmt.Errorf("initialize crm client: %w", err)
		}
		a.orderSink = sink
	}

	a.fetcher = feed.NewFetcher(feed.FetcherConfig{
		URL:       cfg.Feed.URL,
		LocalPath: cfg.Feed.LocalPath,
		Interval:  cfg.FeedPollInterval(),
		Timeout:   cfg.FeedTimeout(),
		UserAgent: cfg.Feed.UserAgent,
	}, sha256.New(), a.cache, blobStore, eventPub, system.New(), logger.Named("fetcher"))

	a.poster = autopost.New(autopost.Config{
		Interval: cfg.AutopostInterval(),
	}, a.cache, a.tracker, a.channel, logger.Named("autopost"))

	a.reaper = reaper.New(reaper.Config{
		Interval:      cfg.ReaperInterval(),
		MessageWindow: cfg.Reaper.MessageWindow,
	}, a.cache, a.channel, logger.Named("reaper"))

	a.server = api.NewServer(a.cache, a.tracker, a.orderSink, logger.Named("api"))

	return a, nil
}

func (a *App) newLedgerStore(ctx context.Context) (ledger.Store, error) {
	switch a.cfg.Ledger.Provider {
	case "file":
		a.logger.Info("using file ledger store", zap.String("path", a.cfg.Ledger.FilePath))
		store, err := ledger.NewFileStore(a.cfg.Ledger.FilePath)
		if err != nil {
			return nil, fmt.Errorf("initialize file ledger: %w", err)
		}
		return store, nil
	case "postgres":
		a.logger.Info("connecting to postgres ledger store")
		store, err := ledger.NewPostgresStore(ctx, ledger.PostgresStoreConfig{
			DSN:      a.cfg.Ledger.DB.DSN,
			Table:    a.cfg.Ledger.DB.Table,
			MaxConns: int32(a.cfg.Ledger.DB.MaxOpenConns),
		})
		if err != nil {
			return nil, fmt.Errorf("initialize postgres ledger: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown ledger provider: %s", a.cfg.Ledger.Provider)
	}
}

func (a *App) newChannel() (catalog.ChannelPublisher, error) {
	switch a.cfg.Channel.Provider {
	case "telegram":
		a.logger.Info("using telegram channel", zap.String("chat_id", a.cfg.Channel.Telegram.ChatID))
		pub, err := telegram.New(telegram.Config{
			Token:   a.cfg.Channel.Telegram.Token,
			ChatID:  a.cfg.Channel.Telegram.ChatID,
			Timeout: time.Duration(a.cfg.Channel.Telegram.TimeoutSeconds) * time.Second,
		}, a.logger.Named("telegram"))
		if err != nil {
			return nil, fmt.Errorf("initialize telegram channel: %w", err)
		}
		return pub, nil
	case "memory":
		a.logger.Info("using in-memory channel, posts will not leave the process")
		return memorychannel.New(), nil
	default:
		return nil, fmt.Errorf("unknown channel provider: %s", a.cfg.Channel.Provider)
	}
}

func (a *App) newArchive(ctx context.Context) (catalog.BlobStore, error) {
	switch a.cfg.Archive.Provider {
	case "none":
		return nil, nil
	case "memory":
		return archive.NewMemory(), nil
	case "local":
		a.logger.Info("archiving feed revisions locally", zap.String("dir", a.cfg.Archive.LocalDir))
		store, err := archive.NewLocal(a.cfg.Archive.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("initialize local archive: %w", err)
		}
		return store, nil
	case "gcs":
		a.logger.Info("archiving feed revisions to GCS", zap.String("bucket", a.cfg.Archive.GCSBucket))
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize storage client: %w", err)
		}
		a.gcsClient = client
		store, err := archive.NewGCS(client, a.cfg.Archive.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("initialize gcs archive: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", a.cfg.Archive.Provider)
	}
}

func (a *App) newEvents(ctx context.Context) (catalog.EventPublisher, error) {
	switch a.cfg.Events.Provider {
	case "none":
		return events.Noop{}, nil
	case "memory":
		return events.NewMemory(), nil
	case "pubsub":
		a.logger.Info("publishing feed events to Pub/Sub", zap.String("topic", a.cfg.Events.TopicName))
		pub, err := events.NewPubSub(ctx, a.cfg.Events.ProjectID, a.cfg.Events.TopicName)
		if err != nil {
			return nil, fmt.Errorf("initialize pubsub events: %w", err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown events provider: %s", a.cfg.Events.Provider)
	}
}

// Cache exposes the catalog cache.
func (a *App) Cache() *catalog.Cache { return a.cache }

// Tracker exposes the price ledger tracker.
func (a *App) Tracker() *ledger.Tracker { return a.tracker }

// Channel exposes the configured channel publisher.
func (a *App) Channel() catalog.ChannelPublisher { return a.channel }

// Fetcher exposes the feed fetcher loop.
func (a *App) Fetcher() *feed.Fetcher { return a.fetcher }

// Poster exposes the autopost loop.
func (a *App) Poster() *autopost.Poster { return a.poster }

// Reaper exposes the stale-post reaper loop.
func (a *App) Reaper() *reaper.Reaper { return a.reaper }

// Server exposes the operational HTTP server.
func (a *App) Server() *api.Server { return a.server }

// Close releases external connections held by the container.
func (a *App) Close() error {
	var firstErr error
	if a.eventPub != nil {
		if err := a.eventPub.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close event publisher: %w", err)
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close storage client: %w", err)
		}
	}
	if a.ledgerStore != nil {
		if err := a.ledgerStore.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close ledger store: %w", err)
		}
	}
	return firstErr
}
