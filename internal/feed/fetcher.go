package feed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
	"github.com/blinovmaxim/TgBotStore/internal/metrics"
)

// FetcherConfig controls feed download behavior.
type FetcherConfig struct {
	URL       string
	LocalPath string
	Interval  time.Duration
	Timeout   time.Duration
	UserAgent string
}

// Fetcher downloads the supplier feed on a fixed interval and detects
// byte-level change. The upstream provides no reliable caching headers, so
// change detection hashes the payload and compares it against the local
// copy. The fetcher owns the on-disk feed file.
type Fetcher struct {
	cfg           FetcherConfig
	baseCollector *colly.Collector
	hasher        catalog.Hasher
	cache         *catalog.Cache
	archive       catalog.BlobStore
	events        catalog.EventPublisher
	clock         catalog.Clock
	logger        *zap.Logger
}

// NewFetcher builds a Fetcher. archive and events are optional; pass nil to
// skip feed archiving or event publication.
func NewFetcher(
	cfg FetcherConfig,
	hasher catalog.Hasher,
	cache *catalog.Cache,
	archive catalog.BlobStore,
	events catalog.EventPublisher,
	clock catalog.Clock,
	logger *zap.Logger,
) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:           cfg,
		baseCollector: colly.NewCollector(colly.Async(false)),
		hasher:        hasher,
		cache:         cache,
		archive:       archive,
		events:        events,
		clock:         clock,
		logger:        logger,
	}
}

// Check downloads the feed once and reports whether the local copy changed.
// On a confirmed change the new bytes are written atomically, the catalog
// cache is invalidated and an update event is published. Download failures
// leave the local file untouched.
func (f *Fetcher) Check(ctx context.Context) (bool, error) {
	body, err := f.download(ctx)
	if err != nil {
		metrics.ObserveDownload(metrics.DownloadError)
		return false, err
	}

	newHash, err := f.hasher.Hash(body)
	if err != nil {
		metrics.ObserveDownload(metrics.DownloadError)
		return false, fmt.Errorf("hash feed payload: %w", err)
	}

	if existing, err := os.ReadFile(f.cfg.LocalPath); err == nil {
		if bytes.Equal(existing, body) {
			metrics.ObserveDownload(metrics.DownloadUnchanged)
			return false, nil
		}
	} else if !os.IsNotExist(err) {
		metrics.ObserveDownload(metrics.DownloadError)
		return false, fmt.Errorf("read local feed file: %w", err)
	}

	if err := writeAtomic(f.cfg.LocalPath, body); err != nil {
		metrics.ObserveDownload(metrics.DownloadError)
		return false, fmt.Errorf("write feed file: %w", err)
	}
	f.cache.Invalidate()
	metrics.ObserveDownload(metrics.DownloadUpdated)
	f.logger.Info("feed updated",
		zap.String("path", f.cfg.LocalPath),
		zap.String("hash", newHash),
		zap.Int("bytes", len(body)),
	)

	event := catalog.FeedEvent{
		Hash:      newHash,
		Bytes:     len(body),
		FetchedAt: f.clock.Now(),
	}
	if f.archive != nil {
		uri, err := f.archive.Put(ctx, newHash+".csv", "text/csv; charset=utf-8", body)
		if err != nil {
			f.logger.Warn("feed archive failed", zap.Error(err))
		} else {
			event.ArchiveURI = uri
		}
	}
	if f.events != nil {
		if _, err := f.events.Publish(ctx, event); err != nil {
			f.logger.Warn("feed event publish failed", zap.Error(err))
		}
	}
	return true, nil
}

// EnsureLocal guarantees a usable local feed file at startup. A download
// failure is fatal only when no previously cached copy exists.
func (f *Fetcher) EnsureLocal(ctx context.Context) error {
	if _, err := f.Check(ctx); err != nil {
		if _, statErr := os.Stat(f.cfg.LocalPath); statErr != nil {
			return fmt.Errorf("feed unavailable and no cached copy: %w", err)
		}
		f.logger.Warn("initial feed download failed, using cached copy", zap.Error(err))
	}
	return nil
}

// Run polls the feed until the context finishes. Errors are logged and
// retried on the next tick, never fatal.
func (f *Fetcher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updated, err := f.Check(ctx)
			switch {
			case err != nil:
				f.logger.Error("feed check failed", zap.Error(err))
			case updated:
				f.logger.Info("feed check: new revision confirmed")
			default:
				f.logger.Debug("feed check: no change")
			}
		}
	}
}

// download executes a single GET of the feed URL through colly. The supplier
// rejects bare clients, so the request carries browser-like headers.
func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	// The same URL is fetched every cycle; without this the shared visit
	// store rejects every poll after the first.
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/csv,application/csv,text/plain")
		r.Headers.Set("Accept-Language", "uk-UA,uk;q=0.9,en-US;q=0.8,en;q=0.7")
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(f.cfg.URL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("feed download canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("feed download failed (status %d): %w", status, err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("feed download failed (status %d): %w", status, fetchErr)
		}
	}
	if status != 200 {
		return nil, fmt.Errorf("feed download: unexpected status %d", status)
	}
	return body, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create feed directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".feed-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
