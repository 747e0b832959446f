package autopost

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
	memorychannel "github.com/blinovmaxim/TgBotStore/internal/channel/memory"
	"github.com/blinovmaxim/TgBotStore/internal/ledger"
)

func newTestTracker(t *testing.T) *ledger.Tracker {
	t.Helper()
	store, err := ledger.NewFileStore(filepath.Join(t.TempDir(), "prices.json"))
	require.NoError(t, err)
	return ledger.NewTracker(context.Background(), store, zap.NewNop())
}

func newTestPoster(t *testing.T, products []catalog.Product) (*Poster, *memorychannel.Publisher, *ledger.Tracker) {
	t.Helper()
	cache := catalog.NewCache(func(context.Context) ([]catalog.Product, error) {
		return products, nil
	})
	channel := memorychannel.New()
	tracker := newTestTracker(t)
	poster := New(Config{Interval: time.Minute}, cache, tracker, channel, zap.NewNop())
	return poster, channel, tracker
}

func TestCycleSkipsWhenNothingInStock(t *testing.T) {
	t.Parallel()

	poster, channel, _ := newTestPoster(t, []catalog.Product{
		{Name: "Чехол", Article: "CH-1", Stock: catalog.StockOut, DisplayPrice: decimal.NewFromInt(100)},
	})

	require.NoError(t, poster.cycle(context.Background()))
	require.Empty(t, channel.Posts())
}

func TestCycleOnlySelectsInStock(t *testing.T) {
	t.Parallel()

	products := []catalog.Product{
		{Name: "Чехол", Article: "CH-1", Stock: catalog.StockIn, DisplayPrice: decimal.NewFromInt(100)},
		{Name: "Кабель", Article: "KB-1", Stock: catalog.StockOut, DisplayPrice: decimal.NewFromInt(200)},
		{Name: "Зарядка", Article: "ZR-1", Stock: catalog.StockIn, DisplayPrice: decimal.NewFromInt(300)},
	}
	poster, channel, _ := newTestPoster(t, products)

	for i := 0; i < 50; i++ {
		require.NoError(t, poster.cycle(context.Background()))
	}

	posts := channel.Posts()
	require.Len(t, posts, 50)
	for _, post := range posts {
		require.NotContains(t, post.Text, "Кабель")
	}
}

func TestPublishRegularPost(t *testing.T) {
	t.Parallel()

	poster, channel, _ := newTestPoster(t, nil)
	product := catalog.Product{
		Name:         "Чехол",
		Article:      "CH-1",
		Stock:        catalog.StockIn,
		DisplayPrice: decimal.NewFromInt(500),
	}

	require.NoError(t, poster.publish(context.Background(), product))

	posts := channel.Posts()
	require.Len(t, posts, 1)
	require.Contains(t, posts[0].Text, "💰 Ціна: 500 грн")
	require.NotNil(t, posts[0].Action)
	require.Equal(t, "🛍 Замовити", posts[0].Action.Label)
	require.Equal(t, "CH-1", posts[0].Action.Token)
}

func TestPublishDiscountVariant(t *testing.T) {
	t.Parallel()

	poster, channel, tracker := newTestPoster(t, nil)
	tracker.RecordAndDiff(context.Background(), "CH-1", decimal.NewFromInt(500))

	product := catalog.Product{
		Name:         "Чехол",
		Article:      "CH-1",
		Stock:        catalog.StockIn,
		DisplayPrice: decimal.NewFromInt(380),
	}
	require.NoError(t, poster.publish(context.Background(), product))

	posts := channel.Posts()
	require.Len(t, posts, 1)
	require.Contains(t, posts[0].Text, "🔥 ЗНИЖКА! Стара ціна: 500 грн")
	require.Contains(t, posts[0].Text, "📉 Економія: 120 грн!")
}

func TestPublishSmallDropBelowThreshold(t *testing.T) {
	t.Parallel()

	poster, channel, tracker := newTestPoster(t, nil)
	tracker.RecordAndDiff(context.Background(), "CH-1", decimal.NewFromInt(450))

	product := catalog.Product{
		Name:         "Чехол",
		Article:      "CH-1",
		Stock:        catalog.StockIn,
		DisplayPrice: decimal.NewFromInt(380),
	}
	require.NoError(t, poster.publish(context.Background(), product))

	posts := channel.Posts()
	require.Len(t, posts, 1)
	require.NotContains(t, posts[0].Text, "ЗНИЖКА")
	require.Contains(t, posts[0].Text, "💰 Ціна: 380 грн")
}

func TestPublishPhotoWithAlbum(t *testing.T) {
	t.Parallel()

	poster, channel, _ := newTestPoster(t, nil)
	product := catalog.Product{
		Name:         "Чехол",
		Article:      "CH-1",
		Stock:        catalog.StockIn,
		DisplayPrice: decimal.NewFromInt(500),
		Images: []string{
			"https://cdn.example/a.jpg",
			"https://cdn.example/b.jpg",
			"https://cdn.example/c.jpg",
		},
	}
	require.NoError(t, poster.publish(context.Background(), product))

	posts := channel.Posts()
	require.Len(t, posts, 3)
	require.Equal(t, "https://cdn.example/a.jpg", posts[0].Photo)
	require.NotEmpty(t, posts[0].Text)
	require.Equal(t, "https://cdn.example/b.jpg", posts[1].Photo)
	require.Equal(t, "https://cdn.example/c.jpg", posts[2].Photo)
}

func TestPublishFallsBackToTextOnPhotoFailure(t *testing.T) {
	t.Parallel()

	poster, channel, _ := newTestPoster(t, nil)
	channel.FailPhotos(true)

	product := catalog.Product{
		Name:         "Чехол",
		Article:      "CH-1",
		Stock:        catalog.StockIn,
		DisplayPrice: decimal.NewFromInt(500),
		Images:       []string{"https://cdn.example/a.jpg"},
	}
	require.NoError(t, poster.publish(context.Background(), product))

	posts := channel.Posts()
	require.Len(t, posts, 1)
	require.Empty(t, posts[0].Photo)
	require.Contains(t, posts[0].Text, "Чехол")
	require.NotNil(t, posts[0].Action)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	poster, _, _ := newTestPoster(t, []catalog.Product{
		{Name: "Чехол", Article: "CH-1", Stock: catalog.StockIn, DisplayPrice: decimal.NewFromInt(100)},
	})
	poster.cfg.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poster.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
