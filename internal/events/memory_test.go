package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
)

func TestMemoryRecordsEvents(t *testing.T) {
	t.Parallel()

	pub := NewMemory()
	event := catalog.FeedEvent{
		Hash:      "abc123",
		Bytes:     42,
		FetchedAt: time.Unix(1700000000, 0),
	}

	id, err := pub.Publish(context.Background(), event)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	recorded := pub.Events()
	require.Len(t, recorded, 1)
	require.Equal(t, event, recorded[0])

	require.NoError(t, pub.Close())
}

func TestNoopDiscardsEvents(t *testing.T) {
	t.Parallel()

	var pub Noop
	id, err := pub.Publish(context.Background(), catalog.FeedEvent{Hash: "x"})
	require.NoError(t, err)
	require.Empty(t, id)
	require.NoError(t, pub.Close())
}
