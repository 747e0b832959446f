package catalog

import (
	"context"
	"time"
)

// ChannelPublisher is the outbound messaging surface. The target chat is
// bound at construction; message identifiers are opaque to callers.
type ChannelPublisher interface {
	SendText(ctx context.Context, text string, action *Action) (int64, error)
	SendPhoto(ctx context.Context, photoURL, caption string, action *Action) (int64, error)
	SendPhotoGroup(ctx context.Context, photoURLs []string) ([]int64, error)
	Delete(ctx context.Context, messageID int64) error
	RecentMessages(ctx context.Context, limit int) ([]ChannelMessage, error)
}

// OrderSink submits a confirmed order to the CRM.
type OrderSink interface {
	Submit(ctx context.Context, order Order) error
}

// EventPublisher pushes feed-update events to a topic (or similar).
type EventPublisher interface {
	Publish(ctx context.Context, event FeedEvent) (string, error)
	Close() error
}

// BlobStore archives raw feed revisions and returns a URI.
type BlobStore interface {
	Put(ctx context.Context, key string, contentType string, data []byte) (string, error)
}

// Hasher computes digests for change detection and archive keys.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
