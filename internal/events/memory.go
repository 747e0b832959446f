package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
)

// Memory records published events for inspection in tests.
type Memory struct {
	mu     sync.RWMutex
	events []catalog.FeedEvent
}

// NewMemory returns a memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish records the event and returns a pseudo ID.
func (m *Memory) Publish(_ context.Context, event catalog.FeedEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return fmt.Sprintf("memory-%d", len(m.events)), nil
}

// Events returns the recorded events.
func (m *Memory) Events() []catalog.FeedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.FeedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Noop discards events.
type Noop struct{}

// Publish discards the event.
func (Noop) Publish(context.Context, catalog.FeedEvent) (string, error) { return "", nil }

// Close is a no-op.
func (Noop) Close() error { return nil }
