// Package memory contains an in-memory channel publisher for development
// and tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/blinovmaxim/TgBotStore/internal/catalog"
)

// ErrPhotoDelivery is returned when photo failure injection is enabled.
var ErrPhotoDelivery = errors.New("memory channel: photo delivery failed")

// Post captures one published message.
type Post struct {
	ID     int64
	Text   string
	Photo  string
	Action *catalog.Action
}

// Publisher stores posts for inspection and serves them back as the recent
// message window.
type Publisher struct {
	mu         sync.RWMutex
	nextID     int64
	posts      []Post
	failPhotos bool
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{nextID: 1}
}

// FailPhotos toggles failure injection for photo sends.
func (p *Publisher) FailPhotos(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failPhotos = fail
}

// SendText records a text post.
func (p *Publisher) SendText(_ context.Context, text string, action *catalog.Action) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.appendLocked(Post{Text: text, Action: action}), nil
}

// SendPhoto records a photo post.
func (p *Publisher) SendPhoto(_ context.Context, photoURL, caption string, action *catalog.Action) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failPhotos {
		return 0, ErrPhotoDelivery
	}
	return p.appendLocked(Post{Text: caption, Photo: photoURL, Action: action}), nil
}

// SendPhotoGroup records one post per photo.
func (p *Publisher) SendPhotoGroup(_ context.Context, photoURLs []string) ([]int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failPhotos {
		return nil, ErrPhotoDelivery
	}
	ids := make([]int64, 0, len(photoURLs))
	for _, u := range photoURLs {
		ids = append(ids, p.appendLocked(Post{Photo: u}))
	}
	return ids, nil
}

// Delete removes the post with the given id.
func (p *Publisher) Delete(_ context.Context, messageID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, post := range p.posts {
		if post.ID == messageID {
			p.posts = append(p.posts[:i], p.posts[i+1:]...)
			return nil
		}
	}
	return errors.New("memory channel: message not found")
}

// RecentMessages returns up to limit of the latest posts, newest last.
func (p *Publisher) RecentMessages(_ context.Context, limit int) ([]catalog.ChannelMessage, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	start := 0
	if limit > 0 && len(p.posts) > limit {
		start = len(p.posts) - limit
	}
	out := make([]catalog.ChannelMessage, 0, len(p.posts)-start)
	for _, post := range p.posts[start:] {
		out = append(out, catalog.ChannelMessage{ID: post.ID, Text: post.Text})
	}
	return out, nil
}

// Posts returns the recorded posts.
func (p *Publisher) Posts() []Post {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Post, len(p.posts))
	copy(out, p.posts)
	return out
}

func (p *Publisher) appendLocked(post Post) int64 {
	post.ID = p.nextID
	p.nextID++
	p.posts = append(p.posts, post)
	return post.ID
}
