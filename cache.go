package ghpress

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// PostCache holds the published post list and tag set in memory with a TTL,
// since every uncached listing costs one remote read per content file. It
// is invalidated explicitly on local writes and on verified push webhooks
// that touch content paths, and expires on its own otherwise.
type PostCache struct {
	mu      sync.RWMutex
	posts   []Post
	tags    []string
	fetched time.Time
	ttl     time.Duration
	store   *Store
	log     *slog.Logger
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration, log *slog.Logger) *PostCache {
	if log == nil {
		log = slog.Default()
	}
	return &PostCache{store: s, ttl: ttl, log: log}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.mu.Unlock()
}

// ApplyChanges invalidates the cache when a change set touches any content
// path. The change set comes from the webhook verifier.
func (c *PostCache) ApplyChanges(changedPaths []string) {
	if len(changedPaths) == 0 {
		return
	}
	c.log.Info("invalidating post cache", "changed", len(changedPaths))
	c.Invalidate()
}

func (c *PostCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, _, err := c.store.List(ctx, ListOptions{})
	if err != nil {
		return err
	}
	c.posts = posts
	c.tags = collectTags(posts)
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached posts and tags after ensuring the cache is
// fresh. It tries a read lock first; only takes a write lock for a reload.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]Post, []string, error) {
	c.mu.RLock()
	if c.valid() {
		posts, tags := c.posts, c.tags
		c.mu.RUnlock()
		return posts, tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.posts, c.tags, nil
}

// ListPosts returns published posts, optionally filtered by tag, newest
// first.
func (c *PostCache) ListPosts(ctx context.Context, tag string) ([]Post, error) {
	posts, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return posts, nil
	}
	var filtered []Post
	for _, p := range posts {
		if hasTag(p.Tags, tag) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// ListTags returns all unique tags from published posts.
func (c *PostCache) ListTags(ctx context.Context) ([]string, error) {
	_, tags, err := c.ensureLoaded(ctx)
	return tags, err
}

func collectTags(posts []Post) []string {
	set := make(map[string]struct{})
	for _, p := range posts {
		for _, t := range p.Tags {
			set[normalizeTag(t)] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
