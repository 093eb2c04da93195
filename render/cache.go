// ABOUTME: In-memory render cache that wraps a document rendering function with sha256-keyed caching.
// ABOUTME: Supports TTL-based expiry, concurrent access, and manual cache clearing.
package render

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// RenderFunc is the signature of a document rendering function the cache wraps.
type RenderFunc func(path, content string) string

// cacheEntry holds a single cached render result with its creation timestamp.
type cacheEntry struct {
	page      string
	createdAt time.Time
}

// Cache wraps a document rendering function with an in-memory cache. Keys
// are the sha256 hash of path and content, so an edited file re-renders and
// an unchanged one does not. Entries expire after the configured TTL.
type Cache struct {
	renderFn RenderFunc
	ttl      time.Duration
	entries  map[string]*cacheEntry
	mu       sync.RWMutex
}

// NewCache creates a Cache wrapping the given rendering function. Cached
// entries expire after the specified TTL duration.
func NewCache(renderFn RenderFunc, ttl time.Duration) *Cache {
	return &Cache{
		renderFn: renderFn,
		ttl:      ttl,
		entries:  make(map[string]*cacheEntry),
	}
}

// Render returns the rendered page for a file, from cache when available
// and not expired.
func (c *Cache) Render(path, content string) string {
	key := cacheKey(path, content)

	c.mu.RLock()
	if entry, ok := c.entries[key]; ok {
		if time.Since(entry.createdAt) < c.ttl {
			page := entry.page
			c.mu.RUnlock()
			return page
		}
	}
	c.mu.RUnlock()

	page := c.renderFn(path, content)

	c.mu.Lock()
	c.entries[key] = &cacheEntry{page: page, createdAt: time.Now()}
	c.mu.Unlock()
	return page
}

// Clear removes all cached entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cacheKey derives the cache key from the path and content.
func cacheKey(path, content string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return fmt.Sprintf("%x", h.Sum(nil))
}
