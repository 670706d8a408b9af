package vfs

import (
	"strings"
	"time"
)

type cacheEntry struct {
	content string
	at      time.Time
}

// readCache holds recent file contents keyed by canonical path.
// It is guarded by the owning FS mutex.
type readCache struct {
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newReadCache(ttl time.Duration) *readCache {
	return &readCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *readCache) get(path string, now time.Time) (string, bool) {
	e, ok := c.entries[path]
	if !ok {
		return "", false
	}
	if now.Sub(e.at) >= c.ttl {
		delete(c.entries, path)
		return "", false
	}
	return e.content, true
}

func (c *readCache) put(path, content string, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.entries[path] = cacheEntry{content: content, at: now}
}

// evict drops path and anything cached beneath it.
func (c *readCache) evict(path string) {
	delete(c.entries, path)
	prefix := path + "/"
	for p := range c.entries {
		if strings.HasPrefix(p, prefix) {
			delete(c.entries, p)
		}
	}
}

func (c *readCache) clear() {
	c.entries = make(map[string]cacheEntry)
}
