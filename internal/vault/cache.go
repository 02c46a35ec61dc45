package vault

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// thumbCache is a bounded in-memory map from item id to decrypted thumbnail,
// capped by entry count and by an approximate total-byte budget. It is purely
// an optimization: it is never the source of truth for a thumbnail's
// existence, and deletions must invalidate it synchronously.
type thumbCache struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, []byte]
	bytes    int64
	maxBytes int64
}

func newThumbCache(maxEntries int, maxBytes int64) (*thumbCache, error) {
	c := &thumbCache{maxBytes: maxBytes}
	// The evict callback runs while we hold mu (all mutations go through
	// locked methods), so it must only touch the byte counter.
	entries, err := lru.NewWithEvict[string, []byte](maxEntries, func(_ string, v []byte) {
		c.bytes -= int64(len(v))
	})
	if err != nil {
		return nil, err
	}
	c.entries = entries
	return c, nil
}

func (c *thumbCache) Get(id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Get(id)
}

// Add inserts a decrypted thumbnail, then evicts oldest entries until the
// byte budget holds again. Thumbnails larger than the whole budget are not
// cached at all.
func (c *thumbCache) Add(id string, thumb []byte) {
	if int64(len(thumb)) > c.maxBytes {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacing an existing entry bypasses the evict callback, so settle
	// its bytes by hand.
	if old, ok := c.entries.Peek(id); ok {
		c.bytes -= int64(len(old))
	}
	c.entries.Add(id, thumb)
	c.bytes += int64(len(thumb))
	for c.bytes > c.maxBytes {
		if _, _, ok := c.entries.RemoveOldest(); !ok {
			break
		}
	}
}

func (c *thumbCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(id)
}

func (c *thumbCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

func (c *thumbCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
