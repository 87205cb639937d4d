package storage

import (
	"sync"

	"github.com/Shugur-Network/feedsync/internal/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MetadataCache holds recent profile metadata in memory so feeds can name
// authors before the profile write lands.
type MetadataCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, models.Profile]
}

// NewMetadataCache creates a cache holding up to size profiles.
func NewMetadataCache(size int) *MetadataCache {
	if size < 1 {
		size = 1
	}
	cache, _ := lru.New[string, models.Profile](size)
	return &MetadataCache{cache: cache}
}

// Put stores p unless a newer profile for the same author is cached.
func (c *MetadataCache) Put(p models.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.cache.Peek(p.Pubkey); ok && !models.Newer(p, cur) {
		return
	}
	c.cache.Add(p.Pubkey, p)
}

// Get returns the cached metadata of pubkey.
func (c *MetadataCache) Get(pubkey string) (models.Metadata, bool) {
	p, ok := c.cache.Get(pubkey)
	return p.Metadata, ok
}

// Names maps each cached author in pubkeys to a non-empty display name.
func (c *MetadataCache) Names(pubkeys []string) map[string]string {
	out := make(map[string]string, len(pubkeys))
	for _, pk := range pubkeys {
		if p, ok := c.cache.Get(pk); ok {
			if name := p.Metadata.BestName(); name != "" {
				out[pk] = name
			}
		}
	}
	return out
}

// Len reports how many profiles are cached.
func (c *MetadataCache) Len() int {
	return c.cache.Len()
}
