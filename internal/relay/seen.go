package relay

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// SeenCache holds the ids of admitted events. It is bounded; once full the
// least recently admitted ids are evicted.
type SeenCache struct {
	ids *lru.Cache[string, struct{}]
}

// NewSeenCache creates a cache holding at most size ids.
func NewSeenCache(size int) (*SeenCache, error) {
	ids, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &SeenCache{ids: ids}, nil
}

// Contains reports whether id was admitted before. It does not touch recency.
func (c *SeenCache) Contains(id string) bool {
	return c.ids.Contains(id)
}

// Add records id and reports whether it was new. Two concurrent Adds of the
// same id return true exactly once.
func (c *SeenCache) Add(id string) bool {
	found, _ := c.ids.ContainsOrAdd(id, struct{}{})
	return !found
}

// Len reports the number of cached ids.
func (c *SeenCache) Len() int {
	return c.ids.Len()
}
