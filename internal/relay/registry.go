package relay

import (
	"sync"

	"github.com/Shugur-Network/feedsync/internal/logger"
	nostr "github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"
)

// FilterRegistry remembers the filters of every open subscription.
// Filters are copied in and out so no caller can mutate stored state.
type FilterRegistry struct {
	mu   sync.RWMutex
	subs map[string][]nostr.Filter
}

// NewFilterRegistry creates an empty registry.
func NewFilterRegistry() *FilterRegistry {
	return &FilterRegistry{subs: make(map[string][]nostr.Filter)}
}

// Register records filters under subID. An id already in use is refused.
func (r *FilterRegistry) Register(subID string, filters []nostr.Filter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.subs[subID]; exists {
		logger.Warn("subscription id already registered", zap.String("sub_id", subID))
		return false
	}
	r.subs[subID] = cloneFilters(filters)
	return true
}

// Lookup returns a copy of the filters for subID, or nil.
func (r *FilterRegistry) Lookup(subID string) []nostr.Filter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filters, ok := r.subs[subID]
	if !ok {
		return nil
	}
	return cloneFilters(filters)
}

// Forget drops subID.
func (r *FilterRegistry) Forget(subID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, subID)
}

// Len reports how many subscriptions are registered.
func (r *FilterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
