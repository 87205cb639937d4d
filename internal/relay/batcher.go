package relay

import (
	"slices"
	"sync"
	"time"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/domain"
	"github.com/Shugur-Network/feedsync/internal/logger"
	nostr "github.com/nbd-wtf/go-nostr"
	"github.com/willf/bloom"
	"go.uber.org/zap"
)

// BatcherConfig tunes a SubBatcher.
type BatcherConfig struct {
	Delay           time.Duration
	MaxIDsPerFilter int
	Cooldown        time.Duration
}

type pendingRequest struct {
	ids     []string
	idSet   map[string]struct{}
	pubkeys []string
	pkSet   map[string]struct{}
}

func (r *pendingRequest) addID(id string) {
	if _, dup := r.idSet[id]; dup {
		return
	}
	r.idSet[id] = struct{}{}
	r.ids = append(r.ids, id)
}

func (r *pendingRequest) addPubkey(pk string) {
	if _, dup := r.pkSet[pk]; dup {
		return
	}
	r.pkSet[pk] = struct{}{}
	r.pubkeys = append(r.pubkeys, pk)
}

// SubBatcher coalesces vote and reply backfill requests per relay and opens
// them as a few chunked subscriptions. Ids requested within the cooldown
// are skipped. Delivery is best effort.
type SubBatcher struct {
	opener Opener
	cfg    BatcherConfig
	now    func() time.Time

	mu          sync.Mutex
	pending     map[string]*pendingRequest
	timer       *time.Timer
	recent      *bloom.BloomFilter
	recentSince time.Time
	stopped     bool
}

// NewSubBatcher creates a batcher that opens subscriptions through opener.
func NewSubBatcher(opener Opener, cfg BatcherConfig) *SubBatcher {
	if cfg.MaxIDsPerFilter < 1 {
		cfg.MaxIDsPerFilter = 1
	}
	return &SubBatcher{
		opener:  opener,
		cfg:     cfg,
		now:     time.Now,
		pending: make(map[string]*pendingRequest),
		recent:  bloom.NewWithEstimates(100_000, 0.001),
	}
}

// SubmitVotesAndReplies asks relayURL for votes by votePubkeys and replies
// on eventIDs. The request is sent after the batch delay.
func (b *SubBatcher) SubmitVotesAndReplies(relayURL string, eventIDs []string, votePubkeys []string) {
	if relayURL == "" || len(eventIDs) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}

	now := b.now()
	if now.Sub(b.recentSince) > b.cfg.Cooldown {
		b.recent.ClearAll()
		b.recentSince = now
	}

	req, ok := b.pending[relayURL]
	if !ok {
		req = &pendingRequest{idSet: make(map[string]struct{}), pkSet: make(map[string]struct{})}
	}
	for _, id := range eventIDs {
		if b.recent.TestAndAddString(relayURL + " " + id) {
			continue
		}
		req.addID(id)
	}
	if len(req.ids) == 0 {
		return
	}
	for _, pk := range votePubkeys {
		req.addPubkey(pk)
	}
	b.pending[relayURL] = req

	if b.timer == nil {
		b.timer = time.AfterFunc(b.cfg.Delay, b.flush)
	}
}

func (b *SubBatcher) flush() {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[string]*pendingRequest)
	b.timer = nil
	stopped := b.stopped
	b.mu.Unlock()

	if stopped {
		return
	}

	until := nostr.Timestamp(b.now().Unix())
	for relayURL, req := range pending {
		chunks := 0
		for chunk := range slices.Chunk(req.ids, b.cfg.MaxIDsPerFilter) {
			filters := []nostr.Filter{
				{
					Kinds:   []int{constants.KindReaction},
					Authors: req.pubkeys,
					Tags:    nostr.TagMap{constants.TagEvent: chunk},
					Until:   &until,
				},
				{
					Kinds: []int{constants.KindTextNote},
					Tags:  nostr.TagMap{constants.TagEvent: chunk},
					Until: &until,
				},
			}
			b.opener.Subscribe(relayURL, filters, domain.SubOptions{CloseOnEOSE: true, Purpose: PurposeVotesReplies})
			chunks++
		}
		logger.Debug("flushed vote and reply backfill",
			zap.String("relay", relayURL),
			zap.Int("ids", len(req.ids)),
			zap.Int("subscriptions", chunks),
		)
	}
}

// Stop cancels a pending flush and refuses further requests.
func (b *SubBatcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
