package relay

import (
	"context"

	"github.com/Shugur-Network/feedsync/internal/domain"
	apperrors "github.com/Shugur-Network/feedsync/internal/errors"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"github.com/Shugur-Network/feedsync/internal/workers"
	"github.com/google/uuid"
	nostr "github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"
)

// Subscription purposes, used as log fields and metric labels.
const (
	PurposeFeed         = "feed"
	PurposeVotesReplies = "votes_replies"
	PurposeProfiles     = "profiles"
	PurposeAccount      = "account"
	PurposeWebOfTrust   = "web_of_trust"
)

// Opener opens a subscription and returns its id, or "" when refused.
type Opener interface {
	Subscribe(relayURL string, filters []nostr.Filter, opts domain.SubOptions) string
}

// SubscriptionCreator registers filters under a fresh id and hands the
// REQ to the transport on the send pool.
type SubscriptionCreator struct {
	ctx       context.Context
	transport domain.Transport
	registry  domain.FilterRegistrar
	sends     *workers.WorkerPool
}

// NewSubscriptionCreator creates a creator. Subscriptions live until ctx is
// done or they are closed.
func NewSubscriptionCreator(ctx context.Context, transport domain.Transport, registry domain.FilterRegistrar, sends *workers.WorkerPool) *SubscriptionCreator {
	return &SubscriptionCreator{ctx: ctx, transport: transport, registry: registry, sends: sends}
}

// Subscribe validates filters, registers them and queues the open. Invalid
// filters are dropped individually.
func (c *SubscriptionCreator) Subscribe(relayURL string, filters []nostr.Filter, opts domain.SubOptions) string {
	valid := make([]nostr.Filter, 0, len(filters))
	for _, f := range filters {
		if err := ValidateFilter(f); err != nil {
			logger.Debug("skipping invalid outbound filter",
				zap.String("relay", relayURL), zap.String("purpose", opts.Purpose), zap.Error(err))
			continue
		}
		valid = append(valid, f)
	}
	if len(valid) == 0 {
		return ""
	}

	subID := uuid.NewString()
	if !c.registry.Register(subID, valid) {
		return ""
	}

	queued := c.sends.AddJob(func() {
		if err := c.transport.Open(c.ctx, relayURL, subID, valid, opts); err != nil {
			c.registry.Forget(subID)
			apperrors.HandleRelayError(relayURL, err,
				zap.String("sub_id", subID), zap.String("purpose", opts.Purpose))
		}
	})
	if !queued {
		c.registry.Forget(subID)
		return ""
	}

	metrics.SubscriptionsOpened.WithLabelValues(opts.Purpose).Inc()
	logger.Debug("subscription queued",
		zap.String("relay", relayURL),
		zap.String("sub_id", subID),
		zap.String("purpose", opts.Purpose),
		zap.Int("filters", len(valid)),
	)
	return subID
}

// Unsubscribe closes subID on relayURL and forgets its filters.
func (c *SubscriptionCreator) Unsubscribe(relayURL, subID string) {
	c.transport.Close(relayURL, subID)
	c.registry.Forget(subID)
}
