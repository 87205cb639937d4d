package relay

import (
	"github.com/Shugur-Network/feedsync/internal/limiter"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"
)

// Submitter accepts admitted events for persistence.
type Submitter interface {
	Submit(evt models.ValidatedEvent)
}

// Ingress is the inbound boundary: every event a relay delivers passes
// through HandleEvent on the relay's reader goroutine.
type Ingress struct {
	validator *EventValidator
	queue     Submitter
	limiter   *limiter.RateLimiter
}

// NewIngress wires the validator to the queue. limiter may be nil.
func NewIngress(validator *EventValidator, queue Submitter, rl *limiter.RateLimiter) *Ingress {
	return &Ingress{validator: validator, queue: queue, limiter: rl}
}

// HandleEvent validates evt and queues it. Events of unknown origin are
// dropped.
func (in *Ingress) HandleEvent(subID string, evt *nostr.Event, relayURL string) {
	if relayURL == "" {
		logger.Debug("dropping event with unknown origin", zap.String("sub_id", subID))
		return
	}
	metrics.IncrementReceived(relayURL)

	if in.limiter != nil && !in.limiter.Allow(relayURL) {
		return
	}

	if validated := in.validator.Admit(evt, subID, relayURL); validated != nil {
		in.queue.Submit(validated)
	}
}
