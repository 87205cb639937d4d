package domain

import (
	"context"

	nostr "github.com/nbd-wtf/go-nostr"
)

// SubOptions tune one relay subscription.
type SubOptions struct {
	// CloseOnEOSE closes the subscription once stored events are delivered.
	CloseOnEOSE bool
	// Purpose labels the subscription in logs and metrics.
	Purpose string
}

// Transport opens and closes subscriptions on remote relays. Events for an
// open subscription are delivered to an InboundHandler.
type Transport interface {
	Open(ctx context.Context, relayURL, subID string, filters []nostr.Filter, opts SubOptions) error
	Close(relayURL, subID string)
}

// InboundHandler receives every event a relay delivers. An empty relayURL
// means the origin is unknown.
type InboundHandler interface {
	HandleEvent(subID string, evt *nostr.Event, relayURL string)
}

// FilterRegistrar records the filters of each open subscription so inbound
// events can be checked against what was asked for.
type FilterRegistrar interface {
	Register(subID string, filters []nostr.Filter) bool
	Lookup(subID string) []nostr.Filter
	Forget(subID string)
}
