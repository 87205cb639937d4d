package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/Shugur-Network/feedsync/internal/domain"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	nostr "github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"
)

type openSub struct {
	relayURL string
	cancel   context.CancelFunc
}

// Pool implements domain.Transport on a go-nostr SimplePool. Each open
// subscription gets one goroutine that pumps its events into the handler.
type Pool struct {
	ctx      context.Context
	cancel   context.CancelFunc
	pool     *nostr.SimplePool
	handler  domain.InboundHandler
	registry domain.FilterRegistrar

	mu   sync.Mutex
	subs map[string]openSub
	wg   sync.WaitGroup
}

// NewPool creates a transport whose relay connections live until Shutdown.
func NewPool(parent context.Context, handler domain.InboundHandler, registry domain.FilterRegistrar) *Pool {
	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		ctx:      ctx,
		cancel:   cancel,
		pool:     nostr.NewSimplePool(ctx),
		handler:  handler,
		registry: registry,
		subs:     make(map[string]openSub),
	}
}

// Open connects to relayURL if needed and sends the REQ.
func (p *Pool) Open(ctx context.Context, relayURL, subID string, filters []nostr.Filter, opts domain.SubOptions) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}

	relay, err := p.pool.EnsureRelay(relayURL)
	if err != nil {
		return fmt.Errorf("connect %s: %w", relayURL, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub, err := relay.Subscribe(subCtx, nostr.Filters(filters), nostr.WithLabel(opts.Purpose))
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", relayURL, err)
	}

	p.mu.Lock()
	if err := p.ctx.Err(); err != nil {
		p.mu.Unlock()
		cancel()
		return err
	}
	p.subs[subID] = openSub{relayURL: relayURL, cancel: cancel}
	p.wg.Add(1)
	p.mu.Unlock()

	metrics.ActiveSubscriptions.Inc()
	go p.pump(subCtx, relayURL, subID, sub, opts)
	return nil
}

func (p *Pool) pump(ctx context.Context, relayURL, subID string, sub *nostr.Subscription, opts domain.SubOptions) {
	defer p.finish(subID)

	log := logger.FromContext(logger.WithRelay(ctx, relayURL, subID))
	eose := sub.EndOfStoredEvents
	for {
		select {
		case <-ctx.Done():
			sub.Unsub()
			return
		case <-p.ctx.Done():
			sub.Unsub()
			return
		case evt, ok := <-sub.Events:
			if !ok {
				return
			}
			p.handler.HandleEvent(subID, evt, relayURL)
		case <-eose:
			eose = nil
			if opts.CloseOnEOSE {
				log.Debug("closing subscription after EOSE", zap.String("purpose", opts.Purpose))
				sub.Unsub()
				return
			}
		case reason := <-sub.ClosedReason:
			log.Debug("relay closed subscription", zap.String("reason", reason))
			return
		}
	}
}

func (p *Pool) finish(subID string) {
	p.mu.Lock()
	if s, ok := p.subs[subID]; ok {
		s.cancel()
		delete(p.subs, subID)
	}
	p.mu.Unlock()

	p.registry.Forget(subID)
	metrics.ActiveSubscriptions.Dec()
	p.wg.Done()
}

// Close stops subID. Unknown ids are ignored.
func (p *Pool) Close(relayURL, subID string) {
	p.mu.Lock()
	s, ok := p.subs[subID]
	p.mu.Unlock()
	if ok && s.relayURL == relayURL {
		s.cancel()
	}
}

// Active reports the number of open subscriptions.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Shutdown closes every subscription and waits for the pumps to exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.cancel()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("relay pool shutdown: %w", ctx.Err())
	}
}
