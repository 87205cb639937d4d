package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Shugur-Network/feedsync/internal/config"
	"github.com/Shugur-Network/feedsync/internal/domain"
	"github.com/Shugur-Network/feedsync/internal/feed"
	"github.com/Shugur-Network/feedsync/internal/health"
	"github.com/Shugur-Network/feedsync/internal/identity"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/Shugur-Network/feedsync/internal/relay"
	"github.com/Shugur-Network/feedsync/internal/storage"
	"github.com/Shugur-Network/feedsync/internal/workers"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Node ties together the components of a running feedsync daemon.
type Node struct {
	ctx    context.Context
	cancel context.CancelFunc

	config  *config.Config
	account *identity.Account
	db      *storage.DB

	writePool *workers.WorkerPool
	sendPool  *workers.WorkerPool
	queue     *storage.EventQueue
	notifier  *storage.Notifier

	pool       *relay.Pool
	batcher    *relay.SubBatcher
	Subscriber *relay.Subscriber

	Feed *feed.Aggregator
	home *feed.Paginator

	startTime time.Time
}

var _ domain.NodeStatus = (*Node)(nil)

// New creates and configures a Node using the NodeBuilder pattern.
func New(ctx context.Context, cfg *config.Config) (*Node, error) {
	builder := NewNodeBuilder(ctx, cfg)

	if err := builder.BuildAccount(); err != nil {
		return nil, fmt.Errorf("failed building account: %w", err)
	}
	if err := builder.BuildDB(); err != nil {
		return nil, fmt.Errorf("failed building db: %w", err)
	}
	builder.BuildWorkers()
	builder.BuildProcessor()
	builder.BuildRateLimiter()
	if err := builder.BuildRelays(); err != nil {
		builder.cancel()
		return nil, fmt.Errorf("failed building relays: %w", err)
	}
	builder.BuildFeed()

	node, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build node: %w", err)
	}
	return node, nil
}

// Start serves metrics, subscribes the account data and keeps the home
// feed live until the node context ends.
func (n *Node) Start(ctx context.Context) error {
	if n.config.Metrics.Enabled {
		checker := health.NewHealthChecker(n.db, n, health.Thresholds{}, logger.New("health"), config.Version)
		addr := fmt.Sprintf(":%d", n.config.Metrics.Port)
		go func() {
			if err := metrics.Serve(n.ctx, addr, checker); err != nil {
				logger.Error("Metrics server error", zap.Error(err))
			}
		}()
	}

	n.Subscriber.SubMyAccount(n.ctx)
	n.Subscriber.SubWebOfTrust(n.ctx)
	go n.followAccount()

	n.home.Init(n.ctx, models.HomeFeed{})
	go n.logHome()

	logger.Info("Node started",
		zap.String("account", n.account.ShortID()),
		zap.Strings("relays", n.Subscriber.ReadRelays(ctx)))
	return nil
}

// followAccount reacts to changes of the local user's friends and topics.
// New friends refresh the web-of-trust subscription; either change rebuilds
// the home feed so its relay subscription covers the new authors and topics.
func (n *Node) followAccount() {
	changes, cancel := n.notifier.Subscribe()
	defer cancel()

	var lastFriends, lastTopics []string
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-changes:
		}
		me := n.account.MyPubkey()
		friends, err := n.db.FriendPubkeys(n.ctx, me)
		if err != nil {
			if n.ctx.Err() == nil {
				logger.Warn("Reading friends failed", zap.Error(err))
			}
			continue
		}
		topics, err := n.db.Topics(n.ctx, me)
		if err != nil {
			if n.ctx.Err() == nil {
				logger.Warn("Reading topics failed", zap.Error(err))
			}
			continue
		}

		friendsChanged := !slices.Equal(friends, lastFriends)
		topicsChanged := !slices.Equal(topics, lastTopics)
		if !friendsChanged && !topicsChanged {
			continue
		}
		lastFriends, lastTopics = friends, topics

		if friendsChanged {
			logger.Debug("Friend list changed, refreshing web of trust", zap.Int("friends", len(friends)))
			n.Subscriber.SubWebOfTrust(n.ctx)
		}
		logger.Debug("Home feed sources changed, rebuilding",
			zap.Int("friends", len(friends)),
			zap.Int("topics", len(topics)))
		n.home.Refresh()
	}
}

// logHome reports home feed updates at debug level.
func (n *Node) logHome() {
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-n.home.Updates():
			logger.Debug("Home feed updated",
				zap.String("state", n.home.State().String()),
				zap.Int("items", len(n.home.Items())))
		}
	}
}

// Shutdown stops inbound traffic first, then flushes queued events to the
// store before closing it.
func (n *Node) Shutdown() {
	logger.Info("Initiating graceful shutdown...")
	shutdownTimeout := n.config.General.ShutdownTimeout

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var result *multierror.Error

	n.home.Close()
	n.batcher.Stop()

	logger.Debug("Closing relay subscriptions...")
	if err := n.pool.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	n.sendPool.Stop()

	logger.Debug("Flushing event queue...")
	n.queue.Stop()

	logger.Debug("Waiting for pending writes...")
	done := make(chan struct{})
	go func() {
		defer close(done)
		n.writePool.Stop()
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		result = multierror.Append(result, fmt.Errorf("write pool shutdown timed out after %v", shutdownTimeout))
	}

	if n.cancel != nil {
		n.cancel()
	}

	if err := n.db.CloseDB(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close database: %w", err))
	}

	if err := result.ErrorOrNil(); err != nil {
		logger.Warn("Node shutdown completed with errors",
			zap.Int("error_count", len(result.Errors)),
			zap.Error(err))
		return
	}
	logger.Info("Node shutdown completed successfully")
}

// ActiveSubscriptions returns the number of open relay subscriptions.
func (n *Node) ActiveSubscriptions() int {
	return n.pool.Active()
}

// QueueBacklog returns the number of events waiting for the next drain.
func (n *Node) QueueBacklog() int {
	return n.queue.Backlog()
}

// StartTime returns when the node was built.
func (n *Node) StartTime() time.Time {
	return n.startTime
}
