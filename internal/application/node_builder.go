package application

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/Shugur-Network/feedsync/internal/config"
	apperrors "github.com/Shugur-Network/feedsync/internal/errors"
	"github.com/Shugur-Network/feedsync/internal/feed"
	"github.com/Shugur-Network/feedsync/internal/identity"
	"github.com/Shugur-Network/feedsync/internal/limiter"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/relay"
	"github.com/Shugur-Network/feedsync/internal/storage"
	"github.com/Shugur-Network/feedsync/internal/workers"

	"go.uber.org/zap"
)

// metadataCacheSize bounds the in-memory profile cache.
const metadataCacheSize = 10_000

// NodeBuilder is used to incrementally construct a Node instance.
type NodeBuilder struct {
	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config

	account  *identity.Account
	database *storage.DB

	writePool *workers.WorkerPool
	sendPool  *workers.WorkerPool

	cache     *storage.MetadataCache
	notifier  *storage.Notifier
	processor *storage.EventProcessor
	queue     *storage.EventQueue

	registry    *relay.FilterRegistry
	validator   *relay.EventValidator
	rateLimiter *limiter.RateLimiter
	pool        *relay.Pool
	creator     *relay.SubscriptionCreator
	batcher     *relay.SubBatcher
	subscriber  *relay.Subscriber

	aggregator *feed.Aggregator
}

// NewNodeBuilder creates a new NodeBuilder with its own cancelable context.
func NewNodeBuilder(ctx context.Context, cfg *config.Config) *NodeBuilder {
	c, cancel := context.WithCancel(ctx)
	return &NodeBuilder{
		ctx:    c,
		cancel: cancel,
		config: cfg,
	}
}

// BuildAccount resolves the local user from configuration.
func (b *NodeBuilder) BuildAccount() error {
	account, err := identity.NewAccount(b.config.Account.Pubkey)
	if err != nil {
		b.cancel()
		return apperrors.ConfigurationError("account.pubkey", err.Error())
	}
	b.account = account
	logger.Info("Account loaded", zap.String("account", account.ShortID()))
	return nil
}

// BuildDB connects to the store and applies pending migrations.
func (b *NodeBuilder) BuildDB() error {
	logger.Info("Connecting to database",
		zap.String("driver", b.config.Database.Driver))

	db, err := storage.InitDB(b.ctx, b.config.Database)
	if err != nil {
		b.cancel()
		return apperrors.DatabaseConnectionError(err)
	}
	if err := db.Migrate(b.ctx); err != nil {
		_ = db.CloseDB()
		b.cancel()
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	b.database = db
	return nil
}

// BuildWorkers initializes the write and send pools. Zero sizes in the
// configuration scale with the CPU count.
func (b *NodeBuilder) BuildWorkers() {
	numCPU := runtime.NumCPU()
	workerCount := b.config.Ingest.Workers
	if workerCount == 0 {
		workerCount = numCPU * 2
	}
	jobBuffer := b.config.Ingest.JobBuffer
	if jobBuffer == 0 {
		jobBuffer = numCPU * 300
	}
	b.writePool = workers.NewWorkerPool("writes", workerCount, jobBuffer)
	b.sendPool = workers.NewWorkerPool("sends", numCPU, jobBuffer)
}

// BuildProcessor sets up the persistence side: cache, change notifier,
// processor and the queue in front of it.
func (b *NodeBuilder) BuildProcessor() {
	ingest := b.config.Ingest
	b.cache = storage.NewMetadataCache(metadataCacheSize)
	b.notifier = storage.NewNotifier()
	b.processor = storage.NewEventProcessor(b.database, b.account, b.cache, b.notifier, b.writePool, ingest.WriteTimeout)
	b.queue = storage.NewEventQueue(b.processor, ingest.QueueInterval, ingest.QueueIdleTicks)
}

// BuildRateLimiter sets up the per-relay inbound limiter.
func (b *NodeBuilder) BuildRateLimiter() {
	b.rateLimiter = limiter.NewRateLimiter(b.config.Relays.Throttling)
}

// BuildRelays wires validation, the relay pool and the subscription side.
func (b *NodeBuilder) BuildRelays() error {
	ingest := b.config.Ingest

	seen, err := relay.NewSeenCache(ingest.SeenCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create seen cache: %w", err)
	}
	b.registry = relay.NewFilterRegistry()
	b.validator = relay.NewEventValidator(b.registry, seen, b.account)

	ingress := relay.NewIngress(b.validator, b.queue, b.rateLimiter)
	b.pool = relay.NewPool(b.ctx, ingress, b.registry)
	b.creator = relay.NewSubscriptionCreator(b.ctx, b.pool, b.registry, b.sendPool)
	b.batcher = relay.NewSubBatcher(b.creator, relay.BatcherConfig{
		Delay:           ingest.BatchDelay,
		MaxIDsPerFilter: ingest.MaxIDsPerFilter,
		Cooldown:        ingest.ResubCooldown,
	})
	b.subscriber = relay.NewSubscriber(b.creator, b.batcher, b.database, b.account, relay.SubscriberConfig{
		Bootstrap:     b.config.Relays.Bootstrap,
		MaxPubkeys:    ingest.MaxPubkeys,
		ResubCooldown: ingest.ResubCooldown,
	})
	return nil
}

// BuildFeed sets up the feed aggregator.
func (b *NodeBuilder) BuildFeed() {
	fc := b.config.Feed
	b.aggregator = feed.NewAggregator(
		b.database,
		b.cache,
		b.account,
		b.subscriber,
		feed.NewOverrides(fc.OverrideTTL),
		b.notifier,
		feed.Options{
			PageSize:           fc.PageSize,
			ResubSpanThreshold: fc.ResubSpanThreshold,
			Debounce:           fc.Debounce,
		},
	)
}

// Build finalizes the node construction.
func (b *NodeBuilder) Build() (*Node, error) {
	if b.account == nil {
		return nil, fmt.Errorf("account must be built before calling Build()")
	}
	if b.database == nil {
		return nil, fmt.Errorf("database must be built before calling Build()")
	}
	if b.writePool == nil || b.sendPool == nil {
		return nil, fmt.Errorf("worker pools must be built before calling Build()")
	}
	if b.queue == nil {
		return nil, fmt.Errorf("event processor must be built before calling Build()")
	}
	if b.pool == nil || b.subscriber == nil {
		return nil, fmt.Errorf("relays must be built before calling Build()")
	}
	if b.aggregator == nil {
		return nil, fmt.Errorf("feed must be built before calling Build()")
	}

	node := &Node{
		ctx:        b.ctx,
		cancel:     b.cancel,
		config:     b.config,
		account:    b.account,
		db:         b.database,
		writePool:  b.writePool,
		sendPool:   b.sendPool,
		queue:      b.queue,
		notifier:   b.notifier,
		pool:       b.pool,
		batcher:    b.batcher,
		Subscriber: b.subscriber,
		Feed:       b.aggregator,
		home:       feed.NewPaginator(b.aggregator, b.config.Feed.PageSize),
		startTime:  time.Now(),
	}

	logger.Debug("Node initialized successfully via builder")
	return node, nil
}
