package feed

import (
	"context"
	"reflect"
	"slices"
	"time"

	"github.com/Shugur-Network/feedsync/internal/domain"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/cockroachdb/errors"
	nostr "github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is what the aggregator reads from persistence.
type Store interface {
	domain.FeedReader
	ProfileNames(ctx context.Context, pubkeys []string) (map[string]string, error)
}

// NameCache holds names of profiles seen but possibly not yet persisted.
type NameCache interface {
	Names(pubkeys []string) map[string]string
}

// Backfiller asks relays for what a page is missing.
type Backfiller interface {
	SubFeed(ctx context.Context, setting models.FeedSetting, since, until nostr.Timestamp, limit int)
	SubVotesAndReplies(ctx context.Context, parentIDs []string)
	SubProfiles(ctx context.Context, pubkeys []string)
}

// Options tune an Aggregator.
type Options struct {
	PageSize           int
	ResubSpanThreshold time.Duration
	Debounce           time.Duration
}

// Aggregator assembles feed pages from the store and keeps them current.
type Aggregator struct {
	store     Store
	names     NameCache
	account   domain.PubkeyProvider
	relays    Backfiller
	overrides *Overrides
	changes   domain.ChangeNotifier
	opts      Options
	now       func() time.Time
	log       *zap.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(
	store Store,
	names NameCache,
	account domain.PubkeyProvider,
	relays Backfiller,
	overrides *Overrides,
	changes domain.ChangeNotifier,
	opts Options,
) *Aggregator {
	if opts.PageSize < 1 {
		opts.PageSize = 25
	}
	return &Aggregator{
		store:     store,
		names:     names,
		account:   account,
		relays:    relays,
		overrides: overrides,
		changes:   changes,
		opts:      opts,
		now:       time.Now,
		log:       logger.New("feed"),
	}
}

// Overrides returns the aggregator's optimistic action overlay.
func (a *Aggregator) Overrides() *Overrides {
	return a.overrides
}

// GetPage returns one page and asks relays for anything it lacks.
func (a *Aggregator) GetPage(ctx context.Context, q models.PageQuery) (models.FeedPage, error) {
	page, err := a.load(ctx, q)
	if err != nil {
		return nil, err
	}
	a.backfill(ctx, page)
	a.subFeed(ctx, q)
	return page, nil
}

// load reads, merges and overlays one page without touching relays.
func (a *Aggregator) load(ctx context.Context, q models.PageQuery) (models.FeedPage, error) {
	if q.Setting == nil {
		return nil, errors.New("feed setting is required")
	}
	if q.Size < 1 {
		q.Size = a.opts.PageSize
	}
	start := time.Now()
	defer func() {
		metrics.FeedPageDuration.WithLabelValues(q.Setting.Name()).Observe(time.Since(start).Seconds())
	}()

	fq := domain.FeedQuery{
		Setting:  q.Setting,
		MyPubkey: a.account.MyPubkey(),
		Until:    q.Until,
		BeforeID: q.BeforeID,
		Limit:    q.Size,
	}

	var roots, others []models.FeedItem
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roots, err = a.store.RootPosts(gctx, fq)
		return errors.Wrap(err, "root posts")
	})
	g.Go(func() error {
		var err error
		if models.IsMainFeed(q.Setting) {
			others, err = a.store.CrossPosts(gctx, fq)
			return errors.Wrap(err, "cross posts")
		}
		others, err = a.store.Replies(gctx, fq)
		return errors.Wrap(err, "replies")
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "loading %s feed", q.Setting.Name())
	}

	page := merge(roots, others, q.Size)
	a.fillNames(page)
	return models.FeedPage(a.overrides.Apply(page)), nil
}

// merge orders both result sets newest first and keeps the first size.
func merge(a, b []models.FeedItem, size int) []models.FeedItem {
	out := make([]models.FeedItem, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.SortFunc(out, func(x, y models.FeedItem) int {
		switch {
		case models.Before(x, y):
			return -1
		case models.Before(y, x):
			return 1
		}
		return 0
	})
	if len(out) > size {
		out = out[:size]
	}
	return out
}

// fillNames fills author names the store had no profile for yet.
func (a *Aggregator) fillNames(page []models.FeedItem) {
	if a.names == nil {
		return
	}
	var missing []string
	for _, it := range page {
		if it.AuthorName == "" {
			missing = append(missing, it.Pubkey)
		}
	}
	if len(missing) == 0 {
		return
	}
	names := a.names.Names(missing)
	for i := range page {
		if page[i].AuthorName == "" {
			page[i].AuthorName = names[page[i].Pubkey]
		}
	}
}

// backfill requests votes, replies and profiles the page is missing.
func (a *Aggregator) backfill(ctx context.Context, page models.FeedPage) {
	var bare, nameless []string
	for _, it := range page {
		if it.Upvotes == 0 && it.ReplyCount == 0 {
			bare = append(bare, it.VoteTargetID())
		}
		if it.AuthorName == "" {
			nameless = append(nameless, it.Pubkey)
		}
		if it.Kind == models.ItemCross && it.CrossPostedPubkey != "" {
			nameless = append(nameless, it.CrossPostedPubkey)
		}
	}
	if len(bare) > 0 {
		a.relays.SubVotesAndReplies(ctx, bare)
	}
	if len(nameless) == 0 {
		return
	}
	known, err := a.store.ProfileNames(ctx, nameless)
	if err != nil {
		a.log.Warn("reading profile names failed", zap.Error(err))
	}
	var cached map[string]string
	if a.names != nil {
		cached = a.names.Names(nameless)
	}
	var wanted []string
	for _, pk := range nameless {
		if known[pk] == "" && cached[pk] == "" {
			wanted = append(wanted, pk)
		}
	}
	if len(wanted) > 0 {
		a.relays.SubProfiles(ctx, wanted)
	}
}

// subFeed opens the relay window for the page below q.Until.
func (a *Aggregator) subFeed(ctx context.Context, q models.PageQuery) {
	size := q.Size
	if size < 1 {
		size = a.opts.PageSize
	}
	until := q.Until
	if until == 0 {
		until = nostr.Timestamp(a.now().Unix())
	}
	overFetch := OverFetch(size)
	createdAts, err := a.store.CreatedAts(ctx, domain.FeedQuery{
		Setting:  q.Setting,
		MyPubkey: a.account.MyPubkey(),
		Until:    until,
		Limit:    overFetch,
	})
	if err != nil {
		a.log.Warn("reading stored timestamps failed", zap.String("feed", q.Setting.Name()), zap.Error(err))
		createdAts = nil
	}
	since := AdaptiveSince(createdAts, overFetch, a.opts.ResubSpanThreshold)
	a.relays.SubFeed(ctx, q.Setting, since, until, RelayLimit(q.Setting, size))
}

// Watch emits the page for q now and again after every store or override
// change, debounced and only when the page differs. The channel closes when
// ctx is done.
func (a *Aggregator) Watch(ctx context.Context, q models.PageQuery) <-chan models.FeedPage {
	out := make(chan models.FeedPage)

	storeCh, cancelStore := a.changes.Subscribe()
	overrideCh, cancelOverrides := a.overrides.Subscribe()

	go func() {
		defer close(out)
		defer cancelStore()
		defer cancelOverrides()

		a.subFeed(ctx, q)

		var last models.FeedPage
		emitted := false
		emit := func() bool {
			page, err := a.load(ctx, q)
			if err != nil {
				if ctx.Err() == nil {
					a.log.Warn("reloading feed failed", zap.String("feed", q.Setting.Name()), zap.Error(err))
				}
				return ctx.Err() == nil
			}
			a.backfill(ctx, page)
			if emitted && reflect.DeepEqual(page, last) {
				return true
			}
			select {
			case out <- page:
				last, emitted = page, true
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}

		debounce := time.NewTimer(a.opts.Debounce)
		debounce.Stop()
		defer debounce.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-storeCh:
				debounce.Reset(a.opts.Debounce)
			case <-overrideCh:
				debounce.Reset(a.opts.Debounce)
			case <-debounce.C:
				if !emit() {
					return
				}
			}
		}
	}()
	return out
}
