package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Shugur-Network/feedsync/internal/domain"
	apperrors "github.com/Shugur-Network/feedsync/internal/errors"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/Shugur-Network/feedsync/internal/workers"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Partition names, used in logs and the store_writes metric.
const (
	PartitionRootPosts   = "root_posts"
	PartitionReplies     = "replies"
	PartitionCrossPosts  = "cross_posts"
	PartitionVotes       = "votes"
	PartitionFriends     = "friends"
	PartitionWebOfTrust  = "web_of_trust"
	PartitionTopics      = "topics"
	PartitionNip65       = "nip65"
	PartitionProfiles    = "profiles"
	PartitionBookmarks   = "bookmarks"
	PartitionProfileSets = "profile_sets"
	PartitionTopicSets   = "topic_sets"
)

var errJobDropped = errors.New("write job dropped, worker queue full")

// EventProcessor partitions drained batches by event type, collapses
// replaceable state to its newest version and dispatches one write per
// partition to the worker pool.
type EventProcessor struct {
	store        domain.EventStore
	account      domain.PubkeyProvider
	profiles     *MetadataCache
	notifier     *Notifier
	pool         *workers.WorkerPool
	writeTimeout time.Duration
}

// NewEventProcessor wires a processor. Writes run on pool with writeTimeout
// each.
func NewEventProcessor(
	store domain.EventStore,
	account domain.PubkeyProvider,
	profiles *MetadataCache,
	notifier *Notifier,
	pool *workers.WorkerPool,
	writeTimeout time.Duration,
) *EventProcessor {
	return &EventProcessor{
		store:        store,
		account:      account,
		profiles:     profiles,
		notifier:     notifier,
		pool:         pool,
		writeTimeout: writeTimeout,
	}
}

// Process dispatches the writes for one batch. It does not wait for them.
func (p *EventProcessor) Process(batch []models.ValidatedEvent) {
	var (
		roots       []models.RootPost
		replies     []models.Reply
		crossPosts  []models.CrossPost
		votes       []models.Vote
		myContacts  []models.ContactList
		contacts    []models.ContactList
		topics      []models.TopicList
		nip65       []models.Nip65
		profiles    []models.Profile
		bookmarks   []models.BookmarkList
		profileSets []models.ProfileSet
		topicSets   []models.TopicSet
	)

	me := p.account.MyPubkey()
	for _, evt := range batch {
		switch e := evt.(type) {
		case models.RootPost:
			roots = append(roots, e)
		case models.Reply:
			replies = append(replies, e)
		case models.CrossPost:
			crossPosts = append(crossPosts, e)
		case models.Vote:
			votes = append(votes, e)
		case models.ContactList:
			if e.Pubkey == me {
				myContacts = append(myContacts, e)
			} else {
				contacts = append(contacts, e)
			}
		case models.TopicList:
			topics = append(topics, e)
		case models.Nip65:
			nip65 = append(nip65, e)
		case models.Profile:
			profiles = append(profiles, e)
		case models.BookmarkList:
			bookmarks = append(bookmarks, e)
		case models.ProfileSet:
			profileSets = append(profileSets, e)
		case models.TopicSet:
			topicSets = append(topicSets, e)
		default:
			logger.Error("unhandled validated event type",
				zap.String("type", fmt.Sprintf("%T", evt)),
				zap.String("event_id", evt.EventID()))
		}
	}

	votes = newestByKey(votes)
	contacts = newestByKey(contacts)
	nip65 = newestByKey(nip65)
	profiles = newestByKey(profiles)
	profileSets = newestByKey(profileSets)
	topicSets = newestByKey(topicSets)

	// The cache is read by feeds straight away; the store catches up.
	for _, pr := range profiles {
		p.profiles.Put(pr)
	}

	p.dispatch(PartitionRootPosts, len(roots), func(ctx context.Context) error {
		return p.store.InsertRootPosts(ctx, roots)
	})
	p.dispatch(PartitionReplies, len(replies), func(ctx context.Context) error {
		return p.store.InsertReplies(ctx, replies)
	})
	p.dispatch(PartitionCrossPosts, len(crossPosts), func(ctx context.Context) error {
		return p.store.InsertCrossPosts(ctx, crossPosts)
	})
	p.dispatch(PartitionVotes, len(votes), func(ctx context.Context) error {
		return p.store.UpsertVotes(ctx, votes)
	})
	if list, ok := newest(myContacts); ok {
		p.dispatch(PartitionFriends, 1, func(ctx context.Context) error {
			return p.store.UpsertFriends(ctx, list)
		})
	}
	p.dispatch(PartitionWebOfTrust, len(contacts), func(ctx context.Context) error {
		return p.store.UpsertWebOfTrust(ctx, contacts)
	})
	if list, ok := newest(topics); ok {
		p.dispatch(PartitionTopics, 1, func(ctx context.Context) error {
			return p.store.UpsertTopics(ctx, list)
		})
	}
	p.dispatch(PartitionNip65, len(nip65), func(ctx context.Context) error {
		return p.store.UpsertNip65(ctx, nip65)
	})
	p.dispatch(PartitionProfiles, len(profiles), func(ctx context.Context) error {
		return p.store.UpsertProfiles(ctx, profiles)
	})
	if list, ok := newest(bookmarks); ok {
		p.dispatch(PartitionBookmarks, 1, func(ctx context.Context) error {
			return p.store.UpsertBookmarks(ctx, list)
		})
	}
	p.dispatch(PartitionProfileSets, len(profileSets), func(ctx context.Context) error {
		return p.store.UpsertProfileSets(ctx, profileSets)
	})
	p.dispatch(PartitionTopicSets, len(topicSets), func(ctx context.Context) error {
		return p.store.UpsertTopicSets(ctx, topicSets)
	})
}

// dispatch queues one partition write. Failures are logged and counted; the
// batch for that partition is not retried.
func (p *EventProcessor) dispatch(partition string, count int, write func(ctx context.Context) error) {
	if count == 0 {
		return
	}
	queued := p.pool.AddJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
		defer cancel()

		err := write(ctx)
		metrics.RecordWrite(partition, err)
		if err != nil {
			apperrors.HandlePersistenceError(partition, count, err)
			return
		}
		logger.Debug("partition written", zap.String("partition", partition), zap.Int("count", count))
		p.notifier.Notify()
	})
	if !queued {
		metrics.RecordWrite(partition, errJobDropped)
		apperrors.HandlePersistenceError(partition, count, errJobDropped)
	}
}

// newest returns the newest element of events.
func newest[T models.ValidatedEvent](events []T) (T, bool) {
	var best T
	if len(events) == 0 {
		return best, false
	}
	best = events[0]
	for _, e := range events[1:] {
		if models.Newer(e, best) {
			best = e
		}
	}
	return best, true
}
