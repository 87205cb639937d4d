package relay

import (
	"context"
	"slices"
	"time"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/domain"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
	nostr "github.com/nbd-wtf/go-nostr"
	"go.uber.org/zap"
)

var postKinds = []int{constants.KindTextNote, constants.KindRepost, constants.KindGenericRepost}

// SubscriberConfig tunes a Subscriber.
type SubscriberConfig struct {
	Bootstrap      []string
	MaxPubkeys     int
	ResubCooldown  time.Duration
	ProfileBacklog int
}

// Subscriber turns feed and account needs into relay subscriptions.
type Subscriber struct {
	opener  Opener
	batcher *SubBatcher
	store   domain.AccountReader
	account domain.PubkeyProvider
	cfg     SubscriberConfig

	// pubkeys whose profile was requested recently
	profiles *expirable.LRU[string, struct{}]
}

// NewSubscriber creates a subscriber.
func NewSubscriber(opener Opener, batcher *SubBatcher, store domain.AccountReader, account domain.PubkeyProvider, cfg SubscriberConfig) *Subscriber {
	if cfg.ProfileBacklog < 1 {
		cfg.ProfileBacklog = 10_000
	}
	return &Subscriber{
		opener:   opener,
		batcher:  batcher,
		store:    store,
		account:  account,
		cfg:      cfg,
		profiles: expirable.NewLRU[string, struct{}](cfg.ProfileBacklog, nil, cfg.ResubCooldown),
	}
}

// ReadRelays returns the bootstrap relays plus the local user's NIP-65
// read relays.
func (s *Subscriber) ReadRelays(ctx context.Context) []string {
	relays := slices.Clone(s.cfg.Bootstrap)
	own, err := s.store.ReadRelays(ctx, s.account.MyPubkey())
	if err != nil {
		logger.Warn("reading own relay list failed, using bootstrap relays", zap.Error(err))
	}
	relays = append(relays, own...)
	return distinct(relays, 0)
}

// SubFeed requests feed posts between since and until. A zero since asks
// for the full history below until.
func (s *Subscriber) SubFeed(ctx context.Context, setting models.FeedSetting, since, until nostr.Timestamp, limit int) {
	filters, err := s.feedFilters(ctx, setting)
	if err != nil {
		logger.Warn("building feed filters failed", zap.String("feed", setting.Name()), zap.Error(err))
		return
	}
	if len(filters) == 0 {
		return
	}
	for i := range filters {
		filters[i].Until = &until
		if since > 0 {
			filters[i].Since = &since
		}
		filters[i].Limit = limit
	}

	for _, relayURL := range s.ReadRelays(ctx) {
		s.opener.Subscribe(relayURL, filters, domain.SubOptions{CloseOnEOSE: true, Purpose: PurposeFeed})
	}
}

func (s *Subscriber) feedFilters(ctx context.Context, setting models.FeedSetting) ([]nostr.Filter, error) {
	me := s.account.MyPubkey()

	byAuthorsAndTopics := func(pubkeys, topics []string) []nostr.Filter {
		var filters []nostr.Filter
		if pubkeys = distinct(pubkeys, s.cfg.MaxPubkeys); len(pubkeys) > 0 {
			filters = append(filters, nostr.Filter{Kinds: postKinds, Authors: pubkeys})
		}
		if len(topics) > 0 {
			filters = append(filters, nostr.Filter{Kinds: postKinds, Tags: nostr.TagMap{constants.TagTopic: topics}})
		}
		return filters
	}

	switch st := setting.(type) {
	case models.HomeFeed:
		friends, err := s.store.FriendPubkeys(ctx, me)
		if err != nil {
			return nil, err
		}
		topics, err := s.store.Topics(ctx, me)
		if err != nil {
			return nil, err
		}
		return byAuthorsAndTopics(friends, topics), nil
	case models.TopicFeed:
		return byAuthorsAndTopics(nil, []string{st.Topic}), nil
	case models.ProfileFeed:
		return byAuthorsAndTopics([]string{st.Pubkey}, nil), nil
	case models.ListFeed:
		pubkeys, err := s.store.ProfileSetPubkeys(ctx, me, st.Identifier)
		if err != nil {
			return nil, err
		}
		topics, err := s.store.TopicSetTopics(ctx, me, st.Identifier)
		if err != nil {
			return nil, err
		}
		return byAuthorsAndTopics(pubkeys, topics), nil
	case models.BookmarksFeed:
		ids, err := s.store.BookmarkIDs(ctx, me)
		if err != nil || len(ids) == 0 {
			return nil, err
		}
		return []nostr.Filter{{Kinds: []int{constants.KindTextNote}, IDs: ids}}, nil
	case models.InboxFeed:
		return []nostr.Filter{{
			Kinds: []int{constants.KindTextNote},
			Tags:  nostr.TagMap{constants.TagPubkey: {me}},
		}}, nil
	default:
		return nil, nil
	}
}

// SubVotesAndReplies backfills votes and replies on parentIDs from every
// read relay. Votes are only requested from the local user, friends and the
// web of trust.
func (s *Subscriber) SubVotesAndReplies(ctx context.Context, parentIDs []string) {
	if len(parentIDs) == 0 {
		return
	}
	votePubkeys := s.votePubkeys(ctx)
	for _, relayURL := range s.ReadRelays(ctx) {
		s.batcher.SubmitVotesAndReplies(relayURL, parentIDs, votePubkeys)
	}
}

func (s *Subscriber) votePubkeys(ctx context.Context) []string {
	me := s.account.MyPubkey()
	pubkeys := []string{me}

	friends, err := s.store.FriendPubkeys(ctx, me)
	if err != nil {
		logger.Warn("reading friends failed", zap.Error(err))
	}
	pubkeys = append(pubkeys, friends...)

	wot, err := s.store.WebOfTrustPubkeys(ctx)
	if err != nil {
		logger.Warn("reading web of trust failed", zap.Error(err))
	}
	pubkeys = append(pubkeys, wot...)

	return distinct(pubkeys, s.cfg.MaxPubkeys)
}

// SubProfiles fetches metadata for pubkeys not requested within the
// cooldown.
func (s *Subscriber) SubProfiles(ctx context.Context, pubkeys []string) {
	var wanted []string
	for _, pk := range distinct(pubkeys, 0) {
		if s.profiles.Contains(pk) {
			continue
		}
		s.profiles.Add(pk, struct{}{})
		wanted = append(wanted, pk)
	}
	if len(wanted) == 0 {
		return
	}

	relays := s.ReadRelays(ctx)
	for chunk := range slices.Chunk(wanted, max(s.cfg.MaxPubkeys, 1)) {
		filters := []nostr.Filter{{Kinds: []int{constants.KindProfile}, Authors: chunk}}
		for _, relayURL := range relays {
			s.opener.Subscribe(relayURL, filters, domain.SubOptions{CloseOnEOSE: true, Purpose: PurposeProfiles})
		}
	}
}

// SubMyAccount keeps live subscriptions on the local user's own lists and
// profile.
func (s *Subscriber) SubMyAccount(ctx context.Context) {
	me := []string{s.account.MyPubkey()}
	filters := []nostr.Filter{
		{
			Kinds: []int{
				constants.KindProfile,
				constants.KindContactList,
				constants.KindRelayList,
				constants.KindBookmarkList,
				constants.KindTopicList,
			},
			Authors: me,
		},
		{
			Kinds:   []int{constants.KindProfileSet, constants.KindTopicSet},
			Authors: me,
		},
	}
	for _, relayURL := range s.ReadRelays(ctx) {
		s.opener.Subscribe(relayURL, filters, domain.SubOptions{Purpose: PurposeAccount})
	}
}

// SubWebOfTrust fetches the contact and relay lists of the local user's
// friends.
func (s *Subscriber) SubWebOfTrust(ctx context.Context) {
	friends, err := s.store.FriendPubkeys(ctx, s.account.MyPubkey())
	if err != nil {
		logger.Warn("reading friends failed", zap.Error(err))
		return
	}
	friends = distinct(friends, s.cfg.MaxPubkeys)
	if len(friends) == 0 {
		return
	}

	filters := []nostr.Filter{{
		Kinds:   []int{constants.KindContactList, constants.KindRelayList},
		Authors: friends,
	}}
	for _, relayURL := range s.ReadRelays(ctx) {
		s.opener.Subscribe(relayURL, filters, domain.SubOptions{CloseOnEOSE: true, Purpose: PurposeWebOfTrust})
	}
}

// distinct drops duplicates and empty values, keeping order. A positive
// limit caps the result.
func distinct(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
