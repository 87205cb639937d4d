package relay

import (
	"context"
	"testing"
	"time"

	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const me = "9999999999999999999999999999999999999999999999999999999999999999"

func newTestSubscriber(store *fakeAccountStore) (*Subscriber, *recordingOpener, *SubBatcher) {
	opener := &recordingOpener{}
	batcher := NewSubBatcher(opener, BatcherConfig{Delay: 10 * time.Millisecond, MaxIDsPerFilter: 250, Cooldown: time.Minute})
	sub := NewSubscriber(opener, batcher, store, staticAccount(me), SubscriberConfig{
		Bootstrap:     []string{"wss://boot.example"},
		MaxPubkeys:    2,
		ResubCooldown: time.Minute,
	})
	return sub, opener, batcher
}

func TestReadRelaysMergesBootstrapAndNip65(t *testing.T) {
	sub, _, batcher := newTestSubscriber(&fakeAccountStore{readRelays: []string{"wss://own.example", "wss://boot.example"}})
	defer batcher.Stop()
	assert.Equal(t, []string{"wss://boot.example", "wss://own.example"}, sub.ReadRelays(context.Background()))
}

func TestSubFeedHome(t *testing.T) {
	store := &fakeAccountStore{friends: []string{pkF, pkF, idA, idB}, topics: []string{"go"}}
	sub, opener, batcher := newTestSubscriber(store)
	defer batcher.Stop()

	sub.SubFeed(context.Background(), models.HomeFeed{}, 100, 200, 75)

	calls := opener.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, PurposeFeed, calls[0].opts.Purpose)
	require.Len(t, calls[0].filters, 2)

	byAuthor, byTopic := calls[0].filters[0], calls[0].filters[1]
	assert.Equal(t, []string{pkF, idA}, byAuthor.Authors, "authors are deduped and capped")
	assert.Equal(t, []string{"go"}, byTopic.Tags["t"])
	for _, f := range calls[0].filters {
		assert.Equal(t, 75, f.Limit)
		assert.Equal(t, nostr.Timestamp(100), *f.Since)
		assert.Equal(t, nostr.Timestamp(200), *f.Until)
	}
}

func TestSubFeedZeroSinceIsOmitted(t *testing.T) {
	sub, opener, batcher := newTestSubscriber(&fakeAccountStore{})
	defer batcher.Stop()

	sub.SubFeed(context.Background(), models.TopicFeed{Topic: "nostr"}, 0, 200, 50)

	calls := opener.Calls()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].filters[0].Since)
	assert.Equal(t, []string{"nostr"}, calls[0].filters[0].Tags["t"])
}

func TestSubFeedEmptyHomeSendsNothing(t *testing.T) {
	sub, opener, batcher := newTestSubscriber(&fakeAccountStore{})
	defer batcher.Stop()

	sub.SubFeed(context.Background(), models.HomeFeed{}, 0, 200, 50)
	assert.Empty(t, opener.Calls())
}

func TestSubFeedListAndBookmarks(t *testing.T) {
	store := &fakeAccountStore{
		bookmarks:  []string{idC},
		setPubkeys: map[string][]string{"devs": {pkF}},
		setTopics:  map[string][]string{"devs": {"rust"}},
	}
	sub, opener, batcher := newTestSubscriber(store)
	defer batcher.Stop()

	sub.SubFeed(context.Background(), models.ListFeed{Identifier: "devs"}, 0, 200, 10)
	sub.SubFeed(context.Background(), models.BookmarksFeed{}, 0, 200, 10)

	calls := opener.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{pkF}, calls[0].filters[0].Authors)
	assert.Equal(t, []string{"rust"}, calls[0].filters[1].Tags["t"])
	assert.Equal(t, []string{idC}, calls[1].filters[0].IDs)
}

func TestSubVotesAndRepliesUsesTrustedVoters(t *testing.T) {
	store := &fakeAccountStore{friends: []string{pkF}, wot: []string{idA}}
	sub, opener, batcher := newTestSubscriber(store)
	defer batcher.Stop()

	sub.SubVotesAndReplies(context.Background(), []string{idB})

	require.Eventually(t, func() bool { return len(opener.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	votes := opener.Calls()[0].filters[0]
	assert.Equal(t, []string{me, pkF}, votes.Authors)
	assert.Equal(t, []string{idB}, votes.Tags["e"])
}

func TestSubProfilesCooldown(t *testing.T) {
	sub, opener, batcher := newTestSubscriber(&fakeAccountStore{})
	defer batcher.Stop()

	sub.SubProfiles(context.Background(), []string{pkF, idA, idB})
	sub.SubProfiles(context.Background(), []string{pkF})

	calls := opener.Calls()
	require.Len(t, calls, 2, "three pubkeys in chunks of two, second request suppressed")
	assert.Equal(t, []int{0}, calls[0].filters[0].Kinds)
	assert.Equal(t, []string{pkF, idA}, calls[0].filters[0].Authors)
	assert.Equal(t, []string{idB}, calls[1].filters[0].Authors)
}

func TestSubMyAccountStaysOpen(t *testing.T) {
	sub, opener, batcher := newTestSubscriber(&fakeAccountStore{})
	defer batcher.Stop()

	sub.SubMyAccount(context.Background())

	calls := opener.Calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].opts.CloseOnEOSE)
	assert.Equal(t, []string{me}, calls[0].filters[0].Authors)
	assert.Contains(t, calls[0].filters[1].Kinds, 30015)
}

func TestSubWebOfTrust(t *testing.T) {
	sub, opener, batcher := newTestSubscriber(&fakeAccountStore{friends: []string{pkF}})
	defer batcher.Stop()

	sub.SubWebOfTrust(context.Background())

	calls := opener.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, PurposeWebOfTrust, calls[0].opts.Purpose)
	assert.Equal(t, []int{3, 10002}, calls[0].filters[0].Kinds)
}
