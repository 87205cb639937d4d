package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Shugur-Network/feedsync/internal/config"
	"github.com/Shugur-Network/feedsync/internal/domain"
	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	me    = strings.Repeat("a", 64)
	alice = strings.Repeat("b", 64)
	bob   = strings.Repeat("c", 64)
	carol = strings.Repeat("d", 64)
)

func hexID(n int) string {
	return fmt.Sprintf("%064x", n)
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := InitDB(ctx, config.DatabaseConfig{
		Driver:         config.DriverSQLite,
		DSN:            filepath.Join(t.TempDir(), "feed.db"),
		MaxOpenConns:   1,
		ConnectRetries: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.CloseDB() })
	require.NoError(t, db.Migrate(ctx))
	return db
}

func rootPost(id int, pubkey string, at nostr.Timestamp, topics ...string) models.RootPost {
	return models.RootPost{
		ID:        hexID(id),
		Pubkey:    pubkey,
		Title:     fmt.Sprintf("title %d", id),
		Content:   fmt.Sprintf("content %d", id),
		Topics:    topics,
		CreatedAt: at,
		RelayURL:  "wss://relay.one",
	}
}

func feedQuery(setting models.FeedSetting, limit int) domain.FeedQuery {
	return domain.FeedQuery{Setting: setting, MyPubkey: me, Limit: limit}
}

func ids(items []models.FeedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestInitDBRejectsUnreachable(t *testing.T) {
	_, err := InitDB(context.Background(), config.DatabaseConfig{
		Driver:         config.DriverSQLite,
		DSN:            filepath.Join(t.TempDir(), "missing", "dir", "feed.db"),
		MaxOpenConns:   1,
		ConnectRetries: 1,
	})
	require.Error(t, err)
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.Ping(context.Background()))
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestInsertRootPostsIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := rootPost(1, alice, 100, "go")
	require.NoError(t, db.InsertRootPosts(ctx, []models.RootPost{first}))

	again := first
	again.RelayURL = "wss://relay.two"
	require.NoError(t, db.InsertRootPosts(ctx, []models.RootPost{again, again}))

	items, err := db.RootPosts(ctx, feedQuery(models.ProfileFeed{Pubkey: alice}, 10))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "wss://relay.one", items[0].RelayURL, "first relay hint is kept")
	assert.Equal(t, []string{"go"}, items[0].Topics)
	assert.Equal(t, models.ItemRoot, items[0].Kind)
}

func TestUpsertVotesNewestWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	post := rootPost(1, bob, 50)
	require.NoError(t, db.InsertRootPosts(ctx, []models.RootPost{post}))

	vote := func(id int, positive bool, at nostr.Timestamp) models.Vote {
		return models.Vote{ID: hexID(id), Pubkey: me, PostID: post.ID, IsPositive: positive, CreatedAt: at}
	}
	myVote := func() models.VoteState {
		items, err := db.RootPosts(ctx, feedQuery(models.ProfileFeed{Pubkey: bob}, 10))
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 1, items[0].Upvotes+items[0].Downvotes, "one vote per voter")
		return items[0].MyVote
	}

	require.NoError(t, db.UpsertVotes(ctx, []models.Vote{vote(10, true, 100)}))
	assert.Equal(t, models.VoteUp, myVote())

	require.NoError(t, db.UpsertVotes(ctx, []models.Vote{vote(11, false, 90)}))
	assert.Equal(t, models.VoteUp, myVote(), "older vote ignored")

	require.NoError(t, db.UpsertVotes(ctx, []models.Vote{vote(12, false, 100)}))
	assert.Equal(t, models.VoteDown, myVote(), "equal timestamp, larger id wins")

	require.NoError(t, db.UpsertVotes(ctx, []models.Vote{vote(14, true, 200), vote(13, false, 300)}))
	assert.Equal(t, models.VoteDown, myVote(), "batch collapses to the newest")
}

func TestReplaceableListsSkipStaleWrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertFriends(ctx, models.ContactList{ID: hexID(2), Pubkey: me, FriendPubkeys: []string{alice}, CreatedAt: 200}))
	require.NoError(t, db.UpsertFriends(ctx, models.ContactList{ID: hexID(1), Pubkey: me, FriendPubkeys: []string{bob}, CreatedAt: 100}))

	friends, err := db.FriendPubkeys(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, []string{alice}, friends)

	require.NoError(t, db.UpsertFriends(ctx, models.ContactList{ID: hexID(3), Pubkey: me, FriendPubkeys: []string{bob, carol}, CreatedAt: 300}))
	friends, err = db.FriendPubkeys(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, []string{bob, carol}, friends)

	require.NoError(t, db.UpsertTopics(ctx, models.TopicList{ID: hexID(5), MyPubkey: me, Topics: []string{"go"}, CreatedAt: 10}))
	require.NoError(t, db.UpsertTopics(ctx, models.TopicList{ID: hexID(4), MyPubkey: me, Topics: []string{"rust"}, CreatedAt: 10}))
	topics, err := db.Topics(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, topics, "equal timestamp, smaller id loses")
}

func TestWebOfTrustAndRelays(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertWebOfTrust(ctx, []models.ContactList{
		{ID: hexID(1), Pubkey: alice, FriendPubkeys: []string{bob}, CreatedAt: 10},
		{ID: hexID(2), Pubkey: alice, FriendPubkeys: []string{carol}, CreatedAt: 20},
		{ID: hexID(3), Pubkey: bob, FriendPubkeys: []string{carol}, CreatedAt: 10},
	}))
	wot, err := db.WebOfTrustPubkeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{carol}, wot)

	require.NoError(t, db.UpsertNip65(ctx, []models.Nip65{{
		ID:     hexID(4),
		Pubkey: me,
		Relays: []models.Nip65Relay{
			{URL: "wss://read.example", IsRead: true},
			{URL: "wss://write.example", IsWrite: true},
			{URL: "wss://both.example", IsRead: true, IsWrite: true},
		},
		CreatedAt: 10,
	}}))
	reads, err := db.ReadRelays(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://both.example", "wss://read.example"}, reads)
	writes, err := db.WriteRelays(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://both.example", "wss://write.example"}, writes)
}

func TestSetsReplacePerIdentifier(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertProfileSets(ctx, []models.ProfileSet{
		{ID: hexID(1), MyPubkey: me, Identifier: "devs", Title: "Devs", Pubkeys: []string{alice, bob}, CreatedAt: 10},
		{ID: hexID(2), MyPubkey: me, Identifier: "art", Title: "Art", Pubkeys: []string{carol}, CreatedAt: 10},
	}))
	require.NoError(t, db.UpsertProfileSets(ctx, []models.ProfileSet{
		{ID: hexID(3), MyPubkey: me, Identifier: "devs", Title: "Devs", Pubkeys: []string{bob}, CreatedAt: 20},
	}))
	devs, err := db.ProfileSetPubkeys(ctx, me, "devs")
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, devs)
	art, err := db.ProfileSetPubkeys(ctx, me, "art")
	require.NoError(t, err)
	assert.Equal(t, []string{carol}, art)

	require.NoError(t, db.UpsertTopicSets(ctx, []models.TopicSet{
		{ID: hexID(4), MyPubkey: me, Identifier: "news", Title: "News", Topics: []string{"go", "nostr"}, CreatedAt: 10},
	}))
	news, err := db.TopicSetTopics(ctx, me, "news")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "nostr"}, news)
}

func TestHomeFeedOrderingAndKeyset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertFriends(ctx, models.ContactList{ID: hexID(100), Pubkey: me, FriendPubkeys: []string{alice}, CreatedAt: 1}))
	require.NoError(t, db.UpsertTopics(ctx, models.TopicList{ID: hexID(101), MyPubkey: me, Topics: []string{"go"}, CreatedAt: 1}))
	require.NoError(t, db.InsertRootPosts(ctx, []models.RootPost{
		rootPost(1, alice, 100),
		rootPost(2, alice, 100),
		rootPost(3, alice, 100),
		rootPost(4, alice, 90),
		rootPost(5, bob, 95, "go"),
		rootPost(6, carol, 99),
		rootPost(7, me, 80),
	}))

	q := feedQuery(models.HomeFeed{}, 3)
	q.Until = 101
	page, err := db.RootPosts(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{hexID(3), hexID(2), hexID(1)}, ids(page))
	assert.True(t, page[0].AuthorIsFriend)

	last := page[len(page)-1]
	q.Until, q.BeforeID = last.CreatedAt, last.ID
	page, err = db.RootPosts(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{hexID(5), hexID(4), hexID(7)}, ids(page))
	assert.Equal(t, []string{"go"}, page[0].Topics)
	assert.False(t, page[0].AuthorIsFriend)
}

func TestFeedAggregates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	post := rootPost(1, alice, 100)
	require.NoError(t, db.InsertRootPosts(ctx, []models.RootPost{post}))
	require.NoError(t, db.UpsertVotes(ctx, []models.Vote{
		{ID: hexID(10), Pubkey: bob, PostID: post.ID, IsPositive: true, CreatedAt: 101},
		{ID: hexID(11), Pubkey: carol, PostID: post.ID, IsPositive: false, CreatedAt: 101},
		{ID: hexID(12), Pubkey: me, PostID: post.ID, IsPositive: true, CreatedAt: 101},
	}))
	require.NoError(t, db.InsertReplies(ctx, []models.Reply{
		{ID: hexID(20), Pubkey: bob, ParentID: post.ID, Content: "a", CreatedAt: 102},
		{ID: hexID(21), Pubkey: carol, ParentID: post.ID, Content: "b", CreatedAt: 103},
	}))
	require.NoError(t, db.UpsertBookmarks(ctx, models.BookmarkList{ID: hexID(30), MyPubkey: me, PostIDs: []string{post.ID}, CreatedAt: 1}))
	require.NoError(t, db.UpsertFriends(ctx, models.ContactList{ID: hexID(31), Pubkey: me, FriendPubkeys: []string{alice}, CreatedAt: 1}))
	require.NoError(t, db.UpsertProfiles(ctx, []models.Profile{
		{ID: hexID(40), Pubkey: alice, Metadata: models.Metadata{Name: "alice", DisplayName: "Alice"}, CreatedAt: 5},
	}))

	items, err := db.RootPosts(ctx, feedQuery(models.HomeFeed{}, 10))
	require.NoError(t, err)
	require.Len(t, items, 1)
	it := items[0]
	assert.Equal(t, 2, it.Upvotes)
	assert.Equal(t, 1, it.Downvotes)
	assert.Equal(t, 2, it.ReplyCount)
	assert.Equal(t, models.VoteUp, it.MyVote)
	assert.True(t, it.IsBookmarked)
	assert.True(t, it.AuthorIsFriend)
	assert.Equal(t, "Alice", it.AuthorName)
}

func TestCrossPostsAttachToOriginal(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	orig := rootPost(1, bob, 100)
	require.NoError(t, db.InsertRootPosts(ctx, []models.RootPost{orig}))
	require.NoError(t, db.InsertCrossPosts(ctx, []models.CrossPost{{
		ID: hexID(2), Pubkey: alice, CrossPostedID: orig.ID, CrossPostedPubkey: bob,
		Topics: []string{"go"}, CreatedAt: 110,
	}}))
	require.NoError(t, db.UpsertVotes(ctx, []models.Vote{
		{ID: hexID(3), Pubkey: carol, PostID: orig.ID, IsPositive: true, CreatedAt: 111},
	}))

	items, err := db.CrossPosts(ctx, feedQuery(models.TopicFeed{Topic: "go"}, 10))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ItemCross, items[0].Kind)
	assert.Equal(t, orig.Title, items[0].Title)
	assert.Equal(t, 1, items[0].Upvotes)
	assert.Equal(t, orig.ID, items[0].VoteTargetID())

	none, err := db.CrossPosts(ctx, feedQuery(models.InboxFeed{}, 10))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInboxAndBookmarkFeeds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	mine := rootPost(1, me, 100)
	mention := rootPost(2, bob, 101)
	mention.Mentions = []string{me}
	selfMention := rootPost(3, me, 102)
	selfMention.Mentions = []string{me}
	require.NoError(t, db.InsertRootPosts(ctx, []models.RootPost{mine, mention, selfMention}))
	require.NoError(t, db.InsertReplies(ctx, []models.Reply{
		{ID: hexID(10), Pubkey: bob, ParentID: mine.ID, Content: "hi", CreatedAt: 110},
		{ID: hexID(11), Pubkey: me, ParentID: mine.ID, Content: "self", CreatedAt: 111},
		{ID: hexID(12), Pubkey: carol, ParentID: hexID(11), Content: "nested", CreatedAt: 112},
		{ID: hexID(13), Pubkey: carol, ParentID: mention.ID, Content: "other", CreatedAt: 113},
	}))

	roots, err := db.RootPosts(ctx, feedQuery(models.InboxFeed{}, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{mention.ID}, ids(roots))

	replies, err := db.Replies(ctx, feedQuery(models.InboxFeed{}, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{hexID(12), hexID(10)}, ids(replies))
	assert.Equal(t, models.ItemReply, replies[0].Kind)

	require.NoError(t, db.UpsertBookmarks(ctx, models.BookmarkList{
		ID: hexID(20), MyPubkey: me, PostIDs: []string{mention.ID, hexID(13)}, CreatedAt: 1,
	}))
	roots, err = db.RootPosts(ctx, feedQuery(models.BookmarksFeed{}, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{mention.ID}, ids(roots))
	replies, err = db.Replies(ctx, feedQuery(models.BookmarksFeed{}, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{hexID(13)}, ids(replies))
	assert.True(t, replies[0].IsBookmarked)

	mainReplies, err := db.Replies(ctx, feedQuery(models.HomeFeed{}, 10))
	require.NoError(t, err)
	assert.Empty(t, mainReplies)
}

func TestListFeed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertProfileSets(ctx, []models.ProfileSet{
		{ID: hexID(50), MyPubkey: me, Identifier: "devs", Title: "Devs", Pubkeys: []string{alice}, CreatedAt: 1},
	}))
	require.NoError(t, db.UpsertTopicSets(ctx, []models.TopicSet{
		{ID: hexID(51), MyPubkey: me, Identifier: "devs", Title: "Devs", Topics: []string{"go"}, CreatedAt: 1},
	}))
	require.NoError(t, db.InsertRootPosts(ctx, []models.RootPost{
		rootPost(1, alice, 100),
		rootPost(2, bob, 101, "go"),
		rootPost(3, carol, 102, "rust"),
	}))

	items, err := db.RootPosts(ctx, feedQuery(models.ListFeed{Identifier: "devs"}, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{hexID(2), hexID(1)}, ids(items))
}

func TestCreatedAts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.InsertRootPosts(ctx, []models.RootPost{
		rootPost(1, alice, 100),
		rootPost(2, alice, 90),
		rootPost(3, alice, 80),
		rootPost(4, bob, 85),
	}))

	q := feedQuery(models.ProfileFeed{Pubkey: alice}, 5)
	q.Until = 90
	got, err := db.CreatedAts(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []nostr.Timestamp{90, 80}, got)
}

func TestProfilesNewestWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertProfiles(ctx, []models.Profile{
		{ID: hexID(2), Pubkey: alice, Metadata: models.Metadata{Name: "new"}, CreatedAt: 20},
	}))
	require.NoError(t, db.UpsertProfiles(ctx, []models.Profile{
		{ID: hexID(1), Pubkey: alice, Metadata: models.Metadata{Name: "old"}, CreatedAt: 10},
		{ID: hexID(3), Pubkey: bob, Metadata: models.Metadata{}, CreatedAt: 10},
	}))

	names, err := db.ProfileNames(ctx, []string{alice, bob, carol})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{alice: "new"}, names)
}

func TestUnsupportedSetting(t *testing.T) {
	db := newTestDB(t)
	_, err := db.RootPosts(context.Background(), feedQuery(nil, 10))
	require.Error(t, err)
}
