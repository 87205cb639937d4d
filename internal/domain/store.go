package domain

import (
	"context"

	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
)

// PostWriter persists posts. Inserts are idempotent on the event id.
type PostWriter interface {
	InsertRootPosts(ctx context.Context, posts []models.RootPost) error
	InsertReplies(ctx context.Context, replies []models.Reply) error
	InsertCrossPosts(ctx context.Context, posts []models.CrossPost) error
}

// VoteWriter persists votes, one per (voter, post).
type VoteWriter interface {
	UpsertVotes(ctx context.Context, votes []models.Vote) error
}

// ListWriter persists replaceable list state. Older lists never overwrite
// newer ones.
type ListWriter interface {
	UpsertFriends(ctx context.Context, list models.ContactList) error
	UpsertWebOfTrust(ctx context.Context, lists []models.ContactList) error
	UpsertTopics(ctx context.Context, list models.TopicList) error
	UpsertNip65(ctx context.Context, lists []models.Nip65) error
	UpsertBookmarks(ctx context.Context, list models.BookmarkList) error
	UpsertProfileSets(ctx context.Context, sets []models.ProfileSet) error
	UpsertTopicSets(ctx context.Context, sets []models.TopicSet) error
}

// ProfileWriter persists profile metadata, newest per author.
type ProfileWriter interface {
	UpsertProfiles(ctx context.Context, profiles []models.Profile) error
}

// EventStore is every write capability the processor needs.
type EventStore interface {
	PostWriter
	VoteWriter
	ListWriter
	ProfileWriter
}

// FeedQuery selects rows strictly older than (Until, BeforeID).
type FeedQuery struct {
	Setting  models.FeedSetting
	MyPubkey string
	Until    nostr.Timestamp
	BeforeID string
	Limit    int
}

// FeedReader reads feed rows with their aggregates.
type FeedReader interface {
	RootPosts(ctx context.Context, q FeedQuery) ([]models.FeedItem, error)
	CrossPosts(ctx context.Context, q FeedQuery) ([]models.FeedItem, error)
	Replies(ctx context.Context, q FeedQuery) ([]models.FeedItem, error)
	// CreatedAts returns up to q.Limit timestamps at or below q.Until for the
	// setting, newest first.
	CreatedAts(ctx context.Context, q FeedQuery) ([]nostr.Timestamp, error)
}

// AccountReader reads the local user's social graph and preferences.
type AccountReader interface {
	FriendPubkeys(ctx context.Context, myPubkey string) ([]string, error)
	WebOfTrustPubkeys(ctx context.Context) ([]string, error)
	Topics(ctx context.Context, myPubkey string) ([]string, error)
	ReadRelays(ctx context.Context, pubkey string) ([]string, error)
	BookmarkIDs(ctx context.Context, myPubkey string) ([]string, error)
	ProfileSetPubkeys(ctx context.Context, myPubkey, identifier string) ([]string, error)
	TopicSetTopics(ctx context.Context, myPubkey, identifier string) ([]string, error)
	ProfileNames(ctx context.Context, pubkeys []string) (map[string]string, error)
}

// ChangeNotifier signals that persisted state changed.
type ChangeNotifier interface {
	Subscribe() (<-chan struct{}, func())
}
