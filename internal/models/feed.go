package models

import "github.com/nbd-wtf/go-nostr"

// ItemKind distinguishes the rows a feed page can hold.
type ItemKind string

const (
	ItemRoot  ItemKind = "root"
	ItemCross ItemKind = "cross"
	ItemReply ItemKind = "reply"
)

// VoteState is the local user's vote on an item.
type VoteState int8

const (
	VoteNone VoteState = 0
	VoteUp   VoteState = 1
	VoteDown VoteState = -1
)

// FeedItem is one row of a feed page.
type FeedItem struct {
	Kind              ItemKind
	ID                string
	Pubkey            string
	ParentID          string // replies
	CrossPostedID     string // cross-posts
	CrossPostedPubkey string
	Title             string
	Content           string
	Topics            []string
	CreatedAt         nostr.Timestamp
	Upvotes           int
	Downvotes         int
	ReplyCount        int
	MyVote            VoteState
	AuthorIsFriend    bool
	IsBookmarked      bool
	AuthorName        string
	RelayURL          string
}

// VoteTargetID is the post votes and replies attach to. For cross-posts
// that is the reposted post.
func (f FeedItem) VoteTargetID() string {
	if f.Kind == ItemCross && f.CrossPostedID != "" {
		return f.CrossPostedID
	}
	return f.ID
}

// FeedPage is ordered by (CreatedAt desc, ID desc).
type FeedPage []FeedItem

// Before reports whether a sorts ahead of b in a feed.
func Before(a, b FeedItem) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID > b.ID
}

// FeedSetting selects what a feed shows. The set of variants is closed.
type FeedSetting interface {
	Name() string
	isFeedSetting()
}

// HomeFeed shows posts by friends and posts in followed topics.
type HomeFeed struct{}

// TopicFeed shows posts tagged with Topic.
type TopicFeed struct{ Topic string }

// ProfileFeed shows posts by one author.
type ProfileFeed struct{ Pubkey string }

// ListFeed shows posts matching one of the local user's sets.
type ListFeed struct{ Identifier string }

// BookmarksFeed shows bookmarked root posts and replies.
type BookmarksFeed struct{}

// InboxFeed shows root posts mentioning the local user and replies to the
// local user's posts.
type InboxFeed struct{}

func (HomeFeed) Name() string      { return "home" }
func (TopicFeed) Name() string     { return "topic" }
func (ProfileFeed) Name() string   { return "profile" }
func (ListFeed) Name() string      { return "list" }
func (BookmarksFeed) Name() string { return "bookmarks" }
func (InboxFeed) Name() string     { return "inbox" }

func (HomeFeed) isFeedSetting()      {}
func (TopicFeed) isFeedSetting()     {}
func (ProfileFeed) isFeedSetting()   {}
func (ListFeed) isFeedSetting()      {}
func (BookmarksFeed) isFeedSetting() {}
func (InboxFeed) isFeedSetting()     {}

// IsMainFeed reports whether the setting reads root posts and cross-posts
// rather than root posts and replies.
func IsMainFeed(s FeedSetting) bool {
	switch s.(type) {
	case HomeFeed, TopicFeed, ProfileFeed, ListFeed:
		return true
	}
	return false
}

// PageQuery asks for Size items strictly older than (Until, BeforeID).
// A zero Until means now. BeforeID breaks created_at ties for keyset paging.
type PageQuery struct {
	Setting  FeedSetting
	Until    nostr.Timestamp
	BeforeID string
	Size     int
}
