package feed

import (
	"sync"
	"time"

	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/Shugur-Network/feedsync/internal/storage"
)

type forced[V comparable] struct {
	value   V
	expires time.Time
}

// Overrides holds the local user's optimistic actions until the network
// confirms them or they expire. Feeds render them in place of persisted
// state so an action shows before the relay round trip completes.
type Overrides struct {
	ttl     time.Duration
	now     func() time.Time
	changes *storage.Notifier

	mu        sync.RWMutex
	votes     map[string]forced[models.VoteState]
	follows   map[string]forced[bool]
	bookmarks map[string]forced[bool]
}

// NewOverrides creates an empty override set whose entries live for ttl.
func NewOverrides(ttl time.Duration) *Overrides {
	return &Overrides{
		ttl:       ttl,
		now:       time.Now,
		changes:   storage.NewNotifier(),
		votes:     make(map[string]forced[models.VoteState]),
		follows:   make(map[string]forced[bool]),
		bookmarks: make(map[string]forced[bool]),
	}
}

// Subscribe signals every override change, expiry included.
func (o *Overrides) Subscribe() (<-chan struct{}, func()) {
	return o.changes.Subscribe()
}

// ForceVote records the local user's vote on postID.
func (o *Overrides) ForceVote(postID string, vote models.VoteState) {
	o.mu.Lock()
	o.votes[postID] = forced[models.VoteState]{value: vote, expires: o.now().Add(o.ttl)}
	o.mu.Unlock()
	o.changed()
}

// ForceFollow records that the local user (un)followed pubkey.
func (o *Overrides) ForceFollow(pubkey string, follow bool) {
	o.mu.Lock()
	o.follows[pubkey] = forced[bool]{value: follow, expires: o.now().Add(o.ttl)}
	o.mu.Unlock()
	o.changed()
}

// ForceBookmark records that the local user (un)bookmarked postID.
func (o *Overrides) ForceBookmark(postID string, bookmarked bool) {
	o.mu.Lock()
	o.bookmarks[postID] = forced[bool]{value: bookmarked, expires: o.now().Add(o.ttl)}
	o.mu.Unlock()
	o.changed()
}

func (o *Overrides) changed() {
	o.changes.Notify()
	time.AfterFunc(o.ttl, o.expire)
}

// expire drops timed out entries and signals if any were dropped.
func (o *Overrides) expire() {
	now := o.now()
	o.mu.Lock()
	n := dropExpired(o.votes, now) + dropExpired(o.follows, now) + dropExpired(o.bookmarks, now)
	o.mu.Unlock()
	if n > 0 {
		o.changes.Notify()
	}
}

func dropExpired[V comparable](m map[string]forced[V], now time.Time) int {
	n := 0
	for k, f := range m {
		if !now.Before(f.expires) {
			delete(m, k)
			n++
		}
	}
	return n
}

// Len reports how many overrides are live.
func (o *Overrides) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.votes) + len(o.follows) + len(o.bookmarks)
}

// Apply overlays live overrides onto items. Vote counts move with the
// forced vote. An override that persisted state already agrees with is
// confirmed and dropped.
func (o *Overrides) Apply(items []models.FeedItem) []models.FeedItem {
	now := o.now()
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.votes)+len(o.follows)+len(o.bookmarks) == 0 {
		return items
	}

	confirmedVotes := map[string]bool{}
	confirmedFollows := map[string]bool{}
	confirmedBookmarks := map[string]bool{}

	for i := range items {
		it := &items[i]
		target := it.VoteTargetID()

		if f, ok := o.votes[target]; ok && now.Before(f.expires) {
			if it.MyVote == f.value {
				confirmedVotes[target] = true
			} else {
				applyVote(it, f.value)
			}
		}
		if f, ok := o.follows[it.Pubkey]; ok && now.Before(f.expires) {
			if it.AuthorIsFriend == f.value {
				confirmedFollows[it.Pubkey] = true
			} else {
				it.AuthorIsFriend = f.value
			}
		}
		if f, ok := o.bookmarks[target]; ok && now.Before(f.expires) {
			if it.IsBookmarked == f.value {
				confirmedBookmarks[target] = true
			} else {
				it.IsBookmarked = f.value
			}
		}
	}

	for id := range confirmedVotes {
		delete(o.votes, id)
	}
	for pk := range confirmedFollows {
		delete(o.follows, pk)
	}
	for id := range confirmedBookmarks {
		delete(o.bookmarks, id)
	}
	return items
}

// applyVote moves the item's counts from its persisted vote to vote.
func applyVote(it *models.FeedItem, vote models.VoteState) {
	switch it.MyVote {
	case models.VoteUp:
		it.Upvotes--
	case models.VoteDown:
		it.Downvotes--
	}
	switch vote {
	case models.VoteUp:
		it.Upvotes++
	case models.VoteDown:
		it.Downvotes++
	}
	it.Upvotes = max(it.Upvotes, 0)
	it.Downvotes = max(it.Downvotes, 0)
	it.MyVote = vote
}
