package feed

import (
	"slices"
	"time"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
)

// OverFetch is how many stored timestamps are inspected to place the relay
// window for a page of size items.
func OverFetch(size int) int {
	return size * constants.OverFetchNumerator / constants.OverFetchDenominator
}

// RelayLimit is the limit sent with a feed subscription.
func RelayLimit(setting models.FeedSetting, size int) int {
	if _, ok := setting.(models.TopicFeed); ok {
		return size * constants.TopicFeedLimitFactor
	}
	return size * constants.FeedLimitFactor
}

// AdaptiveSince picks the lower bound of the relay window from the
// timestamps already stored at or below until.
//
// With fewer than overFetch rows the local copy is thin and everything is
// asked for again. When the stored rows span no more than threshold the
// window starts just above the newest of them. Otherwise it starts just
// above the oldest.
func AdaptiveSince(createdAts []nostr.Timestamp, overFetch int, threshold time.Duration) nostr.Timestamp {
	if len(createdAts) == 0 || len(createdAts) < overFetch {
		return 0
	}
	lo, hi := slices.Min(createdAts), slices.Max(createdAts)
	// Compared in seconds; relays may send created_at values far enough apart
	// to overflow a Duration.
	if int64(hi-lo) <= int64(threshold/time.Second) {
		return hi + 1
	}
	return lo + 1
}

// Cursor is the keyset position after the last item shown.
type Cursor struct {
	Until    nostr.Timestamp
	BeforeID string
}

// IsZero reports whether the cursor points at the head of the feed.
func (c Cursor) IsZero() bool {
	return c.Until == 0 && c.BeforeID == ""
}

// CursorAfter returns the position following the last item of page, or the
// zero cursor when page is empty.
func CursorAfter(page models.FeedPage) Cursor {
	if len(page) == 0 {
		return Cursor{}
	}
	last := page[len(page)-1]
	return Cursor{Until: last.CreatedAt, BeforeID: last.ID}
}
