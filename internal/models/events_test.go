package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewerIsOrderIndependent(t *testing.T) {
	a := ContactList{ID: "aa", Pubkey: "p", CreatedAt: 10}
	b := ContactList{ID: "bb", Pubkey: "p", CreatedAt: 10}
	c := ContactList{ID: "01", Pubkey: "p", CreatedAt: 11}

	assert.True(t, Newer(b, a))
	assert.False(t, Newer(a, b))
	assert.True(t, Newer(c, b))
	assert.False(t, Newer(b, c))
}

func TestReplaceKeys(t *testing.T) {
	assert.Equal(t, "v:post", Vote{Pubkey: "v", PostID: "post"}.ReplaceKey())
	assert.NotEqual(t,
		ProfileSet{MyPubkey: "me", Identifier: "a"}.ReplaceKey(),
		ProfileSet{MyPubkey: "me", Identifier: "b"}.ReplaceKey())
}

func TestFeedOrdering(t *testing.T) {
	newer := FeedItem{ID: "01", CreatedAt: 20}
	older := FeedItem{ID: "ff", CreatedAt: 10}
	tieHigh := FeedItem{ID: "bb", CreatedAt: 10}

	assert.True(t, Before(newer, older))
	assert.True(t, Before(older, tieHigh), "equal timestamps order by id desc")
	assert.False(t, Before(tieHigh, older))
	assert.True(t, Before(tieHigh, FeedItem{ID: "aa", CreatedAt: 10}))
}

func TestVoteTarget(t *testing.T) {
	assert.Equal(t, "orig", FeedItem{Kind: ItemCross, ID: "x", CrossPostedID: "orig"}.VoteTargetID())
	assert.Equal(t, "x", FeedItem{Kind: ItemRoot, ID: "x"}.VoteTargetID())
}

func TestMetadataBestName(t *testing.T) {
	assert.Equal(t, "Alice", Metadata{Name: "alice", DisplayName: "Alice"}.BestName())
	assert.Equal(t, "bob", Metadata{Name: "bob"}.BestName())
}
