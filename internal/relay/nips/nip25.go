package nips

import (
	"fmt"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
)

// NIP-25: Reactions
// https://github.com/nostr-protocol/nips/blob/master/25.md

// ParseVote reads a reaction as a vote on its first e tag. Content "-" is a
// downvote; anything else, empty included, counts as an upvote.
func ParseVote(evt *nostr.Event) (models.Vote, error) {
	if evt.Kind != constants.KindReaction {
		return models.Vote{}, ErrWrongKind
	}
	raw, ok := TagValue(evt, constants.TagEvent)
	if !ok {
		return models.Vote{}, fmt.Errorf("%w: reaction without e tag", ErrMalformed)
	}
	target, ok := NormalizeHex(raw)
	if !ok {
		return models.Vote{}, fmt.Errorf("%w: reaction target is not an event id", ErrMalformed)
	}
	return models.Vote{
		ID:         evt.ID,
		Pubkey:     evt.PubKey,
		PostID:     target,
		IsPositive: evt.Content != constants.Downvote,
		CreatedAt:  evt.CreatedAt,
	}, nil
}
