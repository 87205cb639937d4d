package nips

import (
	"fmt"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
)

// NIP-18: Reposts
// https://github.com/nostr-protocol/nips/blob/master/18.md

// IsRepost reports whether kind is a repost or generic repost.
func IsRepost(kind int) bool {
	return kind == constants.KindRepost || kind == constants.KindGenericRepost
}

// ParseRepost reads a cross-post. The first e tag names the reposted event.
func ParseRepost(evt *nostr.Event, relayURL string) (models.CrossPost, error) {
	if !IsRepost(evt.Kind) {
		return models.CrossPost{}, ErrWrongKind
	}
	raw, ok := TagValue(evt, constants.TagEvent)
	if !ok {
		return models.CrossPost{}, fmt.Errorf("%w: repost without e tag", ErrInvalidParent)
	}
	target, ok := NormalizeHex(raw)
	if !ok || target == evt.ID {
		return models.CrossPost{}, fmt.Errorf("%w: bad repost target", ErrInvalidParent)
	}

	var author string
	if pks := ValidHexValues(evt, constants.TagPubkey); len(pks) > 0 {
		author = pks[0]
	}

	return models.CrossPost{
		ID:                evt.ID,
		Pubkey:            evt.PubKey,
		CrossPostedID:     target,
		CrossPostedPubkey: author,
		Topics:            PostTopics(evt),
		CreatedAt:         evt.CreatedAt,
		RelayURL:          relayURL,
	}, nil
}
