package nips

import (
	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
)

// NIP-02: Follow List
// https://github.com/nostr-protocol/nips/blob/master/02.md

// ParseContactList reads the followed pubkeys of a kind 3 event. Invalid p
// tags are skipped and an empty list is allowed.
func ParseContactList(evt *nostr.Event) (models.ContactList, error) {
	if evt.Kind != constants.KindContactList {
		return models.ContactList{}, ErrWrongKind
	}
	return models.ContactList{
		ID:            evt.ID,
		Pubkey:        evt.PubKey,
		FriendPubkeys: ValidHexValues(evt, constants.TagPubkey),
		CreatedAt:     evt.CreatedAt,
	}, nil
}
