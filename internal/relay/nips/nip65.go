package nips

import (
	"strings"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
)

// NIP-65: Relay List Metadata
// https://github.com/nostr-protocol/nips/blob/master/65.md

// NormalizeRelayURL trims raw and strips trailing slashes and spaces. It
// reports false for anything that is not a plausible websocket URL.
func NormalizeRelayURL(raw string) (string, bool) {
	u := strings.TrimSpace(raw)
	if !strings.HasPrefix(u, "ws") || len(u) < constants.MinRelayURLLen {
		return "", false
	}
	return strings.TrimRight(u, "/ "), true
}

// ParseRelayList reads the r tags of a kind 10002 event. Entries without a
// marker are both read and write; duplicates keep the first occurrence.
func ParseRelayList(evt *nostr.Event) (models.Nip65, error) {
	if evt.Kind != constants.KindRelayList {
		return models.Nip65{}, ErrWrongKind
	}

	seen := make(map[string]struct{})
	var relays []models.Nip65Relay
	for _, tag := range evt.Tags {
		if len(tag) < 2 || tag[0] != constants.TagRelay {
			continue
		}
		url, ok := NormalizeRelayURL(tag[1])
		if !ok {
			continue
		}
		marker := ""
		if len(tag) >= 3 {
			marker = tag[2]
		}
		entry := models.Nip65Relay{
			URL:     url,
			IsRead:  marker == "" || marker == constants.MarkerRead,
			IsWrite: marker == "" || marker == constants.MarkerWrite,
		}
		if !entry.IsRead && !entry.IsWrite {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		relays = append(relays, entry)
	}

	if len(relays) == 0 {
		return models.Nip65{}, ErrNoRelays
	}
	return models.Nip65{
		ID:        evt.ID,
		Pubkey:    evt.PubKey,
		Relays:    relays,
		CreatedAt: evt.CreatedAt,
	}, nil
}
