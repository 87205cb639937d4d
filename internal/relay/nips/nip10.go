package nips

import (
	"fmt"
	"strings"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
)

// NIP-10: Text notes and threads
// https://github.com/nostr-protocol/nips/blob/master/10.md

// ReplyParentID returns the event a text note answers. Marked tags win
// ("reply" over "root"); otherwise the last unmarked e tag is used, which
// is the deprecated positional scheme some clients still emit.
func ReplyParentID(evt *nostr.Event) (string, bool) {
	if evt.Kind != constants.KindTextNote {
		return "", false
	}

	var candidates []nostr.Tag
	for _, tag := range evt.Tags {
		if len(tag) < 2 || tag[0] != constants.TagEvent {
			continue
		}
		marker := ""
		if len(tag) >= 4 {
			marker = tag[3]
		}
		if marker != "" && marker != constants.MarkerReply && marker != constants.MarkerRoot {
			continue
		}
		if _, ok := NormalizeHex(tag[1]); !ok {
			continue
		}
		candidates = append(candidates, tag)
	}
	if len(candidates) == 0 {
		return "", false
	}

	pick := func(marker string) (string, bool) {
		for _, tag := range candidates {
			if len(tag) >= 4 && tag[3] == marker {
				id, _ := NormalizeHex(tag[1])
				return id, true
			}
		}
		return "", false
	}
	if id, ok := pick(constants.MarkerReply); ok {
		return id, true
	}
	if id, ok := pick(constants.MarkerRoot); ok {
		return id, true
	}
	id, _ := NormalizeHex(candidates[len(candidates)-1][1])
	return id, true
}

// ParseTextNote turns a kind 1 event into a RootPost or a Reply. A note is a
// reply only when ReplyParentID finds a parent; mention-only or malformed e
// tags leave it a root post.
func ParseTextNote(evt *nostr.Event, relayURL string) (models.ValidatedEvent, error) {
	if evt.Kind != constants.KindTextNote {
		return nil, ErrWrongKind
	}
	mentions := ValidHexValues(evt, constants.TagPubkey)

	parent, isReply := ReplyParentID(evt)
	if !isReply {
		title, ok := TagValue(evt, constants.TagTitle)
		if !ok {
			title, _ = TagValue(evt, constants.TagSubject)
		}
		title = strings.TrimSpace(title)
		content := strings.TrimSpace(evt.Content)
		if title == "" && content == "" {
			return nil, ErrEmptyPost
		}
		return models.RootPost{
			ID:        evt.ID,
			Pubkey:    evt.PubKey,
			Topics:    PostTopics(evt),
			Title:     title,
			Content:   content,
			Mentions:  mentions,
			CreatedAt: evt.CreatedAt,
			RelayURL:  relayURL,
		}, nil
	}

	if parent == evt.ID {
		return nil, fmt.Errorf("%w: reply references itself", ErrInvalidParent)
	}
	content := strings.TrimSpace(evt.Content)
	if content == "" {
		return nil, ErrEmptyPost
	}
	return models.Reply{
		ID:        evt.ID,
		Pubkey:    evt.PubKey,
		ParentID:  parent,
		Content:   content,
		Mentions:  mentions,
		CreatedAt: evt.CreatedAt,
		RelayURL:  relayURL,
	}, nil
}
