package nips

import (
	"strings"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
)

// NIP-51: Lists
// https://github.com/nostr-protocol/nips/blob/master/51.md

// IsOwnOnlyKind reports whether kind is a list that is only kept when the
// local user authored it.
func IsOwnOnlyKind(kind int) bool {
	switch kind {
	case constants.KindTopicList, constants.KindBookmarkList, constants.KindProfileSet, constants.KindTopicSet:
		return true
	}
	return false
}

// ParseTopicList reads followed topics from a kind 10015 interest list.
func ParseTopicList(evt *nostr.Event) (models.TopicList, error) {
	if evt.Kind != constants.KindTopicList {
		return models.TopicList{}, ErrWrongKind
	}
	return models.TopicList{
		ID:        evt.ID,
		MyPubkey:  evt.PubKey,
		Topics:    NormalizeTopics(TagValues(evt, constants.TagTopic), 0),
		CreatedAt: evt.CreatedAt,
	}, nil
}

// ParseBookmarkList reads bookmarked event ids from a kind 10003 list.
func ParseBookmarkList(evt *nostr.Event) (models.BookmarkList, error) {
	if evt.Kind != constants.KindBookmarkList {
		return models.BookmarkList{}, ErrWrongKind
	}
	return models.BookmarkList{
		ID:        evt.ID,
		MyPubkey:  evt.PubKey,
		PostIDs:   ValidHexValues(evt, constants.TagEvent),
		CreatedAt: evt.CreatedAt,
	}, nil
}

func setHeader(evt *nostr.Event) (identifier, title string, err error) {
	identifier, _ = TagValue(evt, constants.TagIdentifier)
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", "", ErrMissingIdentifier
	}
	title, _ = TagValue(evt, constants.TagTitle)
	title = strings.TrimSpace(title)
	if title == "" {
		title = identifier
	}
	return identifier, title, nil
}

// ParseProfileSet reads a kind 30000 follow set.
func ParseProfileSet(evt *nostr.Event) (models.ProfileSet, error) {
	if evt.Kind != constants.KindProfileSet {
		return models.ProfileSet{}, ErrWrongKind
	}
	identifier, title, err := setHeader(evt)
	if err != nil {
		return models.ProfileSet{}, err
	}
	return models.ProfileSet{
		ID:         evt.ID,
		MyPubkey:   evt.PubKey,
		Identifier: identifier,
		Title:      title,
		Pubkeys:    ValidHexValues(evt, constants.TagPubkey),
		CreatedAt:  evt.CreatedAt,
	}, nil
}

// ParseTopicSet reads a kind 30015 interest set.
func ParseTopicSet(evt *nostr.Event) (models.TopicSet, error) {
	if evt.Kind != constants.KindTopicSet {
		return models.TopicSet{}, ErrWrongKind
	}
	identifier, title, err := setHeader(evt)
	if err != nil {
		return models.TopicSet{}, err
	}
	return models.TopicSet{
		ID:         evt.ID,
		MyPubkey:   evt.PubKey,
		Identifier: identifier,
		Title:      title,
		Topics:     NormalizeTopics(TagValues(evt, constants.TagTopic), 0),
		CreatedAt:  evt.CreatedAt,
	}, nil
}
