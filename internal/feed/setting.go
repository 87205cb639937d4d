package feed

import (
	"fmt"
	"strings"

	"github.com/Shugur-Network/feedsync/internal/config"
	"github.com/Shugur-Network/feedsync/internal/models"
)

// ParseSetting reads a feed setting from command words such as
// "home", "topic golang" or "profile npub1...".
func ParseSetting(args []string) (models.FeedSetting, error) {
	if len(args) == 0 {
		return models.HomeFeed{}, nil
	}
	name := strings.ToLower(args[0])
	arg := func() (string, error) {
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			return "", fmt.Errorf("feed %q takes exactly one argument", name)
		}
		return strings.TrimSpace(args[1]), nil
	}
	noArg := func(s models.FeedSetting) (models.FeedSetting, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("feed %q takes no arguments", name)
		}
		return s, nil
	}

	switch name {
	case "home":
		return noArg(models.HomeFeed{})
	case "bookmarks":
		return noArg(models.BookmarksFeed{})
	case "inbox":
		return noArg(models.InboxFeed{})
	case "topic":
		topic, err := arg()
		if err != nil {
			return nil, err
		}
		return models.TopicFeed{Topic: strings.ToLower(strings.TrimPrefix(topic, "#"))}, nil
	case "profile":
		v, err := arg()
		if err != nil {
			return nil, err
		}
		pubkey, err := config.DecodePubkey(v)
		if err != nil {
			return nil, err
		}
		return models.ProfileFeed{Pubkey: pubkey}, nil
	case "list":
		id, err := arg()
		if err != nil {
			return nil, err
		}
		return models.ListFeed{Identifier: id}, nil
	}
	return nil, fmt.Errorf("unknown feed %q", args[0])
}
