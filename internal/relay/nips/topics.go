package nips

import (
	"strings"
	"unicode"

	"github.com/Shugur-Network/feedsync/internal/constants"
	nostr "github.com/nbd-wtf/go-nostr"
)

// IsBareTopic reports whether s is a non-empty run of letters, digits,
// underscores and hyphens.
func IsBareTopic(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// NormalizeTopic strips a leading '#', trims, truncates to MaxTopicLen runes
// and lowercases raw. It reports false when the result is not a bare topic.
func NormalizeTopic(raw string) (string, bool) {
	t := strings.TrimSpace(strings.TrimPrefix(raw, "#"))
	if r := []rune(t); len(r) > constants.MaxTopicLen {
		t = string(r[:constants.MaxTopicLen])
	}
	t = strings.ToLower(t)
	return t, IsBareTopic(t)
}

// NormalizeTopics normalizes and dedupes raw, keeping at most limit topics.
// A limit of zero keeps all.
func NormalizeTopics(raw []string, limit int) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t, ok := NormalizeTopic(r)
		if !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// PostTopics returns the hashtags of a post, capped at MaxTopics.
func PostTopics(evt *nostr.Event) []string {
	return NormalizeTopics(TagValues(evt, constants.TagTopic), constants.MaxTopics)
}
