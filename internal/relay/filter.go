package relay

import (
	"fmt"
	"slices"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/relay/nips"
	nostr "github.com/nbd-wtf/go-nostr"
)

// cloneFilter deep-copies f so the copy shares no slices or maps with it.
func cloneFilter(f nostr.Filter) nostr.Filter {
	c := nostr.Filter{
		IDs:       slices.Clone(f.IDs),
		Kinds:     slices.Clone(f.Kinds),
		Authors:   slices.Clone(f.Authors),
		Limit:     f.Limit,
		Search:    f.Search,
		LimitZero: f.LimitZero,
	}
	if f.Tags != nil {
		c.Tags = make(nostr.TagMap, len(f.Tags))
		for k, v := range f.Tags {
			c.Tags[k] = slices.Clone(v)
		}
	}
	if f.Since != nil {
		since := *f.Since
		c.Since = &since
	}
	if f.Until != nil {
		until := *f.Until
		c.Until = &until
	}
	return c
}

func cloneFilters(filters []nostr.Filter) []nostr.Filter {
	out := make([]nostr.Filter, len(filters))
	for i, f := range filters {
		out[i] = cloneFilter(f)
	}
	return out
}

// ValidateFilter checks an outbound filter before it is sent to a relay.
func ValidateFilter(f nostr.Filter) error {
	if len(f.IDs) == 0 &&
		len(f.Authors) == 0 &&
		len(f.Kinds) == 0 &&
		len(f.Tags) == 0 {
		return fmt.Errorf("filter must have at least one condition")
	}

	for _, id := range f.IDs {
		if !nostr.IsValid32ByteHex(id) {
			return fmt.Errorf("invalid ID format: %s", id)
		}
	}

	for _, author := range f.Authors {
		if !nostr.IsValid32ByteHex(author) {
			return fmt.Errorf("invalid author pubkey: %s", author)
		}
	}

	for _, kind := range f.Kinds {
		if kind < 0 || kind > 65535 {
			return fmt.Errorf("invalid event kind: %d", kind)
		}
	}

	for tagName, values := range f.Tags {
		if len(values) == 0 {
			return fmt.Errorf("empty values for tag '%s'", tagName)
		}
	}

	if f.Since != nil && f.Until != nil && *f.Since > *f.Until {
		return fmt.Errorf("invalid time range: 'since' is after 'until'")
	}

	return nil
}

// matchFilters checks evt against the filters of its subscription. A reply
// must additionally match a filter that asked for its parent, or for the
// reply itself by id.
func matchFilters(evt *nostr.Event, filters []nostr.Filter) error {
	parent, isReply := nips.ReplyParentID(evt)

	matched := false
	for _, f := range filters {
		if !f.Matches(evt) {
			continue
		}
		matched = true
		if !isReply {
			return nil
		}
		if slices.Contains(f.Tags[constants.TagEvent], parent) || slices.Contains(f.IDs, evt.ID) {
			return nil
		}
	}

	if matched {
		return ErrUnrequestedReply
	}
	return ErrFilterMismatch
}
