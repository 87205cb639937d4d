package nips

import (
	"strings"

	nostr "github.com/nbd-wtf/go-nostr"
)

// TagValue returns tag[1] of the first tag named name.
func TagValue(evt *nostr.Event, name string) (string, bool) {
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1], true
		}
	}
	return "", false
}

// TagValues returns tag[1] of every tag named name, in order.
func TagValues(evt *nostr.Event, name string) []string {
	var values []string
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == name {
			values = append(values, tag[1])
		}
	}
	return values
}

// NormalizeHex lowercases s and reports whether it is a 32-byte hex value.
func NormalizeHex(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, nostr.IsValid32ByteHex(s)
}

// ValidHexValues keeps the valid 32-byte hex values of the tags named name,
// lowercased and without duplicates.
func ValidHexValues(evt *nostr.Event, name string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range TagValues(evt, name) {
		h, ok := NormalizeHex(v)
		if !ok {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
