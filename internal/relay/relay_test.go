package relay

import (
	"context"
	"sync"
	"testing"

	"github.com/Shugur-Network/feedsync/internal/domain"
	nostr "github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/require"
)

const (
	idA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	idB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	idC = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
	pkF = "1111111111111111111111111111111111111111111111111111111111111111"
)

type staticAccount string

func (a staticAccount) MyPubkey() string { return string(a) }

type keypair struct {
	sk, pk string
}

func newKeypair(t *testing.T) keypair {
	t.Helper()
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	require.NoError(t, err)
	return keypair{sk: sk, pk: pk}
}

func (k keypair) sign(t *testing.T, kind int, content string, tags nostr.Tags) *nostr.Event {
	t.Helper()
	evt := &nostr.Event{
		PubKey:    k.pk,
		CreatedAt: nostr.Timestamp(1700000000),
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
	require.NoError(t, evt.Sign(k.sk))
	return evt
}

type openCall struct {
	relayURL string
	filters  []nostr.Filter
	opts     domain.SubOptions
}

// recordingOpener captures Subscribe calls instead of talking to relays.
type recordingOpener struct {
	mu    sync.Mutex
	calls []openCall
}

func (o *recordingOpener) Subscribe(relayURL string, filters []nostr.Filter, opts domain.SubOptions) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, openCall{relayURL: relayURL, filters: cloneFilters(filters), opts: opts})
	return "sub"
}

func (o *recordingOpener) Calls() []openCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]openCall(nil), o.calls...)
}

// fakeAccountStore serves fixed account data.
type fakeAccountStore struct {
	friends    []string
	wot        []string
	topics     []string
	readRelays []string
	bookmarks  []string
	setPubkeys map[string][]string
	setTopics  map[string][]string
	names      map[string]string
}

func (s *fakeAccountStore) FriendPubkeys(context.Context, string) ([]string, error) {
	return s.friends, nil
}
func (s *fakeAccountStore) WebOfTrustPubkeys(context.Context) ([]string, error) { return s.wot, nil }
func (s *fakeAccountStore) Topics(context.Context, string) ([]string, error)    { return s.topics, nil }
func (s *fakeAccountStore) ReadRelays(context.Context, string) ([]string, error) {
	return s.readRelays, nil
}
func (s *fakeAccountStore) BookmarkIDs(context.Context, string) ([]string, error) {
	return s.bookmarks, nil
}
func (s *fakeAccountStore) ProfileSetPubkeys(_ context.Context, _, id string) ([]string, error) {
	return s.setPubkeys[id], nil
}
func (s *fakeAccountStore) TopicSetTopics(_ context.Context, _, id string) ([]string, error) {
	return s.setTopics[id], nil
}
func (s *fakeAccountStore) ProfileNames(_ context.Context, pubkeys []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pk := range pubkeys {
		if name, ok := s.names[pk]; ok {
			out[pk] = name
		}
	}
	return out, nil
}
