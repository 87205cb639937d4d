package relay

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Shugur-Network/feedsync/internal/metrics"
	"github.com/Shugur-Network/feedsync/internal/models"
	nostr "github.com/nbd-wtf/go-nostr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatorFixture struct {
	registry  *FilterRegistry
	seen      *SeenCache
	validator *EventValidator
	me        keypair
}

func newValidatorFixture(t *testing.T) *validatorFixture {
	t.Helper()
	seen, err := NewSeenCache(1000)
	require.NoError(t, err)
	me := newKeypair(t)
	registry := NewFilterRegistry()
	return &validatorFixture{
		registry:  registry,
		seen:      seen,
		validator: NewEventValidator(registry, seen, staticAccount(me.pk)),
		me:        me,
	}
}

func rejected(reason string) float64 {
	return testutil.ToFloat64(metrics.EventsRejected.WithLabelValues(reason))
}

func TestAdmitReplyEndToEnd(t *testing.T) {
	f := newValidatorFixture(t)
	require.True(t, f.registry.Register("thread", []nostr.Filter{{
		Kinds: []int{1},
		Tags:  nostr.TagMap{"e": {idA}},
	}}))
	author := newKeypair(t)

	empty := author.sign(t, 1, "", nostr.Tags{{"e", idA, "", "reply"}})
	assert.Nil(t, f.validator.Admit(empty, "thread", "wss://r.example"))
	assert.False(t, f.seen.Contains(empty.ID), "rejected events must not be marked seen")

	hello := author.sign(t, 1, "hello", nostr.Tags{{"e", idA, "", "reply"}})
	got := f.validator.Admit(hello, "thread", "wss://r.example")
	require.NotNil(t, got)
	reply, ok := got.(models.Reply)
	require.True(t, ok)
	assert.Equal(t, idA, reply.ParentID)
	assert.Equal(t, "hello", reply.Content)

	before := rejected(ReasonSeen)
	assert.Nil(t, f.validator.Admit(hello, "thread", "wss://other.example"))
	assert.Equal(t, before+1, rejected(ReasonSeen))
}

func TestAdmitRootPostWithMentionTags(t *testing.T) {
	f := newValidatorFixture(t)
	require.True(t, f.registry.Register("home", []nostr.Filter{{Kinds: []int{1}}}))
	author := newKeypair(t)

	quoting := author.sign(t, 1, "look at this", nostr.Tags{{"e", idA, "", "mention"}})
	got := f.validator.Admit(quoting, "home", "wss://r.example")
	require.NotNil(t, got)
	post, ok := got.(models.RootPost)
	require.True(t, ok)
	assert.Equal(t, "look at this", post.Content)

	malformed := author.sign(t, 1, "broken client", nostr.Tags{{"e", "not-an-event-id"}})
	got = f.validator.Admit(malformed, "home", "wss://r.example")
	require.NotNil(t, got)
	assert.IsType(t, models.RootPost{}, got)
}

func TestAdmitConcurrentDuplicate(t *testing.T) {
	f := newValidatorFixture(t)
	require.True(t, f.registry.Register("home", []nostr.Filter{{Kinds: []int{1}}}))
	evt := newKeypair(t).sign(t, 1, "delivered by every relay", nil)

	const relays = 16
	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
		start    = make(chan struct{})
	)
	for i := 0; i < relays; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if f.validator.Admit(evt, "home", "wss://r.example") != nil {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
	assert.True(t, f.seen.Contains(evt.ID))
}

func TestAdmitUnknownSubscription(t *testing.T) {
	f := newValidatorFixture(t)
	evt := newKeypair(t).sign(t, 1, "post", nil)

	before := rejected(ReasonUnknownSubscription)
	assert.Nil(t, f.validator.Admit(evt, "never-opened", "wss://r.example"))
	assert.Equal(t, before+1, rejected(ReasonUnknownSubscription))
}

func TestAdmitFilterContainment(t *testing.T) {
	f := newValidatorFixture(t)
	author := newKeypair(t)
	require.True(t, f.registry.Register("votes", []nostr.Filter{{Kinds: []int{7}}}))
	require.True(t, f.registry.Register("thread", []nostr.Filter{{
		Kinds: []int{1},
		Tags:  nostr.TagMap{"e": {idA}},
	}}))

	t.Run("kind outside filter", func(t *testing.T) {
		before := rejected(ReasonFilterMismatch)
		evt := author.sign(t, 1, "root", nil)
		assert.Nil(t, f.validator.Admit(evt, "votes", "wss://r.example"))
		assert.Equal(t, before+1, rejected(ReasonFilterMismatch))
	})

	t.Run("reply to a parent nobody asked for", func(t *testing.T) {
		before := rejected(ReasonFilterMismatch)
		evt := author.sign(t, 1, "smuggled", nostr.Tags{{"e", idA, "", "root"}, {"e", idB, "", "reply"}})
		assert.Nil(t, f.validator.Admit(evt, "thread", "wss://r.example"))
		assert.Equal(t, before+1, rejected(ReasonFilterMismatch))
	})

	t.Run("reply fetched by its own id", func(t *testing.T) {
		evt := author.sign(t, 1, "bookmarked reply", nostr.Tags{{"e", idB}})
		require.True(t, f.registry.Register("pinned", []nostr.Filter{{IDs: []string{evt.ID}}}))
		assert.NotNil(t, f.validator.Admit(evt, "pinned", "wss://r.example"))
	})
}

func TestAdmitBadSignature(t *testing.T) {
	f := newValidatorFixture(t)
	require.True(t, f.registry.Register("s", []nostr.Filter{{Kinds: []int{1}}}))
	evt := newKeypair(t).sign(t, 1, "post", nil)
	evt.Sig = newKeypair(t).sign(t, 1, "post", nil).Sig

	before := rejected(ReasonBadSignature)
	assert.Nil(t, f.validator.Admit(evt, "s", "wss://r.example"))
	assert.Equal(t, before+1, rejected(ReasonBadSignature))
	assert.False(t, f.seen.Contains(evt.ID))
}

func TestAdmitSignatureCheckedLast(t *testing.T) {
	f := newValidatorFixture(t)
	require.True(t, f.registry.Register("s", []nostr.Filter{{Kinds: []int{1}}}))
	verified := 0
	f.validator.verify = func(*nostr.Event) error {
		verified++
		return nil
	}

	assert.Nil(t, f.validator.Admit(newKeypair(t).sign(t, 1, " ", nil), "s", "wss://r.example"))
	assert.Zero(t, verified, "structural rejection happens before signature work")

	assert.NotNil(t, f.validator.Admit(newKeypair(t).sign(t, 1, "ok", nil), "s", "wss://r.example"))
	assert.Equal(t, 1, verified)
}

func TestAdmitOwnOnlyLists(t *testing.T) {
	f := newValidatorFixture(t)
	require.True(t, f.registry.Register("account", []nostr.Filter{{Kinds: []int{10015, 10003, 30000}}}))

	stranger := newKeypair(t).sign(t, 10015, "", nostr.Tags{{"t", "go"}})
	before := rejected(ReasonNotOwnList)
	assert.Nil(t, f.validator.Admit(stranger, "account", "wss://r.example"))
	assert.Equal(t, before+1, rejected(ReasonNotOwnList))

	mine := f.me.sign(t, 10015, "", nostr.Tags{{"t", "Go"}, {"t", "#nostr"}})
	got := f.validator.Admit(mine, "account", "wss://r.example")
	require.NotNil(t, got)
	assert.Equal(t, []string{"go", "nostr"}, got.(models.TopicList).Topics)

	set := f.me.sign(t, 30000, "", nostr.Tags{{"d", "devs"}, {"p", pkF}})
	got = f.validator.Admit(set, "account", "wss://r.example")
	require.NotNil(t, got)
	assert.Equal(t, "devs", got.(models.ProfileSet).Identifier)
}

func TestAdmitKinds(t *testing.T) {
	f := newValidatorFixture(t)
	require.True(t, f.registry.Register("all", []nostr.Filter{{Kinds: []int{0, 3, 6, 7, 16, 10002, 40}}}))
	author := newKeypair(t)

	vote := f.validator.Admit(author.sign(t, 7, "-", nostr.Tags{{"e", idA}}), "all", "wss://r.example")
	require.IsType(t, models.Vote{}, vote)
	assert.False(t, vote.(models.Vote).IsPositive)

	contacts := f.validator.Admit(author.sign(t, 3, "", nostr.Tags{{"p", pkF}}), "all", "wss://r.example")
	require.IsType(t, models.ContactList{}, contacts)

	repost := f.validator.Admit(author.sign(t, 16, "", nostr.Tags{{"e", idB}, {"k", "1"}}), "all", "wss://r.example")
	require.IsType(t, models.CrossPost{}, repost)

	relays := f.validator.Admit(author.sign(t, 10002, "", nostr.Tags{{"r", "wss://relay.example.com/"}}), "all", "wss://r.example")
	require.IsType(t, models.Nip65{}, relays)

	profile := f.validator.Admit(author.sign(t, 0, `{"name":"bob"}`, nil), "all", "wss://r.example")
	require.IsType(t, models.Profile{}, profile)

	assert.Nil(t, f.validator.Admit(author.sign(t, 0, "not json", nil), "all", "wss://r.example"))

	before := rejected(ReasonUnsupportedKind)
	assert.Nil(t, f.validator.Admit(author.sign(t, 40, "channel", nil), "all", "wss://r.example"))
	assert.Equal(t, before+1, rejected(ReasonUnsupportedKind))
}

type captureQueue struct {
	events []models.ValidatedEvent
}

func (q *captureQueue) Submit(evt models.ValidatedEvent) { q.events = append(q.events, evt) }

func TestIngressDropsUnknownOrigin(t *testing.T) {
	f := newValidatorFixture(t)
	require.True(t, f.registry.Register("s", []nostr.Filter{{Kinds: []int{1}}}))
	queue := &captureQueue{}
	in := NewIngress(f.validator, queue, nil)

	evt := newKeypair(t).sign(t, 1, "post", nil)
	in.HandleEvent("s", evt, "")
	assert.Empty(t, queue.events)
	assert.False(t, f.seen.Contains(evt.ID))

	in.HandleEvent("s", evt, "wss://r.example")
	require.Len(t, queue.events, 1)
	assert.Equal(t, evt.ID, queue.events[0].EventID())
}
