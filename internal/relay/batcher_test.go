package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatcherChunksAndCoalesces(t *testing.T) {
	opener := &recordingOpener{}
	b := NewSubBatcher(opener, BatcherConfig{Delay: 20 * time.Millisecond, MaxIDsPerFilter: 2, Cooldown: time.Minute})
	defer b.Stop()

	b.SubmitVotesAndReplies("wss://r.example", []string{idA, idB}, []string{pkF})
	b.SubmitVotesAndReplies("wss://r.example", []string{idB, idC}, []string{pkF})

	require.Eventually(t, func() bool { return len(opener.Calls()) == 2 }, time.Second, 5*time.Millisecond)

	var ids []string
	for _, call := range opener.Calls() {
		assert.Equal(t, "wss://r.example", call.relayURL)
		assert.True(t, call.opts.CloseOnEOSE)
		assert.Equal(t, PurposeVotesReplies, call.opts.Purpose)
		require.Len(t, call.filters, 2)

		votes, replies := call.filters[0], call.filters[1]
		assert.Equal(t, []int{7}, votes.Kinds)
		assert.Equal(t, []string{pkF}, votes.Authors)
		assert.Equal(t, []int{1}, replies.Kinds)
		assert.Equal(t, votes.Tags["e"], replies.Tags["e"])
		assert.LessOrEqual(t, len(votes.Tags["e"]), 2)
		require.NotNil(t, votes.Until)
		assert.Equal(t, *votes.Until, *replies.Until)
		ids = append(ids, votes.Tags["e"]...)
	}
	assert.ElementsMatch(t, []string{idA, idB, idC}, ids)
}

func TestBatcherCooldown(t *testing.T) {
	opener := &recordingOpener{}
	b := NewSubBatcher(opener, BatcherConfig{Delay: 10 * time.Millisecond, MaxIDsPerFilter: 10, Cooldown: time.Minute})
	defer b.Stop()

	now := time.Unix(1700000000, 0)
	b.now = func() time.Time { return now }

	b.SubmitVotesAndReplies("wss://r.example", []string{idA}, nil)
	require.Eventually(t, func() bool { return len(opener.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	// Same id within the window is skipped, other relays are not affected.
	b.SubmitVotesAndReplies("wss://r.example", []string{idA}, nil)
	b.SubmitVotesAndReplies("wss://other.example", []string{idA}, nil)
	require.Eventually(t, func() bool { return len(opener.Calls()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "wss://other.example", opener.Calls()[1].relayURL)

	// After the window the id may be requested again.
	now = now.Add(2 * time.Minute)
	b.SubmitVotesAndReplies("wss://r.example", []string{idA}, nil)
	require.Eventually(t, func() bool { return len(opener.Calls()) == 3 }, time.Second, 5*time.Millisecond)
}

func TestBatcherStop(t *testing.T) {
	opener := &recordingOpener{}
	b := NewSubBatcher(opener, BatcherConfig{Delay: 10 * time.Millisecond, MaxIDsPerFilter: 10, Cooldown: time.Minute})

	b.SubmitVotesAndReplies("wss://r.example", []string{idA}, nil)
	b.Stop()
	b.SubmitVotesAndReplies("wss://r.example", []string{idB}, nil)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, opener.Calls())
}
