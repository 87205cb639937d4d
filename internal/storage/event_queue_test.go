package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/Shugur-Network/feedsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]models.ValidatedEvent
}

func (r *batchRecorder) Process(batch []models.ValidatedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
}

func (r *batchRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func (r *batchRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestEventQueueBatchesPerTick(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &batchRecorder{}
	q := NewEventQueue(rec, 20*time.Millisecond, 1000)
	for i := range 5 {
		q.Submit(rootPost(i, alice, 100))
	}
	assert.True(t, q.Running())

	require.Eventually(t, func() bool { return rec.total() == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.count(), "submits within one tick form one batch")
	assert.Zero(t, q.Backlog())

	q.Stop()
}

func TestEventQueueIdleExitAndRestart(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &batchRecorder{}
	q := NewEventQueue(rec, 5*time.Millisecond, 2)
	q.Submit(rootPost(1, alice, 100))

	require.Eventually(t, func() bool { return rec.total() == 1 && !q.Running() }, time.Second, 5*time.Millisecond)

	q.Submit(rootPost(2, alice, 100))
	assert.True(t, q.Running(), "submit restarts the loop")
	require.Eventually(t, func() bool { return rec.total() == 2 }, time.Second, 5*time.Millisecond)

	q.Stop()
}

func TestEventQueueStopFlushes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &batchRecorder{}
	q := NewEventQueue(rec, time.Hour, 1)
	q.Submit(rootPost(1, alice, 100))
	q.Submit(rootPost(2, alice, 100))

	q.Stop()
	assert.Equal(t, 2, rec.total())
	assert.False(t, q.Running())

	q.Submit(rootPost(3, alice, 100))
	assert.Equal(t, 2, rec.total(), "submit after stop is dropped")
	assert.Zero(t, q.Backlog())

	q.Stop()
}

func TestEventQueueConcurrentSubmits(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rec := &batchRecorder{}
	q := NewEventQueue(rec, time.Millisecond, 1)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				q.Submit(rootPost(w*1000+i, alice, 100))
				if i%10 == 0 {
					time.Sleep(2 * time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()
	q.Stop()

	assert.Equal(t, 400, rec.total(), "no event lost across idle exits")
}
