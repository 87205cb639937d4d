package workers

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWorkerPoolRunsJobs(t *testing.T) {
	wp := NewWorkerPool("test", 4, 64)
	defer wp.Stop()

	var n int64
	for i := 0; i < 50; i++ {
		assert.True(t, wp.AddJob(func() { atomic.AddInt64(&n, 1) }))
	}
	wp.Wait()
	assert.Equal(t, int64(50), atomic.LoadInt64(&n))
}

func TestWorkerPoolDropsWhenFull(t *testing.T) {
	wp := NewWorkerPool("full", 1, 1)
	defer wp.Stop()

	block := make(chan struct{})
	started := make(chan struct{})
	assert.True(t, wp.AddJob(func() { close(started); <-block }))
	<-started

	assert.True(t, wp.AddJob(func() {}))  // fills the buffer
	assert.False(t, wp.AddJob(func() {})) // dropped
	close(block)
	wp.Wait()
}

func TestWorkerPoolSurvivesPanic(t *testing.T) {
	wp := NewWorkerPool("panic", 1, 4)
	defer wp.Stop()

	var ran int64
	wp.AddJob(func() { panic("boom") })
	wp.AddJob(func() { atomic.StoreInt64(&ran, 1) })
	wp.Wait()
	assert.Equal(t, int64(1), atomic.LoadInt64(&ran))
}

func TestWorkerPoolStopIsIdempotent(t *testing.T) {
	wp := NewWorkerPool("stop", 2, 4)
	wp.Stop()
	wp.Stop()
	assert.False(t, wp.AddJob(func() {}))
}
