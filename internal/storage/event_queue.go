package storage

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"github.com/Shugur-Network/feedsync/internal/models"
	"go.uber.org/zap"
)

// BatchProcessor consumes drained batches.
type BatchProcessor interface {
	Process(batch []models.ValidatedEvent)
}

// EventQueue buffers validated events and hands them to a BatchProcessor in
// batches, once per tick. The drain loop only runs while there is work: it
// exits after idleTicks empty ticks and Submit restarts it.
type EventQueue struct {
	processor BatchProcessor
	interval  time.Duration
	idleTicks int

	mu      sync.Mutex
	buf     []models.ValidatedEvent
	stopped bool
	stopCh  chan struct{}

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewEventQueue creates a stopped-until-first-submit queue.
func NewEventQueue(processor BatchProcessor, interval time.Duration, idleTicks int) *EventQueue {
	if idleTicks < 1 {
		idleTicks = 1
	}
	return &EventQueue{
		processor: processor,
		interval:  interval,
		idleTicks: idleTicks,
		stopCh:    make(chan struct{}),
	}
}

// Submit buffers evt for the next drain.
func (q *EventQueue) Submit(evt models.ValidatedEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		logger.Warn("event submitted after queue stop, dropping",
			zap.String("event_id", evt.EventID()),
			zap.String("pubkey", evt.Author()))
		return
	}
	q.buf = append(q.buf, evt)

	// The flag is only cleared under mu, so a Submit never sees a loop that
	// is about to exit with this event still buffered.
	if q.running.CompareAndSwap(false, true) {
		q.wg.Add(1)
		go q.loop()
	}
}

func (q *EventQueue) loop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	idle := 0
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
		}

		if batch := q.drain(); len(batch) > 0 {
			idle = 0
			q.flush(batch)
			continue
		}

		idle++
		if idle < q.idleTicks {
			continue
		}
		q.mu.Lock()
		if len(q.buf) == 0 {
			q.running.Store(false)
			q.mu.Unlock()
			logger.Debug("event queue idle, drain loop exiting", zap.Int("idle_ticks", idle))
			return
		}
		q.mu.Unlock()
		idle = 0
	}
}

func (q *EventQueue) drain() []models.ValidatedEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.buf
	q.buf = nil
	return batch
}

func (q *EventQueue) flush(batch []models.ValidatedEvent) {
	metrics.QueueBatchSize.Observe(float64(len(batch)))
	q.processor.Process(batch)
}

// Stop halts the drain loop and flushes whatever is still buffered. Later
// submits are dropped. Safe to call more than once.
func (q *EventQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()
	q.running.Store(false)
	if batch := q.drain(); len(batch) > 0 {
		logger.Info("flushing event queue on stop", zap.Int("events", len(batch)))
		q.flush(batch)
	}
}

// Backlog reports how many events wait for the next drain.
func (q *EventQueue) Backlog() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Running reports whether the drain loop is active.
func (q *EventQueue) Running() bool {
	return q.running.Load()
}
