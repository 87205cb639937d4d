package workers

import (
	"sync"

	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"go.uber.org/zap"
)

// WorkerPool manages a pool of workers that execute jobs concurrently.
// Jobs are fire-and-forget: a full queue drops the job rather than block
// the caller.
type WorkerPool struct {
	name    string
	jobCh   chan func()
	pending sync.WaitGroup
	running sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewWorkerPool initializes a worker pool with a fixed number of workers.
func NewWorkerPool(name string, workerCount, jobBufferSize int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	wp := &WorkerPool{
		name:  name,
		jobCh: make(chan func(), jobBufferSize),
	}
	wp.running.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.running.Done()
	for job := range wp.jobCh {
		wp.run(job)
	}
}

// run isolates a panicking job so the worker survives.
func (wp *WorkerPool) run(job func()) {
	defer wp.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker job panicked",
				zap.String("pool", wp.name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	job()
}

// AddJob enqueues a job without blocking. It reports false when the queue
// is full or the pool is stopped.
func (wp *WorkerPool) AddJob(job func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return false
	}

	wp.pending.Add(1)
	select {
	case wp.jobCh <- job:
		return true
	default:
		wp.pending.Done()
		metrics.WorkerJobsDropped.WithLabelValues(wp.name).Inc()
		logger.Warn("worker queue full, job dropped", zap.String("pool", wp.name))
		return false
	}
}

// Wait blocks until all accepted jobs are completed.
func (wp *WorkerPool) Wait() {
	wp.pending.Wait()
}

// Stop rejects new jobs, drains the queue and waits for the workers to exit.
// Safe to call more than once.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobCh)
	wp.mu.Unlock()

	wp.running.Wait()
}

// Pending reports how many jobs are queued but not yet picked up.
func (wp *WorkerPool) Pending() int {
	return len(wp.jobCh)
}
