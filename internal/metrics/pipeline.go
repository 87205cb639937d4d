package metrics

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Write outcomes for StoreWrites.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	admittedWindow = NewSlidingWindow(60*time.Second, 100000)

	receivedCount int64
	admittedCount int64
	errorCount    int64
)

var (
	// Ingress
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_events_received_total",
		Help: "Events delivered by relays before validation",
	}, []string{"relay"})

	EventsAdmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_events_admitted_total",
		Help: "Events that passed validation, by kind",
	}, []string{"kind"})

	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_events_rejected_total",
		Help: "Events dropped during validation, by reason",
	}, []string{"reason"})

	RelayThrottled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_relay_throttled_total",
		Help: "Events dropped by the per-relay rate limiter",
	}, []string{"relay"})

	// Queue and persistence
	QueueBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedsync_queue_batch_size",
		Help:    "Number of validated events drained per queue tick",
		Buckets: prometheus.ExponentialBuckets(1, 4, 7), // 1 .. 4096
	})

	StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_store_writes_total",
		Help: "Partition writes dispatched to the store, by result",
	}, []string{"partition", "result"})

	WorkerJobsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_worker_jobs_dropped_total",
		Help: "Jobs rejected because a worker pool queue was full",
	}, []string{"pool"})

	// Subscriptions
	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedsync_active_subscriptions",
		Help: "Open relay subscriptions",
	})

	SubscriptionsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_subscriptions_opened_total",
		Help: "Relay subscriptions opened, by purpose",
	}, []string{"purpose"})

	// Feed
	FeedPageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedsync_feed_page_seconds",
		Help:    "Time to assemble one feed page",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 7),
	}, []string{"feed"})

	// Errors
	ErrorsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_errors_total",
		Help: "Handled errors by type",
	}, []string{"type"})

	// Database
	DBConnections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_db_connections_total",
		Help: "Database connection attempts by status",
	}, []string{"status"}) // "success", "failure", "closed"
)

// IncrementReceived counts one inbound event from relayURL.
func IncrementReceived(relayURL string) {
	EventsReceived.WithLabelValues(relayURL).Inc()
	atomic.AddInt64(&receivedCount, 1)
}

// IncrementAdmitted counts one validated event.
func IncrementAdmitted(kind int) {
	EventsAdmitted.WithLabelValues(strconv.Itoa(kind)).Inc()
	atomic.AddInt64(&admittedCount, 1)
	admittedWindow.Add()
}

// IncrementRejected counts one rejected event.
func IncrementRejected(reason string) {
	EventsRejected.WithLabelValues(reason).Inc()
}

// IncrementErrorCount counts one handled error of the given type.
func IncrementErrorCount(errType string) {
	ErrorsCount.WithLabelValues(errType).Inc()
	atomic.AddInt64(&errorCount, 1)
}

// RecordWrite counts one partition write outcome.
func RecordWrite(partition string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	StoreWrites.WithLabelValues(partition, result).Inc()
}

// Snapshot is a point-in-time view of the local counters, used by /health.
type Snapshot struct {
	Received          int64   `json:"received"`
	Admitted          int64   `json:"admitted"`
	Errors            int64   `json:"errors"`
	AdmittedPerSecond float64 `json:"admitted_per_second"`
}

// Current returns the local counters.
func Current() Snapshot {
	return Snapshot{
		Received:          atomic.LoadInt64(&receivedCount),
		Admitted:          atomic.LoadInt64(&admittedCount),
		Errors:            atomic.LoadInt64(&errorCount),
		AdmittedPerSecond: admittedWindow.Rate(),
	}
}

// RegisterMetrics pre-creates the common label sets so dashboards show zeros.
func RegisterMetrics() {
	for _, kind := range []string{"0", "1", "3", "6", "7", "16", "10002", "10003", "10015", "30000", "30015"} {
		EventsAdmitted.WithLabelValues(kind)
	}

	for _, reason := range []string{
		"seen", "unknown_subscription", "filter_mismatch", "malformed",
		"unsupported_kind", "not_own_list", "bad_signature",
	} {
		EventsRejected.WithLabelValues(reason)
	}

	for _, partition := range []string{
		"root_posts", "replies", "cross_posts", "votes", "friends", "web_of_trust",
		"topics", "nip65", "bookmarks", "profile_sets", "topic_sets", "profiles",
	} {
		StoreWrites.WithLabelValues(partition, ResultSuccess)
		StoreWrites.WithLabelValues(partition, ResultFailure)
	}

	for _, errType := range []string{"validation", "protocol", "database", "network", "timeout", "internal"} {
		ErrorsCount.WithLabelValues(errType)
	}

	for _, status := range []string{"success", "failure", "closed"} {
		DBConnections.WithLabelValues(status)
	}
}
