package constants

import "time"

// Topic normalization limits.
const (
	MaxTopics   = 5
	MaxTopicLen = 32
)

// MinRelayURLLen is the shortest trimmed relay URL accepted from a NIP-65 list.
const MinRelayURLLen = 10

// Feed sizing.
const (
	FeedLimitFactor      = 3 // relay limit = size * factor
	TopicFeedLimitFactor = 2
	OverFetchNumerator   = 3 // over-fetch = floor(size * 3 / 2)
	OverFetchDenominator = 2
)

// Database operation constants
const (
	DBRetryDelay      = 2 * time.Second
	DBConnMaxLifetime = 60 * time.Minute
	DBConnMaxIdleTime = 15 * time.Minute
)

// Timeouts
const (
	HealthCheckTimeout = 5 * time.Second
	ShutdownGrace      = 5 * time.Second
)
