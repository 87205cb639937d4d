package limiter

import (
	"sync"
	"time"

	"github.com/Shugur-Network/feedsync/internal/config"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// relayState tracks limiting state for one relay.
type relayState struct {
	limiter     *rate.Limiter
	violations  int
	bannedUntil time.Time
	lastSeen    time.Time
}

// RateLimiter throttles inbound events per relay. A relay that keeps
// exceeding its budget is ignored for BanDuration.
type RateLimiter struct {
	cfg    config.ThrottlingConfig
	relays map[string]*relayState
	mutex  sync.Mutex
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter from the throttling settings.
func NewRateLimiter(cfg config.ThrottlingConfig) *RateLimiter {
	return &RateLimiter{
		cfg:    cfg,
		relays: make(map[string]*relayState),
		now:    time.Now,
	}
}

// Allow reports whether one more event from relayURL may be processed.
func (rl *RateLimiter) Allow(relayURL string) bool {
	if !rl.cfg.Enabled || relayURL == "" {
		return true
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	st, ok := rl.relays[relayURL]
	if !ok {
		burst := rl.cfg.BurstSize
		if burst < 1 {
			burst = 1
		}
		st = &relayState{limiter: rate.NewLimiter(rate.Limit(rl.cfg.MaxEventsPerSecond), burst)}
		rl.relays[relayURL] = st
	}
	st.lastSeen = now

	if now.Before(st.bannedUntil) {
		metrics.RelayThrottled.WithLabelValues(relayURL).Inc()
		return false
	}

	if st.limiter.AllowN(now, 1) {
		return true
	}

	metrics.RelayThrottled.WithLabelValues(relayURL).Inc()
	st.violations++
	if rl.cfg.BanThreshold > 0 && st.violations >= rl.cfg.BanThreshold {
		st.bannedUntil = now.Add(rl.cfg.BanDuration)
		st.violations = 0
		logger.Warn("relay exceeded its event budget, ignoring it",
			zap.String("relay", relayURL),
			zap.Duration("ban_duration", rl.cfg.BanDuration),
		)
		return false
	}

	logger.Debug("relay rate limit exceeded",
		zap.String("relay", relayURL),
		zap.Int("violations", st.violations),
	)
	return false
}

// Banned reports whether relayURL is currently ignored.
func (rl *RateLimiter) Banned(relayURL string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	st, ok := rl.relays[relayURL]
	return ok && rl.now().Before(st.bannedUntil)
}

// Reset forgets all state for relayURL.
func (rl *RateLimiter) Reset(relayURL string) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	delete(rl.relays, relayURL)
}

// Cleanup removes relays not seen within maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for url, st := range rl.relays {
		if now.Sub(st.lastSeen) > maxIdle && !now.Before(st.bannedUntil) {
			delete(rl.relays, url)
		}
	}
}
