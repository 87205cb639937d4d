package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/Shugur-Network/feedsync/internal/constants"
	"github.com/Shugur-Network/feedsync/internal/domain"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"github.com/Shugur-Network/feedsync/internal/storage"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the status of a specific component
type ComponentStatus struct {
	Name    string         `json:"name"`
	Status  HealthStatus   `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status     HealthStatus       `json:"status"`
	Timestamp  time.Time          `json:"timestamp"`
	Version    string             `json:"version"`
	Uptime     string             `json:"uptime"`
	Components []*ComponentStatus `json:"components"`
	Summary    map[string]any     `json:"summary"`
}

// Database is what the checker needs from the store.
type Database interface {
	Ping(ctx context.Context) error
	Stats() storage.DatabaseStats
}

// Thresholds past which a component is reported degraded.
type Thresholds struct {
	// QueueBacklog is the pending event count considered a stall.
	QueueBacklog int
	// Subscriptions is the open relay subscription count considered a leak.
	Subscriptions int
}

// HealthChecker reports on the store, the ingest pipeline and the process.
type HealthChecker struct {
	db         Database
	node       domain.NodeStatus
	thresholds Thresholds
	logger     *zap.Logger
	version    string
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db Database, node domain.NodeStatus, thresholds Thresholds, logger *zap.Logger, version string) *HealthChecker {
	if thresholds.QueueBacklog <= 0 {
		thresholds.QueueBacklog = 50_000
	}
	if thresholds.Subscriptions <= 0 {
		thresholds.Subscriptions = 2_000
	}
	return &HealthChecker{
		db:         db,
		node:       node,
		thresholds: thresholds,
		logger:     logger.Named("health"),
		version:    version,
	}
}

// CheckHealth performs a comprehensive health check
func (h *HealthChecker) CheckHealth(ctx context.Context) *HealthResponse {
	startTime := time.Now()
	components := []*ComponentStatus{
		h.checkDatabase(ctx),
		h.checkIngest(),
		h.checkSubscriptions(),
		h.checkMemory(),
		h.checkSystemResources(),
	}

	return &HealthResponse{
		Status:     h.determineOverallStatus(components),
		Timestamp:  time.Now(),
		Version:    h.version,
		Uptime:     h.formatUptime(time.Since(h.node.StartTime())),
		Components: components,
		Summary: map[string]any{
			"total_components":     len(components),
			"healthy_components":   h.countComponentsByStatus(components, StatusHealthy),
			"degraded_components":  h.countComponentsByStatus(components, StatusDegraded),
			"unhealthy_components": h.countComponentsByStatus(components, StatusUnhealthy),
			"check_duration_ms":    time.Since(startTime).Milliseconds(),
		},
	}
}

// checkDatabase checks database connectivity and pool usage
func (h *HealthChecker) checkDatabase(ctx context.Context) *ComponentStatus {
	status := &ComponentStatus{
		Name:    "database",
		Details: make(map[string]any),
	}

	if err := h.db.Ping(ctx); err != nil {
		status.Status = StatusUnhealthy
		status.Message = "Database connection failed"
		status.Details["error"] = err.Error()
		return status
	}

	stats := h.db.Stats()
	status.Details["open_connections"] = stats.OpenConnections
	status.Details["in_use"] = stats.InUse
	status.Details["idle"] = stats.Idle
	status.Details["max_open_connections"] = stats.MaxOpenConnections
	status.Details["wait_count"] = stats.WaitCount

	utilization := 0.0
	if stats.MaxOpenConnections > 0 {
		utilization = float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
	}
	status.Details["connection_utilization_percent"] = utilization

	switch {
	case utilization > 95:
		status.Status = StatusUnhealthy
		status.Message = "Critical database connection utilization"
	case utilization > 90:
		status.Status = StatusDegraded
		status.Message = "High database connection utilization"
	default:
		status.Status = StatusHealthy
		status.Message = "Database is healthy"
	}
	return status
}

// checkIngest reports the queue backlog and pipeline counters
func (h *HealthChecker) checkIngest() *ComponentStatus {
	snap := metrics.Current()
	backlog := h.node.QueueBacklog()
	status := &ComponentStatus{
		Name: "ingest",
		Details: map[string]any{
			"queue_backlog":       backlog,
			"received":            snap.Received,
			"admitted":            snap.Admitted,
			"errors":              snap.Errors,
			"admitted_per_second": snap.AdmittedPerSecond,
		},
	}

	if backlog > h.thresholds.QueueBacklog {
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("Queue backlog high: %d events", backlog)
	} else {
		status.Status = StatusHealthy
		status.Message = fmt.Sprintf("Queue backlog normal: %d events", backlog)
	}
	return status
}

// checkSubscriptions reports open relay subscriptions
func (h *HealthChecker) checkSubscriptions() *ComponentStatus {
	active := h.node.ActiveSubscriptions()
	status := &ComponentStatus{
		Name: "subscriptions",
		Details: map[string]any{
			"active_subscriptions": active,
			"max_subscriptions":    h.thresholds.Subscriptions,
		},
	}

	if active > h.thresholds.Subscriptions {
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("Many open subscriptions: %d", active)
	} else {
		status.Status = StatusHealthy
		status.Message = fmt.Sprintf("Open subscriptions: %d", active)
	}
	return status
}

// checkMemory checks memory usage
func (h *HealthChecker) checkMemory() *ComponentStatus {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status := &ComponentStatus{
		Name:    "memory",
		Details: make(map[string]any),
	}

	allocMB := float64(m.Alloc) / 1024 / 1024
	status.Details["alloc_mb"] = allocMB
	status.Details["sys_mb"] = float64(m.Sys) / 1024 / 1024
	status.Details["heap_mb"] = float64(m.HeapAlloc) / 1024 / 1024
	status.Details["num_gc"] = m.NumGC

	const (
		memoryWarningMB  = 500
		memoryCriticalMB = 1000
	)

	switch {
	case allocMB > memoryCriticalMB:
		status.Status = StatusUnhealthy
		status.Message = fmt.Sprintf("High memory usage: %.1f MB", allocMB)
	case allocMB > memoryWarningMB:
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("Elevated memory usage: %.1f MB", allocMB)
	default:
		status.Status = StatusHealthy
		status.Message = fmt.Sprintf("Memory usage normal: %.1f MB", allocMB)
	}
	return status
}

// checkSystemResources checks system-level resources
func (h *HealthChecker) checkSystemResources() *ComponentStatus {
	goroutineCount := runtime.NumGoroutine()
	status := &ComponentStatus{
		Name: "system",
		Details: map[string]any{
			"goroutines": goroutineCount,
			"cpus":       runtime.NumCPU(),
		},
	}

	const (
		goroutineWarning  = 5000
		goroutineCritical = 20000
	)

	switch {
	case goroutineCount > goroutineCritical:
		status.Status = StatusUnhealthy
		status.Message = fmt.Sprintf("High goroutine count: %d", goroutineCount)
	case goroutineCount > goroutineWarning:
		status.Status = StatusDegraded
		status.Message = fmt.Sprintf("Elevated goroutine count: %d", goroutineCount)
	default:
		status.Status = StatusHealthy
		status.Message = fmt.Sprintf("System resources normal: %d goroutines", goroutineCount)
	}
	return status
}

// determineOverallStatus determines the overall health status from components
func (h *HealthChecker) determineOverallStatus(components []*ComponentStatus) HealthStatus {
	if h.countComponentsByStatus(components, StatusUnhealthy) > 0 {
		return StatusUnhealthy
	}
	if h.countComponentsByStatus(components, StatusDegraded) > 0 {
		return StatusDegraded
	}
	return StatusHealthy
}

// countComponentsByStatus counts components with a specific status
func (h *HealthChecker) countComponentsByStatus(components []*ComponentStatus, status HealthStatus) int {
	count := 0
	for _, comp := range components {
		if comp.Status == status {
			count++
		}
	}
	return count
}

// formatUptime formats uptime duration as a human-readable string
func (h *HealthChecker) formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// ServeHTTP answers liveness probes, and readiness probes with ?ready=1.
// Both return 503 only when a component is unhealthy.
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.HealthCheckTimeout)
	defer cancel()

	resp := h.CheckHealth(ctx)

	statusCode := http.StatusOK
	if resp.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
		return
	}

	h.logger.Debug("Health check completed",
		zap.String("status", string(resp.Status)),
		zap.Int("status_code", statusCode),
		zap.Bool("readiness", r.URL.Query().Get("ready") == "1"),
		zap.Int64("duration_ms", resp.Summary["check_duration_ms"].(int64)))
}
