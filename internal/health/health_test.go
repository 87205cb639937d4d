package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shugur-Network/feedsync/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDB struct {
	err   error
	stats storage.DatabaseStats
}

func (d stubDB) Ping(context.Context) error    { return d.err }
func (d stubDB) Stats() storage.DatabaseStats { return d.stats }

type stubNode struct {
	subs, backlog int
	start         time.Time
}

func (n stubNode) ActiveSubscriptions() int { return n.subs }
func (n stubNode) QueueBacklog() int        { return n.backlog }
func (n stubNode) StartTime() time.Time     { return n.start }

func component(resp *HealthResponse, name string) *ComponentStatus {
	for _, c := range resp.Components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealthy(t *testing.T) {
	h := NewHealthChecker(
		stubDB{stats: storage.DatabaseStats{MaxOpenConnections: 10, InUse: 1}},
		stubNode{subs: 3, start: time.Now().Add(-90 * time.Second)},
		Thresholds{}, zap.NewNop(), "test",
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "1m 30s", resp.Uptime)
	require.NotNil(t, component(&resp, "subscriptions"))
	assert.Equal(t, StatusHealthy, component(&resp, "subscriptions").Status)
	assert.Equal(t, StatusHealthy, component(&resp, "database").Status)
}

func TestDatabaseDownIsUnhealthy(t *testing.T) {
	h := NewHealthChecker(stubDB{err: errors.New("gone")}, stubNode{start: time.Now()}, Thresholds{}, zap.NewNop(), "test")

	resp := h.CheckHealth(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, "gone", component(resp, "database").Details["error"])

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health?ready=1", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBacklogDegrades(t *testing.T) {
	h := NewHealthChecker(
		stubDB{stats: storage.DatabaseStats{MaxOpenConnections: 10}},
		stubNode{backlog: 11, start: time.Now()},
		Thresholds{QueueBacklog: 10}, zap.NewNop(), "test",
	)

	resp := h.CheckHealth(context.Background())
	assert.Equal(t, StatusDegraded, component(resp, "ingest").Status)
	assert.NotEqual(t, StatusHealthy, resp.Status)
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewHealthChecker(stubDB{}, stubNode{start: time.Now()}, Thresholds{}, zap.NewNop(), "test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
