package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := fmt.Errorf("outer: %w", PersistenceError("votes", 3, cause))

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeDatabase, appErr.Type)
	assert.Equal(t, SeverityHigh, appErr.Severity)
	assert.True(t, Is(err, cause))
	assert.Contains(t, appErr.Error(), "write of 3 votes failed")
}

func TestPersistenceTimeout(t *testing.T) {
	appErr := PersistenceError("replies", 1, context.DeadlineExceeded)
	assert.Equal(t, ErrorTypeTimeout, appErr.Type)
	assert.True(t, IsRecoverable(appErr))
}

func TestRelayConnectionErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		cause    error
		code     string
		severity ErrorSeverity
	}{
		{"cancelled", context.Canceled, "RELAY_CANCELLED", SeverityLow},
		{"deadline", context.DeadlineExceeded, "RELAY_TIMEOUT", SeverityMedium},
		{"dial", &net.OpError{Op: "dial", Err: stderrors.New("refused")}, "RELAY_DIAL_FAILED", SeverityMedium},
		{"reset", stderrors.New("read: connection reset by peer"), "RELAY_TEMPORARY", SeverityLow},
		{"other", stderrors.New("bad handshake"), "RELAY_ERROR", SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := RelayConnectionError("wss://r.example", tt.cause)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.severity, appErr.Severity)
			assert.Equal(t, "wss://r.example", appErr.Relay)
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	assert.False(t, IsRecoverable(stderrors.New("plain")))
	assert.False(t, IsRecoverable(EventValidationError("id", stderrors.New("bad"))))
	assert.False(t, IsRecoverable(DatabaseConnectionError(stderrors.New("down"))))
	assert.True(t, IsRecoverable(RelayConnectionError("wss://r", stderrors.New("x"))))
}

func TestHandleLogsBySeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Use(zap.New(core))
	t.Cleanup(func() { logger.Use(nil) })

	HandleRejection(EventValidationError("abc", stderrors.New("empty content")))
	HandleRejection(ProtocolViolationError("wss://r", "sub", "abc"))
	HandlePersistenceError("votes", 2, stderrors.New("locked"))
	HandlePersistenceError("votes", 2, nil)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "wss://r", entries[1].ContextMap()["relay"])
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "votes", entries[2].ContextMap()["partition"])
}
