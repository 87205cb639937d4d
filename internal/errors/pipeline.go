package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
)

// EventValidationError reports malformed remote input. Expected and frequent.
func EventValidationError(eventID string, reason error) *AppError {
	return Wrap(reason, ErrorTypeValidation, "EVENT_REJECTED", "event rejected").
		WithSeverity(SeverityLow).
		WithDetails(fmt.Sprintf("event %s: %v", eventID, reason))
}

// ProtocolViolationError reports a relay delivering an event that no open
// filter asked for.
func ProtocolViolationError(relayURL, subID, eventID string) *AppError {
	return New(ErrorTypeProtocol, "FILTER_MISMATCH", "relay sent an event outside the subscription filters").
		WithSeverity(SeverityMedium).
		WithRelay(relayURL).
		WithDetails(fmt.Sprintf("subscription %s, event %s", subID, eventID))
}

// SubscriptionError creates an error for subscription-related issues
func SubscriptionError(subID, reason string) *AppError {
	return New(ErrorTypeInternal, "SUBSCRIPTION_ERROR", fmt.Sprintf("subscription error: %s", reason)).
		WithSeverity(SeverityLow).
		WithDetails(fmt.Sprintf("subscription %s", subID))
}

// PersistenceError reports a failed partition write. The batch for that
// partition is lost.
func PersistenceError(partition string, count int, cause error) *AppError {
	severity := SeverityHigh
	errType := ErrorTypeDatabase
	if stderrors.Is(cause, context.DeadlineExceeded) {
		errType = ErrorTypeTimeout
	}
	return Wrap(cause, errType, "PERSISTENCE_FAILED", fmt.Sprintf("write of %d %s failed", count, partition)).
		WithSeverity(severity)
}

// DatabaseConnectionError creates an error for database connection issues
func DatabaseConnectionError(cause error) *AppError {
	return Wrap(cause, ErrorTypeDatabase, "DB_CONNECTION_ERROR", "database connection failed").
		WithSeverity(SeverityCritical)
}

// ConfigurationError creates an error for configuration issues
func ConfigurationError(field, reason string) *AppError {
	return New(ErrorTypeInternal, "CONFIGURATION_ERROR", fmt.Sprintf("configuration error in %s: %s", field, reason)).
		WithSeverity(SeverityCritical)
}

// RelayConnectionError classifies a transport failure for relayURL.
func RelayConnectionError(relayURL string, cause error) *AppError {
	code := "RELAY_ERROR"
	severity := SeverityMedium
	errType := ErrorTypeNetwork

	var netErr net.Error
	var opErr *net.OpError
	switch {
	case stderrors.Is(cause, context.Canceled):
		code = "RELAY_CANCELLED"
		severity = SeverityLow
	case stderrors.Is(cause, context.DeadlineExceeded):
		code = "RELAY_TIMEOUT"
		errType = ErrorTypeTimeout
	case stderrors.As(cause, &opErr) && opErr.Op == "dial":
		code = "RELAY_DIAL_FAILED"
	case stderrors.As(cause, &netErr) && netErr.Timeout():
		code = "RELAY_TIMEOUT"
		errType = ErrorTypeTimeout
	case isTemporaryNetError(cause):
		code = "RELAY_TEMPORARY"
		severity = SeverityLow
	}

	return Wrap(cause, errType, code, "relay connection failed").
		WithSeverity(severity).
		WithRelay(relayURL)
}

// isTemporaryNetError replaces the deprecated net.Error.Temporary.
func isTemporaryNetError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"no route to host",
		"network is unreachable",
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
