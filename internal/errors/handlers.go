package errors

import (
	"sync"

	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"go.uber.org/zap"
)

// Handler logs AppErrors at a level matching their severity and counts them.
type Handler struct {
	component string
}

// NewHandler creates a handler logging under component.
func NewHandler(component string) *Handler {
	return &Handler{component: component}
}

// Handle logs err. Non-AppErrors are treated as internal, high severity.
func (h *Handler) Handle(err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	appErr, ok := As(err)
	if !ok {
		appErr = Wrap(err, ErrorTypeInternal, "INTERNAL_ERROR", "unexpected error").
			WithSeverity(SeverityHigh)
	}

	metrics.IncrementErrorCount(string(appErr.Type))

	fields = append(fields,
		zap.String("error_type", string(appErr.Type)),
		zap.String("error_code", appErr.Code),
		zap.String("severity", string(appErr.Severity)),
	)
	if appErr.Relay != "" {
		fields = append(fields, zap.String("relay", appErr.Relay))
	}
	if appErr.Details != "" {
		fields = append(fields, zap.String("details", appErr.Details))
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.Error(appErr.Cause))
	}
	if appErr.Severity == SeverityCritical {
		fields = append(fields, zap.String("stack_trace", appErr.StackTrace))
	}

	log := logger.New(h.component)
	switch appErr.Severity {
	case SeverityLow:
		log.Debug(appErr.Message, fields...)
	case SeverityMedium:
		log.Warn(appErr.Message, fields...)
	default:
		log.Error(appErr.Message, fields...)
	}
}

var (
	handlersOnce      sync.Once
	persistenceHandle *Handler
	ingestHandle      *Handler
	transportHandle   *Handler
)

func initHandlers() {
	handlersOnce.Do(func() {
		persistenceHandle = NewHandler("persistence")
		ingestHandle = NewHandler("ingest")
		transportHandle = NewHandler("transport")
	})
}

// HandlePersistenceError logs a failed partition write.
func HandlePersistenceError(partition string, count int, err error) {
	if err == nil {
		return
	}
	initHandlers()
	persistenceHandle.Handle(PersistenceError(partition, count, err), zap.String("partition", partition))
}

// HandleRejection logs a validation or protocol rejection.
func HandleRejection(err *AppError, fields ...zap.Field) {
	initHandlers()
	ingestHandle.Handle(err, fields...)
}

// HandleRelayError logs a transport failure.
func HandleRelayError(relayURL string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	initHandlers()
	transportHandle.Handle(RelayConnectionError(relayURL, err), fields...)
}
