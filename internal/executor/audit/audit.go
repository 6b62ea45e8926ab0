package audit

import (
	"github.com/google/uuid"

	"github.com/flowvault/flowvault-backend/pkg/logging"
)

// EventType enumerates the lifecycle points that emit audit events.
type EventType string

const (
	EventCapabilityIssued  EventType = "capability_issued"
	EventCapabilityRevoked EventType = "capability_revoked"
	EventValidationDenied  EventType = "validation_denied"
	EventExecutionStarted  EventType = "execution_started"
	EventExecutionSuccess  EventType = "execution_succeeded"
	EventExecutionFailed   EventType = "execution_failed"
)

// Correlation ties an event to the account, strategy and operation it
// belongs to. Empty fields are omitted from the emitted event.
type Correlation struct {
	AccountAddress string
	StrategyID     string
	OwnerID        string
	OperationID    string
}

// Sink records structured audit events for sensitive actions. Record is
// fire-and-forget: it must never block or fail the calling operation.
type Sink interface {
	Record(event EventType, correlation Correlation, metadata map[string]interface{})
}

// NewOperationID returns a fresh correlation id for one logical operation.
func NewOperationID() string {
	return uuid.New().String()
}

// LogSink emits audit events through the structured logging stack.
type LogSink struct {
	logger logging.Logger
}

var _ Sink = (*LogSink)(nil)

func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "audit")}
}

func (s *LogSink) Record(event EventType, correlation Correlation, metadata map[string]interface{}) {
	tags := make([]any, 0, 10+2*len(metadata))
	tags = append(tags, "event", string(event))
	if correlation.AccountAddress != "" {
		tags = append(tags, "account", correlation.AccountAddress)
	}
	if correlation.StrategyID != "" {
		tags = append(tags, "strategy_id", correlation.StrategyID)
	}
	if correlation.OwnerID != "" {
		tags = append(tags, "owner_id", correlation.OwnerID)
	}
	if correlation.OperationID != "" {
		tags = append(tags, "operation_id", correlation.OperationID)
	}
	for key, value := range metadata {
		tags = append(tags, key, value)
	}

	s.logger.Info("audit", tags...)
}

// NoopSink discards events. Used where audit wiring is optional.
type NoopSink struct{}

var _ Sink = (*NoopSink)(nil)

func (NoopSink) Record(event EventType, correlation Correlation, metadata map[string]interface{}) {}
