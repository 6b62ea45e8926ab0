package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/flowvault/flowvault-backend/pkg/logging"
)

func TestLogSinkRecordsCorrelationTags(t *testing.T) {
	logger := new(logging.MockLogger)
	logger.On("With", mock.Anything).Return(logger)

	var captured []any
	logger.On("Info", "audit", mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).([]any)
	}).Return()

	sink := NewLogSink(logger)
	sink.Record(EventExecutionFailed, Correlation{
		AccountAddress: "0xAA",
		StrategyID:     "0xAA-1",
		OperationID:    "op-1",
	}, map[string]interface{}{"reason": "limit_exceeded"})

	assert.Contains(t, captured, "event")
	assert.Contains(t, captured, string(EventExecutionFailed))
	assert.Contains(t, captured, "0xAA")
	assert.Contains(t, captured, "0xAA-1")
	assert.Contains(t, captured, "reason")
	assert.NotContains(t, captured, "owner_id")
}

func TestNewOperationIDUnique(t *testing.T) {
	assert.NotEqual(t, NewOperationID(), NewOperationID())
}
