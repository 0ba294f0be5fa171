package event

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/channelsync/backend/internal/domain/conflict"
	"github.com/channelsync/backend/internal/domain/dlq"
	"github.com/channelsync/backend/internal/domain/sync"
)

func newObservedAlertHandler() (*AlertHandler, *observer.ObservedLogs) {
	core, logs := observer.New(zap.WarnLevel)
	return NewAlertHandler(zap.New(core)), logs
}

func criticalEntry(t *testing.T) *dlq.DeadLetterJob {
	t.Helper()
	job := sync.NewSyncJob(uuid.New(), "ch-1", sync.PlatformCodeTokopedia,
		sync.OperationOrderSync, []byte(`{"order":"SO-1"}`), "")
	dead, err := dlq.NewDeadLetterJob(job, "sync-pipeline", sync.FailureAuth, "invalid credentials", 3)
	require.NoError(t, err)
	return dead
}

func TestAlertHandler_EventTypes(t *testing.T) {
	handler := NewAlertHandler(nil)
	assert.ElementsMatch(t, []string{
		dlq.EventTypeCriticalJobDeadLettered,
		dlq.EventTypeSystemicFailureDetected,
		conflict.EventTypeConflictEscalated,
	}, handler.EventTypes())
}

func TestAlertHandler_CriticalDeadLetter(t *testing.T) {
	handler, logs := newObservedAlertHandler()

	event := dlq.NewCriticalJobDeadLetteredEvent(criticalEntry(t))
	require.NoError(t, handler.Handle(context.Background(), event))

	entries := logs.FilterMessage("ALERT: critical job dead-lettered").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "AUTH_FAILURE", fields["failure_type"])
	assert.Equal(t, "invalid credentials", fields["failure_reason"])
}

func TestAlertHandler_SystemicFailure(t *testing.T) {
	handler, logs := newObservedAlertHandler()

	event := dlq.NewSystemicFailureDetectedEvent(uuid.New(), dlq.PatternSummary{
		FailureType: sync.FailureRateLimit,
		Platform:    sync.PlatformCodeShopee,
		Count:       42,
	}, 24)
	require.NoError(t, handler.Handle(context.Background(), event))

	entries := logs.FilterMessage("ALERT: systemic failure pattern").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(42), entries[0].ContextMap()["count"])
}

func TestAlertHandler_UnrecognizedEventNeverFails(t *testing.T) {
	handler, logs := newObservedAlertHandler()

	// unexpected event types are logged, not bounced back for redelivery
	require.NoError(t, handler.Handle(context.Background(), conflict.NewConflictDetectedEvent(&conflict.CrossChannelConflict{
		ID:       uuid.New(),
		TenantID: uuid.New(),
	})))
	assert.Len(t, logs.FilterMessage("ALERT: unrecognized alert event").All(), 1)
}
