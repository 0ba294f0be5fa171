package event

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/channelsync/backend/internal/domain/shared"
)

// TransactionalPublisher implements shared.EventPublisher by writing events
// to the outbox table inside a database transaction. The outbox processor
// relays committed entries to the event bus, so an alert published here
// survives a crash between the state change and its delivery.
type TransactionalPublisher struct {
	db     *gorm.DB
	outbox *OutboxPublisher
	logger *zap.Logger
}

// NewTransactionalPublisher creates a publisher that routes events through
// the outbox
func NewTransactionalPublisher(db *gorm.DB, outbox *OutboxPublisher, logger *zap.Logger) *TransactionalPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionalPublisher{
		db:     db,
		outbox: outbox,
		logger: logger,
	}
}

// Publish persists the events as pending outbox entries. Delivery to
// subscribers happens asynchronously when the processor drains the table.
func (p *TransactionalPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return p.outbox.PublishWithTx(ctx, tx, events...)
	})
	if err != nil {
		return err
	}
	for _, e := range events {
		p.logger.Debug("event staged in outbox",
			zap.String("event_id", e.EventID().String()),
			zap.String("event_type", e.EventType()),
		)
	}
	return nil
}

// Ensure TransactionalPublisher implements EventPublisher
var _ shared.EventPublisher = (*TransactionalPublisher)(nil)
