package billing

import (
	"context"

	"github.com/billing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// publishEvents drains an aggregate's pending domain events to the publisher.
// Event delivery is best effort: a publish failure is logged, never surfaced,
// because the ledger write has already committed.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, aggregate shared.AggregateRoot) {
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	aggregate.ClearDomainEvents()

	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil && logger != nil {
		logger.Warn("failed to publish domain events",
			zap.String("aggregate_id", aggregate.GetID().String()),
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}
