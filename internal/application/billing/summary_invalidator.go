package billing

import (
	"context"

	"github.com/billing/backend/internal/domain/shared"
)

// SummaryInvalidator drops cached dashboard summaries whenever a ledger
// write lands, so the next dashboard read recomputes from storage.
type SummaryInvalidator struct {
	summaries *SummaryService
}

// NewSummaryInvalidator creates a new SummaryInvalidator
func NewSummaryInvalidator(summaries *SummaryService) *SummaryInvalidator {
	return &SummaryInvalidator{summaries: summaries}
}

// Handle processes a domain event by invalidating the summary cache
func (h *SummaryInvalidator) Handle(ctx context.Context, _ shared.DomainEvent) error {
	h.summaries.InvalidateCache(ctx)
	return nil
}

// EventTypes returns an empty slice: every billing event changes some summary,
// so the invalidator subscribes as a wildcard handler
func (h *SummaryInvalidator) EventTypes() []string {
	return nil
}

var _ shared.EventHandler = (*SummaryInvalidator)(nil)
