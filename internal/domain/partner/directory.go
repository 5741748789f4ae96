package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerDirectory is the read-only contract the billing core uses to check
// referential integrity when documents are created. The core never mutates
// customer records.
type CustomerDirectory interface {
	// Exists reports whether a customer with the given ID is on record
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// FindByID returns the customer, or (nil, nil) when no customer is on record
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
}
