package invoice

import (
	"context"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository is the persistence contract for invoices. Invoices are never
// deleted; canceled ones stay on record.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindByOrder returns every invoice referencing the order, in creation
	// order. The reconciliation ledger is recomputed from this set on every
	// read, so the list must always reflect the current persisted state.
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Invoice, error)
	FindByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) ([]Invoice, int64, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, int64, error)
	// Save persists the invoice with an optimistic version check; a stale
	// version yields shared.ErrConcurrencyConflict.
	Save(ctx context.Context, inv *Invoice) error
	GenerateInvoiceNumber(ctx context.Context, typ Type) (string, error)
}
