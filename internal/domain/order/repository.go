package order

import (
	"context"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository is the persistence contract for orders. Orders are immutable
// history: there is no delete, only terminal statuses.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, int64, error)
	FindByStatus(ctx context.Context, status Status, filter shared.Filter) ([]Order, int64, error)
	FindByCreator(ctx context.Context, creatorID uuid.UUID, filter shared.Filter) ([]Order, int64, error)
	// Save persists the order with a compare-and-swap on (id, version).
	// A transition raced by another actor surfaces as
	// shared.ErrConcurrencyConflict; callers re-fetch and retry or give up.
	Save(ctx context.Context, o *Order) error
	GenerateOrderNumber(ctx context.Context) (string, error)
}
