package order

import (
	"context"
	"errors"

	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/betonplant/backend/internal/domain/order"
	"github.com/betonplant/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoiceInTransitHandler moves a dispatched order into delivery when its
// first truck rolls. Later invoices on an order already in delivery are a
// no-op here.
type InvoiceInTransitHandler struct {
	orderRepo      order.Repository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewInvoiceInTransitHandler creates a new InvoiceInTransitHandler
func NewInvoiceInTransitHandler(orderRepo order.Repository, publisher shared.EventPublisher, logger *zap.Logger) *InvoiceInTransitHandler {
	return &InvoiceInTransitHandler{
		orderRepo:      orderRepo,
		eventPublisher: publisher,
		logger:         logger,
	}
}

// EventTypes returns the event types this handler processes
func (h *InvoiceInTransitHandler) EventTypes() []string {
	return []string{invoice.EventTypeInvoiceInTransit}
}

// Handle processes an InvoiceInTransitEvent
func (h *InvoiceInTransitHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*invoice.InvoiceInTransitEvent)
	if !ok {
		return nil
	}
	if e.OrderID == nil {
		return nil // unlinked delivery, nothing to advance
	}

	o, err := h.orderRepo.FindByID(ctx, *e.OrderID)
	if err != nil {
		return err
	}
	if o.Status != order.StatusDispatched {
		return nil // a concurrent invoice already started the delivery
	}

	if err := o.StartDelivery(); err != nil {
		return err
	}
	if err := h.orderRepo.Save(ctx, o); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// Another handler won the race; the order is in delivery either way.
			return nil
		}
		return err
	}

	h.logger.Info("order entered delivery",
		zap.String("order_id", o.ID.String()),
		zap.String("invoice_id", e.InvoiceID.String()),
	)

	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(ctx, o.GetDomainEvents()...)
		o.ClearDomainEvents()
	}
	return nil
}
