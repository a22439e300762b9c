package order

import (
	"context"
	"errors"

	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/betonplant/backend/internal/domain/order"
	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceCompletedHandler recomputes an order's reconciliation when one of
// its trucks returns to the plant. Over-delivery raises a warning event; a
// fully delivered order rolls up to DELIVERED and then COMPLETED.
type InvoiceCompletedHandler struct {
	orderRepo      order.Repository
	invoiceRepo    invoice.Repository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewInvoiceCompletedHandler creates a new InvoiceCompletedHandler
func NewInvoiceCompletedHandler(orderRepo order.Repository, invoiceRepo invoice.Repository, publisher shared.EventPublisher, logger *zap.Logger) *InvoiceCompletedHandler {
	return &InvoiceCompletedHandler{
		orderRepo:      orderRepo,
		invoiceRepo:    invoiceRepo,
		eventPublisher: publisher,
		logger:         logger,
	}
}

// EventTypes returns the event types this handler processes
func (h *InvoiceCompletedHandler) EventTypes() []string {
	return []string{invoice.EventTypeInvoiceCompleted}
}

// Handle processes an InvoiceCompletedEvent
func (h *InvoiceCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*invoice.InvoiceCompletedEvent)
	if !ok {
		return nil
	}
	if e.OrderID == nil {
		return nil // receipts and unlinked deliveries reconcile nothing
	}

	o, err := h.orderRepo.FindByID(ctx, *e.OrderID)
	if err != nil {
		return err
	}
	invoices, err := h.invoiceRepo.FindByOrder(ctx, o.ID)
	if err != nil {
		return err
	}

	view := order.ComputeRemaining(o, invoices, uuid.Nil)
	if view.QuotaExceeded {
		total := view.InProgressQuantity.Add(view.DeliveredQuantity)
		h.logger.Warn("order over-delivered",
			zap.String("order_id", o.ID.String()),
			zap.String("initial_quantity", o.Quantity.String()),
			zap.String("total_quantity", total.String()),
		)
		if h.eventPublisher != nil {
			_ = h.eventPublisher.Publish(ctx, order.NewOrderQuotaExceededEvent(o, total))
		}
	}

	if o.Status != order.StatusInDelivery || !order.FullyDelivered(o, invoices) {
		return nil
	}

	if err := o.MarkDelivered(); err != nil {
		return err
	}
	if err := o.Complete(); err != nil {
		return err
	}
	if err := h.orderRepo.Save(ctx, o); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// A concurrent completion already rolled the order up.
			return nil
		}
		return err
	}

	h.logger.Info("order completed",
		zap.String("order_id", o.ID.String()),
		zap.String("delivered_quantity", view.DeliveredQuantity.String()),
	)

	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(ctx, o.GetDomainEvents()...)
		o.ClearDomainEvents()
	}
	return nil
}
