package notification

import (
	"context"
	"fmt"

	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/betonplant/backend/internal/domain/order"
	"github.com/betonplant/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EventSubscriber listens to domain events and turns the ones staff care
// about into notifications: the director learns about orders waiting in the
// approval queue, creators learn about verdicts and counter-proposals, and
// dispatchers learn when a truck settles an invoice.
type EventSubscriber struct {
	notifier Notifier
	logger   *zap.Logger
}

// NewEventSubscriber creates a new notification event subscriber
func NewEventSubscriber(notifier Notifier, logger *zap.Logger) *EventSubscriber {
	return &EventSubscriber{
		notifier: notifier,
		logger:   logger.Named("notification"),
	}
}

// EventTypes returns the event types this subscriber reacts to
func (s *EventSubscriber) EventTypes() []string {
	return []string{
		order.EventTypeOrderSubmitted,
		order.EventTypeOrderApproved,
		order.EventTypeOrderRejected,
		order.EventTypeOrderChangesProposed,
		order.EventTypeOrderQuotaExceeded,
		invoice.EventTypeInvoiceCompleted,
	}
}

// Handle converts a domain event into a notification
func (s *EventSubscriber) Handle(ctx context.Context, event shared.DomainEvent) error {
	n, ok := s.notificationFor(event)
	if !ok {
		return nil
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("failed to deliver notification",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
	// notification failures never fail the originating operation
	return nil
}

func (s *EventSubscriber) notificationFor(event shared.DomainEvent) (Notification, bool) {
	switch e := event.(type) {
	case *order.OrderSubmittedEvent:
		return Notification{
			Role:    RoleDirector,
			Subject: "Order awaiting approval",
			Body:    fmt.Sprintf("Order %s was submitted and is waiting for a decision", e.OrderNumber),
		}, true
	case *order.OrderApprovedEvent:
		return Notification{
			Role:    RoleDispatcher,
			Subject: "Order approved",
			Body:    fmt.Sprintf("Order %s was approved and is ready for dispatch", e.OrderNumber),
		}, true
	case *order.OrderRejectedEvent:
		return Notification{
			Recipient: &e.CreatorID,
			Subject:   "Order rejected",
			Body:      fmt.Sprintf("Order %s was rejected: %s", e.OrderNumber, e.Reason),
		}, true
	case *order.OrderChangesProposedEvent:
		return Notification{
			Recipient: &e.CreatorID,
			Subject:   "Changes proposed",
			Body: fmt.Sprintf("Order %s: the director proposed delivery on %s at %s (%s)",
				e.OrderNumber, e.ProposedDate.Format("2006-01-02"), e.ProposedTime, e.Reason),
		}, true
	case *order.OrderQuotaExceededEvent:
		return Notification{
			Role:    RoleDispatcher,
			Subject: "Order quota exceeded",
			Body:    fmt.Sprintf("Order %s received more concrete than it asked for", e.OrderNumber),
		}, true
	case *invoice.InvoiceCompletedEvent:
		return Notification{
			Role:    RoleDispatcher,
			Subject: "Invoice completed",
			Body:    fmt.Sprintf("Invoice %s settled with %s m³", e.InvoiceID, e.Quantity.String()),
		}, true
	}
	return Notification{}, false
}

var _ shared.EventHandler = (*EventSubscriber)(nil)
