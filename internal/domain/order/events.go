package order

import (
	"time"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated          = "OrderCreated"
	EventTypeOrderSubmitted        = "OrderSubmitted"
	EventTypeOrderApproved         = "OrderApproved"
	EventTypeOrderRejected         = "OrderRejected"
	EventTypeOrderChangesProposed  = "OrderChangesProposed"
	EventTypeOrderProposalAccepted = "OrderProposalAccepted"
	EventTypeOrderCanceled         = "OrderCanceled"
	EventTypeOrderDispatched       = "OrderDispatched"
	EventTypeOrderDeliveryStarted  = "OrderDeliveryStarted"
	EventTypeOrderDelivered        = "OrderDelivered"
	EventTypeOrderCompleted        = "OrderCompleted"
	EventTypeOrderQuotaExceeded    = "OrderQuotaExceeded"
)

// OrderCreatedEvent is raised when a new order is opened
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	CreatorID    uuid.UUID       `json:"creator_id"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		CustomerName:    o.CustomerName,
		Quantity:        o.Quantity,
		CreatorID:       o.CreatorID,
	}
}

// OrderSubmittedEvent is raised when an order enters the director's queue.
// The notification collaborator turns it into "order awaiting approval".
type OrderSubmittedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CreatorID   uuid.UUID `json:"creator_id"`
}

// NewOrderSubmittedEvent creates a new OrderSubmittedEvent
func NewOrderSubmittedEvent(o *Order) *OrderSubmittedEvent {
	return &OrderSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderSubmitted, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CreatorID:       o.CreatorID,
	}
}

// OrderApprovedEvent is raised when a director approves an order
type OrderApprovedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

// NewOrderApprovedEvent creates a new OrderApprovedEvent
func NewOrderApprovedEvent(o *Order) *OrderApprovedEvent {
	return &OrderApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderApproved, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
	}
}

// OrderRejectedEvent is raised when a director rejects an order
type OrderRejectedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Reason      string    `json:"reason"`
	CreatorID   uuid.UUID `json:"creator_id"`
}

// NewOrderRejectedEvent creates a new OrderRejectedEvent
func NewOrderRejectedEvent(o *Order) *OrderRejectedEvent {
	return &OrderRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderRejected, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Reason:          o.RejectReason,
		CreatorID:       o.CreatorID,
	}
}

// OrderChangesProposedEvent is raised when a director proposes a new date/time.
// The notification collaborator turns it into "changes proposed".
type OrderChangesProposedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	ProposedDate time.Time `json:"proposed_date"`
	ProposedTime string    `json:"proposed_time"`
	Reason       string    `json:"reason"`
	CreatorID    uuid.UUID `json:"creator_id"`
}

// NewOrderChangesProposedEvent creates a new OrderChangesProposedEvent
func NewOrderChangesProposedEvent(o *Order) *OrderChangesProposedEvent {
	e := &OrderChangesProposedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderChangesProposed, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CreatorID:       o.CreatorID,
	}
	if o.Proposal != nil {
		e.ProposedDate = o.Proposal.Date
		e.ProposedTime = o.Proposal.Time
		e.Reason = o.Proposal.Reason
	}
	return e
}

// OrderProposalAcceptedEvent is raised when the creator accepts proposed changes
type OrderProposalAcceptedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	DeliveryDate time.Time `json:"delivery_date"`
	DeliveryTime string    `json:"delivery_time"`
}

// NewOrderProposalAcceptedEvent creates a new OrderProposalAcceptedEvent
func NewOrderProposalAcceptedEvent(o *Order) *OrderProposalAcceptedEvent {
	return &OrderProposalAcceptedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderProposalAccepted, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		DeliveryDate:    o.DeliveryDate,
		DeliveryTime:    o.DeliveryTime,
	}
}

// OrderCanceledEvent is raised when an order is canceled (creator rejecting a
// proposal retires the order outright)
type OrderCanceledEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

// NewOrderCanceledEvent creates a new OrderCanceledEvent
func NewOrderCanceledEvent(o *Order) *OrderCanceledEvent {
	return &OrderCanceledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCanceled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
	}
}

// OrderDispatchedEvent is raised when a dispatcher releases the order
type OrderDispatchedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

// NewOrderDispatchedEvent creates a new OrderDispatchedEvent
func NewOrderDispatchedEvent(o *Order) *OrderDispatchedEvent {
	return &OrderDispatchedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDispatched, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
	}
}

// OrderDeliveryStartedEvent is raised when the first invoice goes in transit
type OrderDeliveryStartedEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
}

// NewOrderDeliveryStartedEvent creates a new OrderDeliveryStartedEvent
func NewOrderDeliveryStartedEvent(o *Order) *OrderDeliveryStartedEvent {
	return &OrderDeliveryStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDeliveryStarted, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
	}
}

// OrderDeliveredEvent is raised when the requested volume is fully delivered
type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
}

// NewOrderDeliveredEvent creates a new OrderDeliveredEvent
func NewOrderDeliveredEvent(o *Order) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDelivered, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
	}
}

// OrderCompletedEvent is raised when the order closes
type OrderCompletedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
}

// NewOrderCompletedEvent creates a new OrderCompletedEvent
func NewOrderCompletedEvent(o *Order) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCompleted, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
	}
}

// OrderQuotaExceededEvent is raised when the invoice set over-delivers the
// requested volume. Over-delivery is permitted; it is flagged, not rejected.
type OrderQuotaExceededEvent struct {
	shared.BaseDomainEvent
	OrderID         uuid.UUID       `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	InitialQuantity decimal.Decimal `json:"initial_quantity"`
	TotalQuantity   decimal.Decimal `json:"total_quantity"`
}

// NewOrderQuotaExceededEvent creates a new OrderQuotaExceededEvent
func NewOrderQuotaExceededEvent(o *Order, total decimal.Decimal) *OrderQuotaExceededEvent {
	return &OrderQuotaExceededEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderQuotaExceeded, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		InitialQuantity: o.Quantity,
		TotalQuantity:   total,
	}
}
