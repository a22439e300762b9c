package invoice

import (
	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeInvoice = "Invoice"

// Event type constants
const (
	EventTypeInvoiceCreated   = "InvoiceCreated"
	EventTypeInvoiceInTransit = "InvoiceInTransit"
	EventTypeInvoiceCompleted = "InvoiceCompleted"
	EventTypeInvoiceCanceled  = "InvoiceCanceled"
)

// InvoiceCreatedEvent is raised when a new invoice is opened
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Type      Type            `json:"invoice_type"`
	OrderID   *uuid.UUID      `json:"order_id,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	DriverID  uuid.UUID       `json:"driver_id"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(i *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, i.ID),
		InvoiceID:       i.ID,
		Type:            i.Type,
		OrderID:         i.OrderID,
		Quantity:        i.Quantity,
		DriverID:        i.DriverID,
	}
}

// InvoiceInTransitEvent is raised when the driver accepts the load. The order
// service reacts by moving a dispatched order into delivery.
type InvoiceInTransitEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID  `json:"invoice_id"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
}

// NewInvoiceInTransitEvent creates a new InvoiceInTransitEvent
func NewInvoiceInTransitEvent(i *Invoice) *InvoiceInTransitEvent {
	return &InvoiceInTransitEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceInTransit, AggregateTypeInvoice, i.ID),
		InvoiceID:       i.ID,
		OrderID:         i.OrderID,
	}
}

// InvoiceCompletedEvent is raised when the truck returns to the plant. The
// order service reacts by recomputing the order's remaining volume, and the
// notification collaborator turns it into "invoice completed".
type InvoiceCompletedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID       `json:"invoice_id"`
	OrderID   *uuid.UUID      `json:"order_id,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	DriverID  uuid.UUID       `json:"driver_id"`
}

// NewInvoiceCompletedEvent creates a new InvoiceCompletedEvent
func NewInvoiceCompletedEvent(i *Invoice) *InvoiceCompletedEvent {
	return &InvoiceCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCompleted, AggregateTypeInvoice, i.ID),
		InvoiceID:       i.ID,
		OrderID:         i.OrderID,
		Quantity:        i.Quantity,
		DriverID:        i.DriverID,
	}
}

// InvoiceCanceledEvent is raised when an invoice is retired before settling
type InvoiceCanceledEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID  `json:"invoice_id"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	Reason    string     `json:"reason"`
}

// NewInvoiceCanceledEvent creates a new InvoiceCanceledEvent
func NewInvoiceCanceledEvent(i *Invoice) *InvoiceCanceledEvent {
	return &InvoiceCanceledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCanceled, AggregateTypeInvoice, i.ID),
		InvoiceID:       i.ID,
		OrderID:         i.OrderID,
		Reason:          i.CancelReason,
	}
}
