package order

import (
	"fmt"
	"time"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the approval/fulfillment status of an order
type Status string

const (
	StatusDraft                  Status = "DRAFT"
	StatusPendingDirector        Status = "PENDING_DIRECTOR"
	StatusWaitingCreatorApproval Status = "WAITING_CREATOR_APPROVAL"
	StatusRejected               Status = "REJECTED"
	StatusPendingDispatcher      Status = "PENDING_DISPATCHER"
	StatusDispatched             Status = "DISPATCHED"
	StatusInDelivery             Status = "IN_DELIVERY"
	StatusDelivered              Status = "DELIVERED"
	StatusCompleted              Status = "COMPLETED"
	StatusCanceled               Status = "CANCELED"
)

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingDirector, StatusWaitingCreatorApproval,
		StatusRejected, StatusPendingDispatcher, StatusDispatched,
		StatusInDelivery, StatusDelivered, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is accepted from s
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status.
// Director approval lands directly on PENDING_DISPATCHER; the approved state
// is transient and never persisted.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusPendingDirector
	case StatusPendingDirector:
		return target == StatusPendingDispatcher ||
			target == StatusWaitingCreatorApproval ||
			target == StatusRejected
	case StatusWaitingCreatorApproval:
		return target == StatusPendingDispatcher || target == StatusCanceled
	case StatusPendingDispatcher:
		// Late director veto stays possible until dispatch.
		return target == StatusDispatched || target == StatusRejected
	case StatusDispatched:
		return target == StatusInDelivery
	case StatusInDelivery:
		return target == StatusDelivered
	case StatusDelivered:
		return target == StatusCompleted
	}
	return false
}

// PaymentType is how the customer settles the order
type PaymentType string

const (
	PaymentTypeCash     PaymentType = "cash"
	PaymentTypeTransfer PaymentType = "transfer"
)

// IsValid checks if the payment type is known
func (p PaymentType) IsValid() bool {
	return p == PaymentTypeCash || p == PaymentTypeTransfer
}

// ChangeProposal is the director's pending date/time counter-offer.
// Only date and time may be proposed; address and coordinates are immutable
// through the proposal protocol.
type ChangeProposal struct {
	Date       time.Time
	Time       string
	Reason     string
	ProposedAt time.Time
}

// Order is a customer's request for a quantity of concrete, tracked from
// draft through approval and delivery. Quantity is set once at creation;
// remaining volume is always derived from the invoice set (reconciliation.go),
// never stored on the order.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string
	CustomerID      uuid.UUID
	CustomerName    string
	ConcreteMarkID  uuid.UUID
	ConcreteMark    string
	Quantity        decimal.Decimal // m³, immutable after creation
	DeliveryDate    time.Time
	DeliveryTime    string // HH:MM, plant-local
	DeliveryAddress string
	DeliveryLat     *float64
	DeliveryLon     *float64
	PaymentType     PaymentType
	Status          Status
	CreatorID       uuid.UUID
	Proposal        *ChangeProposal `gorm:"embedded;embeddedPrefix:proposal_"`
	RejectReason    string
	SubmittedAt     *time.Time
	ApprovedAt      *time.Time
	DispatchedAt    *time.Time
	DeliveryStartAt *time.Time
	DeliveredAt     *time.Time
	CompletedAt     *time.Time
	RejectedAt      *time.Time
	CanceledAt      *time.Time
}

// invalidTransition builds the distinct "wrong state / wrong role" error the
// API maps apart from validation failures.
func invalidTransition(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidTransition, fmt.Sprintf(format, args...))
}

// NewOrder creates a new order in DRAFT status owned by the creator
func NewOrder(creator shared.Actor, customerID uuid.UUID, customerName string, concreteMarkID uuid.UUID, concreteMark string, quantity decimal.Decimal, deliveryDate time.Time, deliveryTime, deliveryAddress string, paymentType PaymentType) (*Order, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if concreteMarkID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONCRETE_MARK", "Concrete mark ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if deliveryAddress == "" {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Delivery address cannot be empty")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TYPE", "Unknown payment type")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		CustomerName:      customerName,
		ConcreteMarkID:    concreteMarkID,
		ConcreteMark:      concreteMark,
		Quantity:          quantity,
		DeliveryDate:      deliveryDate,
		DeliveryTime:      deliveryTime,
		DeliveryAddress:   deliveryAddress,
		PaymentType:       paymentType,
		Status:            StatusDraft,
		CreatorID:         creator.ID,
	}

	o.AddDomainEvent(NewOrderCreatedEvent(o))

	return o, nil
}

// SetCoordinates sets the delivery geocoordinates. Allowed only before
// submission; after that the destination is immutable.
func (o *Order) SetCoordinates(lat, lon float64) error {
	if o.Status != StatusDraft {
		return invalidTransition("cannot change coordinates of a %s order", o.Status)
	}
	o.DeliveryLat = &lat
	o.DeliveryLon = &lon
	o.UpdatedAt = time.Now()
	return nil
}

// Submit moves the order to the director's queue. Creator-only.
func (o *Order) Submit(actor shared.Actor) error {
	if !actor.Is(shared.RoleCreator) || actor.ID != o.CreatorID {
		return invalidTransition("only the order's creator may submit it")
	}
	if !o.Status.CanTransitionTo(StatusPendingDirector) {
		return invalidTransition("cannot submit order in %s status", o.Status)
	}

	now := time.Now()
	o.Status = StatusPendingDirector
	o.SubmittedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderSubmittedEvent(o))

	return nil
}

// UpdateSchedule lets the creator adjust delivery date/time/address while the
// order still sits in the director's queue. Volume is never editable here.
func (o *Order) UpdateSchedule(actor shared.Actor, deliveryDate time.Time, deliveryTime, deliveryAddress string) error {
	if !actor.Is(shared.RoleCreator) || actor.ID != o.CreatorID {
		return invalidTransition("only the order's creator may edit its schedule")
	}
	if o.Status != StatusPendingDirector {
		return invalidTransition("schedule is editable only while pending director review, not in %s", o.Status)
	}
	if deliveryAddress == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Delivery address cannot be empty")
	}

	o.DeliveryDate = deliveryDate
	o.DeliveryTime = deliveryTime
	o.DeliveryAddress = deliveryAddress
	o.UpdatedAt = time.Now()

	return nil
}

// Approve is the director's sign-off; the order advances straight to the
// dispatcher's queue.
func (o *Order) Approve(actor shared.Actor) error {
	if !actor.Is(shared.RoleDirector) {
		return invalidTransition("only a director may approve an order")
	}
	if o.Status != StatusPendingDirector {
		return invalidTransition("cannot approve order in %s status", o.Status)
	}

	now := time.Now()
	o.Status = StatusPendingDispatcher
	o.ApprovedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderApprovedEvent(o))

	return nil
}

// Reject retires the order. A director may reject while the order awaits
// review, or veto late while it awaits dispatch.
func (o *Order) Reject(actor shared.Actor, reason string) error {
	if !actor.Is(shared.RoleDirector) {
		return invalidTransition("only a director may reject an order")
	}
	if !o.Status.CanTransitionTo(StatusRejected) {
		return invalidTransition("cannot reject order in %s status", o.Status)
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reject reason is required")
	}

	now := time.Now()
	o.Status = StatusRejected
	o.RejectReason = reason
	o.RejectedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderRejectedEvent(o))

	return nil
}

// ProposeChanges records the director's date/time counter-offer and hands the
// workflow token back to the creator. Address and coordinates stay as they
// are; only date and time can be proposed.
func (o *Order) ProposeChanges(actor shared.Actor, newDate time.Time, newTime, reason string) error {
	if !actor.Is(shared.RoleDirector) {
		return invalidTransition("only a director may propose changes")
	}
	if o.Status != StatusPendingDirector {
		return invalidTransition("cannot propose changes to order in %s status", o.Status)
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Proposal reason is required")
	}

	now := time.Now()
	o.Status = StatusWaitingCreatorApproval
	o.Proposal = &ChangeProposal{
		Date:       newDate,
		Time:       newTime,
		Reason:     reason,
		ProposedAt: now,
	}
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderChangesProposedEvent(o))

	return nil
}

// AcceptChanges applies the proposed date/time and advances to the
// dispatcher's queue.
func (o *Order) AcceptChanges(actor shared.Actor) error {
	if !actor.Is(shared.RoleCreator) || actor.ID != o.CreatorID {
		return invalidTransition("only the order's creator may answer a proposal")
	}
	if o.Status != StatusWaitingCreatorApproval {
		return invalidTransition("no pending proposal on order in %s status", o.Status)
	}
	if o.Proposal == nil {
		return shared.NewDomainError("NO_PROPOSAL", "Order has no recorded proposal")
	}

	now := time.Now()
	o.DeliveryDate = o.Proposal.Date
	o.DeliveryTime = o.Proposal.Time
	o.Proposal = nil
	o.Status = StatusPendingDispatcher
	o.ApprovedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderProposalAcceptedEvent(o))

	return nil
}

// RejectChanges cancels the order outright. There is no re-negotiation loop.
func (o *Order) RejectChanges(actor shared.Actor) error {
	if !actor.Is(shared.RoleCreator) || actor.ID != o.CreatorID {
		return invalidTransition("only the order's creator may answer a proposal")
	}
	if o.Status != StatusWaitingCreatorApproval {
		return invalidTransition("no pending proposal on order in %s status", o.Status)
	}

	now := time.Now()
	o.Status = StatusCanceled
	o.CanceledAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCanceledEvent(o))

	return nil
}

// Dispatch releases the order for delivery. Dispatcher-only.
func (o *Order) Dispatch(actor shared.Actor) error {
	if !actor.Is(shared.RoleDispatcher) {
		return invalidTransition("only a dispatcher may dispatch an order")
	}
	if o.Status != StatusPendingDispatcher {
		return invalidTransition("cannot dispatch order in %s status", o.Status)
	}

	now := time.Now()
	o.Status = StatusDispatched
	o.DispatchedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderDispatchedEvent(o))

	return nil
}

// StartDelivery marks the first truck as rolling. Driven by invoice events,
// not by a direct order edit.
func (o *Order) StartDelivery() error {
	if o.Status != StatusDispatched {
		return invalidTransition("cannot start delivery of order in %s status", o.Status)
	}

	now := time.Now()
	o.Status = StatusInDelivery
	o.DeliveryStartAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderDeliveryStartedEvent(o))

	return nil
}

// MarkDelivered records that the full requested volume has been delivered.
// Driven by the reconciliation rollup when remaining quantity reaches zero.
func (o *Order) MarkDelivered() error {
	if o.Status != StatusInDelivery {
		return invalidTransition("cannot mark order delivered in %s status", o.Status)
	}

	now := time.Now()
	o.Status = StatusDelivered
	o.DeliveredAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderDeliveredEvent(o))

	return nil
}

// Complete closes the order once every invoice has settled
func (o *Order) Complete() error {
	if o.Status != StatusDelivered {
		return invalidTransition("cannot complete order in %s status", o.Status)
	}

	now := time.Now()
	o.Status = StatusCompleted
	o.CompletedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCompletedEvent(o))

	return nil
}

// HasPendingProposal reports whether a director's counter-offer awaits the creator
func (o *Order) HasPendingProposal() bool {
	return o.Status == StatusWaitingCreatorApproval && o.Proposal != nil
}

// IsTerminal reports whether the order accepts no further transitions
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// AcceptsInvoices reports whether new delivery invoices may reference the order
func (o *Order) AcceptsInvoices() bool {
	return o.Status == StatusDispatched || o.Status == StatusInDelivery
}
