package order

import (
	"time"

	"github.com/betonplant/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest carries the data for opening a new order
type CreateOrderRequest struct {
	CustomerID      uuid.UUID
	CustomerName    string
	ConcreteMarkID  uuid.UUID
	ConcreteMark    string
	Quantity        decimal.Decimal
	DeliveryDate    time.Time
	DeliveryTime    string
	DeliveryAddress string
	DeliveryLat     *float64
	DeliveryLon     *float64
	PaymentType     order.PaymentType
}

// UpdateScheduleRequest carries creator edits while the order awaits the director
type UpdateScheduleRequest struct {
	DeliveryDate    time.Time
	DeliveryTime    string
	DeliveryAddress string
}

// ProposeChangesRequest carries the director's counter-offer. Address and
// coordinate fields are present so the server can reject a client that tries
// to smuggle them in; they are never applied.
type ProposeChangesRequest struct {
	NewDate         time.Time
	NewTime         string
	Reason          string
	DeliveryAddress string   // must be empty; rejected otherwise
	DeliveryLat     *float64 // must be nil; rejected otherwise
	DeliveryLon     *float64 // must be nil; rejected otherwise
}

// RejectOrderRequest carries a director's rejection
type RejectOrderRequest struct {
	Reason string
}

// ListFilter narrows order listings
type ListFilter struct {
	Page     int
	PageSize int
	Status   *order.Status
	Creator  *uuid.UUID
}

// ProposalResponse mirrors a pending change proposal
type ProposalResponse struct {
	Date       time.Time `json:"date"`
	Time       string    `json:"time"`
	Reason     string    `json:"reason"`
	ProposedAt time.Time `json:"proposed_at"`
}

// OrderResponse is the application-level view of an order
type OrderResponse struct {
	ID              uuid.UUID                 `json:"id"`
	OrderNumber     string                    `json:"order_number"`
	CustomerID      uuid.UUID                 `json:"customer_id"`
	CustomerName    string                    `json:"customer_name"`
	ConcreteMarkID  uuid.UUID                 `json:"concrete_mark_id"`
	ConcreteMark    string                    `json:"concrete_mark"`
	Quantity        decimal.Decimal           `json:"quantity"`
	DeliveryDate    time.Time                 `json:"delivery_date"`
	DeliveryTime    string                    `json:"delivery_time"`
	DeliveryAddress string                    `json:"delivery_address"`
	DeliveryLat     *float64                  `json:"delivery_lat,omitempty"`
	DeliveryLon     *float64                  `json:"delivery_lon,omitempty"`
	PaymentType     order.PaymentType         `json:"payment_type"`
	Status          order.Status              `json:"status"`
	CreatorID       uuid.UUID                 `json:"creator_id"`
	Proposal        *ProposalResponse         `json:"proposal,omitempty"`
	RejectReason    string                    `json:"reject_reason,omitempty"`
	Reconciliation  *order.ReconciliationView `json:"reconciliation,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
	Version         int                       `json:"version"`
}

// ToOrderResponse converts a domain order to its response form
func ToOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		CustomerName:    o.CustomerName,
		ConcreteMarkID:  o.ConcreteMarkID,
		ConcreteMark:    o.ConcreteMark,
		Quantity:        o.Quantity,
		DeliveryDate:    o.DeliveryDate,
		DeliveryTime:    o.DeliveryTime,
		DeliveryAddress: o.DeliveryAddress,
		DeliveryLat:     o.DeliveryLat,
		DeliveryLon:     o.DeliveryLon,
		PaymentType:     o.PaymentType,
		Status:          o.Status,
		CreatorID:       o.CreatorID,
		RejectReason:    o.RejectReason,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Version:         o.Version,
	}
	if o.Proposal != nil {
		resp.Proposal = &ProposalResponse{
			Date:       o.Proposal.Date,
			Time:       o.Proposal.Time,
			Reason:     o.Proposal.Reason,
			ProposedAt: o.Proposal.ProposedAt,
		}
	}
	return resp
}
