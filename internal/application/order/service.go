package order

import (
	"context"

	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/betonplant/backend/internal/domain/order"
	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service handles order business operations. Every operation takes the
// acting identity explicitly; the service never resolves identity itself.
type Service struct {
	orderRepo      order.Repository
	invoiceRepo    invoice.Repository
	eventPublisher shared.EventPublisher
}

// NewService creates a new order Service
func NewService(orderRepo order.Repository, invoiceRepo invoice.Repository) *Service {
	return &Service{
		orderRepo:   orderRepo,
		invoiceRepo: invoiceRepo,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create opens a new order in DRAFT status
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (*OrderResponse, error) {
	if !actor.Is(shared.RoleCreator) {
		return nil, shared.NewDomainError(shared.CodeInvalidTransition, "only a creator may open orders")
	}

	o, err := order.NewOrder(actor, req.CustomerID, req.CustomerName,
		req.ConcreteMarkID, req.ConcreteMark, req.Quantity,
		req.DeliveryDate, req.DeliveryTime, req.DeliveryAddress, req.PaymentType)
	if err != nil {
		return nil, err
	}

	if req.DeliveryLat != nil && req.DeliveryLon != nil {
		if err := o.SetCoordinates(*req.DeliveryLat, *req.DeliveryLon); err != nil {
			return nil, err
		}
	}

	orderNumber, err := s.orderRepo.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, err
	}
	o.OrderNumber = orderNumber

	if err := s.orderRepo.Save(ctx, o); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, o)

	resp := ToOrderResponse(o)
	return &resp, nil
}

// GetByID retrieves an order together with its recomputed reconciliation view
func (s *Service) GetByID(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	invoices, err := s.invoiceRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	resp := ToOrderResponse(o)
	view := order.ComputeRemaining(o, invoices, uuid.Nil)
	resp.Reconciliation = &view
	return &resp, nil
}

// List retrieves orders with filtering and pagination
func (s *Service) List(ctx context.Context, filter ListFilter) ([]OrderResponse, int64, error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}

	var (
		orders []order.Order
		total  int64
		err    error
	)
	switch {
	case filter.Status != nil:
		orders, total, err = s.orderRepo.FindByStatus(ctx, *filter.Status, f)
	case filter.Creator != nil:
		orders, total, err = s.orderRepo.FindByCreator(ctx, *filter.Creator, f)
	default:
		orders, total, err = s.orderRepo.FindAll(ctx, f)
	}
	if err != nil {
		return nil, 0, err
	}

	responses := make([]OrderResponse, 0, len(orders))
	for idx := range orders {
		responses = append(responses, ToOrderResponse(&orders[idx]))
	}
	return responses, total, nil
}

// Reconciliation recomputes the order's remaining volume, optionally counting
// a quantity the operator is still typing. Display-only; nothing is persisted.
func (s *Service) Reconciliation(ctx context.Context, orderID uuid.UUID, draft decimal.Decimal) (*order.ReconciliationView, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoiceRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view := order.ComputeRemainingWithDraft(o, invoices, uuid.Nil, draft)
	return &view, nil
}

// Submit moves a draft order into the director's queue
func (s *Service) Submit(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.Submit(actor)
	})
}

// UpdateSchedule applies creator edits while the order awaits the director
func (s *Service) UpdateSchedule(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req UpdateScheduleRequest) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.UpdateSchedule(actor, req.DeliveryDate, req.DeliveryTime, req.DeliveryAddress)
	})
}

// Approve records the director's sign-off
func (s *Service) Approve(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.Approve(actor)
	})
}

// Reject retires the order with the director's reason
func (s *Service) Reject(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req RejectOrderRequest) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.Reject(actor, req.Reason)
	})
}

// ProposeChanges records the director's date/time counter-offer. A request
// that also tries to alter the address or coordinates is rejected outright:
// clients are not trusted to enforce this.
func (s *Service) ProposeChanges(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req ProposeChangesRequest) (*OrderResponse, error) {
	if req.DeliveryAddress != "" || req.DeliveryLat != nil || req.DeliveryLon != nil {
		return nil, shared.ErrProposalViolation
	}
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.ProposeChanges(actor, req.NewDate, req.NewTime, req.Reason)
	})
}

// AcceptChanges applies the proposed date/time and releases the order onward
func (s *Service) AcceptChanges(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.AcceptChanges(actor)
	})
}

// RejectChanges cancels the order outright
func (s *Service) RejectChanges(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.RejectChanges(actor)
	})
}

// Dispatch releases the order for delivery
func (s *Service) Dispatch(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, func(o *order.Order) error {
		return o.Dispatch(actor)
	})
}

// transition loads the order, applies fn and saves with the repository's
// version CAS. A raced transition surfaces as ErrConcurrencyConflict; the
// caller re-fetches current state rather than overwriting.
func (s *Service) transition(ctx context.Context, orderID uuid.UUID, fn func(*order.Order) error) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, o)

	resp := ToOrderResponse(o)
	return &resp, nil
}

func (s *Service) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventPublisher == nil {
		return
	}
	events := o.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Event delivery is best-effort; the state change is already durable.
	_ = s.eventPublisher.Publish(ctx, events...)
	o.ClearDomainEvents()
}
