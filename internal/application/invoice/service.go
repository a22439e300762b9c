package invoice

import (
	"context"

	weighingapp "github.com/betonplant/backend/internal/application/weighing"
	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/betonplant/backend/internal/domain/order"
	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/betonplant/backend/internal/domain/weighing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service handles invoice business operations: closing weighing sessions
// into invoices and advancing invoices along their delivery route.
type Service struct {
	invoiceRepo    invoice.Repository
	orderRepo      order.Repository
	sessions       *weighingapp.SessionManager
	eventPublisher shared.EventPublisher
}

// NewService creates a new invoice Service
func NewService(invoiceRepo invoice.Repository, orderRepo order.Repository, sessions *weighingapp.SessionManager) *Service {
	return &Service{
		invoiceRepo: invoiceRepo,
		orderRepo:   orderRepo,
		sessions:    sessions,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateDelivery closes the actor's weighing session into an outbound
// invoice. The reconciliation view in the response is recomputed after the
// insert; an overrun shows up as QuotaExceeded, it never blocks the invoice.
func (s *Service) CreateDelivery(ctx context.Context, actor shared.Actor, req CreateDeliveryRequest) (*InvoiceResponse, error) {
	var o *order.Order
	if req.OrderID != nil {
		var err error
		o, err = s.orderRepo.FindByID(ctx, *req.OrderID)
		if err != nil {
			return nil, err
		}
		if !o.AcceptsInvoices() {
			return nil, shared.NewDomainError(shared.CodeInvalidTransition, "order is not accepting invoices in "+o.Status.String()+" status")
		}
	}

	session, err := s.sessions.Take(actor, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	// the session holds physically captured readings; a rejected request
	// must not destroy them
	closed := false
	defer func() {
		if !closed {
			s.sessions.Restore(actor, req.WarehouseID, session)
		}
	}()

	inv, err := invoice.NewDeliveryInvoice(actor, req.OrderID, req.Quantity, req.DriverID, req.VehicleID, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	if err := s.applySession(inv, session, req.MoisturePercent); err != nil {
		return nil, err
	}

	number, err := s.invoiceRepo.GenerateInvoiceNumber(ctx, invoice.TypeDelivery)
	if err != nil {
		return nil, err
	}
	inv.InvoiceNumber = number

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	closed = true
	s.publishEvents(ctx, inv)

	resp := ToInvoiceResponse(inv)
	if o != nil {
		invoices, err := s.invoiceRepo.FindByOrder(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		view := order.ComputeRemaining(o, invoices, uuid.Nil)
		resp.Reconciliation = &view
	}
	return &resp, nil
}

// CreateReceipt closes the actor's weighing session into an inbound material
// receipt. The receipt quantity is the effective weighed figure: corrected
// when moisture was recorded, net otherwise.
func (s *Service) CreateReceipt(ctx context.Context, actor shared.Actor, req CreateReceiptRequest) (*InvoiceResponse, error) {
	session, err := s.sessions.Take(actor, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	closed := false
	defer func() {
		if !closed {
			s.sessions.Restore(actor, req.WarehouseID, session)
		}
	}()

	net, err := session.Net()
	if err != nil {
		return nil, err
	}
	quantity := net
	if req.MoisturePercent != nil {
		quantity = invoice.CorrectForMoisture(net, *req.MoisturePercent)
	}

	inv, err := invoice.NewReceiptInvoice(actor, quantity, req.DriverID, req.VehicleID, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	if err := s.applySession(inv, session, req.MoisturePercent); err != nil {
		return nil, err
	}
	// receipts have no delivery route: weighed material is in, so the
	// invoice settles immediately
	if err := inv.CompleteReceipt(); err != nil {
		return nil, err
	}

	number, err := s.invoiceRepo.GenerateInvoiceNumber(ctx, invoice.TypeReceipt)
	if err != nil {
		return nil, err
	}
	inv.InvoiceNumber = number

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	closed = true
	s.publishEvents(ctx, inv)

	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// applySession copies the session's captured figures onto the invoice.
// Take already guaranteed both readings exist; gross < tare is still
// surfaced here as a data-quality error.
func (s *Service) applySession(inv *invoice.Invoice, session *weighing.Session, moisture *decimal.Decimal) error {
	snap := session.Snapshot()
	if snap.GrossWeightKg == nil || snap.TareWeightKg == nil {
		return shared.NewDomainError("INCOMPLETE_WEIGHING", "Both gross and tare must be captured")
	}
	if moisture == nil {
		moisture = snap.MoisturePercent
	}
	return inv.ApplyWeighing(
		*snap.GrossWeightKg, *snap.GrossCapturedAt,
		*snap.TareWeightKg, *snap.TareCapturedAt,
		moisture, snap.PhotoRef,
	)
}

// GetByID retrieves an invoice by ID
func (s *Service) GetByID(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// List retrieves invoices with filtering and pagination
func (s *Service) List(ctx context.Context, filter ListFilter) ([]InvoiceResponse, int64, error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}

	var (
		invoices []invoice.Invoice
		total    int64
		err      error
	)
	if filter.Driver != nil {
		invoices, total, err = s.invoiceRepo.FindByDriver(ctx, *filter.Driver, f)
	} else {
		invoices, total, err = s.invoiceRepo.FindAll(ctx, f)
	}
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, 0, len(invoices))
	for idx := range invoices {
		responses = append(responses, ToInvoiceResponse(&invoices[idx]))
	}
	return responses, total, nil
}

// ListByOrder retrieves every invoice referencing an order
func (s *Service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]InvoiceResponse, error) {
	invoices, err := s.invoiceRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	responses := make([]InvoiceResponse, 0, len(invoices))
	for idx := range invoices {
		responses = append(responses, ToInvoiceResponse(&invoices[idx]))
	}
	return responses, nil
}

// RecordCheckpoint appends a driver-reported route milestone and persists the
// implied status. Completion events feed the order rollup handler.
func (s *Service) RecordCheckpoint(ctx context.Context, actor shared.Actor, invoiceID uuid.UUID, req RecordCheckpointRequest) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := inv.RecordCheckpoint(actor, req.Kind, req.RecordedAt, req.Lat, req.Lon); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, inv)

	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// Cancel retires an invoice before it settles
func (s *Service) Cancel(ctx context.Context, actor shared.Actor, invoiceID uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := inv.Cancel(actor, req.Reason); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, inv)

	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

func (s *Service) publishEvents(ctx context.Context, inv *invoice.Invoice) {
	if s.eventPublisher == nil {
		return
	}
	events := inv.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	inv.ClearDomainEvents()
}
