package invoice

import (
	"fmt"
	"time"

	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type distinguishes outbound concrete deliveries from inbound material receipts
type Type string

const (
	TypeDelivery Type = "delivery" // outbound, volume-based, linked to an order
	TypeReceipt  Type = "receipt"  // inbound material, weight-based, no order link
)

// IsValid checks if the type is known
func (t Type) IsValid() bool {
	return t == TypeDelivery || t == TypeReceipt
}

// Status represents the delivery progress of an invoice
type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusArrived   Status = "arrived"
	StatusDeparted  Status = "departed"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInTransit, StatusArrived, StatusDeparted,
		StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the invoice has settled
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// IsTerminalSuccess reports whether the invoiced quantity counts as delivered
func (s Status) IsTerminalSuccess() bool {
	return s == StatusCompleted
}

// Weighing holds the captured weighbridge figures for one invoice.
// Net is always gross − tare; corrected is net adjusted for aggregate
// moisture. Figures are written once, when the weighing session closes.
type Weighing struct {
	GrossWeightKg     *decimal.Decimal
	GrossCapturedAt   *time.Time
	TareWeightKg      *decimal.Decimal
	TareCapturedAt    *time.Time
	NetWeightKg       *decimal.Decimal
	MoisturePercent   *decimal.Decimal
	CorrectedWeightKg *decimal.Decimal
	PhotoRef          string
}

// Invoice is one delivery or receipt event. Once checkpoints begin the record
// is append-only: quantity and weighing figures are never edited in place.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber string
	Type          Type
	OrderID       *uuid.UUID      // delivery invoices only, optional
	Quantity      decimal.Decimal // m³ for deliveries, kg for receipts
	Status        Status
	Weighing      Weighing `gorm:"embedded;embeddedPrefix:weighing_"`
	DriverID      uuid.UUID
	VehicleID     uuid.UUID
	WarehouseID   uuid.UUID
	CreatedByID   uuid.UUID
	Checkpoints   []RouteCheckpoint `gorm:"foreignKey:InvoiceID"`
	CancelReason  string
	CanceledAt    *time.Time
	CompletedAt   *time.Time
}

func invalidTransition(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidTransition, fmt.Sprintf(format, args...))
}

// NewDeliveryInvoice creates an outbound delivery invoice, optionally bound to
// an order. The creating actor owns the weighing flow; the assigned driver
// owns the route.
func NewDeliveryInvoice(creator shared.Actor, orderID *uuid.UUID, quantity decimal.Decimal, driverID, vehicleID, warehouseID uuid.UUID) (*Invoice, error) {
	return newInvoice(creator, TypeDelivery, orderID, quantity, driverID, vehicleID, warehouseID)
}

// NewReceiptInvoice creates an inbound material receipt. Receipts are
// weight-based and never reference an order.
func NewReceiptInvoice(creator shared.Actor, quantity decimal.Decimal, driverID, vehicleID, warehouseID uuid.UUID) (*Invoice, error) {
	return newInvoice(creator, TypeReceipt, nil, quantity, driverID, vehicleID, warehouseID)
}

func newInvoice(creator shared.Actor, typ Type, orderID *uuid.UUID, quantity decimal.Decimal, driverID, vehicleID, warehouseID uuid.UUID) (*Invoice, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if driverID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DRIVER", "Driver ID cannot be empty")
	}
	if vehicleID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VEHICLE", "Vehicle ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if typ == TypeReceipt && orderID != nil {
		return nil, shared.NewDomainError("INVALID_ORDER_LINK", "Receipt invoices cannot reference an order")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              typ,
		OrderID:           orderID,
		Quantity:          quantity,
		Status:            StatusPending,
		DriverID:          driverID,
		VehicleID:         vehicleID,
		WarehouseID:       warehouseID,
		CreatedByID:       creator.ID,
		Checkpoints:       make([]RouteCheckpoint, 0),
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// ApplyWeighing records the closed weighing session's figures. Allowed once,
// before any checkpoint. Net = gross − tare must be non-negative; corrected =
// net × (1 − moisture/100) when moisture is present.
func (i *Invoice) ApplyWeighing(gross decimal.Decimal, grossAt time.Time, tare decimal.Decimal, tareAt time.Time, moisture *decimal.Decimal, photoRef string) error {
	if i.Status != StatusPending {
		return invalidTransition("weighing figures are fixed once the invoice is in %s status", i.Status)
	}
	if i.Weighing.GrossWeightKg != nil || i.Weighing.TareWeightKg != nil {
		return shared.ErrCaptureConflict
	}
	if gross.LessThan(tare) {
		return shared.ErrNegativeNetWeight
	}

	net := gross.Sub(tare)
	i.Weighing = Weighing{
		GrossWeightKg:   &gross,
		GrossCapturedAt: &grossAt,
		TareWeightKg:    &tare,
		TareCapturedAt:  &tareAt,
		NetWeightKg:     &net,
		PhotoRef:        photoRef,
	}
	if moisture != nil {
		corrected := CorrectForMoisture(net, *moisture)
		i.Weighing.MoisturePercent = moisture
		i.Weighing.CorrectedWeightKg = &corrected
	}
	i.UpdatedAt = time.Now()

	return nil
}

// SetMoisture re-derives the corrected weight from an edited moisture reading.
// Only valid once the net weight is known and before checkpoints begin.
func (i *Invoice) SetMoisture(moisture decimal.Decimal) error {
	if i.Status != StatusPending {
		return invalidTransition("moisture is fixed once the invoice is in %s status", i.Status)
	}
	if i.Weighing.NetWeightKg == nil {
		return shared.NewDomainError("NO_NET_WEIGHT", "Net weight must be recorded before moisture correction")
	}
	corrected := CorrectForMoisture(*i.Weighing.NetWeightKg, moisture)
	i.Weighing.MoisturePercent = &moisture
	i.Weighing.CorrectedWeightKg = &corrected
	i.UpdatedAt = time.Now()
	return nil
}

// CorrectForMoisture computes net × (1 − moisture/100)
func CorrectForMoisture(net, moisturePercent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(moisturePercent.Div(decimal.NewFromInt(100)))
	return net.Mul(factor)
}

// EffectiveWeightKg returns the best available weight figure: corrected,
// falling back to net, then to gross. Nil when nothing was weighed.
func (i *Invoice) EffectiveWeightKg() *decimal.Decimal {
	switch {
	case i.Weighing.CorrectedWeightKg != nil:
		return i.Weighing.CorrectedWeightKg
	case i.Weighing.NetWeightKg != nil:
		return i.Weighing.NetWeightKg
	default:
		return i.Weighing.GrossWeightKg
	}
}

// CompleteReceipt settles a receipt invoice. Receipts never travel a
// delivery route: once the weighing figures are on record the material is
// in stock and the invoice completes in place.
func (i *Invoice) CompleteReceipt() error {
	if i.Type != TypeReceipt {
		return invalidTransition("only receipt invoices complete without a route")
	}
	if i.Status != StatusPending {
		return invalidTransition("cannot complete invoice in %s status", i.Status)
	}
	if i.Weighing.NetWeightKg == nil {
		return shared.NewDomainError("INCOMPLETE_WEIGHING", "Weighing figures must be recorded before completing a receipt")
	}

	now := time.Now()
	i.Status = StatusCompleted
	i.CompletedAt = &now
	i.UpdatedAt = now

	i.AddDomainEvent(NewInvoiceCompletedEvent(i))

	return nil
}

// Cancel retires the invoice before it settles. Allowed for the dispatcher or
// the assigned driver while the invoice is not terminal.
func (i *Invoice) Cancel(actor shared.Actor, reason string) error {
	if !actor.Is(shared.RoleDispatcher) && actor.ID != i.DriverID {
		return invalidTransition("only the dispatcher or the assigned driver may cancel an invoice")
	}
	if i.Status.IsTerminal() {
		return invalidTransition("cannot cancel invoice in %s status", i.Status)
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	i.Status = StatusCanceled
	i.CancelReason = reason
	i.CanceledAt = &now
	i.UpdatedAt = now

	i.AddDomainEvent(NewInvoiceCanceledEvent(i))

	return nil
}
