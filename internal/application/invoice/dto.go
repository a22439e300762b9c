package invoice

import (
	"time"

	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/betonplant/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateDeliveryRequest closes a weighing session into an outbound invoice
type CreateDeliveryRequest struct {
	OrderID         *uuid.UUID
	Quantity        decimal.Decimal // m³ of concrete loaded
	DriverID        uuid.UUID
	VehicleID       uuid.UUID
	WarehouseID     uuid.UUID
	MoisturePercent *decimal.Decimal
}

// CreateReceiptRequest closes a weighing session into an inbound receipt
type CreateReceiptRequest struct {
	DriverID        uuid.UUID
	VehicleID       uuid.UUID
	WarehouseID     uuid.UUID
	MoisturePercent *decimal.Decimal
}

// RecordCheckpointRequest carries one driver-reported route milestone
type RecordCheckpointRequest struct {
	Kind       invoice.CheckpointKind
	RecordedAt time.Time
	Lat        *float64
	Lon        *float64
}

// CancelInvoiceRequest retires an invoice before it settles
type CancelInvoiceRequest struct {
	Reason string
}

// ListFilter narrows invoice listings
type ListFilter struct {
	Page     int
	PageSize int
	Driver   *uuid.UUID
}

// WeighingResponse mirrors the captured weighbridge figures
type WeighingResponse struct {
	GrossWeightKg     *decimal.Decimal `json:"gross_weight_kg,omitempty"`
	GrossCapturedAt   *time.Time       `json:"gross_captured_at,omitempty"`
	TareWeightKg      *decimal.Decimal `json:"tare_weight_kg,omitempty"`
	TareCapturedAt    *time.Time       `json:"tare_captured_at,omitempty"`
	NetWeightKg       *decimal.Decimal `json:"net_weight_kg,omitempty"`
	MoisturePercent   *decimal.Decimal `json:"moisture_percent,omitempty"`
	CorrectedWeightKg *decimal.Decimal `json:"corrected_weight_kg,omitempty"`
	PhotoRef          string           `json:"photo_ref,omitempty"`
}

// CheckpointResponse mirrors one recorded route milestone
type CheckpointResponse struct {
	Kind       invoice.CheckpointKind `json:"kind"`
	RecordedAt time.Time              `json:"recorded_at"`
	Lat        *float64               `json:"lat,omitempty"`
	Lon        *float64               `json:"lon,omitempty"`
}

// InvoiceResponse is the application-level view of an invoice
type InvoiceResponse struct {
	ID             uuid.UUID                 `json:"id"`
	InvoiceNumber  string                    `json:"invoice_number"`
	Type           invoice.Type              `json:"type"`
	OrderID        *uuid.UUID                `json:"order_id,omitempty"`
	Quantity       decimal.Decimal           `json:"quantity"`
	Status         invoice.Status            `json:"status"`
	Weighing       WeighingResponse          `json:"weighing"`
	DriverID       uuid.UUID                 `json:"driver_id"`
	VehicleID      uuid.UUID                 `json:"vehicle_id"`
	WarehouseID    uuid.UUID                 `json:"warehouse_id"`
	Checkpoints    []CheckpointResponse      `json:"checkpoints"`
	CancelReason   string                    `json:"cancel_reason,omitempty"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
	Reconciliation *order.ReconciliationView `json:"reconciliation,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
	Version        int                       `json:"version"`
}

// ToInvoiceResponse converts a domain invoice to its response form
func ToInvoiceResponse(inv *invoice.Invoice) InvoiceResponse {
	checkpoints := make([]CheckpointResponse, 0, len(inv.Checkpoints))
	for _, cp := range inv.Checkpoints {
		checkpoints = append(checkpoints, CheckpointResponse{
			Kind:       cp.Kind,
			RecordedAt: cp.RecordedAt,
			Lat:        cp.Lat,
			Lon:        cp.Lon,
		})
	}
	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Type:          inv.Type,
		OrderID:       inv.OrderID,
		Quantity:      inv.Quantity,
		Status:        inv.Status,
		Weighing: WeighingResponse{
			GrossWeightKg:     inv.Weighing.GrossWeightKg,
			GrossCapturedAt:   inv.Weighing.GrossCapturedAt,
			TareWeightKg:      inv.Weighing.TareWeightKg,
			TareCapturedAt:    inv.Weighing.TareCapturedAt,
			NetWeightKg:       inv.Weighing.NetWeightKg,
			MoisturePercent:   inv.Weighing.MoisturePercent,
			CorrectedWeightKg: inv.Weighing.CorrectedWeightKg,
			PhotoRef:          inv.Weighing.PhotoRef,
		},
		DriverID:     inv.DriverID,
		VehicleID:    inv.VehicleID,
		WarehouseID:  inv.WarehouseID,
		Checkpoints:  checkpoints,
		CancelReason: inv.CancelReason,
		CompletedAt:  inv.CompletedAt,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
		Version:      inv.Version,
	}
}
