package handler

import (
	"time"

	invoiceapp "github.com/betonplant/backend/internal/application/invoice"
	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/betonplant/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceHandler exposes delivery and receipt invoices over HTTP
type InvoiceHandler struct {
	BaseHandler
	service *invoiceapp.Service
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(service *invoiceapp.Service) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

type createDeliveryRequest struct {
	OrderID         string           `json:"order_id" binding:"omitempty,uuid"`
	Quantity        decimal.Decimal  `json:"quantity" binding:"required"`
	DriverID        string           `json:"driver_id" binding:"required,uuid"`
	VehicleID       string           `json:"vehicle_id" binding:"required,uuid"`
	WarehouseID     string           `json:"warehouse_id" binding:"required,uuid"`
	MoisturePercent *decimal.Decimal `json:"moisture_percent"`
}

type createReceiptRequest struct {
	DriverID        string           `json:"driver_id" binding:"required,uuid"`
	VehicleID       string           `json:"vehicle_id" binding:"required,uuid"`
	WarehouseID     string           `json:"warehouse_id" binding:"required,uuid"`
	MoisturePercent *decimal.Decimal `json:"moisture_percent"`
}

type recordCheckpointRequest struct {
	Kind       string     `json:"kind" binding:"required"`
	RecordedAt *time.Time `json:"recorded_at"`
	Lat        *float64   `json:"lat"`
	Lon        *float64   `json:"lon"`
}

type cancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type listInvoicesRequest struct {
	dto.ListRequest
	Driver string `form:"driver_id" binding:"omitempty,uuid"`
}

// CreateDelivery handles POST /invoices/delivery
func (h *InvoiceHandler) CreateDelivery(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}

	var req createDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// an invoice links to zero or one order; ad-hoc sales carry none
	var orderID *uuid.UUID
	if req.OrderID != "" {
		id := uuid.MustParse(req.OrderID)
		orderID = &id
	}
	resp, err := h.service.CreateDelivery(c.Request.Context(), actor, invoiceapp.CreateDeliveryRequest{
		OrderID:         orderID,
		Quantity:        req.Quantity,
		DriverID:        uuid.MustParse(req.DriverID),
		VehicleID:       uuid.MustParse(req.VehicleID),
		WarehouseID:     uuid.MustParse(req.WarehouseID),
		MoisturePercent: req.MoisturePercent,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// CreateReceipt handles POST /invoices/receipt
func (h *InvoiceHandler) CreateReceipt(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}

	var req createReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.CreateReceipt(c.Request.Context(), actor, invoiceapp.CreateReceiptRequest{
		DriverID:        uuid.MustParse(req.DriverID),
		VehicleID:       uuid.MustParse(req.VehicleID),
		WarehouseID:     uuid.MustParse(req.WarehouseID),
		MoisturePercent: req.MoisturePercent,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "invalid invoice ID")
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	var req listInvoicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	filter := invoiceapp.ListFilter{Page: req.Page, PageSize: req.PageSize}
	if req.Driver != "" {
		driverID := uuid.MustParse(req.Driver)
		filter.Driver = &driverID
	}

	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, req.Page, req.PageSize)
}

// ListByOrder handles GET /orders/:id/invoices
func (h *InvoiceHandler) ListByOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "invalid order ID")
		return
	}

	items, err := h.service.ListByOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// RecordCheckpoint handles POST /invoices/:id/checkpoints
func (h *InvoiceHandler) RecordCheckpoint(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "invalid invoice ID")
		return
	}

	var req recordCheckpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	kind := invoice.CheckpointKind(req.Kind)
	if !kind.IsValid() {
		h.BadRequest(c, "unknown checkpoint kind "+req.Kind)
		return
	}
	recordedAt := time.Now()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	resp, err := h.service.RecordCheckpoint(c.Request.Context(), actor, id, invoiceapp.RecordCheckpointRequest{
		Kind:       kind,
		RecordedAt: recordedAt,
		Lat:        req.Lat,
		Lon:        req.Lon,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel handles POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "invalid invoice ID")
		return
	}

	var req cancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), actor, id, invoiceapp.CancelInvoiceRequest{Reason: req.Reason})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
