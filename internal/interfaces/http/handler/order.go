package handler

import (
	"context"
	"time"

	orderapp "github.com/betonplant/backend/internal/application/order"
	"github.com/betonplant/backend/internal/domain/order"
	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/betonplant/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderHandler exposes the order lifecycle over HTTP
type OrderHandler struct {
	BaseHandler
	service *orderapp.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(service *orderapp.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// createOrderRequest is the wire form of an order creation
type createOrderRequest struct {
	CustomerID      string          `json:"customer_id" binding:"required,uuid"`
	CustomerName    string          `json:"customer_name" binding:"required"`
	ConcreteMarkID  string          `json:"concrete_mark_id" binding:"required,uuid"`
	ConcreteMark    string          `json:"concrete_mark" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	DeliveryDate    string          `json:"delivery_date" binding:"required"`
	DeliveryTime    string          `json:"delivery_time" binding:"required"`
	DeliveryAddress string          `json:"delivery_address" binding:"required"`
	DeliveryLat     *float64        `json:"delivery_lat"`
	DeliveryLon     *float64        `json:"delivery_lon"`
	PaymentType     string          `json:"payment_type" binding:"required,oneof=cash transfer"`
}

type updateScheduleRequest struct {
	DeliveryDate    string `json:"delivery_date" binding:"required"`
	DeliveryTime    string `json:"delivery_time" binding:"required"`
	DeliveryAddress string `json:"delivery_address" binding:"required"`
}

type rejectOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// proposeChangesRequest deliberately binds address and coordinate fields so
// the application layer can refuse a proposal that tries to change them.
type proposeChangesRequest struct {
	NewDate         string   `json:"new_date" binding:"required"`
	NewTime         string   `json:"new_time" binding:"required"`
	Reason          string   `json:"reason" binding:"required"`
	DeliveryAddress string   `json:"delivery_address"`
	DeliveryLat     *float64 `json:"delivery_lat"`
	DeliveryLon     *float64 `json:"delivery_lon"`
}

type listOrdersRequest struct {
	dto.ListRequest
	Status  string `form:"status"`
	Creator string `form:"creator_id" binding:"omitempty,uuid"`
}

// parseDeliveryDate accepts the plain scheduling date used by plant clients
func parseDeliveryDate(s string) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, err == nil
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	deliveryDate, ok := parseDeliveryDate(req.DeliveryDate)
	if !ok {
		h.BadRequest(c, "delivery_date must be YYYY-MM-DD")
		return
	}

	resp, err := h.service.Create(c.Request.Context(), actor, orderapp.CreateOrderRequest{
		CustomerID:      uuid.MustParse(req.CustomerID),
		CustomerName:    req.CustomerName,
		ConcreteMarkID:  uuid.MustParse(req.ConcreteMarkID),
		ConcreteMark:    req.ConcreteMark,
		Quantity:        req.Quantity,
		DeliveryDate:    deliveryDate,
		DeliveryTime:    req.DeliveryTime,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryLat:     req.DeliveryLat,
		DeliveryLon:     req.DeliveryLon,
		PaymentType:     order.PaymentType(req.PaymentType),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "invalid order ID")
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	var req listOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	filter := orderapp.ListFilter{Page: req.Page, PageSize: req.PageSize}
	if req.Status != "" {
		status := order.Status(req.Status)
		if !status.IsValid() {
			h.BadRequest(c, "unknown status "+req.Status)
			return
		}
		filter.Status = &status
	}
	if req.Creator != "" {
		creatorID := uuid.MustParse(req.Creator)
		filter.Creator = &creatorID
	}

	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, req.Page, req.PageSize)
}

// Reconciliation handles GET /orders/:id/reconciliation. The optional draft
// query parameter previews the ledger with a not-yet-created invoice volume.
func (h *OrderHandler) Reconciliation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "invalid order ID")
		return
	}

	draft := decimal.Zero
	if raw := c.Query("draft"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			h.BadRequest(c, "draft must be a non-negative decimal")
			return
		}
		draft = parsed
	}

	view, err := h.service.Reconciliation(c.Request.Context(), id, draft)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Submit handles POST /orders/:id/submit
func (h *OrderHandler) Submit(c *gin.Context) {
	h.transition(c, h.service.Submit)
}

// Approve handles POST /orders/:id/approve
func (h *OrderHandler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

// AcceptChanges handles POST /orders/:id/proposal/accept
func (h *OrderHandler) AcceptChanges(c *gin.Context) {
	h.transition(c, h.service.AcceptChanges)
}

// RejectChanges handles POST /orders/:id/proposal/reject
func (h *OrderHandler) RejectChanges(c *gin.Context) {
	h.transition(c, h.service.RejectChanges)
}

// Dispatch handles POST /orders/:id/dispatch
func (h *OrderHandler) Dispatch(c *gin.Context) {
	h.transition(c, h.service.Dispatch)
}

// UpdateSchedule handles PUT /orders/:id/schedule
func (h *OrderHandler) UpdateSchedule(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "invalid order ID")
		return
	}

	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	deliveryDate, ok := parseDeliveryDate(req.DeliveryDate)
	if !ok {
		h.BadRequest(c, "delivery_date must be YYYY-MM-DD")
		return
	}

	resp, err := h.service.UpdateSchedule(c.Request.Context(), actor, id, orderapp.UpdateScheduleRequest{
		DeliveryDate:    deliveryDate,
		DeliveryTime:    req.DeliveryTime,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reject handles POST /orders/:id/reject
func (h *OrderHandler) Reject(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "invalid order ID")
		return
	}

	var req rejectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Reject(c.Request.Context(), actor, id, orderapp.RejectOrderRequest{Reason: req.Reason})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ProposeChanges handles POST /orders/:id/proposal
func (h *OrderHandler) ProposeChanges(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "invalid order ID")
		return
	}

	var req proposeChangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	newDate, ok := parseDeliveryDate(req.NewDate)
	if !ok {
		h.BadRequest(c, "new_date must be YYYY-MM-DD")
		return
	}

	resp, err := h.service.ProposeChanges(c.Request.Context(), actor, id, orderapp.ProposeChangesRequest{
		NewDate:         newDate,
		NewTime:         req.NewTime,
		Reason:          req.Reason,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryLat:     req.DeliveryLat,
		DeliveryLon:     req.DeliveryLon,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// transition factors the shared shape of body-less lifecycle endpoints
func (h *OrderHandler) transition(c *gin.Context, fn func(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*orderapp.OrderResponse, error)) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "invalid order ID")
		return
	}

	resp, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
