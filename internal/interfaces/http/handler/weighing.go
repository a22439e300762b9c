package handler

import (
	"net/http"

	weighingapp "github.com/betonplant/backend/internal/application/weighing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WeighingHandler exposes weighbridge sessions over HTTP. A session is keyed
// by the authenticated actor and the warehouse, so the URL only carries the
// warehouse.
type WeighingHandler struct {
	BaseHandler
	sessions *weighingapp.SessionManager
}

// NewWeighingHandler creates a new weighing handler
func NewWeighingHandler(sessions *weighingapp.SessionManager) *WeighingHandler {
	return &WeighingHandler{sessions: sessions}
}

type beginSessionRequest struct {
	OrderRef string `json:"order_ref"`
}

type setMoistureRequest struct {
	MoisturePercent decimal.Decimal `json:"moisture_percent" binding:"required"`
}

type warehouseURI struct {
	WarehouseID string `uri:"warehouse_id" binding:"required,uuid"`
}

func parseWarehouseID(c *gin.Context) (uuid.UUID, bool) {
	var req warehouseURI
	if err := c.ShouldBindUri(&req); err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.WarehouseID)
	return id, err == nil
}

// CurrentWeight handles GET /warehouses/:warehouse_id/weighing/current
func (h *WeighingHandler) CurrentWeight(c *gin.Context) {
	warehouseID, ok := parseWarehouseID(c)
	if !ok {
		h.BadRequest(c, "invalid warehouse ID")
		return
	}

	reading, err := h.sessions.CurrentWeight(c.Request.Context(), warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reading)
}

// Begin handles POST /warehouses/:warehouse_id/weighing/session
func (h *WeighingHandler) Begin(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	warehouseID, ok := parseWarehouseID(c)
	if !ok {
		h.BadRequest(c, "invalid warehouse ID")
		return
	}

	// order_ref is optional; receipts begin sessions without a body
	var req beginSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	snap, err := h.sessions.Begin(actor, warehouseID, req.OrderRef)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, snap)
}

// Snapshot handles GET /warehouses/:warehouse_id/weighing/session
func (h *WeighingHandler) Snapshot(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	warehouseID, ok := parseWarehouseID(c)
	if !ok {
		h.BadRequest(c, "invalid warehouse ID")
		return
	}

	snap, err := h.sessions.Snapshot(actor, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snap)
}

// RecordGross handles POST /warehouses/:warehouse_id/weighing/session/gross
func (h *WeighingHandler) RecordGross(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	warehouseID, ok := parseWarehouseID(c)
	if !ok {
		h.BadRequest(c, "invalid warehouse ID")
		return
	}

	snap, err := h.sessions.RecordGross(c.Request.Context(), actor, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snap)
}

// RecordTare handles POST /warehouses/:warehouse_id/weighing/session/tare
func (h *WeighingHandler) RecordTare(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	warehouseID, ok := parseWarehouseID(c)
	if !ok {
		h.BadRequest(c, "invalid warehouse ID")
		return
	}

	snap, err := h.sessions.RecordTare(c.Request.Context(), actor, warehouseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snap)
}

// SetMoisture handles PUT /warehouses/:warehouse_id/weighing/session/moisture
func (h *WeighingHandler) SetMoisture(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	warehouseID, ok := parseWarehouseID(c)
	if !ok {
		h.BadRequest(c, "invalid warehouse ID")
		return
	}

	var req setMoistureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	snap, err := h.sessions.SetMoisture(actor, warehouseID, req.MoisturePercent)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snap)
}

// Abandon handles DELETE /warehouses/:warehouse_id/weighing/session
func (h *WeighingHandler) Abandon(c *gin.Context) {
	actor, ok := getActor(c)
	if !ok {
		h.Unauthorized(c, "Not authenticated")
		return
	}
	warehouseID, ok := parseWarehouseID(c)
	if !ok {
		h.BadRequest(c, "invalid warehouse ID")
		return
	}

	h.sessions.Abandon(actor, warehouseID)
	c.Status(http.StatusNoContent)
}
