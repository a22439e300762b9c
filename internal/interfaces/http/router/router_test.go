package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	invoiceapp "github.com/betonplant/backend/internal/application/invoice"
	orderapp "github.com/betonplant/backend/internal/application/order"
	weighingapp "github.com/betonplant/backend/internal/application/weighing"
	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/betonplant/backend/internal/domain/order"
	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/betonplant/backend/internal/domain/weighing"
	"github.com/betonplant/backend/internal/infrastructure/auth"
	"github.com/betonplant/backend/internal/infrastructure/config"
	"github.com/betonplant/backend/internal/infrastructure/event"
	"github.com/betonplant/backend/internal/infrastructure/persistence"
	"github.com/betonplant/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// scriptedGateway feeds pre-arranged captures to the session manager
type scriptedGateway struct {
	weights []decimal.Decimal
	calls   int
}

func (g *scriptedGateway) ReadCurrentWeight(_ context.Context, _ uuid.UUID) (*weighing.Reading, error) {
	return &weighing.Reading{WeightKg: decimal.NewFromInt(12500), Stable: true, Connected: true}, nil
}

func (g *scriptedGateway) CaptureWeight(_ context.Context, _ weighing.CaptureRequest) (*weighing.Capture, error) {
	if g.calls >= len(g.weights) {
		return nil, shared.ErrDeviceUnavailable
	}
	w := g.weights[g.calls]
	g.calls++
	return &weighing.Capture{WeightKg: w, CapturedAt: time.Now()}, nil
}

type testEnv struct {
	router *gin.Engine
	jwt    *auth.JWTService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&order.Order{}, &invoice.Invoice{}, &invoice.RouteCheckpoint{}))

	log := zap.NewNop()
	orderRepo := persistence.NewGormOrderRepository(db)
	invoiceRepo := persistence.NewGormInvoiceRepository(db)

	bus := event.NewInMemoryEventBus(log)
	sessions := weighingapp.NewSessionManager(&scriptedGateway{weights: []decimal.Decimal{
		decimal.NewFromInt(27500), decimal.NewFromInt(12500),
		decimal.NewFromInt(27500), decimal.NewFromInt(12500),
	}}, log)

	orderService := orderapp.NewService(orderRepo, invoiceRepo)
	orderService.SetEventPublisher(bus)
	invoiceService := invoiceapp.NewService(invoiceRepo, orderRepo, sessions)
	invoiceService.SetEventPublisher(bus)

	bus.Subscribe(orderapp.NewInvoiceInTransitHandler(orderRepo, bus, log))
	bus.Subscribe(orderapp.NewInvoiceCompletedHandler(orderRepo, invoiceRepo, bus, log))

	jwtService := auth.NewJWTService(&config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars-long",
		AccessTokenExpiration: time.Hour,
		Issuer:                "betonplant-backend",
	})

	cfg := &config.Config{}
	cfg.App.Env = "test"

	engine := New(cfg, jwtService, Handlers{
		System:   handler.NewSystemHandler(&persistence.Database{DB: db}, "test"),
		Order:    handler.NewOrderHandler(orderService),
		Invoice:  handler.NewInvoiceHandler(invoiceService),
		Weighing: handler.NewWeighingHandler(sessions),
	}, log)

	return &testEnv{router: engine, jwt: jwtService}
}

func (e *testEnv) token(t *testing.T, id uuid.UUID, role shared.Role) string {
	t.Helper()
	token, err := e.jwt.GenerateToken(id, string(role)+"1", role)
	require.NoError(t, err)
	return "Bearer " + token.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path, authorization string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	require.True(t, envelope.Success, w.Body.String())
	return envelope.Data
}

func TestRouter_HealthEndpointsAreOpen(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RoleGates(t *testing.T) {
	env := newTestEnv(t)
	driverToken := env.token(t, uuid.New(), shared.RoleDriver)

	// drivers may not open orders
	w := env.do(t, http.MethodPost, "/api/v1/orders", driverToken, map[string]any{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// but may read them
	w = env.do(t, http.MethodGet, "/api/v1/orders", driverToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func createOrderBody() map[string]any {
	return map[string]any{
		"customer_id":      uuid.New().String(),
		"customer_name":    "Stroytrest LLC",
		"concrete_mark_id": uuid.New().String(),
		"concrete_mark":    "M300",
		"quantity":         "100",
		"delivery_date":    "2026-09-01",
		"delivery_time":    "10:00",
		"delivery_address": "Street A",
		"payment_type":     "transfer",
	}
}

func TestRouter_OrderLifecycle(t *testing.T) {
	env := newTestEnv(t)

	creatorID := uuid.New()
	creator := env.token(t, creatorID, shared.RoleCreator)
	director := env.token(t, uuid.New(), shared.RoleDirector)
	dispatcher := env.token(t, uuid.New(), shared.RoleDispatcher)

	w := env.do(t, http.MethodPost, "/api/v1/orders", creator, createOrderBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeData(t, w)
	orderID := created["id"].(string)
	assert.Contains(t, created["order_number"], "ORD-")
	assert.Equal(t, "DRAFT", created["status"])

	w = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/submit", creator, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "PENDING_DIRECTOR", decodeData(t, w)["status"])

	// the director may not approve with a dispatcher token
	w = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/approve", dispatcher, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/approve", director, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "PENDING_DISPATCHER", decodeData(t, w)["status"])

	w = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/dispatch", dispatcher, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "DISPATCHED", decodeData(t, w)["status"])

	// dispatching twice is a state error, not a validation error
	w = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/dispatch", dispatcher, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TRANSITION")
}

func TestRouter_ProposalFlow(t *testing.T) {
	env := newTestEnv(t)

	creator := env.token(t, uuid.New(), shared.RoleCreator)
	director := env.token(t, uuid.New(), shared.RoleDirector)

	w := env.do(t, http.MethodPost, "/api/v1/orders", creator, createOrderBody())
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decodeData(t, w)["id"].(string)

	w = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/submit", creator, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// a proposal that smuggles an address change is refused
	w = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/proposal", director, map[string]any{
		"new_date":         "2026-09-03",
		"new_time":         "08:00",
		"reason":           "pump busy",
		"delivery_address": "Street B",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "PROPOSAL_VIOLATION")

	w = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/proposal", director, map[string]any{
		"new_date": "2026-09-03",
		"new_time": "08:00",
		"reason":   "pump busy",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "WAITING_CREATOR_APPROVAL", decodeData(t, w)["status"])

	w = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/proposal/accept", creator, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, "PENDING_DISPATCHER", data["status"])
	assert.Equal(t, "08:00", data["delivery_time"])
}

func TestRouter_DriverWeighsOwnVehicle(t *testing.T) {
	env := newTestEnv(t)

	driverID := uuid.New()
	driver := env.token(t, driverID, shared.RoleDriver)

	base := fmt.Sprintf("/api/v1/warehouses/%s/weighing", uuid.New())

	w := env.do(t, http.MethodPost, base+"/session", driver, map[string]any{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, base+"/session/gross", driver, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, base+"/session/tare", driver, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouter_AssignedDriverCancelsInvoice(t *testing.T) {
	env := newTestEnv(t)

	driverID := uuid.New()
	driver := env.token(t, driverID, shared.RoleDriver)
	otherDriver := env.token(t, uuid.New(), shared.RoleDriver)

	warehouseID := uuid.New()
	base := fmt.Sprintf("/api/v1/warehouses/%s/weighing", warehouseID)
	for _, path := range []string{"/session", "/session/gross", "/session/tare"} {
		w := env.do(t, http.MethodPost, base+path, driver, map[string]any{})
		require.Contains(t, []int{http.StatusOK, http.StatusCreated}, w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodPost, "/api/v1/invoices/delivery", driver, map[string]any{
		"quantity":     "8",
		"driver_id":    driverID.String(),
		"vehicle_id":   uuid.New().String(),
		"warehouse_id": warehouseID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invoiceID := decodeData(t, w)["id"].(string)

	// a different driver is let through the role gate but refused by the domain
	w = env.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/cancel", otherDriver, map[string]any{
		"reason": "wrong vehicle",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "INVALID_TRANSITION")

	w = env.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/cancel", driver, map[string]any{
		"reason": "vehicle breakdown",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "canceled", decodeData(t, w)["status"])
}

func TestRouter_WeighingAndDeliveryFlow(t *testing.T) {
	env := newTestEnv(t)

	creatorID := uuid.New()
	creator := env.token(t, creatorID, shared.RoleCreator)
	director := env.token(t, uuid.New(), shared.RoleDirector)
	dispatcherID := uuid.New()
	dispatcher := env.token(t, dispatcherID, shared.RoleDispatcher)
	driverID := uuid.New()
	driver := env.token(t, driverID, shared.RoleDriver)

	w := env.do(t, http.MethodPost, "/api/v1/orders", creator, createOrderBody())
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decodeData(t, w)["id"].(string)

	for _, step := range []struct {
		path  string
		token string
	}{
		{"/submit", creator},
		{"/approve", director},
		{"/dispatch", dispatcher},
	} {
		w = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+step.path, step.token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	warehouseID := uuid.New()
	base := fmt.Sprintf("/api/v1/warehouses/%s/weighing", warehouseID)

	w = env.do(t, http.MethodGet, base+"/current", dispatcher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "12500")

	w = env.do(t, http.MethodPost, base+"/session", dispatcher, map[string]any{"order_ref": "ORD"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// a second session for the same operator and warehouse is refused
	w = env.do(t, http.MethodPost, base+"/session", dispatcher, map[string]any{})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_EXISTS")

	w = env.do(t, http.MethodPost, base+"/session/gross", dispatcher, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, base+"/session/tare", dispatcher, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/invoices/delivery", dispatcher, map[string]any{
		"order_id":     orderID,
		"quantity":     "100",
		"driver_id":    driverID.String(),
		"vehicle_id":   uuid.New().String(),
		"warehouse_id": warehouseID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decodeData(t, w)
	invoiceID := inv["id"].(string)
	assert.Contains(t, inv["invoice_number"], "INV-D-")
	assert.Equal(t, "pending", inv["status"])

	checkpoints := []string{"accepted", "arrived_at_site", "departed_from_site", "arrived_at_plant"}
	var last map[string]any
	for _, kind := range checkpoints {
		w = env.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID+"/checkpoints", driver, map[string]any{
			"kind": kind,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		last = decodeData(t, w)
	}
	assert.Equal(t, "completed", last["status"])

	// the completed invoice covered the full order volume
	w = env.do(t, http.MethodGet, "/api/v1/orders/"+orderID, dispatcher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "COMPLETED", decodeData(t, w)["status"])

	w = env.do(t, http.MethodGet, "/api/v1/orders/"+orderID+"/reconciliation", dispatcher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"remaining_quantity\":\"0\"")
}
