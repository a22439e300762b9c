package router

import (
	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/betonplant/backend/internal/infrastructure/auth"
	"github.com/betonplant/backend/internal/infrastructure/config"
	"github.com/betonplant/backend/internal/infrastructure/logger"
	"github.com/betonplant/backend/internal/interfaces/http/handler"
	"github.com/betonplant/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	System   *handler.SystemHandler
	Order    *handler.OrderHandler
	Invoice  *handler.InvoiceHandler
	Weighing *handler.WeighingHandler
}

// New builds the gin engine with middleware and role-gated routes. Office
// staff and drivers share one API surface; the role in the token decides
// which operations answer.
func New(cfg *config.Config, jwtService *auth.JWTService, handlers Handlers, log *zap.Logger) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
	)
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
		engine.Use(middleware.CORSWithConfig(corsCfg))
	}

	engine.GET("/health", handlers.System.Health)
	engine.GET("/ready", handlers.System.Ready)

	api := engine.Group("/api/v1", middleware.Auth(jwtService))

	creator := middleware.RequireRole(shared.RoleCreator)
	director := middleware.RequireRole(shared.RoleDirector)
	dispatcher := middleware.RequireRole(shared.RoleDispatcher)
	driver := middleware.RequireRole(shared.RoleDriver)
	// drivers weigh their own vehicle; clerks and dispatchers weigh at the desk
	weighingStaff := middleware.RequireRole(shared.RoleDispatcher, shared.RoleClerk, shared.RoleDriver)

	orders := api.Group("/orders")
	{
		orders.GET("", handlers.Order.List)
		orders.GET("/:id", handlers.Order.Get)
		orders.GET("/:id/reconciliation", handlers.Order.Reconciliation)
		orders.GET("/:id/invoices", handlers.Invoice.ListByOrder)

		orders.POST("", creator, handlers.Order.Create)
		orders.POST("/:id/submit", creator, handlers.Order.Submit)
		orders.PUT("/:id/schedule", creator, handlers.Order.UpdateSchedule)
		orders.POST("/:id/proposal/accept", creator, handlers.Order.AcceptChanges)
		orders.POST("/:id/proposal/reject", creator, handlers.Order.RejectChanges)

		orders.POST("/:id/approve", director, handlers.Order.Approve)
		orders.POST("/:id/reject", director, handlers.Order.Reject)
		orders.POST("/:id/proposal", director, handlers.Order.ProposeChanges)

		orders.POST("/:id/dispatch", dispatcher, handlers.Order.Dispatch)
	}

	invoices := api.Group("/invoices")
	{
		invoices.GET("", handlers.Invoice.List)
		invoices.GET("/:id", handlers.Invoice.Get)

		invoices.POST("/delivery", weighingStaff, handlers.Invoice.CreateDelivery)
		invoices.POST("/receipt", weighingStaff, handlers.Invoice.CreateReceipt)
		// the domain check narrows drivers down to the assigned one
		invoices.POST("/:id/cancel", middleware.RequireRole(shared.RoleDispatcher, shared.RoleDriver), handlers.Invoice.Cancel)

		invoices.POST("/:id/checkpoints", driver, handlers.Invoice.RecordCheckpoint)
	}

	warehouses := api.Group("/warehouses/:warehouse_id/weighing", weighingStaff)
	{
		warehouses.GET("/current", handlers.Weighing.CurrentWeight)
		warehouses.POST("/session", handlers.Weighing.Begin)
		warehouses.GET("/session", handlers.Weighing.Snapshot)
		warehouses.DELETE("/session", handlers.Weighing.Abandon)
		warehouses.POST("/session/gross", handlers.Weighing.RecordGross)
		warehouses.POST("/session/tare", handlers.Weighing.RecordTare)
		warehouses.PUT("/session/moisture", handlers.Weighing.SetMoisture)
	}

	return engine
}
