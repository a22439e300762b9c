package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	invoiceapp "github.com/betonplant/backend/internal/application/invoice"
	orderapp "github.com/betonplant/backend/internal/application/order"
	weighingapp "github.com/betonplant/backend/internal/application/weighing"
	"github.com/betonplant/backend/internal/domain/weighing"
	"github.com/betonplant/backend/internal/infrastructure/auth"
	"github.com/betonplant/backend/internal/infrastructure/cache"
	"github.com/betonplant/backend/internal/infrastructure/config"
	"github.com/betonplant/backend/internal/infrastructure/event"
	"github.com/betonplant/backend/internal/infrastructure/logger"
	"github.com/betonplant/backend/internal/infrastructure/notification"
	"github.com/betonplant/backend/internal/infrastructure/persistence"
	"github.com/betonplant/backend/internal/infrastructure/scale"
	"github.com/betonplant/backend/internal/infrastructure/telemetry"
	"github.com/betonplant/backend/internal/interfaces/http/handler"
	"github.com/betonplant/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting plant backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	db, err := persistence.NewDatabase(&cfg.Database, logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)

	// Capture token store: Redis when available, in-memory otherwise
	var tokenStore weighing.CaptureTokenStore
	if cfg.Redis.Enabled {
		redisStore, err := cache.NewRedisTokenStore(&cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		tokenStore = redisStore
		log.Info("Using Redis capture token store")
	} else {
		tokenStore = cache.NewInMemoryTokenStore()
		log.Info("Using in-memory capture token store")
	}
	defer func() {
		if err := tokenStore.Close(); err != nil {
			log.Error("Error closing capture token store", zap.Error(err))
		}
	}()

	// Weighbridge gateway and sessions
	gateway := scale.NewBridgeClient(&cfg.Scale, tokenStore, log)
	sessions := weighingapp.NewSessionManager(gateway, log)

	// Application services
	orderService := orderapp.NewService(orderRepo, invoiceRepo)
	invoiceService := invoiceapp.NewService(invoiceRepo, orderRepo, sessions)

	// Metrics
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Metrics.Enabled,
		CollectorEndpoint: cfg.Metrics.CollectorEndpoint,
		ExportInterval:    cfg.Metrics.ExportInterval,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Metrics.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down metrics", zap.Error(err))
		}
	}()

	plantMetrics, err := telemetry.NewPlantMetrics(telemetry.PlantMetricsConfig{
		Meter:  meterProvider.Meter("betonplant"),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to initialize plant metrics", zap.Error(err))
	}

	// Event bus and cross-aggregate handlers
	eventBus := event.NewInMemoryEventBus(log)

	inTransitHandler := orderapp.NewInvoiceInTransitHandler(orderRepo, eventBus, log)
	completedHandler := orderapp.NewInvoiceCompletedHandler(orderRepo, invoiceRepo, eventBus, log)
	notifier := notification.NewEventSubscriber(notification.NewLogNotifier(log), log)
	eventBus.Subscribe(inTransitHandler)
	eventBus.Subscribe(completedHandler)
	eventBus.Subscribe(notifier)
	eventBus.Subscribe(telemetry.NewEventSubscriber(plantMetrics))

	log.Info("Event handlers registered",
		zap.Strings("in_transit_events", inTransitHandler.EventTypes()),
		zap.Strings("completed_events", completedHandler.EventTypes()),
		zap.Strings("notification_events", notifier.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	orderService.SetEventPublisher(eventBus)
	invoiceService.SetEventPublisher(eventBus)

	// HTTP layer
	jwtService := auth.NewJWTService(&cfg.JWT)
	engine := router.New(cfg, jwtService, router.Handlers{
		System:   handler.NewSystemHandler(db, version),
		Order:    handler.NewOrderHandler(orderService),
		Invoice:  handler.NewInvoiceHandler(invoiceService),
		Weighing: handler.NewWeighingHandler(sessions),
	}, log)

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
