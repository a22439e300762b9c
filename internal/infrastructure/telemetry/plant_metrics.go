package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/betonplant/backend/internal/domain/order"
	"github.com/betonplant/backend/internal/domain/shared"
)

// PlantMetrics tracks plant-level business metrics: order flow through the
// approval pipeline, delivered concrete volume, and quota overruns.
type PlantMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	ordersCreatedTotal    *Counter
	orderTransitionsTotal *Counter
	invoicesCreatedTotal  *Counter
	invoicesCompleted     *Counter
	deliveredVolumeM3     *FloatCounter
	quotaExceededTotal    *Counter
}

// PlantMetricsConfig holds configuration for plant metrics.
type PlantMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewPlantMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// NewPlantMetrics creates a new PlantMetrics instance.
func NewPlantMetrics(cfg PlantMetricsConfig) (*PlantMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &PlantMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error

	pm.ordersCreatedTotal, err = NewCounter(
		cfg.Meter,
		"beton_orders_created_total",
		"Total number of concrete orders created",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	pm.orderTransitionsTotal, err = NewCounter(
		cfg.Meter,
		"beton_order_transitions_total",
		"Total order status transitions, labeled by resulting status",
		"{transitions}",
	)
	if err != nil {
		return nil, err
	}

	pm.invoicesCreatedTotal, err = NewCounter(
		cfg.Meter,
		"beton_invoices_created_total",
		"Total number of invoices created",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	pm.invoicesCompleted, err = NewCounter(
		cfg.Meter,
		"beton_invoices_completed_total",
		"Total number of invoices completed",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	pm.deliveredVolumeM3, err = NewFloatCounter(
		cfg.Meter,
		"beton_delivered_volume_m3_total",
		"Total delivered concrete volume",
		"m3",
	)
	if err != nil {
		return nil, err
	}

	pm.quotaExceededTotal, err = NewCounter(
		cfg.Meter,
		"beton_quota_exceeded_total",
		"Number of orders whose invoiced volume exceeded the ordered quantity",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	return pm, nil
}

// RecordOrderCreated records an order creation.
func (pm *PlantMetrics) RecordOrderCreated(ctx context.Context) {
	pm.ordersCreatedTotal.Inc(ctx)
}

// RecordOrderTransition records a status transition, labeled by the status
// the order ended up in.
func (pm *PlantMetrics) RecordOrderTransition(ctx context.Context, status string) {
	pm.orderTransitionsTotal.Inc(ctx, AttrOrderStatus.String(status))
}

// RecordInvoiceCreated records an invoice creation, labeled by type.
func (pm *PlantMetrics) RecordInvoiceCreated(ctx context.Context, invoiceType string) {
	pm.invoicesCreatedTotal.Inc(ctx, AttrInvoiceType.String(invoiceType))
}

// RecordInvoiceCompleted records a completed invoice and, for deliveries
// bound to an order, the delivered volume.
func (pm *PlantMetrics) RecordInvoiceCompleted(ctx context.Context, volumeM3 float64) {
	pm.invoicesCompleted.Inc(ctx)
	if volumeM3 > 0 {
		pm.deliveredVolumeM3.Add(ctx, volumeM3)
	}
}

// RecordQuotaExceeded records an over-delivery detection.
func (pm *PlantMetrics) RecordQuotaExceeded(ctx context.Context) {
	pm.quotaExceededTotal.Inc(ctx)
}

// EventSubscriber feeds PlantMetrics from domain events so that the
// application layer stays free of metrics calls. It subscribes as a wildcard
// handler and ignores events it has no metric for.
type EventSubscriber struct {
	metrics *PlantMetrics
}

// NewEventSubscriber creates an event-driven metrics recorder.
func NewEventSubscriber(metrics *PlantMetrics) *EventSubscriber {
	return &EventSubscriber{metrics: metrics}
}

// EventTypes returns nil: the subscriber observes every event and picks the
// ones it can translate into a metric.
func (s *EventSubscriber) EventTypes() []string {
	return nil
}

// Handle translates a domain event into metric recordings. It never fails;
// metrics must not affect the originating operation.
func (s *EventSubscriber) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderCreatedEvent:
		s.metrics.RecordOrderCreated(ctx)
	case *order.OrderSubmittedEvent:
		s.metrics.RecordOrderTransition(ctx, string(order.StatusPendingDirector))
	case *order.OrderApprovedEvent:
		s.metrics.RecordOrderTransition(ctx, string(order.StatusPendingDispatcher))
	case *order.OrderRejectedEvent:
		s.metrics.RecordOrderTransition(ctx, string(order.StatusRejected))
	case *order.OrderDispatchedEvent:
		s.metrics.RecordOrderTransition(ctx, string(order.StatusDispatched))
	case *order.OrderDeliveryStartedEvent:
		s.metrics.RecordOrderTransition(ctx, string(order.StatusInDelivery))
	case *order.OrderDeliveredEvent:
		s.metrics.RecordOrderTransition(ctx, string(order.StatusDelivered))
	case *order.OrderCompletedEvent:
		s.metrics.RecordOrderTransition(ctx, string(order.StatusCompleted))
	case *order.OrderCanceledEvent:
		s.metrics.RecordOrderTransition(ctx, string(order.StatusCanceled))
	case *order.OrderQuotaExceededEvent:
		s.metrics.RecordQuotaExceeded(ctx)
	case *invoice.InvoiceCreatedEvent:
		s.metrics.RecordInvoiceCreated(ctx, string(e.Type))
	case *invoice.InvoiceCompletedEvent:
		volume := 0.0
		if e.OrderID != nil {
			volume, _ = e.Quantity.Float64()
		}
		s.metrics.RecordInvoiceCompleted(ctx, volume)
	}
	return nil
}
