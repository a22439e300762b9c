package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/betonplant/backend/internal/domain/order"
	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByNumber finds an order by its order number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindAll finds all orders with filtering and pagination
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, int64, error) {
	return r.findWhere(ctx, filter, nil)
}

// FindByStatus finds orders in the given status
func (r *GormOrderRepository) FindByStatus(ctx context.Context, status order.Status, filter shared.Filter) ([]order.Order, int64, error) {
	return r.findWhere(ctx, filter, func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", status)
	})
}

// FindByCreator finds orders opened by the given creator
func (r *GormOrderRepository) FindByCreator(ctx context.Context, creatorID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	return r.findWhere(ctx, filter, func(q *gorm.DB) *gorm.DB {
		return q.Where("creator_id = ?", creatorID)
	})
}

func (r *GormOrderRepository) findWhere(ctx context.Context, filter shared.Filter, scope func(*gorm.DB) *gorm.DB) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&order.Order{})
	if scope != nil {
		query = scope(query)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []order.Order
	if err := applyFilter(query, filter).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Save creates the order on first save; later saves are a compare-and-swap
// on (id, version), so two concurrent transitions cannot both win.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&order.Order{}).Where("id = ?", o.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return tx.Create(o).Error
		}

		expectedVersion := o.Version
		o.Version++
		o.UpdatedAt = time.Now()

		updates := map[string]interface{}{
			"order_number":      o.OrderNumber,
			"customer_id":       o.CustomerID,
			"customer_name":     o.CustomerName,
			"concrete_mark_id":  o.ConcreteMarkID,
			"concrete_mark":     o.ConcreteMark,
			"quantity":          o.Quantity,
			"delivery_date":     o.DeliveryDate,
			"delivery_time":     o.DeliveryTime,
			"delivery_address":  o.DeliveryAddress,
			"delivery_lat":      o.DeliveryLat,
			"delivery_lon":      o.DeliveryLon,
			"payment_type":      o.PaymentType,
			"status":            o.Status,
			"reject_reason":     o.RejectReason,
			"submitted_at":      o.SubmittedAt,
			"approved_at":       o.ApprovedAt,
			"dispatched_at":     o.DispatchedAt,
			"delivery_start_at": o.DeliveryStartAt,
			"delivered_at":      o.DeliveredAt,
			"completed_at":      o.CompletedAt,
			"rejected_at":       o.RejectedAt,
			"canceled_at":       o.CanceledAt,
			"version":           o.Version,
			"updated_at":        o.UpdatedAt,
		}
		if o.Proposal != nil {
			updates["proposal_date"] = o.Proposal.Date
			updates["proposal_time"] = o.Proposal.Time
			updates["proposal_reason"] = o.Proposal.Reason
			updates["proposal_proposed_at"] = o.Proposal.ProposedAt
		} else {
			updates["proposal_date"] = nil
			updates["proposal_time"] = nil
			updates["proposal_reason"] = nil
			updates["proposal_proposed_at"] = nil
		}

		result := tx.Model(&order.Order{}).
			Where("id = ? AND version = ?", o.ID, expectedVersion).
			Updates(updates)
		if result.Error != nil {
			o.Version = expectedVersion
			return result.Error
		}
		if result.RowsAffected == 0 {
			o.Version = expectedVersion
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// GenerateOrderNumber generates a unique order number.
// Format: ORD-YYYY-NNNNN (e.g., ORD-2026-00001)
func (r *GormOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("ORD-%d-", year)

	var lastOrder order.Order
	err := r.db.WithContext(ctx).
		Model(&order.Order{}).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		First(&lastOrder).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil && lastOrder.OrderNumber != "" {
		parts := strings.Split(lastOrder.OrderNumber, "-")
		if len(parts) == 3 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[2], "%d", &num); parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}
