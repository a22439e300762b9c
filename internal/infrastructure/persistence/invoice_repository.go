package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/betonplant/backend/internal/domain/invoice"
	"github.com/betonplant/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements invoice.Repository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID with its checkpoints
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Checkpoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("recorded_at ASC")
		}).
		First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindByOrder finds every invoice referencing the order, oldest first
func (r *GormInvoiceRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]invoice.Invoice, error) {
	var invoices []invoice.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Checkpoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("recorded_at ASC")
		}).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByDriver finds invoices assigned to the driver
func (r *GormInvoiceRepository) FindByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) ([]invoice.Invoice, int64, error) {
	return r.findWhere(ctx, filter, func(q *gorm.DB) *gorm.DB {
		return q.Where("driver_id = ?", driverID)
	})
}

// FindAll finds all invoices with filtering and pagination
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]invoice.Invoice, int64, error) {
	return r.findWhere(ctx, filter, nil)
}

func (r *GormInvoiceRepository) findWhere(ctx context.Context, filter shared.Filter, scope func(*gorm.DB) *gorm.DB) ([]invoice.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&invoice.Invoice{})
	if scope != nil {
		query = scope(query)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoices []invoice.Invoice
	if err := applyFilter(query, filter).
		Preload("Checkpoints", func(db *gorm.DB) *gorm.DB {
			return db.Order("recorded_at ASC")
		}).
		Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// Save creates the invoice on first save; later saves compare-and-swap on
// (id, version) and append any new checkpoints. Checkpoints are insert-only;
// rows already present are left untouched.
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&invoice.Invoice{}).Where("id = ?", inv.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return tx.Create(inv).Error
		}

		expectedVersion := inv.Version
		inv.Version++
		inv.UpdatedAt = time.Now()

		result := tx.Model(&invoice.Invoice{}).
			Where("id = ? AND version = ?", inv.ID, expectedVersion).
			Updates(map[string]interface{}{
				"invoice_number":               inv.InvoiceNumber,
				"status":                       inv.Status,
				"quantity":                     inv.Quantity,
				"weighing_gross_weight_kg":     inv.Weighing.GrossWeightKg,
				"weighing_gross_captured_at":   inv.Weighing.GrossCapturedAt,
				"weighing_tare_weight_kg":      inv.Weighing.TareWeightKg,
				"weighing_tare_captured_at":    inv.Weighing.TareCapturedAt,
				"weighing_net_weight_kg":       inv.Weighing.NetWeightKg,
				"weighing_moisture_percent":    inv.Weighing.MoisturePercent,
				"weighing_corrected_weight_kg": inv.Weighing.CorrectedWeightKg,
				"weighing_photo_ref":           inv.Weighing.PhotoRef,
				"cancel_reason":                inv.CancelReason,
				"canceled_at":                  inv.CanceledAt,
				"completed_at":                 inv.CompletedAt,
				"version":                      inv.Version,
				"updated_at":                   inv.UpdatedAt,
			})
		if result.Error != nil {
			inv.Version = expectedVersion
			return result.Error
		}
		if result.RowsAffected == 0 {
			inv.Version = expectedVersion
			return shared.ErrConcurrencyConflict
		}

		for idx := range inv.Checkpoints {
			inv.Checkpoints[idx].InvoiceID = inv.ID
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&inv.Checkpoints[idx]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GenerateInvoiceNumber generates a unique invoice number per type.
// Format: INV-D-YYYY-NNNNN for deliveries, INV-R-YYYY-NNNNN for receipts.
func (r *GormInvoiceRepository) GenerateInvoiceNumber(ctx context.Context, typ invoice.Type) (string, error) {
	kind := "D"
	if typ == invoice.TypeReceipt {
		kind = "R"
	}
	year := time.Now().Year()
	prefix := fmt.Sprintf("INV-%s-%d-", kind, year)

	var last invoice.Invoice
	err := r.db.WithContext(ctx).
		Model(&invoice.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Order("invoice_number DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil && last.InvoiceNumber != "" {
		parts := strings.Split(last.InvoiceNumber, "-")
		if len(parts) == 4 {
			var num int64
			if _, parseErr := fmt.Sscanf(parts[3], "%d", &num); parseErr == nil {
				nextNum = num + 1
			}
		}
	}

	return fmt.Sprintf("%s%05d", prefix, nextNum), nil
}
