package persistence

import (
	"context"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/cafe/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLowStockAlertRepository implements LowStockAlertRepository using GORM
type GormLowStockAlertRepository struct {
	db *gorm.DB
}

// NewGormLowStockAlertRepository creates a new GormLowStockAlertRepository
func NewGormLowStockAlertRepository(db *gorm.DB) *GormLowStockAlertRepository {
	return &GormLowStockAlertRepository{db: db}
}

// Create stores an alert
func (r *GormLowStockAlertRepository) Create(ctx context.Context, alert *inventory.LowStockAlert) error {
	if err := r.db.WithContext(ctx).Create(models.LowStockAlertModelFromDomain(alert)).Error; err != nil {
		return storageError("create low stock alert", err)
	}
	return nil
}

// FindRecent returns the newest alerts first
func (r *GormLowStockAlertRepository) FindRecent(ctx context.Context, limit int) ([]inventory.LowStockAlert, error) {
	if limit <= 0 {
		limit = DefaultLedgerPageSize
	}
	var rows []models.LowStockAlertModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, storageError("find recent alerts", err)
	}
	return toAlerts(rows), nil
}

// FindByIngredient returns the alerts of one ingredient, newest first
func (r *GormLowStockAlertRepository) FindByIngredient(ctx context.Context, ingredientID uuid.UUID) ([]inventory.LowStockAlert, error) {
	var rows []models.LowStockAlertModel
	if err := r.db.WithContext(ctx).
		Where("ingredient_id = ?", ingredientID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, storageError("find ingredient alerts", err)
	}
	return toAlerts(rows), nil
}

func toAlerts(rows []models.LowStockAlertModel) []inventory.LowStockAlert {
	alerts := make([]inventory.LowStockAlert, len(rows))
	for i := range rows {
		alerts[i] = *rows[i].ToDomain()
	}
	return alerts
}

var _ inventory.LowStockAlertRepository = (*GormLowStockAlertRepository)(nil)
