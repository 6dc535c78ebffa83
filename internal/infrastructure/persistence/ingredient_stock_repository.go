package persistence

import (
	"context"
	"errors"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/cafe/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormIngredientStockRepository implements IngredientStockRepository using GORM
type GormIngredientStockRepository struct {
	db *gorm.DB
}

// NewGormIngredientStockRepository creates a new GormIngredientStockRepository
func NewGormIngredientStockRepository(db *gorm.DB) *GormIngredientStockRepository {
	return &GormIngredientStockRepository{db: db}
}

// FindByIngredient finds a stock row by ingredient ID
func (r *GormIngredientStockRepository) FindByIngredient(ctx context.Context, ingredientID uuid.UUID) (*inventory.IngredientStock, error) {
	return r.find(r.db.WithContext(ctx), ingredientID)
}

// FindByIngredientForUpdate finds a stock row and locks it with SELECT ... FOR UPDATE.
// Dialects without row locks ignore the clause.
func (r *GormIngredientStockRepository) FindByIngredientForUpdate(ctx context.Context, ingredientID uuid.UUID) (*inventory.IngredientStock, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), ingredientID)
}

func (r *GormIngredientStockRepository) find(db *gorm.DB, ingredientID uuid.UUID) (*inventory.IngredientStock, error) {
	var model models.IngredientStockModel
	if err := db.Where("ingredient_id = ?", ingredientID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrIngredientNotFound
		}
		return nil, storageError("find ingredient stock", err)
	}
	return model.ToDomain(), nil
}

// FindAll returns every stock row ordered by name
func (r *GormIngredientStockRepository) FindAll(ctx context.Context) ([]inventory.IngredientStock, error) {
	var rows []models.IngredientStockModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, storageError("list ingredient stocks", err)
	}
	stocks := make([]inventory.IngredientStock, len(rows))
	for i := range rows {
		stocks[i] = *rows[i].ToDomain()
	}
	return stocks, nil
}

// Save creates or updates a stock row
func (r *GormIngredientStockRepository) Save(ctx context.Context, stock *inventory.IngredientStock) error {
	if err := r.db.WithContext(ctx).Save(models.IngredientStockModelFromDomain(stock)).Error; err != nil {
		return storageError("save ingredient stock", err)
	}
	return nil
}

// UpdateQuantity writes quantity and version guarded by the expected version
func (r *GormIngredientStockRepository) UpdateQuantity(ctx context.Context, stock *inventory.IngredientStock, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&models.IngredientStockModel{}).
		Where("ingredient_id = ? AND version = ?", stock.IngredientID, expectedVersion).
		Updates(map[string]interface{}{
			"quantity":   stock.Quantity,
			"version":    stock.Version,
			"updated_at": stock.UpdatedAt,
		})

	if result.Error != nil {
		return storageError("update ingredient stock", result.Error)
	}
	if result.RowsAffected == 0 {
		return inventory.ErrConflict
	}
	return nil
}

var _ inventory.IngredientStockRepository = (*GormIngredientStockRepository)(nil)
