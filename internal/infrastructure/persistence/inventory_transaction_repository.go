package persistence

import (
	"context"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/cafe/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultLedgerPageSize bounds ledger queries that are given no limit
const DefaultLedgerPageSize = 100

// GormInventoryTransactionRepository implements InventoryTransactionRepository using GORM.
// It only inserts and reads; ledger rows are never updated or deleted.
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// Create appends ledger rows
func (r *GormInventoryTransactionRepository) Create(ctx context.Context, txs ...*inventory.InventoryTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	rows := make([]*models.InventoryTransactionModel, len(txs))
	for i, tx := range txs {
		rows[i] = models.InventoryTransactionModelFromDomain(tx)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		if isDuplicateKey(err) {
			return inventory.ErrAlreadyApplied
		}
		return storageError("append inventory transactions", err)
	}
	return nil
}

// ExistsForOrder reports whether any ledger row references the order
func (r *GormInventoryTransactionRepository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryTransactionModel{}).
		Where("order_id = ?", orderID).
		Count(&count).Error; err != nil {
		return false, storageError("check order ledger", err)
	}
	return count > 0, nil
}

// FindByOrder returns the ledger rows of one order
func (r *GormInventoryTransactionRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	var rows []models.InventoryTransactionModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("ingredient_id ASC").
		Find(&rows).Error; err != nil {
		return nil, storageError("find order ledger", err)
	}
	return toTransactions(rows), nil
}

// FindByIngredient returns the newest ledger rows of an ingredient
func (r *GormInventoryTransactionRepository) FindByIngredient(ctx context.Context, ingredientID uuid.UUID, limit int) ([]inventory.InventoryTransaction, error) {
	if limit <= 0 {
		limit = DefaultLedgerPageSize
	}
	var rows []models.InventoryTransactionModel
	if err := r.db.WithContext(ctx).
		Where("ingredient_id = ?", ingredientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, storageError("find ingredient ledger", err)
	}
	return toTransactions(rows), nil
}

func toTransactions(rows []models.InventoryTransactionModel) []inventory.InventoryTransaction {
	txs := make([]inventory.InventoryTransaction, len(rows))
	for i := range rows {
		txs[i] = *rows[i].ToDomain()
	}
	return txs
}

var _ inventory.InventoryTransactionRepository = (*GormInventoryTransactionRepository)(nil)
