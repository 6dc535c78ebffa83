package persistence

import (
	"context"

	appinv "github.com/cafe/backend/internal/application/inventory"
	"github.com/cafe/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. Any error from fn, or from
// the commit itself, rolls back every write made through repos.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// StockRepo returns the ingredient stock repository scoped to the current transaction.
func (r *gormTransactionalRepositories) StockRepo() inventory.IngredientStockRepository {
	return NewGormIngredientStockRepository(r.tx)
}

// TransactionRepo returns the ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) TransactionRepo() inventory.InventoryTransactionRepository {
	return NewGormInventoryTransactionRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
