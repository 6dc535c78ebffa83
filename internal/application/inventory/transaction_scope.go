package inventory

import (
	"context"

	"github.com/cafe/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to the stock repositories.
// All repository operations inside Execute are committed or rolled back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories of one transaction.
//
//   - StockRepo: ingredient stock rows. Reads lock the row, writes are version checked.
//   - TransactionRepo: the append-only ledger. Its unique (order, ingredient)
//     key rejects a second application of the same order.
type TransactionalRepositories interface {
	StockRepo() inventory.IngredientStockRepository
	TransactionRepo() inventory.InventoryTransactionRepository
}

// NoOpTransactionScope runs the function against plain repositories without a
// transaction. Used by tests with in-memory repositories.
type NoOpTransactionScope struct {
	stockRepo       inventory.IngredientStockRepository
	transactionRepo inventory.InventoryTransactionRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	stockRepo inventory.IngredientStockRepository,
	transactionRepo inventory.InventoryTransactionRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		stockRepo:       stockRepo,
		transactionRepo: transactionRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// StockRepo returns the ingredient stock repository.
func (s *NoOpTransactionScope) StockRepo() inventory.IngredientStockRepository {
	return s.stockRepo
}

// TransactionRepo returns the ledger repository.
func (s *NoOpTransactionScope) TransactionRepo() inventory.InventoryTransactionRepository {
	return s.transactionRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
