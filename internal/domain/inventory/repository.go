package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockDelta is a requested decrement of one ingredient, in the recipe's unit
type StockDelta struct {
	IngredientID uuid.UUID
	Quantity     decimal.Decimal
	Unit         Unit
}

// IngredientStockRepository defines persistence for ingredient stock rows
type IngredientStockRepository interface {
	// FindByIngredient returns the stock row without locking it
	FindByIngredient(ctx context.Context, ingredientID uuid.UUID) (*IngredientStock, error)

	// FindByIngredientForUpdate returns the stock row locked for the
	// remainder of the surrounding transaction
	FindByIngredientForUpdate(ctx context.Context, ingredientID uuid.UUID) (*IngredientStock, error)

	// FindAll returns every stock row ordered by name
	FindAll(ctx context.Context) ([]IngredientStock, error)

	// Save creates or replaces a stock row (seeding and administration)
	Save(ctx context.Context, stock *IngredientStock) error

	// UpdateQuantity writes the stock's quantity and version only if the
	// stored version still equals expectedVersion. Returns ErrConflict otherwise.
	UpdateQuantity(ctx context.Context, stock *IngredientStock, expectedVersion int) error
}

// InventoryTransactionRepository is the append-only ledger of stock changes
type InventoryTransactionRepository interface {
	// Create appends ledger rows. A duplicate (order, ingredient) pair
	// yields ErrAlreadyApplied.
	Create(ctx context.Context, txs ...*InventoryTransaction) error

	// ExistsForOrder reports whether any row was recorded for the order
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)

	// FindByOrder returns the rows of one order ordered by ingredient
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]InventoryTransaction, error)

	// FindByIngredient returns the newest rows of one ingredient
	FindByIngredient(ctx context.Context, ingredientID uuid.UUID, limit int) ([]InventoryTransaction, error)
}

// LowStockAlertRepository persists raised alerts
type LowStockAlertRepository interface {
	// Create stores a new alert
	Create(ctx context.Context, alert *LowStockAlert) error

	// FindRecent returns the newest alerts first
	FindRecent(ctx context.Context, limit int) ([]LowStockAlert, error)

	// FindByIngredient returns the alerts of one ingredient, newest first
	FindByIngredient(ctx context.Context, ingredientID uuid.UUID) ([]LowStockAlert, error)
}
