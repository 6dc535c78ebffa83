package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryTransaction is one immutable ledger row recording a stock change
// caused by an order. Rows are never updated or deleted; at most one row exists
// per (order, ingredient).
type InventoryTransaction struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	IngredientID      uuid.UUID
	Delta             decimal.Decimal
	ResultingQuantity decimal.Decimal
	Unit              Unit
	CreatedAt         time.Time
}

// NewDeductionTransaction records a decrement of amount for an order.
// Delta is stored negative.
func NewDeductionTransaction(orderID, ingredientID uuid.UUID, amount, resulting decimal.Decimal, unit Unit, at time.Time) *InventoryTransaction {
	return &InventoryTransaction{
		ID:                uuid.New(),
		OrderID:           orderID,
		IngredientID:      ingredientID,
		Delta:             amount.Neg(),
		ResultingQuantity: resulting,
		Unit:              unit,
		CreatedAt:         at,
	}
}

// Quantity returns the absolute amount moved by this row
func (t *InventoryTransaction) Quantity() decimal.Decimal {
	return t.Delta.Abs()
}
