package inventory

import (
	"strings"
	"time"

	"github.com/cafe/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IngredientStock is the on-hand quantity of one ingredient.
// Only the stock ledger writes Quantity after creation.
type IngredientStock struct {
	IngredientID     uuid.UUID
	Name             string
	Quantity         decimal.Decimal
	Unit             Unit
	ReorderThreshold decimal.Decimal
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewIngredientStock creates a stock row for a new ingredient
func NewIngredientStock(name string, quantity decimal.Decimal, unit Unit, threshold decimal.Decimal) (*IngredientStock, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Ingredient name cannot be empty")
	}
	if !unit.IsValid() {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unknown unit: "+unit.String())
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Initial quantity cannot be negative")
	}
	if threshold.IsNegative() {
		return nil, shared.NewDomainError("INVALID_THRESHOLD", "Reorder threshold cannot be negative")
	}
	now := time.Now()
	return &IngredientStock{
		IngredientID:     uuid.New(),
		Name:             name,
		Quantity:         quantity,
		Unit:             unit,
		ReorderThreshold: threshold,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// StockChange is the before/after view of one deduction on a stock row
type StockChange struct {
	Previous  decimal.Decimal
	Resulting decimal.Decimal
}

// Deduct lowers the quantity by amount, expressed in the stock's unit.
// The result may go negative; callers decide whether to warn.
func (s *IngredientStock) Deduct(amount decimal.Decimal) (StockChange, error) {
	if !amount.IsPositive() {
		return StockChange{}, ErrInvalidQuantity
	}
	change := StockChange{Previous: s.Quantity, Resulting: s.Quantity.Sub(amount)}
	s.Quantity = change.Resulting
	s.Version++
	s.UpdatedAt = time.Now()
	return change, nil
}

// IsBelowThreshold returns true when the quantity is at or under the reorder threshold
func (s *IngredientStock) IsBelowThreshold() bool {
	return s.Quantity.LessThanOrEqual(s.ReorderThreshold)
}
