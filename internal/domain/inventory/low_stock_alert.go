package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertKind classifies a low-stock alert
type AlertKind string

const (
	AlertKindLowStock   AlertKind = "low_stock"
	AlertKindOutOfStock AlertKind = "out_of_stock"
)

// LowStockAlert records one downward crossing of an ingredient's reorder threshold
type LowStockAlert struct {
	ID               uuid.UUID
	IngredientID     uuid.UUID
	IngredientName   string
	Kind             AlertKind
	PreviousQuantity decimal.Decimal
	ObservedQuantity decimal.Decimal
	Threshold        decimal.Decimal
	Unit             Unit
	CreatedAt        time.Time
}

// Crossed reports whether a change from previous to current crossed the
// threshold downward. Further drops below the threshold do not cross it again.
func Crossed(previous, current, threshold decimal.Decimal) bool {
	return previous.GreaterThan(threshold) && current.LessThanOrEqual(threshold)
}

// KindFor returns out_of_stock for quantities at or below zero, low_stock otherwise
func KindFor(current decimal.Decimal) AlertKind {
	if current.LessThanOrEqual(decimal.Zero) {
		return AlertKindOutOfStock
	}
	return AlertKindLowStock
}

// NewLowStockAlert creates an alert for a threshold crossing
func NewLowStockAlert(ingredientID uuid.UUID, previous, current, threshold decimal.Decimal, at time.Time) *LowStockAlert {
	return &LowStockAlert{
		ID:               uuid.New(),
		IngredientID:     ingredientID,
		Kind:             KindFor(current),
		PreviousQuantity: previous,
		ObservedQuantity: current,
		Threshold:        threshold,
		CreatedAt:        at,
	}
}

// IsOutOfStock returns true if the alert reports an exhausted ingredient
func (a *LowStockAlert) IsOutOfStock() bool {
	return a.Kind == AlertKindOutOfStock
}
