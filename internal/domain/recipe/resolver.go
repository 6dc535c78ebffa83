package recipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/cafe/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WarningCode identifies a data-quality condition found while resolving
type WarningCode string

const (
	// WarningMissingRecipe means a line's menu item has no recipe and consumes nothing
	WarningMissingRecipe WarningCode = "MISSING_RECIPE"
	// WarningNoRequiredComponents means a recipe has only optional components
	WarningNoRequiredComponents WarningCode = "NO_REQUIRED_COMPONENTS"
)

// Warning is a non-fatal resolver finding
type Warning struct {
	Code       WarningCode
	MenuItemID uuid.UUID
	Message    string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// Resolution is the aggregated stock decrement of an order.
// Deltas hold one entry per ingredient sorted by ingredient id; quantities are
// the positive amount to remove.
type Resolution struct {
	Deltas   []inventory.StockDelta
	Warnings []Warning
}

// HasWarnings returns true if any data-quality condition was found
func (r *Resolution) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Resolver turns order lines into per-ingredient deltas. It reads recipes
// only and never touches stock.
type Resolver struct {
	repo   Repository
	logger *zap.Logger
}

// NewResolver creates a resolver
func NewResolver(repo Repository, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{repo: repo, logger: logger}
}

// Resolve computes the ingredient deltas for lines.
// Structurally invalid input returns ErrMalformedOrder. A menu item without a
// recipe contributes nothing and is reported as a warning.
func (r *Resolver) Resolve(ctx context.Context, lines []order.Line) (*Resolution, error) {
	if err := order.ValidateLines(lines); err != nil {
		return nil, err
	}

	res := &Resolution{}
	recipes := make(map[uuid.UUID]*Recipe)
	totals := make(map[uuid.UUID]*inventory.StockDelta)
	warned := make(map[uuid.UUID]bool)

	for _, line := range lines {
		rec, ok := recipes[line.MenuItemID]
		if !ok {
			found, err := r.repo.FindByMenuItem(ctx, line.MenuItemID)
			if err != nil && !errors.Is(err, ErrRecipeNotFound) {
				return nil, fmt.Errorf("load recipe for menu item %s: %w", line.MenuItemID, err)
			}
			rec = found
			recipes[line.MenuItemID] = rec
		}

		if rec == nil {
			if !warned[line.MenuItemID] {
				warned[line.MenuItemID] = true
				res.Warnings = append(res.Warnings, Warning{
					Code:       WarningMissingRecipe,
					MenuItemID: line.MenuItemID,
					Message:    fmt.Sprintf("menu item %s has no recipe", line.MenuItemID),
				})
				r.logger.Warn("Menu item has no recipe",
					zap.String("menu_item_id", line.MenuItemID.String()),
					zap.String("customizations", line.CustomizationKey()))
			}
			continue
		}

		if !rec.HasRequiredComponent() && !warned[line.MenuItemID] {
			warned[line.MenuItemID] = true
			res.Warnings = append(res.Warnings, Warning{
				Code:       WarningNoRequiredComponents,
				MenuItemID: line.MenuItemID,
				Message:    fmt.Sprintf("recipe %q has no required component", rec.Name),
			})
			r.logger.Warn("Recipe has no required component",
				zap.String("menu_item_id", line.MenuItemID.String()),
				zap.String("recipe", rec.Name))
		}

		multiplier := decimal.NewFromInt(int64(line.Quantity))
		for i := range rec.Components {
			c := &rec.Components[i]
			perUnit, consumed := c.QuantityFor(line)
			if !consumed || perUnit.IsZero() {
				continue
			}
			if err := accumulate(totals, c.IngredientID, perUnit.Mul(multiplier), c.Unit); err != nil {
				return nil, err
			}
		}
	}

	res.Deltas = make([]inventory.StockDelta, 0, len(totals))
	for _, d := range totals {
		res.Deltas = append(res.Deltas, *d)
	}
	sort.Slice(res.Deltas, func(i, j int) bool {
		return bytes.Compare(res.Deltas[i].IngredientID[:], res.Deltas[j].IngredientID[:]) < 0
	})
	return res, nil
}

// accumulate adds qty to the ingredient's running total, converting into the
// unit of the first contribution.
func accumulate(totals map[uuid.UUID]*inventory.StockDelta, ingredientID uuid.UUID, qty decimal.Decimal, unit inventory.Unit) error {
	cur, ok := totals[ingredientID]
	if !ok {
		totals[ingredientID] = &inventory.StockDelta{IngredientID: ingredientID, Quantity: qty, Unit: unit}
		return nil
	}
	converted, err := inventory.Convert(qty, unit, cur.Unit)
	if err != nil {
		return fmt.Errorf("ingredient %s: %w", ingredientID, err)
	}
	cur.Quantity = cur.Quantity.Add(converted)
	return nil
}
