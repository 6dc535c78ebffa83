// Package recipe maps menu items to the ingredients they consume.
// Recipes are catalog data maintained outside the deduction pipeline and are
// only read here.
package recipe

import (
	"strings"
	"time"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/cafe/backend/internal/domain/order"
	"github.com/cafe/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recipe is the bill of materials of one menu item
type Recipe struct {
	ID         uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Components []Component
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewRecipe creates an empty recipe for a menu item
func NewRecipe(menuItemID uuid.UUID, name string) (*Recipe, error) {
	if menuItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MENU_ITEM", "Menu item ID cannot be empty")
	}
	now := time.Now()
	return &Recipe{
		ID:         uuid.New(),
		MenuItemID: menuItemID,
		Name:       strings.TrimSpace(name),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// AddComponent appends a component and returns it for further configuration
func (r *Recipe) AddComponent(ingredientID uuid.UUID, baseQuantity decimal.Decimal, unit inventory.Unit, optional bool) (*Component, error) {
	if ingredientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INGREDIENT", "Ingredient ID cannot be empty")
	}
	if baseQuantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Base quantity cannot be negative")
	}
	if !unit.IsValid() {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unknown unit: "+unit.String())
	}
	r.Components = append(r.Components, Component{
		ID:           uuid.New(),
		RecipeID:     r.ID,
		IngredientID: ingredientID,
		BaseQuantity: baseQuantity,
		Unit:         unit,
		IsOptional:   optional,
		Position:     len(r.Components),
	})
	return &r.Components[len(r.Components)-1], nil
}

// HasRequiredComponent returns true if at least one component is not optional
func (r *Recipe) HasRequiredComponent() bool {
	for _, c := range r.Components {
		if !c.IsOptional {
			return true
		}
	}
	return false
}

// Component is one ingredient requirement of a recipe
type Component struct {
	ID           uuid.UUID
	RecipeID     uuid.UUID
	IngredientID uuid.UUID
	BaseQuantity decimal.Decimal
	Unit         inventory.Unit
	IsOptional   bool
	Position     int
	Overrides    []CustomizationOverride
}

// AddOverride replaces the quantity when option=value is selected
func (c *Component) AddOverride(option, value string, quantity decimal.Decimal) {
	q := quantity
	c.Overrides = append(c.Overrides, CustomizationOverride{Option: option, Value: value, Quantity: &q})
}

// AddOmit skips the component when option=value is selected
func (c *Component) AddOmit(option, value string) {
	c.Overrides = append(c.Overrides, CustomizationOverride{Option: option, Value: value, Omit: true})
}

// QuantityFor returns the per-unit quantity this component consumes for a line.
// The second result is false when the component is not consumed at all.
//
// An omit override wins over any other matching override; otherwise the first
// matching quantity override applies. Optional components are consumed only
// when a quantity override selects them.
func (c *Component) QuantityFor(line order.Line) (decimal.Decimal, bool) {
	var selected *CustomizationOverride
	for i := range c.Overrides {
		o := &c.Overrides[i]
		if !o.Matches(line) {
			continue
		}
		if o.Omit {
			return decimal.Zero, false
		}
		if selected == nil && o.Quantity != nil {
			selected = o
		}
	}
	if selected != nil {
		return *selected.Quantity, true
	}
	if c.IsOptional {
		return decimal.Zero, false
	}
	return c.BaseQuantity, true
}

// CustomizationOverride alters a component when a line selects Option=Value.
// Exactly one of Quantity or Omit is meaningful.
type CustomizationOverride struct {
	Option   string           `json:"option"`
	Value    string           `json:"value"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
	Omit     bool             `json:"omit,omitempty"`
}

// Matches reports whether the line selected this override's option value
func (o CustomizationOverride) Matches(line order.Line) bool {
	v, ok := line.Customization(o.Option)
	return ok && v == strings.ToLower(strings.TrimSpace(o.Value))
}
