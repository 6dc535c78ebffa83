package recipe

import (
	"context"

	"github.com/cafe/backend/internal/domain/order"
	"github.com/cafe/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var (
	// ErrRecipeNotFound is returned when a menu item has no recipe
	ErrRecipeNotFound = shared.NewDomainError("RECIPE_NOT_FOUND", "Recipe not found")

	// ErrDuplicateMenuItem is returned when another recipe already covers the menu item
	ErrDuplicateMenuItem = shared.NewDomainError("RECIPE_ALREADY_EXISTS", "Menu item already has a recipe")

	// ErrMalformedOrder is the order package's terminal error, re-exported for resolver callers
	ErrMalformedOrder = order.ErrMalformedOrder
)

// Repository defines read access to recipes plus catalog maintenance
type Repository interface {
	// FindByMenuItem returns the recipe with its components, or ErrRecipeNotFound
	FindByMenuItem(ctx context.Context, menuItemID uuid.UUID) (*Recipe, error)

	// FindAll returns every recipe with its components
	FindAll(ctx context.Context) ([]Recipe, error)

	// Save creates or replaces a recipe and its components
	Save(ctx context.Context, recipe *Recipe) error
}
