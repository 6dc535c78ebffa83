package models

import (
	"fmt"
	"time"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/cafe/backend/internal/domain/recipe"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// RecipeModel is the persistence model for a menu item's recipe
type RecipeModel struct {
	ID         uuid.UUID              `gorm:"type:uuid;primaryKey"`
	MenuItemID uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex"`
	Name       string                 `gorm:"type:varchar(100);not null"`
	Components []RecipeComponentModel `gorm:"foreignKey:RecipeID;references:ID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time              `gorm:"not null"`
	UpdatedAt  time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RecipeModel) TableName() string {
	return "recipes"
}

// RecipeComponentModel is the persistence model for one recipe ingredient.
// Customization overrides are stored as a JSON array.
type RecipeComponentModel struct {
	ID                     uuid.UUID                                         `gorm:"type:uuid;primaryKey"`
	RecipeID               uuid.UUID                                         `gorm:"type:uuid;not null;index"`
	IngredientID           uuid.UUID                                         `gorm:"type:uuid;not null"`
	BaseQuantity           decimal.Decimal                                   `gorm:"type:decimal(18,4);not null"`
	Unit                   string                                            `gorm:"type:varchar(10);not null"`
	IsOptional             bool                                              `gorm:"not null"`
	Position               int                                               `gorm:"not null"`
	CustomizationOverrides datatypes.JSONSlice[recipe.CustomizationOverride] `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RecipeComponentModel) TableName() string {
	return "recipe_components"
}

// ToDomain converts the persistence model to a domain Recipe.
// Stored unit symbols are normalized; an unknown symbol is an error.
func (m *RecipeModel) ToDomain() (*recipe.Recipe, error) {
	r := &recipe.Recipe{
		ID:         m.ID,
		MenuItemID: m.MenuItemID,
		Name:       m.Name,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		Components: make([]recipe.Component, len(m.Components)),
	}
	for i, c := range m.Components {
		unit, err := inventory.ParseUnit(c.Unit)
		if err != nil {
			return nil, fmt.Errorf("recipe %s component %d: %w", m.MenuItemID, c.Position, err)
		}
		r.Components[i] = recipe.Component{
			ID:           c.ID,
			RecipeID:     c.RecipeID,
			IngredientID: c.IngredientID,
			BaseQuantity: c.BaseQuantity,
			Unit:         unit,
			IsOptional:   c.IsOptional,
			Position:     c.Position,
			Overrides:    []recipe.CustomizationOverride(c.CustomizationOverrides),
		}
	}
	return r, nil
}

// RecipeModelFromDomain creates a persistence model from a domain Recipe
func RecipeModelFromDomain(r *recipe.Recipe) *RecipeModel {
	m := &RecipeModel{
		ID:         r.ID,
		MenuItemID: r.MenuItemID,
		Name:       r.Name,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Components: make([]RecipeComponentModel, len(r.Components)),
	}
	for i, c := range r.Components {
		overrides := c.Overrides
		if overrides == nil {
			overrides = []recipe.CustomizationOverride{}
		}
		m.Components[i] = RecipeComponentModel{
			ID:                     c.ID,
			RecipeID:               r.ID,
			IngredientID:           c.IngredientID,
			BaseQuantity:           c.BaseQuantity,
			Unit:                   c.Unit.String(),
			IsOptional:             c.IsOptional,
			Position:               c.Position,
			CustomizationOverrides: datatypes.JSONSlice[recipe.CustomizationOverride](overrides),
		}
	}
	return m
}
