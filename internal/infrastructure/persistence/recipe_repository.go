package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/cafe/backend/internal/domain/recipe"
	"github.com/cafe/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRecipeRepository implements recipe.Repository using GORM
type GormRecipeRepository struct {
	db *gorm.DB
}

// NewGormRecipeRepository creates a new GormRecipeRepository
func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db}
}

func preloadComponents(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByMenuItem finds the recipe of a menu item with its components
func (r *GormRecipeRepository) FindByMenuItem(ctx context.Context, menuItemID uuid.UUID) (*recipe.Recipe, error) {
	var model models.RecipeModel
	if err := r.db.WithContext(ctx).
		Preload("Components", preloadComponents).
		Where("menu_item_id = ?", menuItemID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recipe.ErrRecipeNotFound
		}
		return nil, storageError("find recipe", err)
	}
	rec, err := model.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	return rec, nil
}

// FindAll returns every recipe ordered by name
func (r *GormRecipeRepository) FindAll(ctx context.Context) ([]recipe.Recipe, error) {
	var rows []models.RecipeModel
	if err := r.db.WithContext(ctx).
		Preload("Components", preloadComponents).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, storageError("list recipes", err)
	}
	recipes := make([]recipe.Recipe, len(rows))
	for i := range rows {
		rec, err := rows[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("decode recipe: %w", err)
		}
		recipes[i] = *rec
	}
	return recipes, nil
}

// Save replaces a recipe and its full component list
func (r *GormRecipeRepository) Save(ctx context.Context, rec *recipe.Recipe) error {
	model := models.RecipeModelFromDomain(rec)
	components := model.Components
	model.Components = nil

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", model.ID).Delete(&models.RecipeComponentModel{}).Error; err != nil {
			return err
		}
		if len(components) == 0 {
			return nil
		}
		return tx.Create(&components).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return recipe.ErrDuplicateMenuItem
		}
		return storageError("save recipe", err)
	}
	return nil
}

var _ recipe.Repository = (*GormRecipeRepository)(nil)
