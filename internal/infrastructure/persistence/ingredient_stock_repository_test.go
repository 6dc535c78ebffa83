package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStock(t *testing.T, repo *GormIngredientStockRepository, name string, qty int64, unit inventory.Unit, threshold int64) *inventory.IngredientStock {
	stock, err := inventory.NewIngredientStock(name, decimal.NewFromInt(qty), unit, decimal.NewFromInt(threshold))
	require.NoError(t, err)
	stock.CreatedAt = testNow()
	stock.UpdatedAt = testNow()
	require.NoError(t, repo.Save(context.Background(), stock))
	return stock
}

func TestGormIngredientStockRepository_FindAndSave(t *testing.T) {
	repo := NewGormIngredientStockRepository(newTestDB(t))
	ctx := context.Background()

	milk := seedStock(t, repo, "Milk", 1000, inventory.UnitMilliliter, 200)
	seedStock(t, repo, "Espresso beans", 500, inventory.UnitGram, 100)

	t.Run("finds by ingredient", func(t *testing.T) {
		found, err := repo.FindByIngredient(ctx, milk.IngredientID)
		require.NoError(t, err)
		assert.Equal(t, "Milk", found.Name)
		assert.True(t, found.Quantity.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, inventory.UnitMilliliter, found.Unit)
		assert.Equal(t, 1, found.Version)
	})

	t.Run("locking read returns the same row", func(t *testing.T) {
		found, err := repo.FindByIngredientForUpdate(ctx, milk.IngredientID)
		require.NoError(t, err)
		assert.Equal(t, milk.IngredientID, found.IngredientID)
	})

	t.Run("unknown ingredient", func(t *testing.T) {
		_, err := repo.FindByIngredient(ctx, uuid.New())
		assert.ErrorIs(t, err, inventory.ErrIngredientNotFound)
	})

	t.Run("lists ordered by name", func(t *testing.T) {
		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Espresso beans", all[0].Name)
		assert.Equal(t, "Milk", all[1].Name)
	})
}

func TestGormIngredientStockRepository_UpdateQuantity(t *testing.T) {
	repo := NewGormIngredientStockRepository(newTestDB(t))
	ctx := context.Background()
	milk := seedStock(t, repo, "Milk", 1000, inventory.UnitMilliliter, 200)

	t.Run("applies with matching version", func(t *testing.T) {
		stock, err := repo.FindByIngredient(ctx, milk.IngredientID)
		require.NoError(t, err)
		expected := stock.Version
		_, err = stock.Deduct(decimal.NewFromInt(300))
		require.NoError(t, err)
		stock.UpdatedAt = testNow()

		require.NoError(t, repo.UpdateQuantity(ctx, stock, expected))

		reloaded, err := repo.FindByIngredient(ctx, milk.IngredientID)
		require.NoError(t, err)
		assert.True(t, reloaded.Quantity.Equal(decimal.NewFromInt(700)))
		assert.Equal(t, expected+1, reloaded.Version)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		stale := *milk
		_, err := stale.Deduct(decimal.NewFromInt(100))
		require.NoError(t, err)

		err = repo.UpdateQuantity(ctx, &stale, milk.Version)
		assert.ErrorIs(t, err, inventory.ErrConflict)
	})
}

func TestGormIngredientStockRepository_UpdateQuantity_DriverError(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormIngredientStockRepository(db.DB)

	stock := &inventory.IngredientStock{
		IngredientID: uuid.New(),
		Quantity:     decimal.NewFromInt(700),
		Version:      2,
		UpdatedAt:    testNow(),
	}

	mock.ExpectExec(`UPDATE "ingredient_stocks" SET`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), stock.IngredientID, 1).
		WillReturnError(errors.New("connection refused"))

	err := repo.UpdateQuantity(context.Background(), stock, 1)

	assert.ErrorIs(t, err, inventory.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorageError_PassesContextErrors(t *testing.T) {
	assert.ErrorIs(t, storageError("op", context.Canceled), context.Canceled)
	assert.NotErrorIs(t, storageError("op", context.Canceled), inventory.ErrStorageUnavailable)
	assert.Nil(t, storageError("op", nil))
}
