package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name    string
		qty     string
		from    Unit
		to      Unit
		want    string
		wantErr bool
	}{
		{name: "same unit", qty: "150", from: UnitMilliliter, to: UnitMilliliter, want: "150"},
		{name: "liter to milliliter", qty: "0.3", from: UnitLiter, to: UnitMilliliter, want: "300"},
		{name: "gram to kilogram", qty: "18", from: UnitGram, to: UnitKilogram, want: "0.018"},
		{name: "mass to volume", qty: "1", from: UnitGram, to: UnitMilliliter, wantErr: true},
		{name: "count to mass", qty: "1", from: UnitPiece, to: UnitKilogram, wantErr: true},
		{name: "unknown unit", qty: "1", from: Unit("cup"), to: UnitMilliliter, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(decimal.RequireFromString(tt.qty), tt.from, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnitMismatch))
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit(" ML ")
	require.NoError(t, err)
	assert.Equal(t, UnitMilliliter, u)

	_, err = ParseUnit("tbsp")
	assert.True(t, errors.Is(err, ErrUnitMismatch))
}

func TestNewIngredientStock(t *testing.T) {
	t.Run("creates stock", func(t *testing.T) {
		s, err := NewIngredientStock("Milk", decimal.NewFromInt(1000), UnitMilliliter, decimal.NewFromInt(200))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, s.IngredientID)
		assert.Equal(t, 1, s.Version)
		assert.False(t, s.IsBelowThreshold())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewIngredientStock("  ", decimal.NewFromInt(1), UnitGram, decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("rejects unknown unit", func(t *testing.T) {
		_, err := NewIngredientStock("Beans", decimal.NewFromInt(1), Unit("oz"), decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := NewIngredientStock("Beans", decimal.NewFromInt(-1), UnitGram, decimal.Zero)
		assert.Error(t, err)
	})
}

func TestIngredientStock_Deduct(t *testing.T) {
	s, err := NewIngredientStock("Cups", decimal.NewFromInt(3), UnitPiece, decimal.NewFromInt(1))
	require.NoError(t, err)

	change, err := s.Deduct(decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.True(t, change.Previous.Equal(decimal.NewFromInt(3)))
	assert.True(t, change.Resulting.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 2, s.Version)
	assert.True(t, s.IsBelowThreshold())

	change, err = s.Deduct(decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, change.Resulting.Equal(decimal.NewFromInt(-4)), "negative stock is allowed")

	_, err = s.Deduct(decimal.Zero)
	assert.True(t, errors.Is(err, ErrInvalidQuantity))
}

func TestNewDeductionTransaction(t *testing.T) {
	orderID, ingredientID := uuid.New(), uuid.New()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tx := NewDeductionTransaction(orderID, ingredientID, decimal.NewFromInt(300), decimal.NewFromInt(700), UnitMilliliter, at)

	assert.True(t, tx.Delta.Equal(decimal.NewFromInt(-300)))
	assert.True(t, tx.Quantity().Equal(decimal.NewFromInt(300)))
	assert.Equal(t, orderID, tx.OrderID)
	assert.Equal(t, at, tx.CreatedAt)
}

func TestCrossed(t *testing.T) {
	threshold := decimal.NewFromInt(5)
	tests := []struct {
		name     string
		previous int64
		current  int64
		want     bool
	}{
		{name: "crosses downward", previous: 10, current: 4, want: true},
		{name: "lands exactly on threshold", previous: 6, current: 5, want: true},
		{name: "already below", previous: 4, current: 2, want: false},
		{name: "stays above", previous: 10, current: 6, want: false},
		{name: "starts on threshold", previous: 5, current: 3, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Crossed(decimal.NewFromInt(tt.previous), decimal.NewFromInt(tt.current), threshold))
		})
	}
}

func TestNewLowStockAlert(t *testing.T) {
	id := uuid.New()
	now := time.Now()

	low := NewLowStockAlert(id, decimal.NewFromInt(10), decimal.NewFromInt(4), decimal.NewFromInt(5), now)
	assert.Equal(t, AlertKindLowStock, low.Kind)
	assert.False(t, low.IsOutOfStock())

	out := NewLowStockAlert(id, decimal.NewFromInt(10), decimal.NewFromInt(-1), decimal.NewFromInt(5), now)
	assert.Equal(t, AlertKindOutOfStock, out.Kind)
	assert.True(t, out.IsOutOfStock())
}
