package recipe

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/cafe/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type memoryRepository struct {
	mu      sync.Mutex
	recipes map[uuid.UUID]*Recipe
	lookups int
	err     error
}

func newMemoryRepository(recipes ...*Recipe) *memoryRepository {
	m := &memoryRepository{recipes: make(map[uuid.UUID]*Recipe)}
	for _, r := range recipes {
		m.recipes[r.MenuItemID] = r
	}
	return m
}

func (m *memoryRepository) FindByMenuItem(_ context.Context, menuItemID uuid.UUID) (*Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.recipes[menuItemID]
	if !ok {
		return nil, ErrRecipeNotFound
	}
	return r, nil
}

func (m *memoryRepository) FindAll(_ context.Context) ([]Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Recipe, 0, len(m.recipes))
	for _, r := range m.recipes {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memoryRepository) Save(_ context.Context, r *Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recipes[r.MenuItemID] = r
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestRecipe(t *testing.T, name string) *Recipe {
	t.Helper()
	r, err := NewRecipe(uuid.New(), name)
	require.NoError(t, err)
	return r
}

func deltaFor(t *testing.T, res *Resolution, ingredientID uuid.UUID) inventory.StockDelta {
	t.Helper()
	for _, d := range res.Deltas {
		if d.IngredientID == ingredientID {
			return d
		}
	}
	t.Fatalf("no delta for ingredient %s", ingredientID)
	return inventory.StockDelta{}
}

func TestResolver_LatteLargeScenario(t *testing.T) {
	milk := uuid.New()
	latte := newTestRecipe(t, "Latte")
	c, err := latte.AddComponent(milk, dec("100"), inventory.UnitMilliliter, false)
	require.NoError(t, err)
	c.AddOverride("size", "large", dec("150"))

	resolver := NewResolver(newMemoryRepository(latte), zaptest.NewLogger(t))

	res, err := resolver.Resolve(context.Background(), []order.Line{
		{MenuItemID: latte.MenuItemID, Quantity: 2, Customizations: map[string]string{"size": "large"}},
	})

	require.NoError(t, err)
	require.Len(t, res.Deltas, 1)
	d := deltaFor(t, res, milk)
	assert.True(t, dec("300").Equal(d.Quantity), "got %s", d.Quantity)
	assert.Equal(t, inventory.UnitMilliliter, d.Unit)
	assert.False(t, res.HasWarnings())
}

func TestResolver_AggregatesAcrossLines(t *testing.T) {
	beans, milk, cup := uuid.New(), uuid.New(), uuid.New()

	latte := newTestRecipe(t, "Latte")
	_, _ = latte.AddComponent(beans, dec("18"), inventory.UnitGram, false)
	_, _ = latte.AddComponent(milk, dec("200"), inventory.UnitMilliliter, false)
	_, _ = latte.AddComponent(cup, dec("1"), inventory.UnitPiece, false)

	espresso := newTestRecipe(t, "Espresso")
	_, _ = espresso.AddComponent(beans, dec("0.018"), inventory.UnitKilogram, false)
	_, _ = espresso.AddComponent(cup, dec("1"), inventory.UnitPiece, false)

	repo := newMemoryRepository(latte, espresso)
	resolver := NewResolver(repo, zaptest.NewLogger(t))

	res, err := resolver.Resolve(context.Background(), []order.Line{
		{MenuItemID: latte.MenuItemID, Quantity: 2},
		{MenuItemID: espresso.MenuItemID, Quantity: 1},
		{MenuItemID: latte.MenuItemID, Quantity: 1},
	})

	require.NoError(t, err)
	require.Len(t, res.Deltas, 3, "one delta per ingredient")
	assert.True(t, dec("72").Equal(deltaFor(t, res, beans).Quantity), "18g*3 + 18g*1")
	assert.True(t, dec("600").Equal(deltaFor(t, res, milk).Quantity))
	assert.True(t, dec("4").Equal(deltaFor(t, res, cup).Quantity))
	assert.Equal(t, 2, repo.lookups, "recipes are looked up once per menu item")

	for i := 1; i < len(res.Deltas); i++ {
		assert.Less(t, res.Deltas[i-1].IngredientID.String(), res.Deltas[i].IngredientID.String())
	}
}

func TestResolver_CustomizationOverrides(t *testing.T) {
	milk, oatMilk, syrup := uuid.New(), uuid.New(), uuid.New()

	latte := newTestRecipe(t, "Latte")
	m, _ := latte.AddComponent(milk, dec("200"), inventory.UnitMilliliter, false)
	m.AddOmit("milk", "oat")
	m.AddOverride("size", "large", dec("300"))
	o, _ := latte.AddComponent(oatMilk, dec("0"), inventory.UnitMilliliter, true)
	o.AddOverride("milk", "oat", dec("200"))
	s, _ := latte.AddComponent(syrup, dec("10"), inventory.UnitMilliliter, true)
	s.AddOverride("syrup", "vanilla", dec("15"))

	resolver := NewResolver(newMemoryRepository(latte), zaptest.NewLogger(t))

	t.Run("omit skips the component", func(t *testing.T) {
		res, err := resolver.Resolve(context.Background(), []order.Line{
			{MenuItemID: latte.MenuItemID, Quantity: 1, Customizations: map[string]string{"milk": "oat"}},
		})
		require.NoError(t, err)
		require.Len(t, res.Deltas, 1)
		assert.Equal(t, oatMilk, res.Deltas[0].IngredientID)
		assert.True(t, dec("200").Equal(res.Deltas[0].Quantity))
	})

	t.Run("omit wins over a matching quantity override", func(t *testing.T) {
		res, err := resolver.Resolve(context.Background(), []order.Line{
			{MenuItemID: latte.MenuItemID, Quantity: 1, Customizations: map[string]string{"milk": "oat", "size": "large"}},
		})
		require.NoError(t, err)
		for _, d := range res.Deltas {
			assert.NotEqual(t, milk, d.IngredientID)
		}
	})

	t.Run("optional component is skipped unless selected", func(t *testing.T) {
		res, err := resolver.Resolve(context.Background(), []order.Line{
			{MenuItemID: latte.MenuItemID, Quantity: 1},
		})
		require.NoError(t, err)
		require.Len(t, res.Deltas, 1)
		assert.Equal(t, milk, res.Deltas[0].IngredientID)
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		res, err := resolver.Resolve(context.Background(), []order.Line{
			{MenuItemID: latte.MenuItemID, Quantity: 2, Customizations: map[string]string{"Syrup": "Vanilla"}},
		})
		require.NoError(t, err)
		assert.True(t, dec("30").Equal(deltaFor(t, res, syrup).Quantity))
		assert.True(t, dec("400").Equal(deltaFor(t, res, milk).Quantity))
	})
}

func TestResolver_MissingRecipeIsWarning(t *testing.T) {
	beans := uuid.New()
	espresso := newTestRecipe(t, "Espresso")
	_, _ = espresso.AddComponent(beans, dec("18"), inventory.UnitGram, false)

	resolver := NewResolver(newMemoryRepository(espresso), zaptest.NewLogger(t))
	unknown := uuid.New()

	res, err := resolver.Resolve(context.Background(), []order.Line{
		{MenuItemID: espresso.MenuItemID, Quantity: 1},
		{MenuItemID: unknown, Quantity: 1},
		{MenuItemID: unknown, Quantity: 3},
	})

	require.NoError(t, err)
	require.Len(t, res.Deltas, 1)
	require.Len(t, res.Warnings, 1, "one warning per menu item")
	assert.Equal(t, WarningMissingRecipe, res.Warnings[0].Code)
	assert.Equal(t, unknown, res.Warnings[0].MenuItemID)
	assert.True(t, res.HasWarnings())
}

func TestResolver_MissingRecipeLogsCustomizations(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	resolver := NewResolver(newMemoryRepository(), zap.New(core))

	_, err := resolver.Resolve(context.Background(), []order.Line{{
		MenuItemID:     uuid.New(),
		Quantity:       1,
		Customizations: map[string]string{"size": "large", "milk": "oat"},
	}})
	require.NoError(t, err)

	entries := logs.FilterMessage("Menu item has no recipe").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "milk=oat,size=large", entries[0].ContextMap()["customizations"])
}

func TestResolver_NoRequiredComponentsWarning(t *testing.T) {
	tea := newTestRecipe(t, "Tea")
	_, _ = tea.AddComponent(uuid.New(), dec("5"), inventory.UnitGram, true)

	resolver := NewResolver(newMemoryRepository(tea), zaptest.NewLogger(t))

	res, err := resolver.Resolve(context.Background(), []order.Line{{MenuItemID: tea.MenuItemID, Quantity: 1}})

	require.NoError(t, err)
	assert.Empty(t, res.Deltas)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningNoRequiredComponents, res.Warnings[0].Code)
}

func TestResolver_MalformedInput(t *testing.T) {
	resolver := NewResolver(newMemoryRepository(), zaptest.NewLogger(t))

	tests := []struct {
		name  string
		lines []order.Line
	}{
		{name: "no lines", lines: nil},
		{name: "nil menu item", lines: []order.Line{{Quantity: 1}}},
		{name: "zero quantity", lines: []order.Line{{MenuItemID: uuid.New(), Quantity: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), tt.lines)
			assert.True(t, errors.Is(err, ErrMalformedOrder))
		})
	}
}

func TestResolver_RepositoryFailurePropagates(t *testing.T) {
	repo := newMemoryRepository()
	repo.err = inventory.ErrStorageUnavailable
	resolver := NewResolver(repo, zaptest.NewLogger(t))

	_, err := resolver.Resolve(context.Background(), []order.Line{{MenuItemID: uuid.New(), Quantity: 1}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, inventory.ErrStorageUnavailable))
	assert.False(t, errors.Is(err, ErrMalformedOrder))
}

func TestResolver_IncompatibleUnitsForSameIngredient(t *testing.T) {
	sugar := uuid.New()
	a := newTestRecipe(t, "A")
	_, _ = a.AddComponent(sugar, dec("5"), inventory.UnitGram, false)
	b := newTestRecipe(t, "B")
	_, _ = b.AddComponent(sugar, dec("1"), inventory.UnitPiece, false)

	resolver := NewResolver(newMemoryRepository(a, b), zaptest.NewLogger(t))

	_, err := resolver.Resolve(context.Background(), []order.Line{
		{MenuItemID: a.MenuItemID, Quantity: 1},
		{MenuItemID: b.MenuItemID, Quantity: 1},
	})
	assert.True(t, errors.Is(err, inventory.ErrUnitMismatch))
}
