package inventory_test

import (
	"context"
	"testing"
	"time"

	appinv "github.com/cafe/backend/internal/application/inventory"
	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/cafe/backend/internal/infrastructure/persistence"
	"github.com/cafe/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openLedgerDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// faultyScope fails the stock write of one ingredient inside the real transaction
type faultyScope struct {
	inner  *persistence.GormTransactionScope
	failOn uuid.UUID
}

func (s *faultyScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.inner.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		return fn(&faultyRepos{TransactionalRepositories: repos, failOn: s.failOn})
	})
}

type faultyRepos struct {
	appinv.TransactionalRepositories
	failOn uuid.UUID
}

func (r *faultyRepos) StockRepo() inventory.IngredientStockRepository {
	return &faultyStockRepo{IngredientStockRepository: r.TransactionalRepositories.StockRepo(), failOn: r.failOn}
}

type faultyStockRepo struct {
	inventory.IngredientStockRepository
	failOn uuid.UUID
}

func (r *faultyStockRepo) UpdateQuantity(ctx context.Context, s *inventory.IngredientStock, expectedVersion int) error {
	if s.IngredientID == r.failOn {
		return inventory.ErrStorageUnavailable
	}
	return r.IngredientStockRepository.UpdateQuantity(ctx, s, expectedVersion)
}

// orderedStocks seeds two stocks and returns them in ingredient id order
func orderedStocks(t *testing.T, repo *persistence.GormIngredientStockRepository) (*inventory.IngredientStock, *inventory.IngredientStock) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	first, err := inventory.NewIngredientStock("Milk", decimal.NewFromInt(1000), inventory.UnitMilliliter, decimal.NewFromInt(200))
	require.NoError(t, err)
	second, err := inventory.NewIngredientStock("Beans", decimal.NewFromInt(500), inventory.UnitGram, decimal.NewFromInt(100))
	require.NoError(t, err)
	if first.IngredientID.String() > second.IngredientID.String() {
		first, second = second, first
	}
	for _, s := range []*inventory.IngredientStock{first, second} {
		s.CreatedAt, s.UpdatedAt = now, now
		require.NoError(t, repo.Save(context.Background(), s))
	}
	return first, second
}

func deltasFor(stocks ...*inventory.IngredientStock) []inventory.StockDelta {
	deltas := make([]inventory.StockDelta, len(stocks))
	for i, s := range stocks {
		deltas[i] = inventory.StockDelta{IngredientID: s.IngredientID, Quantity: decimal.NewFromInt(10), Unit: s.Unit}
	}
	return deltas
}

func TestLedger_Apply_IsAtomic(t *testing.T) {
	db := openLedgerDB(t)
	ctx := context.Background()
	stocks := persistence.NewGormIngredientStockRepository(db)
	txs := persistence.NewGormInventoryTransactionRepository(db)
	first, second := orderedStocks(t, stocks)

	scope := &faultyScope{inner: persistence.NewGormTransactionScope(db), failOn: second.IngredientID}
	ledger := appinv.NewLedger(scope, stocks, txs, zaptest.NewLogger(t))
	orderID := uuid.New()

	_, err := ledger.Apply(ctx, orderID, deltasFor(first, second))
	require.ErrorIs(t, err, inventory.ErrStorageUnavailable)

	reloaded, err := ledger.GetQuantity(ctx, first.IngredientID)
	require.NoError(t, err)
	assert.True(t, reloaded.Quantity.Equal(first.Quantity), "first ingredient rolled back")
	assert.Equal(t, first.Version, reloaded.Version)

	rows, err := ledger.TransactionsForOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLedger_Apply_SecondApplicationChangesNothing(t *testing.T) {
	db := openLedgerDB(t)
	ctx := context.Background()
	stocks := persistence.NewGormIngredientStockRepository(db)
	txs := persistence.NewGormInventoryTransactionRepository(db)
	first, second := orderedStocks(t, stocks)
	ledger := appinv.NewLedger(persistence.NewGormTransactionScope(db), stocks, txs, zaptest.NewLogger(t))
	orderID := uuid.New()

	result, err := ledger.Apply(ctx, orderID, deltasFor(first, second))
	require.NoError(t, err)
	require.Len(t, result.Applied, 2)

	_, err = ledger.Apply(ctx, orderID, deltasFor(first, second))
	require.ErrorIs(t, err, inventory.ErrAlreadyApplied)

	for _, s := range []*inventory.IngredientStock{first, second} {
		reloaded, err := ledger.GetQuantity(ctx, s.IngredientID)
		require.NoError(t, err)
		assert.True(t, reloaded.Quantity.Equal(s.Quantity.Sub(decimal.NewFromInt(10))))
	}

	rows, err := ledger.TransactionsForOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
