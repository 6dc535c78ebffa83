package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AppliedDelta is the effect of an order on one stock row, in the stock's unit
type AppliedDelta struct {
	IngredientID uuid.UUID
	Name         string
	Quantity     decimal.Decimal
	Previous     decimal.Decimal
	Resulting    decimal.Decimal
	Threshold    decimal.Decimal
	Unit         inventory.Unit
}

// NegativeStockWarning reports a stock row that went below zero.
// The deduction is still applied; physical stock is assumed to exist.
type NegativeStockWarning struct {
	IngredientID uuid.UUID
	Name         string
	Resulting    decimal.Decimal
	Unit         inventory.Unit
}

// ApplyResult is the outcome of one committed deduction
type ApplyResult struct {
	OrderID       uuid.UUID
	Applied       []AppliedDelta
	NegativeStock []NegativeStockWarning
}

// Ledger applies order deductions to stock. Every call is one transaction:
// each stock row is locked, version checked and written, and one ledger row per
// ingredient is appended. Nothing is retried here.
type Ledger struct {
	scope  TransactionScope
	stocks inventory.IngredientStockRepository
	txs    inventory.InventoryTransactionRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewLedger creates a Ledger. stocks and txs serve the read-only queries.
func NewLedger(
	scope TransactionScope,
	stocks inventory.IngredientStockRepository,
	txs inventory.InventoryTransactionRepository,
	logger *zap.Logger,
) *Ledger {
	return &Ledger{
		scope:  scope,
		stocks: stocks,
		txs:    txs,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used to stamp ledger rows
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Apply deducts every delta for the order atomically.
//
// Errors: inventory.ErrConflict and inventory.ErrStorageUnavailable are
// transient, inventory.ErrIngredientNotFound and inventory.ErrUnitMismatch
// need data fixes, inventory.ErrAlreadyApplied means the order's ledger rows
// already exist and nothing was changed.
func (l *Ledger) Apply(ctx context.Context, orderID uuid.UUID, deltas []inventory.StockDelta) (*ApplyResult, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("%w: order id is empty", inventory.ErrInvalidQuantity)
	}
	groups, err := groupDeltas(deltas)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{OrderID: orderID}
	if len(groups) == 0 {
		return result, nil
	}

	now := l.now()
	err = l.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		stockRepo := repos.StockRepo()
		rows := make([]*inventory.InventoryTransaction, 0, len(groups))

		for _, group := range groups {
			stock, err := stockRepo.FindByIngredientForUpdate(ctx, group.ingredientID)
			if err != nil {
				return fmt.Errorf("ingredient %s: %w", group.ingredientID, err)
			}

			amount := decimal.Zero
			for _, d := range group.deltas {
				converted, err := inventory.Convert(d.Quantity, d.Unit, stock.Unit)
				if err != nil {
					return fmt.Errorf("ingredient %s: %w", group.ingredientID, err)
				}
				amount = amount.Add(converted)
			}
			// rounded once per ingredient so delta and resulting quantity fit the column
			amount = amount.Round(inventory.QuantityScale)
			if amount.IsZero() {
				continue
			}

			expectedVersion := stock.Version
			change, err := stock.Deduct(amount)
			if err != nil {
				return fmt.Errorf("ingredient %s: %w", group.ingredientID, err)
			}
			stock.UpdatedAt = now
			if err := stockRepo.UpdateQuantity(ctx, stock, expectedVersion); err != nil {
				return fmt.Errorf("ingredient %s: %w", group.ingredientID, err)
			}

			rows = append(rows, inventory.NewDeductionTransaction(orderID, stock.IngredientID, amount, change.Resulting, stock.Unit, now))
			result.Applied = append(result.Applied, AppliedDelta{
				IngredientID: stock.IngredientID,
				Name:         stock.Name,
				Quantity:     amount,
				Previous:     change.Previous,
				Resulting:    change.Resulting,
				Threshold:    stock.ReorderThreshold,
				Unit:         stock.Unit,
			})
			if change.Resulting.IsNegative() {
				result.NegativeStock = append(result.NegativeStock, NegativeStockWarning{
					IngredientID: stock.IngredientID,
					Name:         stock.Name,
					Resulting:    change.Resulting,
					Unit:         stock.Unit,
				})
			}
		}

		return repos.TransactionRepo().Create(ctx, rows...)
	})
	if err != nil {
		return nil, classify(err)
	}

	for _, w := range result.NegativeStock {
		l.logger.Warn("stock went negative",
			zap.String("order_id", orderID.String()),
			zap.String("ingredient_id", w.IngredientID.String()),
			zap.String("ingredient", w.Name),
			zap.String("resulting", w.Resulting.String()),
			zap.String("unit", w.Unit.String()),
		)
	}
	l.logger.Debug("deduction applied",
		zap.String("order_id", orderID.String()),
		zap.Int("ingredients", len(result.Applied)),
	)
	return result, nil
}

// GetQuantity returns the current stock row of an ingredient
func (l *Ledger) GetQuantity(ctx context.Context, ingredientID uuid.UUID) (*inventory.IngredientStock, error) {
	return l.stocks.FindByIngredient(ctx, ingredientID)
}

// TransactionsForOrder returns the ledger rows an order produced
func (l *Ledger) TransactionsForOrder(ctx context.Context, orderID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	return l.txs.FindByOrder(ctx, orderID)
}

type deltaGroup struct {
	ingredientID uuid.UUID
	deltas       []inventory.StockDelta
}

// groupDeltas orders deltas by ingredient id and merges repeats of the same
// ingredient, so locks are always taken in one global order.
func groupDeltas(deltas []inventory.StockDelta) ([]deltaGroup, error) {
	byID := make(map[uuid.UUID]*deltaGroup, len(deltas))
	for _, d := range deltas {
		if d.IngredientID == uuid.Nil || d.Quantity.IsNegative() {
			return nil, fmt.Errorf("%w: ingredient %s quantity %s", inventory.ErrInvalidQuantity, d.IngredientID, d.Quantity)
		}
		if d.Quantity.IsZero() {
			continue
		}
		g, ok := byID[d.IngredientID]
		if !ok {
			g = &deltaGroup{ingredientID: d.IngredientID}
			byID[d.IngredientID] = g
		}
		g.deltas = append(g.deltas, d)
	}

	groups := make([]deltaGroup, 0, len(byID))
	for _, g := range byID {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return bytes.Compare(groups[i].ingredientID[:], groups[j].ingredientID[:]) < 0
	})
	return groups, nil
}

// classify keeps known domain errors and marks anything else, such as a
// failed commit, as a storage failure.
func classify(err error) error {
	switch {
	case errors.Is(err, inventory.ErrConflict),
		errors.Is(err, inventory.ErrStorageUnavailable),
		errors.Is(err, inventory.ErrIngredientNotFound),
		errors.Is(err, inventory.ErrAlreadyApplied),
		errors.Is(err, inventory.ErrUnitMismatch),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", inventory.ErrStorageUnavailable, err)
	}
}
