// Package deduction runs the order-to-inventory pipeline: it guards against
// double deduction, executes the resolver and ledger for an order, and drives
// durable jobs through retries.
package deduction

import (
	"context"
	"time"

	"github.com/cafe/backend/internal/domain/deduction"
	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/cafe/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClaimResult is the outcome of an idempotency check
type ClaimResult int

const (
	// Claimed means the order has not been deducted and may proceed
	Claimed ClaimResult = iota
	// AlreadyClaimed means the order was deducted before
	AlreadyClaimed
)

func (r ClaimResult) String() string {
	if r == AlreadyClaimed {
		return "already_claimed"
	}
	return "claimed"
}

// Guard decides whether an order may be deducted.
// The ledger rows are the durable record; the store only short-circuits
// lookups for orders seen recently.
type Guard struct {
	store  shared.IdempotencyStore
	txs    inventory.InventoryTransactionRepository
	jobs   deduction.JobRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewGuard creates a Guard. store may be nil to always consult the database.
func NewGuard(
	store shared.IdempotencyStore,
	txs inventory.InventoryTransactionRepository,
	jobs deduction.JobRepository,
	cfg shared.IdempotencyConfig,
	logger *zap.Logger,
) *Guard {
	if !cfg.Enabled {
		store = nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = shared.DefaultIdempotencyConfig().TTL
	}
	return &Guard{
		store:  store,
		txs:    txs,
		jobs:   jobs,
		ttl:    cfg.TTL,
		logger: logger,
	}
}

// TryClaim reports whether the order may be deducted now.
// Nothing is written: a job that fails before the ledger commits leaves no claim.
func (g *Guard) TryClaim(ctx context.Context, orderID uuid.UUID) (ClaimResult, error) {
	if g.store != nil {
		seen, err := g.store.IsProcessed(ctx, key(orderID))
		if err != nil {
			g.logger.Warn("idempotency store lookup failed, falling back to database",
				zap.String("order_id", orderID.String()),
				zap.Error(err),
			)
		} else if seen {
			return AlreadyClaimed, nil
		}
	}

	applied, err := g.txs.ExistsForOrder(ctx, orderID)
	if err != nil {
		return Claimed, err
	}
	if applied {
		g.Remember(ctx, orderID)
		return AlreadyClaimed, nil
	}

	completed, err := g.jobs.ExistsCompletedForOrder(ctx, orderID)
	if err != nil {
		return Claimed, err
	}
	if completed {
		g.Remember(ctx, orderID)
		return AlreadyClaimed, nil
	}
	return Claimed, nil
}

// Remember records a committed deduction in the fast-path store.
// Failures are logged only; the database check still catches the order.
func (g *Guard) Remember(ctx context.Context, orderID uuid.UUID) {
	if g.store == nil {
		return
	}
	if _, err := g.store.MarkProcessed(ctx, key(orderID), g.ttl); err != nil {
		g.logger.Warn("failed to remember deducted order",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}

// key is the order id; stores add their own namespace prefix
func key(orderID uuid.UUID) string {
	return orderID.String()
}
