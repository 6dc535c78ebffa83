package deduction

import (
	"context"
	"errors"
	"fmt"
	"time"

	appinv "github.com/cafe/backend/internal/application/inventory"
	"github.com/cafe/backend/internal/domain/deduction"
	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/cafe/backend/internal/domain/order"
	"github.com/cafe/backend/internal/domain/recipe"
	"github.com/cafe/backend/internal/domain/shared"
	"github.com/cafe/backend/internal/infrastructure/logger"
	"github.com/cafe/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome describes what one execution did to stock
type Outcome struct {
	OrderID uuid.UUID
	// Skipped is true when the order had already been deducted
	Skipped       bool
	Applied       []appinv.AppliedDelta
	NegativeStock []appinv.NegativeStockWarning
	Warnings      []recipe.Warning
	Alerts        []*inventory.LowStockAlert
}

// Executor deducts one order: guard, resolve, apply, alert.
// It never retries; the Coordinator owns the retry policy.
type Executor struct {
	guard    *Guard
	resolver *recipe.Resolver
	ledger   *appinv.Ledger
	alerter  *appinv.LowStockAlerter
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewExecutor creates an Executor
func NewExecutor(
	guard *Guard,
	resolver *recipe.Resolver,
	ledger *appinv.Ledger,
	alerter *appinv.LowStockAlerter,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		guard:    guard,
		resolver: resolver,
		ledger:   ledger,
		alerter:  alerter,
		recorder: NopRecorder{},
		logger:   logger,
		now:      time.Now,
	}
}

// WithRecorder sets the metrics recorder
func (e *Executor) WithRecorder(r Recorder) *Executor {
	if r != nil {
		e.recorder = r
	}
	return e
}

// WithClock replaces the clock used for job transitions
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

// Execute deducts the order's ingredients exactly once.
// An order that was already deducted returns a skipped outcome and writes nothing.
func (e *Executor) Execute(ctx context.Context, orderID uuid.UUID, lines []order.Line) (*Outcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "deduction", "execute",
		telemetry.SpanAttrOrderID, orderID,
		telemetry.SpanAttrLines, len(lines),
	)
	defer span.End()

	outcome, err := e.execute(ctx, orderID, lines)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSkipped, outcome.Skipped,
		telemetry.SpanAttrIngredients, len(outcome.Applied),
		telemetry.SpanAttrWarnings, len(outcome.Warnings),
	)
	return outcome, nil
}

func (e *Executor) execute(ctx context.Context, orderID uuid.UUID, lines []order.Line) (*Outcome, error) {
	if logger.GetOrderID(ctx) != orderID.String() {
		ctx, _ = logger.WithOrderID(ctx, e.logger, orderID.String())
	}
	log := logger.L(ctx)

	claim, err := e.guard.TryClaim(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("idempotency check: %w", err)
	}
	if claim == AlreadyClaimed {
		log.Debug("order already deducted, skipping")
		e.recorder.DeductionSkipped(ctx)
		return &Outcome{OrderID: orderID, Skipped: true}, nil
	}

	resolution, err := e.resolve(ctx, lines)
	if err != nil {
		return nil, err
	}
	for _, w := range resolution.Warnings {
		log.Warn("recipe data warning",
			zap.String("code", string(w.Code)),
			zap.String("menu_item_id", w.MenuItemID.String()),
			zap.String("detail", w.Message),
		)
	}

	result, err := e.apply(ctx, orderID, resolution.Deltas)
	if errors.Is(err, inventory.ErrAlreadyApplied) {
		// another writer committed between the claim and the apply
		e.guard.Remember(ctx, orderID)
		e.recorder.DeductionSkipped(ctx)
		return &Outcome{OrderID: orderID, Skipped: true}, nil
	}
	if err != nil {
		return nil, err
	}
	e.guard.Remember(ctx, orderID)

	outcome := &Outcome{
		OrderID:       orderID,
		Applied:       result.Applied,
		NegativeStock: result.NegativeStock,
		Warnings:      resolution.Warnings,
	}
	for range result.NegativeStock {
		e.recorder.NegativeStock(ctx)
	}

	for _, applied := range result.Applied {
		alert, err := e.alerter.CheckApplied(ctx, applied)
		if err != nil {
			log.Error("failed to record low stock alert",
				zap.String("ingredient_id", applied.IngredientID.String()),
				zap.Error(err),
			)
			continue
		}
		if alert != nil {
			outcome.Alerts = append(outcome.Alerts, alert)
			e.recorder.LowStockAlert(ctx, string(alert.Kind))
		}
	}

	log.Info("order deducted",
		zap.Int("ingredients", len(outcome.Applied)),
		zap.Int("warnings", len(outcome.Warnings)),
		zap.Int("alerts", len(outcome.Alerts)),
	)
	return outcome, nil
}

func (e *Executor) resolve(ctx context.Context, lines []order.Line) (*recipe.Resolution, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "recipe", "resolve", telemetry.SpanAttrLines, len(lines))
	defer span.End()

	resolution, err := e.resolver.Resolve(ctx, lines)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrIngredients, len(resolution.Deltas),
		telemetry.SpanAttrWarnings, len(resolution.Warnings),
	)
	if resolution.HasWarnings() {
		for _, w := range resolution.Warnings {
			telemetry.AddEvent(span, "recipe_warning", "code", string(w.Code), "menu_item_id", w.MenuItemID)
		}
	}
	return resolution, nil
}

func (e *Executor) apply(ctx context.Context, orderID uuid.UUID, deltas []inventory.StockDelta) (*appinv.ApplyResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "apply",
		telemetry.SpanAttrOrderID, orderID,
		telemetry.SpanAttrIngredients, len(deltas),
	)
	defer span.End()

	result, err := e.ledger.Apply(ctx, orderID, deltas)
	if err != nil && !errors.Is(err, inventory.ErrAlreadyApplied) {
		telemetry.RecordError(span, err)
	}
	return result, err
}

// Run executes a claimed job and moves it to completed, failed or, for a
// malformed payload, straight to exhausted. The caller persists the job.
func (e *Executor) Run(ctx context.Context, job *deduction.Job) (*Outcome, error) {
	lines, err := job.Lines()
	var outcome *Outcome
	if err == nil {
		outcome, err = e.Execute(ctx, job.OrderID, lines)
	}

	now := e.now()
	if err == nil {
		if markErr := job.MarkCompleted(now); markErr != nil {
			return outcome, markErr
		}
		return outcome, nil
	}

	if markErr := job.MarkFailed(err.Error(), now); markErr != nil {
		return nil, markErr
	}
	if errors.Is(err, order.ErrMalformedOrder) {
		// retrying cannot fix the payload
		if markErr := job.MarkExhausted(now); markErr != nil {
			return nil, markErr
		}
	}
	return nil, err
}

// failureReason returns the domain error code of err, or "unknown"
func failureReason(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CONTEXT"
	}
	return "UNKNOWN"
}
