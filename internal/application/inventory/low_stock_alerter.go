package inventory

import (
	"context"
	"time"

	"github.com/cafe/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockAlertNotifier delivers raised low-stock alerts.
// Implementations can support different channels (log, chat, email).
type StockAlertNotifier interface {
	SendAlert(ctx context.Context, alert *inventory.LowStockAlert) error
}

// LowStockAlerter raises an alert when a deduction moves stock across its
// reorder threshold. Staying below the threshold does not raise it again.
type LowStockAlerter struct {
	alerts   inventory.LowStockAlertRepository
	notifier StockAlertNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewLowStockAlerter creates an alerter that persists alerts to the repository
func NewLowStockAlerter(alerts inventory.LowStockAlertRepository, logger *zap.Logger) *LowStockAlerter {
	return &LowStockAlerter{
		alerts: alerts,
		logger: logger,
		now:    time.Now,
	}
}

// WithNotifier sets the notifier for sending alerts
func (a *LowStockAlerter) WithNotifier(notifier StockAlertNotifier) *LowStockAlerter {
	a.notifier = notifier
	return a
}

// WithClock replaces the clock used to stamp alerts
func (a *LowStockAlerter) WithClock(now func() time.Time) *LowStockAlerter {
	a.now = now
	return a
}

// CheckAndAlert raises an alert if previous > threshold and current <= threshold.
// It returns the alert, or nil when no crossing happened.
func (a *LowStockAlerter) CheckAndAlert(ctx context.Context, ingredientID uuid.UUID, previous, current, threshold decimal.Decimal) (*inventory.LowStockAlert, error) {
	return a.raise(ctx, AppliedDelta{
		IngredientID: ingredientID,
		Previous:     previous,
		Resulting:    current,
		Threshold:    threshold,
	})
}

// CheckApplied runs CheckAndAlert for a ledger result, carrying the name and unit
func (a *LowStockAlerter) CheckApplied(ctx context.Context, d AppliedDelta) (*inventory.LowStockAlert, error) {
	return a.raise(ctx, d)
}

func (a *LowStockAlerter) raise(ctx context.Context, d AppliedDelta) (*inventory.LowStockAlert, error) {
	if !inventory.Crossed(d.Previous, d.Resulting, d.Threshold) {
		return nil, nil
	}

	alert := inventory.NewLowStockAlert(d.IngredientID, d.Previous, d.Resulting, d.Threshold, a.now())
	alert.IngredientName = d.Name
	alert.Unit = d.Unit

	if err := a.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}

	if a.notifier != nil {
		if err := a.notifier.SendAlert(ctx, alert); err != nil {
			// delivery is best effort; the stored alert remains the record
			a.logger.Error("failed to send low stock alert",
				zap.String("ingredient_id", d.IngredientID.String()),
				zap.Error(err),
			)
		}
	}
	return alert, nil
}

// LoggingStockAlertNotifier is a notifier that logs alerts
type LoggingStockAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingStockAlertNotifier creates a new logging notifier
func NewLoggingStockAlertNotifier(logger *zap.Logger) *LoggingStockAlertNotifier {
	return &LoggingStockAlertNotifier{logger: logger}
}

// SendAlert logs the alert at warn level, or at error level once the
// ingredient has run out
func (n *LoggingStockAlertNotifier) SendAlert(_ context.Context, alert *inventory.LowStockAlert) error {
	fields := []zap.Field{
		zap.String("type", string(alert.Kind)),
		zap.String("ingredient_id", alert.IngredientID.String()),
		zap.String("ingredient", alert.IngredientName),
		zap.String("previous_qty", alert.PreviousQuantity.String()),
		zap.String("current_qty", alert.ObservedQuantity.String()),
		zap.String("threshold", alert.Threshold.String()),
		zap.String("unit", alert.Unit.String()),
	}
	if alert.IsOutOfStock() {
		n.logger.Error("OUT OF STOCK", fields...)
		return nil
	}
	n.logger.Warn("STOCK ALERT", fields...)
	return nil
}
