package deduction

import (
	"context"

	"github.com/cafe/backend/internal/domain/deduction"
	"go.uber.org/zap"
)

// ManualReviewNotifier signals that a job needs staff attention.
// cause wraps deduction.ErrRetryExhausted and the last execution error.
type ManualReviewNotifier interface {
	NotifyExhausted(ctx context.Context, job *deduction.Job, cause error) error
}

// LoggingManualReviewNotifier reports exhausted jobs in the log
type LoggingManualReviewNotifier struct {
	logger *zap.Logger
}

// NewLoggingManualReviewNotifier creates a new logging notifier
func NewLoggingManualReviewNotifier(logger *zap.Logger) *LoggingManualReviewNotifier {
	return &LoggingManualReviewNotifier{logger: logger}
}

// NotifyExhausted logs the job at error level
func (n *LoggingManualReviewNotifier) NotifyExhausted(_ context.Context, job *deduction.Job, cause error) error {
	n.logger.Error("DEDUCTION NEEDS MANUAL REVIEW",
		zap.String("job_id", job.ID.String()),
		zap.String("order_id", job.OrderID.String()),
		zap.Int("attempts", job.Attempts),
		zap.String("last_error", job.LastError),
		zap.Error(cause),
	)
	return nil
}
