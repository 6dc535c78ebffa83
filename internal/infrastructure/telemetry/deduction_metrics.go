package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/cafe/backend/internal/domain/deduction"
	"github.com/cafe/backend/internal/domain/inventory"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DeductionMetrics records the health of the inventory deduction pipeline.
// It satisfies the application layer's Recorder.
type DeductionMetrics struct {
	logger *zap.Logger

	jobsEnqueued      *Counter
	jobsCompleted     *Counter
	jobsFailed        *Counter
	jobsExhausted     *Counter
	deductionsSkipped *Counter
	lowStockAlerts    *Counter
	negativeStock     *Counter
	sweepDuration     *Histogram
	sweepClaimed      *Histogram

	jobsByStatus       *Gauge
	ingredientsBelowRP *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// StockLevelProvider lists stock rows for the periodic below-threshold gauge
type StockLevelProvider interface {
	FindAll(ctx context.Context) ([]inventory.IngredientStock, error)
}

// JobCountProvider reports queue depth for the periodic job gauge
type JobCountProvider interface {
	CountByStatus(ctx context.Context) (map[deduction.JobStatus]int64, error)
}

// NewDeductionMetrics creates the pipeline instruments on meter
func NewDeductionMetrics(meter metric.Meter, logger *zap.Logger) (*DeductionMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &DeductionMetrics{logger: logger, stopChan: make(chan struct{})}

	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&m.jobsEnqueued, "cafe_deduction_jobs_enqueued_total", "Deduction jobs created for paid orders", "{jobs}"},
		{&m.jobsCompleted, "cafe_deduction_jobs_completed_total", "Deduction jobs completed", "{jobs}"},
		{&m.jobsFailed, "cafe_deduction_jobs_failed_total", "Failed deduction attempts by reason", "{attempts}"},
		{&m.jobsExhausted, "cafe_deduction_jobs_exhausted_total", "Deduction jobs moved to manual review", "{jobs}"},
		{&m.deductionsSkipped, "cafe_deduction_skipped_total", "Executions skipped because the order was already deducted", "{orders}"},
		{&m.lowStockAlerts, "cafe_low_stock_alerts_total", "Low-stock alerts raised by kind", "{alerts}"},
		{&m.negativeStock, "cafe_negative_stock_total", "Deductions that left an ingredient below zero", "{ingredients}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	m.sweepDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "cafe_deduction_sweep_duration_seconds",
		Description: "Duration of one coordinator sweep",
		Unit:        "s",
		Boundaries:  SweepDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m.sweepClaimed, err = NewHistogram(meter, HistogramOpts{
		Name:        "cafe_deduction_sweep_claimed_jobs",
		Description: "Jobs claimed per coordinator sweep",
		Unit:        "{jobs}",
		Boundaries:  []float64{0, 1, 5, 10, 25, 50, 100},
	})
	if err != nil {
		return nil, err
	}

	m.jobsByStatus, err = NewGauge(meter, "cafe_deduction_jobs", "Deduction jobs by status", "{jobs}")
	if err != nil {
		return nil, err
	}

	m.ingredientsBelowRP, err = NewGauge(meter, "cafe_ingredients_below_threshold", "Ingredients at or below their reorder threshold", "{ingredients}")
	if err != nil {
		return nil, err
	}

	return m, nil
}

// JobEnqueued counts a newly created job
func (m *DeductionMetrics) JobEnqueued(ctx context.Context) {
	m.jobsEnqueued.Inc(ctx)
}

// JobCompleted counts a completed job
func (m *DeductionMetrics) JobCompleted(ctx context.Context) {
	m.jobsCompleted.Inc(ctx)
}

// JobFailed counts a failed attempt labelled with the error code
func (m *DeductionMetrics) JobFailed(ctx context.Context, reason string) {
	m.jobsFailed.Inc(ctx, AttrFailureReason.String(reason))
}

// JobExhausted counts a job moved to manual review
func (m *DeductionMetrics) JobExhausted(ctx context.Context) {
	m.jobsExhausted.Inc(ctx)
}

// DeductionSkipped counts an execution stopped by the idempotency guard
func (m *DeductionMetrics) DeductionSkipped(ctx context.Context) {
	m.deductionsSkipped.Inc(ctx)
}

// LowStockAlert counts a raised alert
func (m *DeductionMetrics) LowStockAlert(ctx context.Context, kind string) {
	m.lowStockAlerts.Inc(ctx, AttrAlertKind.String(kind))
}

// NegativeStock counts an ingredient that went below zero
func (m *DeductionMetrics) NegativeStock(ctx context.Context) {
	m.negativeStock.Inc(ctx)
}

// SweepFinished records the duration and size of a sweep
func (m *DeductionMetrics) SweepFinished(ctx context.Context, duration time.Duration, claimed int) {
	m.sweepDuration.RecordDuration(ctx, duration)
	m.sweepClaimed.Record(ctx, float64(claimed))
}

// StartPeriodicCollection samples queue depth and stock levels every interval.
// Only the first call starts the collector.
func (m *DeductionMetrics) StartPeriodicCollection(ctx context.Context, jobs JobCountProvider, stocks StockLevelProvider, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	m.collectOnce.Do(func() {
		go m.runPeriodicCollection(ctx, jobs, stocks, interval)
	})
}

func (m *DeductionMetrics) runPeriodicCollection(ctx context.Context, jobs JobCountProvider, stocks StockLevelProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Collect(ctx, jobs, stocks)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.Collect(ctx, jobs, stocks)
		}
	}
}

// Collect samples the gauges once
func (m *DeductionMetrics) Collect(ctx context.Context, jobs JobCountProvider, stocks StockLevelProvider) {
	if jobs != nil {
		counts, err := jobs.CountByStatus(ctx)
		if err != nil {
			m.logger.Warn("failed to collect deduction job counts", zap.Error(err))
		} else {
			for _, status := range deduction.AllJobStatuses {
				m.jobsByStatus.Record(ctx, counts[status], AttrJobStatus.String(string(status)))
			}
		}
	}

	if stocks != nil {
		all, err := stocks.FindAll(ctx)
		if err != nil {
			m.logger.Warn("failed to collect stock levels", zap.Error(err))
			return
		}
		var below int64
		for i := range all {
			if all[i].IsBelowThreshold() {
				below++
			}
		}
		m.ingredientsBelowRP.Record(ctx, below)
	}
}

// Stop stops the periodic collection
func (m *DeductionMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil
var ErrMeterNil = &MetricsError{Op: "NewDeductionMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
