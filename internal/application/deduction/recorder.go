package deduction

import (
	"context"
	"time"
)

// Recorder receives pipeline measurements. telemetry.DeductionMetrics
// implements it for OpenTelemetry.
type Recorder interface {
	JobEnqueued(ctx context.Context)
	JobCompleted(ctx context.Context)
	JobFailed(ctx context.Context, reason string)
	JobExhausted(ctx context.Context)
	DeductionSkipped(ctx context.Context)
	LowStockAlert(ctx context.Context, kind string)
	NegativeStock(ctx context.Context)
	SweepFinished(ctx context.Context, duration time.Duration, claimed int)
}

// NopRecorder discards every measurement
type NopRecorder struct{}

func (NopRecorder) JobEnqueued(context.Context) {}
func (NopRecorder) JobCompleted(context.Context) {}
func (NopRecorder) JobFailed(context.Context, string) {}
func (NopRecorder) JobExhausted(context.Context) {}
func (NopRecorder) DeductionSkipped(context.Context) {}
func (NopRecorder) LowStockAlert(context.Context, string) {}
func (NopRecorder) NegativeStock(context.Context) {}
func (NopRecorder) SweepFinished(context.Context, time.Duration, int) {}

var _ Recorder = NopRecorder{}
