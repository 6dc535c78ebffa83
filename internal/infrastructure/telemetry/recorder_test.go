package telemetry_test

import (
	"github.com/cafe/backend/internal/application/deduction"
	"github.com/cafe/backend/internal/infrastructure/telemetry"
)

var _ deduction.Recorder = (*telemetry.DeductionMetrics)(nil)
