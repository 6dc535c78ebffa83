package main

import (
	"testing"
	"time"

	"github.com/cafe/backend/internal/application/deduction"
	"github.com/cafe/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
)

func TestCoordinatorConfig(t *testing.T) {
	got := coordinatorConfig(config.DeductionConfig{
		SweepInterval:    5 * time.Second,
		BatchSize:        20,
		MaxAttempts:      4,
		StaleLockTimeout: 2 * time.Minute,
		MaxBackoff:       3 * time.Minute,
		IdempotencyTTL:   time.Hour,
		CleanupEnabled:   true,
		CleanupRetention: 48 * time.Hour,
		CleanupInterval:  15 * time.Minute,
	})

	assert.Equal(t, deduction.CoordinatorConfig{
		SweepInterval:    5 * time.Second,
		BatchSize:        20,
		MaxAttempts:      4,
		StaleLockTimeout: 2 * time.Minute,
		MaxBackoff:       3 * time.Minute,
		CleanupEnabled:   true,
		CleanupRetention: 48 * time.Hour,
		CleanupInterval:  15 * time.Minute,
	}, got)
}
