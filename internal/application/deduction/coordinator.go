package deduction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cafe/backend/internal/domain/deduction"
	"github.com/cafe/backend/internal/domain/order"
	"github.com/cafe/backend/internal/domain/shared"
	"github.com/cafe/backend/internal/infrastructure/logger"
	"github.com/cafe/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CoordinatorConfig holds configuration for the retry coordinator
type CoordinatorConfig struct {
	SweepInterval    time.Duration
	BatchSize        int
	MaxAttempts      int
	StaleLockTimeout time.Duration
	MaxBackoff       time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultCoordinatorConfig returns default configuration
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		SweepInterval:    10 * time.Second,
		BatchSize:        50,
		MaxAttempts:      deduction.DefaultMaxAttempts,
		StaleLockTimeout: 5 * time.Minute,
		MaxBackoff:       10 * time.Minute,
		CleanupEnabled:   false,
		CleanupRetention: 7 * 24 * time.Hour, // 7 days
		CleanupInterval:  1 * time.Hour,
	}
}

// SweepResult summarises one sweep
type SweepResult struct {
	Claimed   int
	Completed int
	Retrying  int
	Exhausted int
}

// Coordinator owns the durable deduction queue. One sweep goroutine claims
// due jobs and runs them one at a time, so no order is executed twice
// concurrently by the same worker.
type Coordinator struct {
	jobs     deduction.JobRepository
	executor *Executor
	notifier ManualReviewNotifier
	recorder Recorder
	config   CoordinatorConfig
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewCoordinator creates a coordinator
func NewCoordinator(
	jobs deduction.JobRepository,
	executor *Executor,
	config CoordinatorConfig,
	logger *zap.Logger,
) *Coordinator {
	defaults := DefaultCoordinatorConfig()
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.StaleLockTimeout <= 0 {
		config.StaleLockTimeout = defaults.StaleLockTimeout
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}
	if config.CleanupRetention <= 0 {
		config.CleanupRetention = defaults.CleanupRetention
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	return &Coordinator{
		jobs:     jobs,
		executor: executor,
		notifier: NewLoggingManualReviewNotifier(logger),
		recorder: NopRecorder{},
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNotifier sets the manual-review notifier
func (c *Coordinator) WithNotifier(n ManualReviewNotifier) *Coordinator {
	if n != nil {
		c.notifier = n
	}
	return c
}

// WithRecorder sets the metrics recorder
func (c *Coordinator) WithRecorder(r Recorder) *Coordinator {
	if r != nil {
		c.recorder = r
	}
	return c
}

// WithClock replaces the clock used for scheduling
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// Enqueue records a pending deduction for a paid order.
// If the order already has a non-exhausted job that job is returned with
// created=false, so duplicate triggers are harmless.
func (c *Coordinator) Enqueue(ctx context.Context, orderID uuid.UUID, lines []order.Line) (*deduction.Job, bool, error) {
	job, err := deduction.NewJob(orderID, lines, c.config.MaxAttempts, c.now())
	if err != nil {
		return nil, false, err
	}

	created, err := c.jobs.Create(ctx, job)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue deduction: %w", err)
	}
	if created {
		c.recorder.JobEnqueued(ctx)
		c.logger.Info("deduction enqueued",
			zap.String("order_id", orderID.String()),
			zap.String("job_id", job.ID.String()),
		)
		return job, true, nil
	}

	existing, err := c.jobs.FindActiveByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// the active job was exhausted between the insert and the lookup
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("enqueue deduction: %w", err)
	}
	c.logger.Debug("deduction already queued",
		zap.String("order_id", orderID.String()),
		zap.String("job_id", existing.ID.String()),
		zap.String("status", string(existing.Status)),
	)
	return existing, false, nil
}

// Start starts the background sweep
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("coordinator already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true

	c.wg.Add(1)
	go c.sweepLoop(ctx)

	if c.config.CleanupEnabled {
		c.wg.Add(1)
		go c.cleanupLoop(ctx)
	}

	c.logger.Info("deduction coordinator started",
		zap.Int("batch_size", c.config.BatchSize),
		zap.Duration("sweep_interval", c.config.SweepInterval),
		zap.Int("max_attempts", c.config.MaxAttempts),
	)
	return nil
}

// Stop gracefully stops the coordinator. A job being executed finishes first.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.running = false
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("deduction coordinator stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) sweepLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("deduction sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce claims due jobs, oldest first, and runs each of them.
// Pending jobs are due once next_attempt_at has passed; processing jobs are
// reclaimed when their lock is older than StaleLockTimeout.
func (c *Coordinator) SweepOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	started := c.now()
	staleBefore := started.Add(-c.config.StaleLockTimeout)

	due, err := c.jobs.FindDue(ctx, started, staleBefore, c.config.BatchSize)
	if err != nil {
		return result, fmt.Errorf("find due jobs: %w", err)
	}

	for _, job := range due {
		if ctx.Err() != nil {
			break
		}
		now := c.now()
		claimed, err := c.jobs.Claim(ctx, job.ID, now, staleBefore)
		if err != nil {
			c.logger.Error("failed to claim deduction job",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !claimed {
			continue
		}
		if job.IsStale(staleBefore) {
			status, err := c.reclaim(ctx, job, now, staleBefore)
			if err != nil {
				c.logger.Error("failed to reclaim stale deduction job",
					zap.String("job_id", job.ID.String()),
					zap.Error(err),
				)
				continue
			}
			if status == deduction.JobStatusExhausted {
				result.Claimed++
				result.Exhausted++
				continue
			}
		} else if err := job.Claim(now, staleBefore); err != nil {
			c.logger.Error("claimed job is not due", zap.String("job_id", job.ID.String()), zap.Error(err))
			continue
		}
		result.Claimed++

		switch c.process(ctx, job) {
		case deduction.JobStatusCompleted:
			result.Completed++
		case deduction.JobStatusPending:
			result.Retrying++
		case deduction.JobStatusExhausted:
			result.Exhausted++
		}
	}

	c.recorder.SweepFinished(ctx, c.now().Sub(started), result.Claimed)
	if result.Claimed > 0 {
		c.logger.Info("deduction sweep finished",
			zap.Int("claimed", result.Claimed),
			zap.Int("completed", result.Completed),
			zap.Int("retrying", result.Retrying),
			zap.Int("exhausted", result.Exhausted),
		)
	}
	return result, nil
}

// reclaim takes over a stale job and persists the abandoned attempt before
// anything runs, so repeated worker crashes still use up attempts.
func (c *Coordinator) reclaim(ctx context.Context, job *deduction.Job, now, staleBefore time.Time) (deduction.JobStatus, error) {
	ctx, log := logger.WithJobID(ctx, c.logger, job.ID.String())
	ctx, log = logger.WithOrderID(ctx, log, job.OrderID.String())

	log.Warn("reclaiming stale deduction job",
		zap.Timep("locked_at", job.LockedAt),
		zap.Int("attempts", job.Attempts),
		zap.Int("max_attempts", job.MaxAttempts),
	)
	err := job.Reclaim(now, staleBefore)
	if err != nil && !errors.Is(err, deduction.ErrRetryExhausted) {
		return "", err
	}
	c.recorder.JobFailed(ctx, "ABANDONED")
	if job.Status == deduction.JobStatusExhausted {
		c.exhaust(ctx, log, job, errors.New(deduction.AbandonedAttemptError))
	}
	if err := c.jobs.Update(ctx, job); err != nil {
		return "", err
	}
	return job.Status, nil
}

// exhaust records a job that ran out of attempts and signals manual review
func (c *Coordinator) exhaust(ctx context.Context, log *zap.Logger, job *deduction.Job, lastErr error) {
	c.recorder.JobExhausted(ctx)
	cause := fmt.Errorf("%w: %v", deduction.ErrRetryExhausted, lastErr)
	log.Warn("deduction moved to manual review",
		zap.Int("attempts", job.Attempts),
		zap.String("last_error", job.LastError),
	)
	if err := c.notifier.NotifyExhausted(ctx, job, cause); err != nil {
		log.Error("failed to send manual review signal", zap.Error(err))
	}
}

// process runs one claimed job and persists its new state
func (c *Coordinator) process(ctx context.Context, job *deduction.Job) deduction.JobStatus {
	ctx, log := logger.WithJobID(ctx, c.logger, job.ID.String())
	ctx, log = logger.WithOrderID(ctx, log, job.OrderID.String())

	ctx, span := telemetry.StartServiceSpan(ctx, "deduction", "process",
		telemetry.SpanAttrJobID, job.ID,
		telemetry.SpanAttrOrderID, job.OrderID,
		telemetry.SpanAttrAttempt, job.Attempts+1,
	)
	defer span.End()

	_, runErr := c.executor.Run(ctx, job)
	telemetry.RecordError(span, runErr)
	now := c.now()

	switch job.Status {
	case deduction.JobStatusCompleted:
		c.recorder.JobCompleted(ctx)
	case deduction.JobStatusFailed:
		c.recorder.JobFailed(ctx, failureReason(runErr))
		if job.CanRetry() {
			delay := deduction.Backoff(c.config.SweepInterval, c.config.MaxBackoff, job.Attempts)
			if err := job.ScheduleRetry(now.Add(delay), now); err != nil {
				log.Error("failed to schedule retry", zap.Error(err))
			}
			log.Warn("deduction failed, retry scheduled",
				zap.Int("attempts", job.Attempts),
				zap.Int("max_attempts", job.MaxAttempts),
				zap.Time("next_attempt_at", job.NextAttemptAt),
				zap.Error(runErr),
			)
		} else if err := job.MarkExhausted(now); err != nil {
			log.Error("failed to exhaust job", zap.Error(err))
		}
	case deduction.JobStatusProcessing:
		// Run could not move the job; leave it for stale-lock recovery
		log.Error("deduction job left in processing", zap.Error(runErr))
		return job.Status
	}

	if job.Status == deduction.JobStatusExhausted {
		c.exhaust(ctx, log, job, runErr)
	}

	if err := c.jobs.Update(ctx, job); err != nil {
		log.Error("failed to persist deduction job",
			zap.String("status", string(job.Status)),
			zap.Error(err),
		)
	}
	return job.Status
}

func (c *Coordinator) cleanupLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup removes completed jobs older than the retention period.
// Ledger rows keep guarding the order after its job is gone.
func (c *Coordinator) Cleanup(ctx context.Context) int64 {
	cutoff := c.now().Add(-c.config.CleanupRetention)
	deleted, err := c.jobs.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		c.logger.Error("failed to cleanup completed deduction jobs", zap.Error(err))
		return 0
	}

	if deleted > 0 {
		c.logger.Info("cleaned up completed deduction jobs",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted
}
