package deduction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cafe/backend/internal/domain/deduction"
	"github.com/cafe/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxReviewPageSize = 100

// ReviewService is the manual-review view over exhausted jobs
type ReviewService struct {
	jobs   deduction.JobRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewReviewService creates a review service
func NewReviewService(jobs deduction.JobRepository, logger *zap.Logger) *ReviewService {
	return &ReviewService{jobs: jobs, logger: logger, now: time.Now}
}

// WithClock replaces the clock used when requeueing
func (s *ReviewService) WithClock(now func() time.Time) *ReviewService {
	s.now = now
	return s
}

// ListExhausted returns a page of jobs awaiting manual review, oldest first
func (s *ReviewService) ListExhausted(ctx context.Context, page, pageSize int) (shared.Paginated[*deduction.Job], error) {
	page, pageSize = shared.NormalizePage(page, pageSize, maxReviewPageSize)
	jobs, total, err := s.jobs.FindByStatus(ctx, deduction.JobStatusExhausted, page, pageSize)
	if err != nil {
		return shared.Paginated[*deduction.Job]{}, err
	}
	return shared.NewPaginated(jobs, total, page, pageSize), nil
}

// Requeue resets an exhausted job after staff fixed the underlying data.
// It fails with shared.ErrAlreadyExists when the order was enqueued again
// in the meantime.
func (s *ReviewService) Requeue(ctx context.Context, jobID uuid.UUID) (*deduction.Job, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := job.Requeue(s.now()); err != nil {
		return nil, fmt.Errorf("requeue job %s in status %s: %w", jobID, job.Status, err)
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, fmt.Errorf("order %s already has an active deduction job: %w", job.OrderID, err)
		}
		return nil, err
	}

	s.logger.Info("deduction job requeued",
		zap.String("job_id", job.ID.String()),
		zap.String("order_id", job.OrderID.String()),
	)
	return job, nil
}

// CountByStatus returns the number of jobs in every status, zero included
func (s *ReviewService) CountByStatus(ctx context.Context) (map[deduction.JobStatus]int64, error) {
	counts, err := s.jobs.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[deduction.JobStatus]int64, len(deduction.AllJobStatuses))
	for _, status := range deduction.AllJobStatuses {
		result[status] = counts[status]
	}
	return result, nil
}
