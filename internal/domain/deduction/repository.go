package deduction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobRepository defines the persistence of deduction jobs
type JobRepository interface {
	// Create inserts a job unless a non-exhausted job already exists for the
	// order. Returns false without error when the insert was skipped.
	Create(ctx context.Context, job *Job) (bool, error)

	// FindByID retrieves a job by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// FindActiveByOrder returns the order's non-exhausted job
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*Job, error)

	// ExistsCompletedForOrder reports whether the order has a completed job
	ExistsCompletedForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)

	// FindDue returns pending jobs due at now and processing jobs locked
	// before staleBefore, oldest first
	FindDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]*Job, error)

	// Claim atomically moves a due job to processing. Returns false when
	// another sweep claimed it first or it is no longer due.
	Claim(ctx context.Context, id uuid.UUID, now, staleBefore time.Time) (bool, error)

	// Update persists the job's state
	Update(ctx context.Context, job *Job) error

	// FindByStatus returns a page of jobs in a status, oldest first
	FindByStatus(ctx context.Context, status JobStatus, page, pageSize int) ([]*Job, int64, error)

	// CountByStatus returns the number of jobs per status
	CountByStatus(ctx context.Context) (map[JobStatus]int64, error)

	// DeleteCompletedBefore removes completed jobs finished before the cutoff
	DeleteCompletedBefore(ctx context.Context, before time.Time) (int64, error)
}
