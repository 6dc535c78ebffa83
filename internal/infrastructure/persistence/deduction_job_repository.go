package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/cafe/backend/internal/domain/deduction"
	"github.com/cafe/backend/internal/domain/shared"
	"github.com/cafe/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDeductionJobRepository implements JobRepository using GORM
type GormDeductionJobRepository struct {
	db *gorm.DB
}

// NewGormDeductionJobRepository creates a new GORM-based deduction job repository
func NewGormDeductionJobRepository(db *gorm.DB) *GormDeductionJobRepository {
	return &GormDeductionJobRepository{db: db}
}

// Create inserts the job with ON CONFLICT DO NOTHING. The partial unique index on
// order_id makes concurrent enqueues of the same order collapse into one row.
func (r *GormDeductionJobRepository) Create(ctx context.Context, job *deduction.Job) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.DeductionJobModelFromDomain(job))
	if result.Error != nil {
		return false, storageError("create deduction job", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindByID retrieves a job by its ID
func (r *GormDeductionJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*deduction.Job, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindActiveByOrder returns the order's non-exhausted job
func (r *GormDeductionJobRepository) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*deduction.Job, error) {
	return r.first(r.db.WithContext(ctx).
		Where("order_id = ? AND status <> ?", orderID, deduction.JobStatusExhausted))
}

func (r *GormDeductionJobRepository) first(query *gorm.DB) (*deduction.Job, error) {
	var model models.DeductionJobModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, storageError("find deduction job", err)
	}
	return model.ToDomain(), nil
}

// ExistsCompletedForOrder reports whether the order has a completed job
func (r *GormDeductionJobRepository) ExistsCompletedForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.DeductionJobModel{}).
		Where("order_id = ? AND status = ?", orderID, deduction.JobStatusCompleted).
		Count(&count).Error; err != nil {
		return false, storageError("check completed job", err)
	}
	return count > 0, nil
}

// FindDue returns due pending jobs and stale processing jobs, oldest first
func (r *GormDeductionJobRepository) FindDue(ctx context.Context, now, staleBefore time.Time, limit int) ([]*deduction.Job, error) {
	var rows []models.DeductionJobModel
	if err := r.db.WithContext(ctx).
		Where("(status = ? AND next_attempt_at <= ?) OR (status = ? AND locked_at < ?)",
			deduction.JobStatusPending, now, deduction.JobStatusProcessing, staleBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, storageError("find due jobs", err)
	}
	return toJobs(rows), nil
}

// Claim moves a job to processing with a compare-and-swap on its status.
// Only one concurrent caller observes a row update.
func (r *GormDeductionJobRepository) Claim(ctx context.Context, id uuid.UUID, now, staleBefore time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DeductionJobModel{}).
		Where("id = ? AND ((status = ? AND next_attempt_at <= ?) OR (status = ? AND locked_at < ?))",
			id, deduction.JobStatusPending, now, deduction.JobStatusProcessing, staleBefore).
		Updates(map[string]interface{}{
			"status":     deduction.JobStatusProcessing,
			"locked_at":  now,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, storageError("claim deduction job", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Update persists the job's mutable state
func (r *GormDeductionJobRepository) Update(ctx context.Context, job *deduction.Job) error {
	result := r.db.WithContext(ctx).
		Model(&models.DeductionJobModel{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":          job.Status,
			"attempts":        job.Attempts,
			"last_error":      job.LastError,
			"next_attempt_at": job.NextAttemptAt,
			"locked_at":       job.LockedAt,
			"completed_at":    job.CompletedAt,
			"updated_at":      job.UpdatedAt,
		})
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return shared.ErrAlreadyExists
		}
		return storageError("update deduction job", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByStatus retrieves jobs in a status with pagination
func (r *GormDeductionJobRepository) FindByStatus(ctx context.Context, status deduction.JobStatus, page, pageSize int) ([]*deduction.Job, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.DeductionJobModel{}).
		Where("status = ?", status).
		Count(&total).Error; err != nil {
		return nil, 0, storageError("count jobs", err)
	}

	var rows []models.DeductionJobModel
	offset := (page - 1) * pageSize
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, storageError("find jobs by status", err)
	}
	return toJobs(rows), total, nil
}

// CountByStatus returns the number of jobs per status
func (r *GormDeductionJobRepository) CountByStatus(ctx context.Context) (map[deduction.JobStatus]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	var results []statusCount
	if err := r.db.WithContext(ctx).
		Model(&models.DeductionJobModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error; err != nil {
		return nil, storageError("count jobs by status", err)
	}

	counts := make(map[deduction.JobStatus]int64, len(results))
	for _, c := range results {
		counts[deduction.JobStatus(c.Status)] = c.Count
	}
	return counts, nil
}

// DeleteCompletedBefore deletes completed jobs finished before the cutoff
func (r *GormDeductionJobRepository) DeleteCompletedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND completed_at < ?", deduction.JobStatusCompleted, before).
		Delete(&models.DeductionJobModel{})
	if result.Error != nil {
		return 0, storageError("delete completed jobs", result.Error)
	}
	return result.RowsAffected, nil
}

func toJobs(rows []models.DeductionJobModel) []*deduction.Job {
	jobs := make([]*deduction.Job, len(rows))
	for i := range rows {
		jobs[i] = rows[i].ToDomain()
	}
	return jobs
}

var _ deduction.JobRepository = (*GormDeductionJobRepository)(nil)
