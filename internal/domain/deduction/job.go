// Package deduction holds the durable work item that drives an order's
// inventory deduction through retries.
package deduction

import (
	"time"

	"github.com/cafe/backend/internal/domain/order"
	"github.com/cafe/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a deduction job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusExhausted  JobStatus = "exhausted"
)

// DefaultMaxAttempts bounds how often a job is executed before manual review
const DefaultMaxAttempts = 5

// AllJobStatuses lists every status in lifecycle order
var AllJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusProcessing,
	JobStatusCompleted,
	JobStatusFailed,
	JobStatusExhausted,
}

// IsValid returns true if the status is known
func (s JobStatus) IsValid() bool {
	for _, v := range AllJobStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal returns true for statuses the coordinator never picks up again
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusExhausted
}

var (
	// ErrRetryExhausted is raised when a job used all of its attempts
	ErrRetryExhausted = shared.NewDomainError("RETRY_EXHAUSTED", "Deduction retries exhausted")

	// ErrInvalidTransition is returned for a state change the job does not allow
	ErrInvalidTransition = shared.NewDomainError("INVALID_STATE", "Invalid deduction job transition")
)

// Job is one order's pending inventory deduction.
// At most one non-exhausted job exists per order.
type Job struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	Payload       []byte
	Status        JobStatus
	Attempts      int
	MaxAttempts   int
	LastError     string
	NextAttemptAt time.Time
	LockedAt      *time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewJob creates a pending job carrying the order's lines.
// Lines are validated here so malformed orders never reach the queue.
func NewJob(orderID uuid.UUID, lines []order.Line, maxAttempts int, now time.Time) (*Job, error) {
	if orderID == uuid.Nil {
		return nil, order.ErrMalformedOrder
	}
	if err := order.ValidateLines(lines); err != nil {
		return nil, err
	}
	payload, err := order.EncodeLines(lines)
	if err != nil {
		return nil, err
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Job{
		ID:            uuid.New(),
		OrderID:       orderID,
		Payload:       payload,
		Status:        JobStatusPending,
		MaxAttempts:   maxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Lines decodes the stored order lines
func (j *Job) Lines() ([]order.Line, error) {
	return order.DecodeLines(j.Payload)
}

// IsStale returns true if the job is processing with a lock older than staleBefore
func (j *Job) IsStale(staleBefore time.Time) bool {
	return j.Status == JobStatusProcessing && j.LockedAt != nil && j.LockedAt.Before(staleBefore)
}

// IsDue returns true if the coordinator may pick the job up now
func (j *Job) IsDue(now, staleBefore time.Time) bool {
	if j.Status == JobStatusPending {
		return !j.NextAttemptAt.After(now)
	}
	return j.IsStale(staleBefore)
}

// Claim moves a due job to processing and stamps the lock time
func (j *Job) Claim(now, staleBefore time.Time) error {
	if !j.IsDue(now, staleBefore) {
		return ErrInvalidTransition
	}
	j.Status = JobStatusProcessing
	j.LockedAt = &now
	j.UpdatedAt = now
	return nil
}

// AbandonedAttemptError is stored on a job whose lock expired mid-execution
const AbandonedAttemptError = "execution abandoned: lock expired before the job finished"

// Reclaim takes over a stale processing job. The abandoned execution counts
// as an attempt, so a job that keeps killing its worker still reaches manual
// review. When that was the last attempt the job is exhausted and
// ErrRetryExhausted is returned.
func (j *Job) Reclaim(now, staleBefore time.Time) error {
	if !j.IsStale(staleBefore) {
		return ErrInvalidTransition
	}
	j.Attempts++
	j.LastError = AbandonedAttemptError
	j.UpdatedAt = now
	if j.Attempts >= j.MaxAttempts {
		j.Status = JobStatusExhausted
		j.LockedAt = nil
		return ErrRetryExhausted
	}
	j.LockedAt = &now
	return nil
}

// MarkCompleted records a successful deduction
func (j *Job) MarkCompleted(now time.Time) error {
	if j.Status != JobStatusProcessing {
		return ErrInvalidTransition
	}
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.LockedAt = nil
	j.LastError = ""
	j.UpdatedAt = now
	return nil
}

// MarkFailed records a failed attempt. The coordinator decides whether the
// job is retried or exhausted.
func (j *Job) MarkFailed(errMsg string, now time.Time) error {
	if j.Status != JobStatusProcessing {
		return ErrInvalidTransition
	}
	j.Attempts++
	j.Status = JobStatusFailed
	j.LastError = errMsg
	j.LockedAt = nil
	j.UpdatedAt = now
	return nil
}

// CanRetry returns true if a failed job has attempts left
func (j *Job) CanRetry() bool {
	return j.Status == JobStatusFailed && j.Attempts < j.MaxAttempts
}

// ScheduleRetry returns a failed job to pending, due at the given time
func (j *Job) ScheduleRetry(at, now time.Time) error {
	if !j.CanRetry() {
		return ErrInvalidTransition
	}
	j.Status = JobStatusPending
	j.NextAttemptAt = at
	j.UpdatedAt = now
	return nil
}

// MarkExhausted parks the job for manual review
func (j *Job) MarkExhausted(now time.Time) error {
	if j.Status != JobStatusFailed {
		return ErrInvalidTransition
	}
	j.Status = JobStatusExhausted
	j.LockedAt = nil
	j.UpdatedAt = now
	return nil
}

// Requeue resets an exhausted job so the coordinator tries it again
func (j *Job) Requeue(now time.Time) error {
	if j.Status != JobStatusExhausted {
		return ErrInvalidTransition
	}
	j.Status = JobStatusPending
	j.Attempts = 0
	j.LastError = ""
	j.NextAttemptAt = now
	j.LockedAt = nil
	j.UpdatedAt = now
	return nil
}

// Backoff returns the delay before the next attempt: base doubled for every
// attempt already made, capped at maxDelay and never shorter than base.
func Backoff(base, maxDelay time.Duration, attempts int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if maxDelay > 0 && maxDelay < base {
		maxDelay = base
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if maxDelay > 0 && d >= maxDelay {
			return maxDelay
		}
	}
	return d
}
