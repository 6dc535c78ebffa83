package models

import (
	"time"

	"github.com/cafe/backend/internal/domain/deduction"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DeductionJobModel is the persistence model for deduction jobs.
// The partial unique index allows one non-exhausted job per order.
type DeductionJobModel struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OrderID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_deduction_jobs_active_order,where:status <> 'exhausted'"`
	Payload       datatypes.JSON `gorm:"not null"`
	Status        string         `gorm:"type:varchar(20);not null;index:idx_deduction_jobs_status_next,priority:1"`
	Attempts      int            `gorm:"not null"`
	MaxAttempts   int            `gorm:"not null"`
	LastError     string         `gorm:"type:text"`
	NextAttemptAt time.Time      `gorm:"not null;index:idx_deduction_jobs_status_next,priority:2"`
	LockedAt      *time.Time
	CompletedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DeductionJobModel) TableName() string {
	return "deduction_jobs"
}

// ToDomain converts the persistence model to a domain Job
func (m *DeductionJobModel) ToDomain() *deduction.Job {
	return &deduction.Job{
		ID:            m.ID,
		OrderID:       m.OrderID,
		Payload:       []byte(m.Payload),
		Status:        deduction.JobStatus(m.Status),
		Attempts:      m.Attempts,
		MaxAttempts:   m.MaxAttempts,
		LastError:     m.LastError,
		NextAttemptAt: m.NextAttemptAt,
		LockedAt:      m.LockedAt,
		CompletedAt:   m.CompletedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Job
func (m *DeductionJobModel) FromDomain(j *deduction.Job) {
	m.ID = j.ID
	m.OrderID = j.OrderID
	m.Payload = datatypes.JSON(j.Payload)
	m.Status = string(j.Status)
	m.Attempts = j.Attempts
	m.MaxAttempts = j.MaxAttempts
	m.LastError = j.LastError
	m.NextAttemptAt = j.NextAttemptAt
	m.LockedAt = j.LockedAt
	m.CompletedAt = j.CompletedAt
	m.CreatedAt = j.CreatedAt
	m.UpdatedAt = j.UpdatedAt
}

// DeductionJobModelFromDomain creates a persistence model from a domain Job
func DeductionJobModelFromDomain(j *deduction.Job) *DeductionJobModel {
	m := &DeductionJobModel{}
	m.FromDomain(j)
	return m
}
