package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/pkg/enums"
)

// EmailJob is a scheduled, at-most-once unit of outbound email work.
//
// Lifecycle: pending (no terminal timestamp) -> claimed (ClaimedAt/ClaimedBy
// set by one dispatcher via a conditional update) -> sent, or back to pending
// with Attempts incremented and ScheduledFor pushed out on transient failure.
// CanceledAt and FailedAt are the suppressed and gave-up terminal states.
// A claim older than the configured TTL counts as stale and becomes due again.
type EmailJob struct {
	ID      uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Email   string        `gorm:"type:text;not null;index"`
	Type    enums.JobType `gorm:"type:email_job_type;not null"`
	Payload string        `gorm:"type:jsonb;not null;default:'{}'"`

	// OfferingID is set for rebook nudges only and backs the per-offering
	// dedup existence check.
	OfferingID *uuid.UUID `gorm:"type:uuid;index"`

	ScheduledFor time.Time  `gorm:"type:timestamptz;not null;index"`
	ClaimedAt    *time.Time `gorm:"type:timestamptz"`
	ClaimedBy    *string    `gorm:"type:text"`

	Attempts  int     `gorm:"not null;default:0"`
	LastError *string `gorm:"type:text"`

	SentAt       *time.Time `gorm:"type:timestamptz"`
	CanceledAt   *time.Time `gorm:"type:timestamptz"`
	CancelReason *string    `gorm:"type:text"`
	FailedAt     *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time `gorm:"type:timestamptz"`
}

// Terminal reports whether the job can never be dispatched again.
func (j EmailJob) Terminal() bool {
	return j.SentAt != nil || j.CanceledAt != nil || j.FailedAt != nil
}
