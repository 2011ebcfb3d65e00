package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a marketing identity keyed by normalized email. Unsubscribing
// soft-deletes via IsActive; only an explicit resubscribe reactivates.
type Contact struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"type:text;not null;uniqueIndex"`
	FirstName *string   `gorm:"type:text"`
	Source    *string   `gorm:"type:text"`
	IsActive  bool      `gorm:"not null;default:true"`

	FreePassToken     *string    `gorm:"type:text"`
	FreePassExpiresAt *time.Time `gorm:"type:timestamptz"`
	FreePassUsedAt    *time.Time `gorm:"type:timestamptz"`

	LastSeenAt time.Time `gorm:"type:timestamptz"`
	CreatedAt  time.Time `gorm:"type:timestamptz"`
	UpdatedAt  time.Time `gorm:"type:timestamptz"`
}
