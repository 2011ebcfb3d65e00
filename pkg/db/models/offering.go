package models

import (
	"time"

	"github.com/google/uuid"
)

// Offering is a published class slot. The nudge generator joins newly
// created offerings against each instructor's recent attendees.
type Offering struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title          string    `gorm:"type:text;not null"`
	InstructorName string    `gorm:"type:text;not null;index"`
	StartsAt       time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt      time.Time `gorm:"type:timestamptz;index"`
}
