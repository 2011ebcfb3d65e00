package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/pkg/enums"
)

// Booking records a contact's reservation on an offering. Only confirmed
// bookings feed engagement scoring and past-attendee lookups.
type Booking struct {
	ID             uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Email          string              `gorm:"type:text;not null;index"`
	OfferingID     uuid.UUID           `gorm:"type:uuid;not null"`
	InstructorName string              `gorm:"type:text;not null;index"`
	Status         enums.BookingStatus `gorm:"type:booking_status;not null;default:'confirmed'"`
	ClassStartsAt  time.Time           `gorm:"type:timestamptz;not null"`
	CreatedAt      time.Time           `gorm:"type:timestamptz"`
}
