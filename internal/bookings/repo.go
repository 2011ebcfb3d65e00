package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
)

// Repository exposes persistence helpers for bookings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, booking *models.Booking) error
	CountConfirmedSince(ctx context.Context, email string, since time.Time) (int64, error)
	DistinctAttendeeEmails(ctx context.Context, instructorName string, since time.Time) ([]string, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a bookings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *repositoryImpl) CountConfirmedSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("email = ? AND status = ? AND created_at >= ?", email, enums.BookingStatusConfirmed, since).
		Count(&count).Error
	return count, err
}

// DistinctAttendeeEmails returns the contacts who held a confirmed booking
// with the instructor inside the window. Feeds the rebook nudge generator.
func (r *repositoryImpl) DistinctAttendeeEmails(ctx context.Context, instructorName string, since time.Time) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Distinct("email").
		Where("instructor_name = ? AND status = ? AND created_at >= ?", instructorName, enums.BookingStatusConfirmed, since).
		Pluck("email", &emails).Error
	return emails, err
}
