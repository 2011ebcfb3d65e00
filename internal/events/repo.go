package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
	"github.com/maribelreyes/omflow-backend/pkg/pagination"
)

// Repository exposes persistence helpers for contact events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.ContactEvent) error
	CountSince(ctx context.Context, email string, eventType enums.EventType, since time.Time) (int64, error)
	List(ctx context.Context, params listEventsParams) ([]models.ContactEvent, *pagination.Cursor, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an events repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listEventsParams struct {
	Email  string
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, event *models.ContactEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repositoryImpl) CountSince(ctx context.Context, email string, eventType enums.EventType, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ContactEvent{}).
		Where("email = ? AND type = ? AND created_at >= ?", email, eventType, since).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) List(ctx context.Context, params listEventsParams) ([]models.ContactEvent, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.ContactEvent{}).Where("email = ?", params.Email)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var events []models.ContactEvent
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, nil, err
	}

	if len(events) > normalized {
		next := events[normalized]
		events = events[:normalized]
		return events, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return events, nil, nil
}

func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ContactEvent{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
