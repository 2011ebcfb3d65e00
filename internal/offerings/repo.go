package offerings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maribelreyes/omflow-backend/pkg/db/models"
)

// Repository exposes persistence helpers for class offerings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, offering *models.Offering) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Offering, error)
	CreatedSince(ctx context.Context, since time.Time) ([]models.Offering, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an offerings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, offering *models.Offering) error {
	if offering.ID == uuid.Nil {
		offering.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(offering).Error
}

// GetByID returns nil without error when no offering exists.
func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Offering, error) {
	var offering models.Offering
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&offering).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offering, nil
}

func (r *repositoryImpl) CreatedSince(ctx context.Context, since time.Time) ([]models.Offering, error) {
	var offerings []models.Offering
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&offerings).Error
	return offerings, err
}
