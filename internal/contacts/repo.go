package contacts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maribelreyes/omflow-backend/pkg/db/models"
)

// Repository exposes persistence helpers for marketing contacts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, contact *models.Contact) error
	GetByEmail(ctx context.Context, email string) (*models.Contact, error)
	SetActive(ctx context.Context, email string, active bool, now time.Time) (bool, error)
	SetFreePass(ctx context.Context, email, token string, expiresAt time.Time, now time.Time) (bool, error)
	RedeemFreePass(ctx context.Context, email, token string, now time.Time) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a contacts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, contact *models.Contact) error {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(contact).Error
}

func (r *repositoryImpl) Update(ctx context.Context, contact *models.Contact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

// GetByEmail returns nil without error when no contact exists.
func (r *repositoryImpl) GetByEmail(ctx context.Context, email string) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *repositoryImpl) SetActive(ctx context.Context, email string, active bool, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("email = ?", email).
		UpdateColumns(map[string]any{
			"is_active":  active,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) SetFreePass(ctx context.Context, email, token string, expiresAt time.Time, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("email = ?", email).
		UpdateColumns(map[string]any{
			"free_pass_token":      token,
			"free_pass_expires_at": expiresAt,
			"free_pass_used_at":    nil,
			"updated_at":           now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RedeemFreePass consumes the pass with a single conditional update so a
// token can never be redeemed twice.
func (r *repositoryImpl) RedeemFreePass(ctx context.Context, email, token string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("email = ? AND free_pass_token = ? AND free_pass_used_at IS NULL AND free_pass_expires_at > ?", email, token, now).
		UpdateColumns(map[string]any{
			"free_pass_used_at": now,
			"updated_at":        now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
