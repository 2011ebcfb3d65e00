package contacts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
)

// NormalizeEmail lower-cases and trims an email address. Every identity
// lookup in the service goes through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CaptureParams carries the attributes observed on a capture touchpoint.
type CaptureParams struct {
	Email     string
	FirstName string
	Source    string
}

// CaptureResult reports the upserted contact and whether it is new.
type CaptureResult struct {
	Contact *models.Contact
	Created bool
}

// Service defines contact identity operations.
type Service interface {
	Capture(ctx context.Context, params CaptureParams) (*CaptureResult, error)
	Get(ctx context.Context, email string) (*models.Contact, error)
	Unsubscribe(ctx context.Context, email string) error
	Resubscribe(ctx context.Context, email string) error
	IssueFreePass(ctx context.Context, email string, ttl time.Duration) (string, error)
	RedeemFreePass(ctx context.Context, email, token string) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires contact dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contacts repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Capture upserts the contact: created on first touch, refreshed on every
// subsequent one. It never flips is_active back on; only Resubscribe does.
func (s *service) Capture(ctx context.Context, params CaptureParams) (*CaptureResult, error) {
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	now := s.now()
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contact")
	}

	if existing == nil {
		contact := &models.Contact{
			Email:      email,
			IsActive:   true,
			LastSeenAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if params.FirstName != "" {
			name := params.FirstName
			contact.FirstName = &name
		}
		if params.Source != "" {
			source := params.Source
			contact.Source = &source
		}
		if err := s.repo.Create(ctx, contact); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contact")
		}
		return &CaptureResult{Contact: contact, Created: true}, nil
	}

	if params.FirstName != "" {
		name := params.FirstName
		existing.FirstName = &name
	}
	if params.Source != "" && existing.Source == nil {
		source := params.Source
		existing.Source = &source
	}
	existing.LastSeenAt = now
	existing.UpdatedAt = now
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contact")
	}
	return &CaptureResult{Contact: existing, Created: false}, nil
}

func (s *service) Get(ctx context.Context, email string) (*models.Contact, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	contact, err := s.repo.GetByEmail(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contact")
	}
	return contact, nil
}

func (s *service) Unsubscribe(ctx context.Context, email string) error {
	return s.setActive(ctx, email, false)
}

func (s *service) Resubscribe(ctx context.Context, email string) error {
	return s.setActive(ctx, email, true)
}

func (s *service) setActive(ctx context.Context, email string, active bool) error {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	updated, err := s.repo.SetActive(ctx, normalized, active, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contact state")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
	}
	return nil
}

// IssueFreePass attaches a fresh one-time token, replacing any previous one.
func (s *service) IssueFreePass(ctx context.Context, email string, ttl time.Duration) (string, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if ttl <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "free pass ttl must be positive")
	}

	token := uuid.NewString()
	now := s.now()
	updated, err := s.repo.SetFreePass(ctx, normalized, token, now.Add(ttl), now)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue free pass")
	}
	if !updated {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
	}
	return token, nil
}

func (s *service) RedeemFreePass(ctx context.Context, email, token string) error {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "free pass token required")
	}

	redeemed, err := s.repo.RedeemFreePass(ctx, normalized, token, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem free pass")
	}
	if !redeemed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "free pass invalid, expired, or already used")
	}
	return nil
}
