package offerings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
)

// CreateParams describes a published class slot.
type CreateParams struct {
	Title          string
	InstructorName string
	StartsAt       time.Time
}

// Service defines offering operations.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Offering, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Offering, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires offering dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "offerings repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.Offering, error) {
	title := strings.TrimSpace(params.Title)
	instructor := strings.TrimSpace(params.InstructorName)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if instructor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "instructor name required")
	}
	if params.StartsAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start time required")
	}

	offering := &models.Offering{
		Title:          title,
		InstructorName: instructor,
		StartsAt:       params.StartsAt.UTC(),
		CreatedAt:      s.now(),
	}
	if err := s.repo.Create(ctx, offering); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create offering")
	}
	return offering, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Offering, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offering id required")
	}
	offering, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offering")
	}
	if offering == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offering not found")
	}
	return offering, nil
}
