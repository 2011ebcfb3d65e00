package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/maribelreyes/omflow-backend/internal/contacts"
	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
	"github.com/maribelreyes/omflow-backend/pkg/pagination"
)

// Service defines behavioral event operations.
type Service interface {
	// Track appends one event. Storage failures are logged and swallowed so
	// tracking can never abort the triggering business operation.
	Track(ctx context.Context, email string, eventType enums.EventType, metadata map[string]any)
	CountSince(ctx context.Context, email string, eventType enums.EventType, since time.Time) (int64, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// ListParams configures pagination for a contact's event history.
type ListParams struct {
	Email  string
	Limit  int
	Cursor string
}

// ListResult wraps returned events and the cursor for the next page.
type ListResult struct {
	Items  []models.ContactEvent `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires event tracker dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "events repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "events logger required")
	}
	return &service{
		repo: repo,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Track(ctx context.Context, email string, eventType enums.EventType, metadata map[string]any) {
	normalized := contacts.NormalizeEmail(email)
	if normalized == "" || !eventType.IsValid() {
		s.logg.Warn(s.logg.WithContact(ctx, email), "dropping event with invalid email or type")
		return
	}

	payload := "{}"
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			s.logg.Error(s.logg.WithContact(ctx, normalized), "marshal event metadata", err)
		} else {
			payload = string(raw)
		}
	}

	event := &models.ContactEvent{
		Email:     normalized,
		Type:      eventType,
		Metadata:  payload,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, event); err != nil {
		s.logg.Error(s.logg.WithContact(ctx, normalized), "persist contact event", err)
	}
}

func (s *service) CountSince(ctx context.Context, email string, eventType enums.EventType, since time.Time) (int64, error) {
	count, err := s.repo.CountSince(ctx, contacts.NormalizeEmail(email), eventType, since)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count contact events")
	}
	return count, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	email := contacts.NormalizeEmail(params.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	query := listEventsParams{
		Email: email,
		Limit: params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contact events")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}
