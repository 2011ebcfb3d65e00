package throttle

import (
	"context"
	"time"

	"github.com/maribelreyes/omflow-backend/internal/contacts"
	"github.com/maribelreyes/omflow-backend/pkg/config"
	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
)

// ContactSource resolves a contact's opt-out state.
type ContactSource interface {
	GetByEmail(ctx context.Context, email string) (*models.Contact, error)
}

// EngagementSource counts behavioral events inside a sliding window.
type EngagementSource interface {
	CountSince(ctx context.Context, email string, eventType enums.EventType, since time.Time) (int64, error)
}

// BookingSource counts confirmed bookings inside a sliding window.
type BookingSource interface {
	CountConfirmedSince(ctx context.Context, email string, since time.Time) (int64, error)
}

// SendSource counts jobs sent inside a sliding window.
type SendSource interface {
	CountSentSince(ctx context.Context, email string, since time.Time) (int64, error)
}

// Params wires throttle dependencies.
type Params struct {
	Contacts ContactSource
	Events   EngagementSource
	Bookings BookingSource
	Sends    SendSource
	Config   config.AutomationConfig
	Now      func() time.Time
}

// Service applies the engagement-based send allowance. The same evaluation
// runs optimistically at enqueue and authoritatively at dispatch, always
// against the then-current windows.
type Service struct {
	contacts ContactSource
	events   EngagementSource
	bookings BookingSource
	sends    SendSource
	cfg      config.AutomationConfig
	now      func() time.Time
}

// NewService validates and wires throttle dependencies.
func NewService(params Params) (*Service, error) {
	if params.Contacts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "throttle contact source required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "throttle engagement source required")
	}
	if params.Bookings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "throttle booking source required")
	}
	if params.Sends == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "throttle send source required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		contacts: params.Contacts,
		events:   params.Events,
		bookings: params.Bookings,
		sends:    params.Sends,
		cfg:      params.Config,
		now:      now,
	}, nil
}

// CanSend reports whether another automated email may go to the contact and,
// when denied, a human-readable reason. Unsubscribed always wins; otherwise
// recent clicks or bookings raise the rolling-window allowance.
func (s *Service) CanSend(ctx context.Context, email string) (bool, string, error) {
	normalized := contacts.NormalizeEmail(email)
	now := s.now()

	contact, err := s.contacts.GetByEmail(ctx, normalized)
	if err != nil {
		return false, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contact")
	}
	if contact != nil && !contact.IsActive {
		return false, "unsubscribed", nil
	}

	clicks, err := s.events.CountSince(ctx, normalized, enums.EventTypeClicked, now.Add(-s.cfg.ClickWindow))
	if err != nil {
		return false, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count clicks")
	}

	engaged := clicks > 0
	if !engaged {
		bookings, err := s.bookings.CountConfirmedSince(ctx, normalized, now.Add(-s.cfg.BookingWindow))
		if err != nil {
			return false, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count bookings")
		}
		engaged = bookings > 0
	}

	limit := int64(s.cfg.BaseSendLimit)
	if engaged {
		limit = int64(s.cfg.EngagedSendLimit)
	}

	sent, err := s.sends.CountSentSince(ctx, normalized, now.Add(-s.cfg.SendWindow))
	if err != nil {
		return false, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sent jobs")
	}
	if sent >= limit {
		return false, "send limit reached", nil
	}
	return true, "", nil
}
