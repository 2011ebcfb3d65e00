package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/internal/contacts"
	"github.com/maribelreyes/omflow-backend/internal/events"
	"github.com/maribelreyes/omflow-backend/internal/jobs"
	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

const (
	preClassLead   = 2 * time.Hour
	postClassDelay = 2 * time.Hour
)

// OfferingSource resolves the class slot being booked.
type OfferingSource interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Offering, error)
}

// Queue is the slice of the job queue the booking flow needs.
type Queue interface {
	Enqueue(ctx context.Context, params jobs.EnqueueParams) (*models.EmailJob, error)
	CancelByTypes(ctx context.Context, email string, types []enums.JobType, reason string) (int64, error)
}

// ConfirmParams carries a booking confirmation.
type ConfirmParams struct {
	Email         string
	FirstName     string
	OfferingID    uuid.UUID
	FreePassToken string
}

// ConfirmResult reports the created booking and the emails that got scheduled.
type ConfirmResult struct {
	Booking          *models.Booking
	NurtureCanceled  int64
	RemindersQueued  int
	FreePassRedeemed bool
}

// Service defines booking operations.
type Service interface {
	Confirm(ctx context.Context, params ConfirmParams) (*ConfirmResult, error)
}

// Params wires booking dependencies.
type Params struct {
	Repo      Repository
	Offerings OfferingSource
	Contacts  contacts.Service
	Events    events.Service
	Queue     Queue
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	repo      Repository
	offerings OfferingSource
	contacts  contacts.Service
	events    events.Service
	queue     Queue
	logg      *logger.Logger
	now       func() time.Time
}

// NewService validates and wires booking dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings repository required")
	}
	if params.Offerings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings offering source required")
	}
	if params.Contacts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings contacts service required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings events service required")
	}
	if params.Queue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings queue required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bookings logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:      params.Repo,
		offerings: params.Offerings,
		contacts:  params.Contacts,
		events:    params.Events,
		queue:     params.Queue,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// Confirm records a confirmed booking and runs the conversion side effects:
// the contact is upserted, an optional free pass is redeemed, pending lead
// nurture is retracted, and the class reminder pair gets scheduled. A bad
// free pass token fails the whole confirmation; everything after the booking
// row is best-effort.
func (s *service) Confirm(ctx context.Context, params ConfirmParams) (*ConfirmResult, error) {
	email := contacts.NormalizeEmail(params.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if params.OfferingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offering id required")
	}

	offering, err := s.offerings.Get(ctx, params.OfferingID)
	if err != nil {
		return nil, err
	}

	if _, err := s.contacts.Capture(ctx, contacts.CaptureParams{
		Email:     email,
		FirstName: params.FirstName,
		Source:    "booking",
	}); err != nil {
		return nil, err
	}

	result := &ConfirmResult{}
	if params.FreePassToken != "" {
		if err := s.contacts.RedeemFreePass(ctx, email, params.FreePassToken); err != nil {
			return nil, err
		}
		result.FreePassRedeemed = true
	}

	now := s.now()
	booking := &models.Booking{
		Email:          email,
		OfferingID:     offering.ID,
		InstructorName: offering.InstructorName,
		Status:         enums.BookingStatusConfirmed,
		ClassStartsAt:  offering.StartsAt,
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
	}
	result.Booking = booking

	s.events.Track(ctx, email, enums.EventTypeBooked, map[string]any{
		"offering_id": offering.ID.String(),
		"class_title": offering.Title,
	})

	canceled, err := s.queue.CancelByTypes(ctx, email, enums.LeadNurtureJobTypes, "lead converted")
	if err != nil {
		s.logg.Error(s.logg.WithContact(ctx, email), "retract lead nurture", err)
	} else {
		result.NurtureCanceled = canceled
	}

	result.RemindersQueued = s.scheduleReminders(ctx, email, offering, now)
	return result, nil
}

func (s *service) scheduleReminders(ctx context.Context, email string, offering *models.Offering, now time.Time) int {
	payload := map[string]any{
		"offering_id":     offering.ID.String(),
		"class_title":     offering.Title,
		"instructor_name": offering.InstructorName,
		"starts_at":       offering.StartsAt.UTC().Format(time.RFC3339),
	}

	var queued int
	reminderAt := offering.StartsAt.Add(-preClassLead)
	if reminderAt.After(now) {
		if s.enqueue(ctx, email, enums.JobTypePreClassReminder, reminderAt, payload) {
			queued++
		}
	}
	if s.enqueue(ctx, email, enums.JobTypePostClassFollowup, offering.StartsAt.Add(postClassDelay), payload) {
		queued++
	}
	return queued
}

func (s *service) enqueue(ctx context.Context, email string, jobType enums.JobType, at time.Time, payload map[string]any) bool {
	job, err := s.queue.Enqueue(ctx, jobs.EnqueueParams{
		Email:        email,
		Type:         jobType,
		ScheduledFor: at,
		Payload:      payload,
	})
	if err != nil {
		s.logg.Error(s.logg.WithJobType(s.logg.WithContact(ctx, email), string(jobType)), "enqueue class reminder", err)
		return false
	}
	return job != nil
}
