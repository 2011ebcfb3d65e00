package leads

import (
	"context"
	"time"

	"github.com/maribelreyes/omflow-backend/internal/contacts"
	"github.com/maribelreyes/omflow-backend/internal/events"
	"github.com/maribelreyes/omflow-backend/internal/jobs"
	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

const (
	firstNudgeDelay  = 24 * time.Hour
	secondNudgeDelay = 72 * time.Hour
	freePassTTL      = 7 * 24 * time.Hour
)

// Queue is the slice of the job queue lead capture needs.
type Queue interface {
	Enqueue(ctx context.Context, params jobs.EnqueueParams) (*models.EmailJob, error)
}

// CaptureParams carries a public lead-capture submission.
type CaptureParams struct {
	Email     string
	FirstName string
	Source    string
}

// CaptureResult reports the contact and the nurture jobs that were scheduled.
type CaptureResult struct {
	Contact       *models.Contact
	FreePassToken string
	JobsScheduled int
}

// Service defines the lead-capture flow.
type Service interface {
	Capture(ctx context.Context, params CaptureParams) (*CaptureResult, error)
}

// Params wires lead-capture dependencies.
type Params struct {
	Contacts contacts.Service
	Events   events.Service
	Queue    Queue
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	contacts contacts.Service
	events   events.Service
	queue    Queue
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates and wires lead-capture dependencies.
func NewService(params Params) (Service, error) {
	if params.Contacts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "leads contacts service required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "leads events service required")
	}
	if params.Queue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "leads queue required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "leads logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		contacts: params.Contacts,
		events:   params.Events,
		queue:    params.Queue,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Capture upserts the contact, records the lead event, hands a first-time
// lead a one-time free pass, and schedules the two no-booking nurture
// emails. Nurture scheduling is best-effort past the upsert: a throttled
// queue or tracking hiccup never fails the capture itself.
func (s *service) Capture(ctx context.Context, params CaptureParams) (*CaptureResult, error) {
	upserted, err := s.contacts.Capture(ctx, contacts.CaptureParams{
		Email:     params.Email,
		FirstName: params.FirstName,
		Source:    params.Source,
	})
	if err != nil {
		return nil, err
	}
	contact := upserted.Contact

	s.events.Track(ctx, contact.Email, enums.EventTypeLeadCaptured, map[string]any{
		"source": params.Source,
	})

	result := &CaptureResult{Contact: contact}

	if upserted.Created {
		token, err := s.contacts.IssueFreePass(ctx, contact.Email, freePassTTL)
		if err != nil {
			s.logg.Error(s.logg.WithContact(ctx, contact.Email), "issue free pass", err)
		} else {
			result.FreePassToken = token
		}
	}

	now := s.now()
	for _, nurture := range []struct {
		jobType enums.JobType
		delay   time.Duration
	}{
		{enums.JobTypeLeadNoBooking1, firstNudgeDelay},
		{enums.JobTypeLeadNoBooking2, secondNudgeDelay},
	} {
		job, err := s.queue.Enqueue(ctx, jobs.EnqueueParams{
			Email:        contact.Email,
			Type:         nurture.jobType,
			ScheduledFor: now.Add(nurture.delay),
			Payload:      map[string]any{"source": params.Source},
		})
		if err != nil {
			s.logg.Error(s.logg.WithJobType(s.logg.WithContact(ctx, contact.Email), string(nurture.jobType)), "enqueue nurture job", err)
			continue
		}
		if job != nil {
			result.JobsScheduled++
		}
	}
	return result, nil
}
