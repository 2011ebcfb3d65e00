package nudges

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/maribelreyes/omflow-backend/internal/jobs"
	"github.com/maribelreyes/omflow-backend/pkg/config"
	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

// OfferingSource lists recently published offerings.
type OfferingSource interface {
	CreatedSince(ctx context.Context, since time.Time) ([]models.Offering, error)
}

// AttendeeSource resolves an instructor's recent confirmed attendees.
type AttendeeSource interface {
	DistinctAttendeeEmails(ctx context.Context, instructorName string, since time.Time) ([]string, error)
}

// Queue is the slice of the job queue the generator needs.
type Queue interface {
	RebookNudgeExists(ctx context.Context, email string, offeringID uuid.UUID) (bool, error)
	Enqueue(ctx context.Context, params jobs.EnqueueParams) (*models.EmailJob, error)
}

// Params wires generator dependencies.
type Params struct {
	Offerings OfferingSource
	Attendees AttendeeSource
	Queue     Queue
	Config    config.AutomationConfig
	Logger    *logger.Logger
	Now       func() time.Time
}

// Generator synthesizes rebook nudges by joining new offerings against each
// instructor's past attendees. Runs are idempotent: the per-(contact,
// offering) existence check stops duplicates.
type Generator struct {
	offerings OfferingSource
	attendees AttendeeSource
	queue     Queue
	cfg       config.AutomationConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewGenerator validates and wires generator dependencies.
func NewGenerator(params Params) (*Generator, error) {
	if params.Offerings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "nudges offering source required")
	}
	if params.Attendees == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "nudges attendee source required")
	}
	if params.Queue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "nudges queue required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "nudges logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Generator{
		offerings: params.Offerings,
		attendees: params.Attendees,
		queue:     params.Queue,
		cfg:       params.Config,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// Generate returns how many nudges were enqueued. Per-offering and
// per-contact failures are aggregated and logged, never fatal: one bad row
// must not stop the rest of the batch.
func (g *Generator) Generate(ctx context.Context) (int, error) {
	now := g.now()
	offerings, err := g.offerings.CreatedSince(ctx, now.Add(-g.cfg.OfferingLookback))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan new offerings")
	}

	var created int
	var errs error
	for _, offering := range offerings {
		nudgeAt := offering.StartsAt.Add(-g.cfg.NudgeLeadTime)
		if !nudgeAt.After(now) {
			// Starts inside the lead-time window: silently skipped, no
			// fallback schedule.
			continue
		}

		emails, err := g.attendees.DistinctAttendeeEmails(ctx, offering.InstructorName, now.Add(-g.cfg.AttendeeLookback))
		if err != nil {
			errs = multierr.Append(errs, err)
			g.logg.Error(g.logg.WithField(ctx, "offering_id", offering.ID.String()), "list past attendees", err)
			continue
		}

		for _, email := range emails {
			ok, err := g.nudge(ctx, offering, email, nudgeAt)
			if err != nil {
				errs = multierr.Append(errs, err)
				g.logg.Error(g.logg.WithContact(ctx, email), "enqueue rebook nudge", err)
				continue
			}
			if ok {
				created++
			}
		}
	}
	return created, errs
}

func (g *Generator) nudge(ctx context.Context, offering models.Offering, email string, nudgeAt time.Time) (bool, error) {
	exists, err := g.queue.RebookNudgeExists(ctx, email, offering.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	offeringID := offering.ID
	job, err := g.queue.Enqueue(ctx, jobs.EnqueueParams{
		Email:        email,
		Type:         enums.JobTypeRebookNudge,
		ScheduledFor: nudgeAt,
		OfferingID:   &offeringID,
		Payload: map[string]any{
			"offering_id":     offering.ID.String(),
			"class_title":     offering.Title,
			"instructor_name": offering.InstructorName,
			"starts_at":       offering.StartsAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return false, err
	}
	// nil job means the send policy declined; quiet skip.
	return job != nil, nil
}
