package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/internal/jobs"
	"github.com/maribelreyes/omflow-backend/internal/templates"
	"github.com/maribelreyes/omflow-backend/pkg/config"
	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
	"github.com/maribelreyes/omflow-backend/pkg/mailer"
	"github.com/maribelreyes/omflow-backend/pkg/metrics"
)

// Queue is the slice of the job queue the dispatcher drives.
type Queue interface {
	DueJobs(ctx context.Context, now time.Time) ([]models.EmailJob, error)
	Claim(ctx context.Context, jobID uuid.UUID, workerID string, now time.Time) (bool, error)
	MarkSent(ctx context.Context, jobID uuid.UUID, now time.Time) error
	Cancel(ctx context.Context, jobID uuid.UUID, reason string, now time.Time) error
	RecordFailure(ctx context.Context, job *models.EmailJob, sendErr error, now time.Time) (*jobs.FailureOutcome, error)
}

// Policy re-checks the throttle at dispatch time. Conditions can change
// between enqueue and send, so the enqueue-time decision is never trusted.
type Policy interface {
	CanSend(ctx context.Context, email string) (bool, string, error)
}

// ContactSource resolves the recipient for template personalization.
type ContactSource interface {
	Get(ctx context.Context, email string) (*models.Contact, error)
}

// Renderer turns a claimed job into a subject/body pair.
type Renderer interface {
	Render(jobType enums.JobType, input templates.Input) templates.Rendered
}

// Tracker records dispatch outcomes on the contact timeline.
type Tracker interface {
	Track(ctx context.Context, email string, eventType enums.EventType, metadata map[string]any)
}

// NudgeSource synthesizes rebook nudges after each dispatch batch.
type NudgeSource interface {
	Generate(ctx context.Context) (int, error)
}

// Params wires dispatcher dependencies.
type Params struct {
	Queue    Queue
	Policy   Policy
	Contacts ContactSource
	Renderer Renderer
	Sender   mailer.Sender
	Tracker  Tracker
	Nudges   NudgeSource
	Metrics  *metrics.DispatchMetrics
	Config   config.AutomationConfig
	Logger   *logger.Logger
	WorkerID string
	Now      func() time.Time
}

// Dispatcher runs the periodic send cycle: claim each due job, re-check the
// throttle, render, hand off to the mailer, then settle the row. Jobs are
// processed sequentially; one failing job never aborts the batch.
type Dispatcher struct {
	queue    Queue
	policy   Policy
	contacts ContactSource
	renderer Renderer
	sender   mailer.Sender
	tracker  Tracker
	nudges   NudgeSource
	metrics  *metrics.DispatchMetrics
	cfg      config.AutomationConfig
	logg     *logger.Logger
	workerID string
	now      func() time.Time
}

// NewDispatcher validates and wires dispatcher dependencies.
func NewDispatcher(params Params) (*Dispatcher, error) {
	if params.Queue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatch queue required")
	}
	if params.Policy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatch send policy required")
	}
	if params.Contacts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatch contact source required")
	}
	if params.Renderer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatch renderer required")
	}
	if params.Sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatch sender required")
	}
	if params.Tracker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatch tracker required")
	}
	if params.Nudges == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatch nudge source required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatch logger required")
	}
	workerID := params.WorkerID
	if workerID == "" {
		workerID = "dispatcher-" + uuid.NewString()
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Dispatcher{
		queue:    params.Queue,
		policy:   params.Policy,
		contacts: params.Contacts,
		renderer: params.Renderer,
		sender:   params.Sender,
		tracker:  params.Tracker,
		nudges:   params.Nudges,
		metrics:  params.Metrics,
		cfg:      params.Config,
		logg:     params.Logger,
		workerID: workerID,
		now:      now,
	}, nil
}

// RunCycle executes one dispatch pass and returns how many jobs it settled.
// With the kill switch off, every due job is canceled instead of sent and
// nudge generation is skipped entirely.
func (d *Dispatcher) RunCycle(ctx context.Context) (int, error) {
	now := d.now()
	due, err := d.queue.DueJobs(ctx, now)
	if err != nil {
		return 0, err
	}

	if !d.cfg.Enabled {
		var canceled int
		for i := range due {
			job := due[i]
			if err := d.queue.Cancel(ctx, job.ID, "automation disabled", now); err != nil {
				d.logg.Error(d.logg.WithJob(ctx, job.ID.String()), "cancel job while disabled", err)
				continue
			}
			d.metrics.IncCanceled(string(job.Type))
			canceled++
		}
		d.logg.Info(d.logg.WithField(ctx, "canceled", canceled), "dispatch cycle skipped: automation disabled")
		return canceled, nil
	}

	var processed int
	for i := range due {
		if d.process(ctx, &due[i], now) {
			processed++
		}
	}

	if created, err := d.nudges.Generate(ctx); err != nil {
		d.logg.Error(ctx, "rebook nudge generation", err)
	} else if created > 0 {
		d.logg.Info(d.logg.WithField(ctx, "created", created), "rebook nudges generated")
	}

	return processed, nil
}

// process settles one due job, returning whether this worker acted on it.
func (d *Dispatcher) process(ctx context.Context, job *models.EmailJob, now time.Time) bool {
	lctx := d.logg.WithJobType(d.logg.WithJob(d.logg.WithContact(ctx, job.Email), job.ID.String()), string(job.Type))

	claimed, err := d.queue.Claim(ctx, job.ID, d.workerID, now)
	if err != nil {
		d.logg.Error(lctx, "claim job", err)
		return false
	}
	if !claimed {
		// Another worker holds it, or it went terminal since the scan.
		return false
	}

	allowed, reason, err := d.policy.CanSend(ctx, job.Email)
	if err != nil {
		d.settleFailure(lctx, job, err, now)
		return true
	}
	if !allowed {
		if err := d.queue.Cancel(ctx, job.ID, reason, now); err != nil {
			d.logg.Error(lctx, "cancel throttled job", err)
			return true
		}
		d.metrics.IncCanceled(string(job.Type))
		d.logg.Info(d.logg.WithField(lctx, "reason", reason), "job canceled by send policy")
		return true
	}

	rendered := d.renderer.Render(job.Type, d.templateInput(lctx, job))
	err = d.sender.Send(ctx, mailer.Message{
		To:      job.Email,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
	})
	if err != nil {
		d.settleFailure(lctx, job, err, now)
		return true
	}

	if err := d.queue.MarkSent(ctx, job.ID, now); err != nil {
		d.logg.Error(lctx, "mark job sent", err)
		return true
	}
	d.tracker.Track(ctx, job.Email, enums.EventTypeEmailSent, map[string]any{
		"job_id":   job.ID.String(),
		"job_type": string(job.Type),
	})
	d.metrics.IncSent(string(job.Type))
	d.logg.Info(lctx, "job dispatched")
	return true
}

func (d *Dispatcher) settleFailure(ctx context.Context, job *models.EmailJob, sendErr error, now time.Time) {
	outcome, err := d.queue.RecordFailure(ctx, job, sendErr, now)
	if err != nil {
		d.logg.Error(ctx, "record job failure", err)
		return
	}
	if outcome.Failed {
		d.metrics.IncFailed(string(job.Type))
		d.logg.Error(ctx, "job failed permanently", sendErr)
		return
	}
	d.metrics.IncRetried(string(job.Type))
	d.logg.Warn(d.logg.WithField(ctx, "next_run", outcome.NextRun), "job send failed, rescheduled")
}

func (d *Dispatcher) templateInput(ctx context.Context, job *models.EmailJob) templates.Input {
	input := templates.Input{Email: job.Email}

	if job.Payload != "" && job.Payload != "{}" {
		payload := map[string]any{}
		if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
			d.logg.Warn(ctx, "job payload is not valid json")
		} else {
			input.Payload = payload
		}
	}

	contact, err := d.contacts.Get(ctx, job.Email)
	if err != nil {
		// Personalization only; the generic greeting covers the gap.
		d.logg.Warn(ctx, "load contact for personalization failed")
		return input
	}
	if contact != nil && contact.FirstName != nil {
		input.FirstName = *contact.FirstName
	}
	return input
}
