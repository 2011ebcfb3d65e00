package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/internal/contacts"
	"github.com/maribelreyes/omflow-backend/pkg/config"
	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
	"github.com/maribelreyes/omflow-backend/pkg/pagination"
)

// SendPolicy decides whether another automated email may go to a contact.
type SendPolicy interface {
	CanSend(ctx context.Context, email string) (bool, string, error)
}

// EnqueueParams describes a job to schedule.
type EnqueueParams struct {
	Email        string
	Type         enums.JobType
	ScheduledFor time.Time
	Payload      map[string]any
	OfferingID   *uuid.UUID
}

// ListParams configures pagination for the job listing.
type ListParams struct {
	Email  string
	Limit  int
	Cursor string
}

// ListResult wraps returned jobs and the cursor for the next page.
type ListResult struct {
	Items  []models.EmailJob `json:"items"`
	Cursor string            `json:"cursor"`
}

// FailureOutcome reports how a transient send failure was recorded.
type FailureOutcome struct {
	Failed  bool      // terminal: retry budget exhausted
	NextRun time.Time // when the job becomes due again, zero if Failed
}

// Service defines the durable email job queue.
type Service interface {
	// Enqueue consults the send policy and returns (nil, nil) when throttled:
	// no row is created and the caller treats it as a quiet skip.
	Enqueue(ctx context.Context, params EnqueueParams) (*models.EmailJob, error)
	CancelByTypes(ctx context.Context, email string, types []enums.JobType, reason string) (int64, error)
	DueJobs(ctx context.Context, now time.Time) ([]models.EmailJob, error)
	Claim(ctx context.Context, jobID uuid.UUID, workerID string, now time.Time) (bool, error)
	MarkSent(ctx context.Context, jobID uuid.UUID, now time.Time) error
	Cancel(ctx context.Context, jobID uuid.UUID, reason string, now time.Time) error
	RecordFailure(ctx context.Context, job *models.EmailJob, sendErr error, now time.Time) (*FailureOutcome, error)
	RebookNudgeExists(ctx context.Context, email string, offeringID uuid.UUID) (bool, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// Params wires queue dependencies.
type Params struct {
	Repo   Repository
	Policy SendPolicy
	Config config.AutomationConfig
	Logger *logger.Logger
}

type service struct {
	repo   Repository
	policy SendPolicy
	cfg    config.AutomationConfig
	logg   *logger.Logger
}

// NewService validates and wires queue dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "jobs repository required")
	}
	if params.Policy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "jobs send policy required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "jobs logger required")
	}
	return &service{
		repo:   params.Repo,
		policy: params.Policy,
		cfg:    params.Config,
		logg:   params.Logger,
	}, nil
}

func (s *service) Enqueue(ctx context.Context, params EnqueueParams) (*models.EmailJob, error) {
	email := contacts.NormalizeEmail(params.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if !params.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown job type")
	}
	if params.ScheduledFor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled time required")
	}

	allowed, reason, err := s.policy.CanSend(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "evaluate send policy")
	}
	if !allowed {
		lctx := s.logg.WithJobType(s.logg.WithContact(ctx, email), string(params.Type))
		s.logg.Info(s.logg.WithField(lctx, "reason", reason), "enqueue skipped by send policy")
		return nil, nil
	}

	payload := "{}"
	if len(params.Payload) > 0 {
		raw, err := json.Marshal(params.Payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode job payload")
		}
		payload = string(raw)
	}

	job := &models.EmailJob{
		Email:        email,
		Type:         params.Type,
		Payload:      payload,
		OfferingID:   params.OfferingID,
		ScheduledFor: params.ScheduledFor.UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create email job")
	}
	return job, nil
}

func (s *service) CancelByTypes(ctx context.Context, email string, types []enums.JobType, reason string) (int64, error) {
	normalized := contacts.NormalizeEmail(email)
	if normalized == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	for _, jobType := range types {
		if !jobType.IsValid() {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown job type")
		}
	}

	count, err := s.repo.CancelPendingByTypes(ctx, normalized, types, reason, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel email jobs")
	}
	return count, nil
}

func (s *service) DueJobs(ctx context.Context, now time.Time) ([]models.EmailJob, error) {
	jobs, err := s.repo.DueJobs(ctx, now, s.cfg.DispatchBatchSize, s.cfg.ClaimTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan due jobs")
	}
	return jobs, nil
}

func (s *service) Claim(ctx context.Context, jobID uuid.UUID, workerID string, now time.Time) (bool, error) {
	claimed, err := s.repo.Claim(ctx, jobID, workerID, now, s.cfg.ClaimTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim job")
	}
	return claimed, nil
}

func (s *service) MarkSent(ctx context.Context, jobID uuid.UUID, now time.Time) error {
	updated, err := s.repo.MarkSent(ctx, jobID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark job sent")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "job already terminal")
	}
	return nil
}

func (s *service) Cancel(ctx context.Context, jobID uuid.UUID, reason string, now time.Time) error {
	updated, err := s.repo.Cancel(ctx, jobID, reason, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel job")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "job already terminal")
	}
	return nil
}

// RecordFailure applies the bounded-retry policy: exponential backoff on the
// schedule until MaxAttempts, then the job moves to the terminal failed state.
func (s *service) RecordFailure(ctx context.Context, job *models.EmailJob, sendErr error, now time.Time) (*FailureOutcome, error) {
	if job == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job required")
	}
	errMsg := "send failed"
	if sendErr != nil {
		errMsg = sendErr.Error()
	}

	nextAttempts := job.Attempts + 1
	if nextAttempts >= s.cfg.MaxAttempts {
		updated, err := s.repo.MarkFailed(ctx, job.ID, errMsg, now)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark job failed")
		}
		if !updated {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "job already terminal")
		}
		return &FailureOutcome{Failed: true}, nil
	}

	nextRun := now.Add(s.backoff(job.Attempts))
	updated, err := s.repo.Reschedule(ctx, job.ID, errMsg, nextRun)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reschedule job")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "job already terminal")
	}
	return &FailureOutcome{NextRun: nextRun}, nil
}

// backoff doubles the base delay per prior attempt, capped.
func (s *service) backoff(attempts int) time.Duration {
	delay := s.cfg.BackoffBase
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= s.cfg.BackoffCap {
			return s.cfg.BackoffCap
		}
	}
	if delay > s.cfg.BackoffCap {
		return s.cfg.BackoffCap
	}
	return delay
}

func (s *service) RebookNudgeExists(ctx context.Context, email string, offeringID uuid.UUID) (bool, error) {
	exists, err := s.repo.RebookNudgeExists(ctx, contacts.NormalizeEmail(email), offeringID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check rebook nudge")
	}
	return exists, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listJobsParams{
		Email: contacts.NormalizeEmail(params.Email),
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list email jobs")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}
