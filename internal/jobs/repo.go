package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
	"github.com/maribelreyes/omflow-backend/pkg/pagination"
)

// Repository exposes persistence helpers for email jobs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, job *models.EmailJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmailJob, error)
	DueJobs(ctx context.Context, now time.Time, limit int, claimTTL time.Duration) ([]models.EmailJob, error)
	Claim(ctx context.Context, id uuid.UUID, workerID string, now time.Time, claimTTL time.Duration) (bool, error)
	MarkSent(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error)
	CancelPendingByTypes(ctx context.Context, email string, types []enums.JobType, reason string, now time.Time) (int64, error)
	Reschedule(ctx context.Context, id uuid.UUID, errMsg string, nextRun time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, now time.Time) (bool, error)
	CountSentSince(ctx context.Context, email string, since time.Time) (int64, error)
	RebookNudgeExists(ctx context.Context, email string, offeringID uuid.UUID) (bool, error)
	List(ctx context.Context, params listJobsParams) ([]models.EmailJob, *pagination.Cursor, error)
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a jobs repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listJobsParams struct {
	Email  string
	Limit  int
	Cursor *pagination.Cursor
}

// nonTerminal scopes a query to jobs that can still be dispatched.
const nonTerminal = "sent_at IS NULL AND canceled_at IS NULL AND failed_at IS NULL"

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, job *models.EmailJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID returns nil without error when no job exists.
func (r *repositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.EmailJob, error) {
	var job models.EmailJob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// DueJobs returns non-terminal jobs due at or before now, oldest first.
// Jobs whose claim is older than claimTTL count as due again.
func (r *repositoryImpl) DueJobs(ctx context.Context, now time.Time, limit int, claimTTL time.Duration) ([]models.EmailJob, error) {
	staleBefore := now.Add(-claimTTL)
	var jobs []models.EmailJob
	err := r.db.WithContext(ctx).
		Where(nonTerminal).
		Where("scheduled_for <= ?", now).
		Where("claimed_at IS NULL OR claimed_at < ?", staleBefore).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Claim transitions a job to claimed with a single conditional update. Only
// the winner of the update may proceed to send.
func (r *repositoryImpl) Claim(ctx context.Context, id uuid.UUID, workerID string, now time.Time, claimTTL time.Duration) (bool, error) {
	staleBefore := now.Add(-claimTTL)
	result := r.db.WithContext(ctx).
		Model(&models.EmailJob{}).
		Where("id = ?", id).
		Where(nonTerminal).
		Where("claimed_at IS NULL OR claimed_at < ?", staleBefore).
		UpdateColumns(map[string]any{
			"claimed_at": now,
			"claimed_by": workerID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkSent(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EmailJob{}).
		Where("id = ?", id).
		Where(nonTerminal).
		UpdateColumn("sent_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Cancel(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EmailJob{}).
		Where("id = ?", id).
		Where(nonTerminal).
		UpdateColumns(map[string]any{
			"canceled_at":   now,
			"cancel_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CancelPendingByTypes(ctx context.Context, email string, types []enums.JobType, reason string, now time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.EmailJob{}).
		Where("email = ?", email).
		Where(nonTerminal)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	result := query.UpdateColumns(map[string]any{
		"canceled_at":   now,
		"cancel_reason": reason,
	})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Reschedule records a transient failure: attempts is incremented, the claim
// is released, and the job becomes due again at nextRun.
func (r *repositoryImpl) Reschedule(ctx context.Context, id uuid.UUID, errMsg string, nextRun time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EmailJob{}).
		Where("id = ?", id).
		Where(nonTerminal).
		UpdateColumns(map[string]any{
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    errMsg,
			"scheduled_for": nextRun,
			"claimed_at":    nil,
			"claimed_by":    nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EmailJob{}).
		Where("id = ?", id).
		Where(nonTerminal).
		UpdateColumns(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": errMsg,
			"failed_at":  now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CountSentSince(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EmailJob{}).
		Where("email = ? AND sent_at IS NOT NULL AND sent_at >= ?", email, since).
		Count(&count).Error
	return count, err
}

// RebookNudgeExists is the dedup existence check for (contact, offering).
// Any non-canceled rebook job for the pair counts, sent or pending alike.
func (r *repositoryImpl) RebookNudgeExists(ctx context.Context, email string, offeringID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EmailJob{}).
		Where("email = ? AND type = ? AND offering_id = ? AND canceled_at IS NULL", email, enums.JobTypeRebookNudge, offeringID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listJobsParams) ([]models.EmailJob, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.EmailJob{})
	if params.Email != "" {
		query = query.Where("email = ?", params.Email)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var jobs []models.EmailJob
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, nil, err
	}

	if len(jobs) > normalized {
		next := jobs[normalized]
		jobs = jobs[:normalized]
		return jobs, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return jobs, nil, nil
}

func (r *repositoryImpl) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Where("sent_at IS NOT NULL OR canceled_at IS NOT NULL OR failed_at IS NOT NULL").
		Delete(&models.EmailJob{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
