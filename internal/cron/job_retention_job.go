package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

const defaultJobRetentionDays = 90

type jobRetentionRepo interface {
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type JobRetentionJobParams struct {
	Logger     *logger.Logger
	Repository jobRetentionRepo
	Retention  int
}

// NewJobRetentionJob purges terminal email jobs past the retention horizon.
// Pending and claimed rows are never touched.
func NewJobRetentionJob(params JobRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("jobs repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultJobRetentionDays
	}
	return &jobRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type jobRetentionJob struct {
	logg      *logger.Logger
	repo      jobRetentionRepo
	retention int
	now       func() time.Time
}

func (j *jobRetentionJob) Name() string { return "job-retention" }

func (j *jobRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.repo.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("job retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "job retention complete")
	return nil
}
