package cron

import (
	"context"
	"fmt"

	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

// dispatchRunner is the dispatcher surface the job drives.
type dispatchRunner interface {
	RunCycle(ctx context.Context) (int, error)
}

type DispatchJobParams struct {
	Logger     *logger.Logger
	Dispatcher dispatchRunner
}

// NewDispatchJob wraps one dispatch cycle as a scheduled job.
func NewDispatchJob(params DispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	return &dispatchJob{logg: params.Logger, dispatcher: params.Dispatcher}, nil
}

type dispatchJob struct {
	logg       *logger.Logger
	dispatcher dispatchRunner
}

func (j *dispatchJob) Name() string { return "email-dispatch" }

func (j *dispatchJob) Run(ctx context.Context) error {
	processed, err := j.dispatcher.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("dispatch cycle: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "processed", processed), "dispatch cycle complete")
	return nil
}
