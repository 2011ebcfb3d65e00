package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

type fakeRetentionRepo struct {
	lastCutoff  time.Time
	deletedRows int64
	err         error
	called      int
}

func (f *fakeRetentionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.deletedRows, nil
}

func (f *fakeRetentionRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return f.DeleteOlderThan(ctx, cutoff)
}

func retentionLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "retention-test", Output: io.Discard})
}

func TestEventRetentionJobDeletesPastCutoff(t *testing.T) {
	now := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	repo := &fakeRetentionRepo{deletedRows: 42}
	jobIface, err := NewEventRetentionJob(EventRetentionJobParams{
		Logger:     retentionLogger(),
		Repository: repo,
		Retention:  180,
	})
	if err != nil {
		t.Fatalf("NewEventRetentionJob: %v", err)
	}
	job := jobIface.(*eventRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.Add(-180 * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestEventRetentionJobPropagatesErrors(t *testing.T) {
	jobIface, err := NewEventRetentionJob(EventRetentionJobParams{
		Logger:     retentionLogger(),
		Repository: &fakeRetentionRepo{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewEventRetentionJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestJobRetentionJobUsesConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	repo := &fakeRetentionRepo{deletedRows: 7}
	jobIface, err := NewJobRetentionJob(JobRetentionJobParams{
		Logger:     retentionLogger(),
		Repository: repo,
		Retention:  90,
	})
	if err != nil {
		t.Fatalf("NewJobRetentionJob: %v", err)
	}
	job := jobIface.(*jobRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.Add(-90 * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
}

func TestDispatchJobReportsCycleErrors(t *testing.T) {
	jobIface, err := NewDispatchJob(DispatchJobParams{
		Logger:     retentionLogger(),
		Dispatcher: &fakeDispatcher{err: errors.New("db down")},
	})
	if err != nil {
		t.Fatalf("NewDispatchJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected dispatch error to surface")
	}
}

func TestDispatchJobRunsOneCycle(t *testing.T) {
	dispatcher := &fakeDispatcher{processed: 3}
	jobIface, err := NewDispatchJob(DispatchJobParams{
		Logger:     retentionLogger(),
		Dispatcher: dispatcher,
	})
	if err != nil {
		t.Fatalf("NewDispatchJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if dispatcher.calls != 1 {
		t.Fatalf("expected 1 cycle, got %d", dispatcher.calls)
	}
}

type fakeDispatcher struct {
	processed int
	calls     int
	err       error
}

func (f *fakeDispatcher) RunCycle(ctx context.Context) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.processed, nil
}
