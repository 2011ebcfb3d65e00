package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/maribelreyes/omflow-backend/internal/jobs"
	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/enums"
)

type testJobsService struct {
	enqueueFn func(ctx context.Context, params jobs.EnqueueParams) (*models.EmailJob, error)
	cancelFn  func(ctx context.Context, email string, types []enums.JobType, reason string) (int64, error)
	listFn    func(ctx context.Context, params jobs.ListParams) (*jobs.ListResult, error)
}

func (s *testJobsService) Enqueue(ctx context.Context, params jobs.EnqueueParams) (*models.EmailJob, error) {
	return s.enqueueFn(ctx, params)
}

func (s *testJobsService) CancelByTypes(ctx context.Context, email string, types []enums.JobType, reason string) (int64, error) {
	return s.cancelFn(ctx, email, types, reason)
}

func (s *testJobsService) DueJobs(ctx context.Context, now time.Time) ([]models.EmailJob, error) {
	return nil, nil
}

func (s *testJobsService) Claim(ctx context.Context, jobID uuid.UUID, workerID string, now time.Time) (bool, error) {
	return false, nil
}

func (s *testJobsService) MarkSent(ctx context.Context, jobID uuid.UUID, now time.Time) error {
	return nil
}

func (s *testJobsService) Cancel(ctx context.Context, jobID uuid.UUID, reason string, now time.Time) error {
	return nil
}

func (s *testJobsService) RecordFailure(ctx context.Context, job *models.EmailJob, sendErr error, now time.Time) (*jobs.FailureOutcome, error) {
	return nil, nil
}

func (s *testJobsService) RebookNudgeExists(ctx context.Context, email string, offeringID uuid.UUID) (bool, error) {
	return false, nil
}

func (s *testJobsService) List(ctx context.Context, params jobs.ListParams) (*jobs.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &jobs.ListResult{}, nil
}

func TestEnqueueJobSchedules(t *testing.T) {
	svc := &testJobsService{enqueueFn: func(ctx context.Context, params jobs.EnqueueParams) (*models.EmailJob, error) {
		if params.Type != enums.JobTypeLeadNoBooking1 {
			t.Fatalf("unexpected type %s", params.Type)
		}
		return &models.EmailJob{ID: uuid.New(), Email: params.Email, Type: params.Type}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/internal/v1/jobs",
		strings.NewReader(`{"email":"maya@example.com","type":"lead_no_booking_1","scheduled_for":"2026-09-02T12:00:00Z"}`))
	resp := httptest.NewRecorder()
	EnqueueJob(svc, testLogg())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["scheduled"] != true {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}
}

func TestEnqueueJobThrottledIsNotAnError(t *testing.T) {
	svc := &testJobsService{enqueueFn: func(ctx context.Context, params jobs.EnqueueParams) (*models.EmailJob, error) {
		return nil, nil // send policy declined
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/internal/v1/jobs",
		strings.NewReader(`{"email":"maya@example.com","type":"lead_no_booking_1","scheduled_for":"2026-09-02T12:00:00Z"}`))
	resp := httptest.NewRecorder()
	EnqueueJob(svc, testLogg())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["scheduled"] != false {
		t.Fatalf("expected scheduled=false, got %v", envelope.Data)
	}
}

func TestEnqueueJobRejectsUnknownType(t *testing.T) {
	svc := &testJobsService{enqueueFn: func(ctx context.Context, params jobs.EnqueueParams) (*models.EmailJob, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/internal/v1/jobs",
		strings.NewReader(`{"email":"maya@example.com","type":"weekly_digest","scheduled_for":"2026-09-02T12:00:00Z"}`))
	resp := httptest.NewRecorder()
	EnqueueJob(svc, testLogg())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCancelJobsParsesTypes(t *testing.T) {
	svc := &testJobsService{cancelFn: func(ctx context.Context, email string, types []enums.JobType, reason string) (int64, error) {
		if len(types) != 2 || reason != "lead converted" {
			t.Fatalf("unexpected cancel call: %v %q", types, reason)
		}
		return 2, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/internal/v1/jobs/cancel",
		strings.NewReader(`{"email":"maya@example.com","types":["lead_no_booking_1","lead_no_booking_2"],"reason":"lead converted"}`))
	resp := httptest.NewRecorder()
	CancelJobs(svc, testLogg())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["canceled"] != float64(2) {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}
}

func TestListJobsRejectsOversizedLimit(t *testing.T) {
	svc := &testJobsService{}

	req := httptest.NewRequest(http.MethodGet, "/api/internal/v1/jobs?limit=5000", nil)
	resp := httptest.NewRecorder()
	ListJobs(svc, testLogg())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
