package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maribelreyes/omflow-backend/internal/leads"
	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
)

type testLeadsService struct {
	captureFn func(ctx context.Context, params leads.CaptureParams) (*leads.CaptureResult, error)
}

func (s *testLeadsService) Capture(ctx context.Context, params leads.CaptureParams) (*leads.CaptureResult, error) {
	return s.captureFn(ctx, params)
}

func testLogg() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

func TestCaptureLeadSuccess(t *testing.T) {
	svc := &testLeadsService{captureFn: func(ctx context.Context, params leads.CaptureParams) (*leads.CaptureResult, error) {
		if params.Email != "maya@example.com" || params.Source != "landing_page" {
			t.Fatalf("unexpected params %+v", params)
		}
		return &leads.CaptureResult{
			Contact:       &models.Contact{Email: "maya@example.com"},
			FreePassToken: "pass-token",
			JobsScheduled: 2,
		}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/leads",
		strings.NewReader(`{"email":"maya@example.com","first_name":"Maya","source":"landing_page"}`))
	resp := httptest.NewRecorder()
	CaptureLead(svc, testLogg())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data["free_pass_token"] != "pass-token" {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}
	if envelope.Data["jobs_scheduled"] != float64(2) {
		t.Fatalf("unexpected jobs_scheduled %v", envelope.Data["jobs_scheduled"])
	}
}

func TestCaptureLeadRejectsInvalidEmail(t *testing.T) {
	svc := &testLeadsService{captureFn: func(ctx context.Context, params leads.CaptureParams) (*leads.CaptureResult, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/leads",
		strings.NewReader(`{"email":"not-an-email"}`))
	resp := httptest.NewRecorder()
	CaptureLead(svc, testLogg())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCaptureLeadRejectsUnknownFields(t *testing.T) {
	svc := &testLeadsService{captureFn: func(ctx context.Context, params leads.CaptureParams) (*leads.CaptureResult, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/leads",
		strings.NewReader(`{"email":"maya@example.com","admin":true}`))
	resp := httptest.NewRecorder()
	CaptureLead(svc, testLogg())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
