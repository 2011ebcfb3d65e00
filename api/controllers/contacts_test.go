package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/maribelreyes/omflow-backend/internal/contacts"
	"github.com/maribelreyes/omflow-backend/pkg/db/models"
	pkgerrors "github.com/maribelreyes/omflow-backend/pkg/errors"
)

type testContactsService struct {
	unsubscribeFn func(ctx context.Context, email string) error
	resubscribeFn func(ctx context.Context, email string) error
}

func (s *testContactsService) Capture(ctx context.Context, params contacts.CaptureParams) (*contacts.CaptureResult, error) {
	return nil, nil
}

func (s *testContactsService) Get(ctx context.Context, email string) (*models.Contact, error) {
	return nil, nil
}

func (s *testContactsService) Unsubscribe(ctx context.Context, email string) error {
	return s.unsubscribeFn(ctx, email)
}

func (s *testContactsService) Resubscribe(ctx context.Context, email string) error {
	return s.resubscribeFn(ctx, email)
}

func (s *testContactsService) IssueFreePass(ctx context.Context, email string, ttl time.Duration) (string, error) {
	return "", nil
}

func (s *testContactsService) RedeemFreePass(ctx context.Context, email, token string) error {
	return nil
}

func TestUnsubscribeFromQueryParameter(t *testing.T) {
	var got string
	svc := &testContactsService{unsubscribeFn: func(ctx context.Context, email string) error {
		got = email
		return nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/public/v1/unsubscribe?email=maya%2Byoga%40example.com", nil)
	resp := httptest.NewRecorder()
	Unsubscribe(svc, testLogg())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got != "maya+yoga@example.com" {
		t.Fatalf("unexpected email %q", got)
	}
}

func TestUnsubscribeRequiresEmail(t *testing.T) {
	svc := &testContactsService{unsubscribeFn: func(ctx context.Context, email string) error {
		t.Fatal("service must not be called")
		return nil
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/public/v1/unsubscribe", nil)
	resp := httptest.NewRecorder()
	Unsubscribe(svc, testLogg())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUnsubscribeUnknownContact(t *testing.T) {
	svc := &testContactsService{unsubscribeFn: func(ctx context.Context, email string) error {
		return pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/public/v1/unsubscribe?email=ghost@example.com", nil)
	resp := httptest.NewRecorder()
	Unsubscribe(svc, testLogg())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestResubscribeFromBody(t *testing.T) {
	var got string
	svc := &testContactsService{resubscribeFn: func(ctx context.Context, email string) error {
		got = email
		return nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/resubscribe",
		strings.NewReader(`{"email":"maya@example.com"}`))
	resp := httptest.NewRecorder()
	Resubscribe(svc, testLogg())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got != "maya@example.com" {
		t.Fatalf("unexpected email %q", got)
	}
}
