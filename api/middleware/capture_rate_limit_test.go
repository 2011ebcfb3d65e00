package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeLimiterStore struct {
	counts map[string]int64
	err    error
}

func newFakeLimiterStore() *fakeLimiterStore {
	return &fakeLimiterStore{counts: map[string]int64{}}
}

func (f *fakeLimiterStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func captureRequest(email string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/leads",
		strings.NewReader(`{"email":"`+email+`"}`))
	req.RemoteAddr = "203.0.113.7:4411"
	return req
}

func TestCaptureRateLimitAllowsUnderLimit(t *testing.T) {
	policy := NewCaptureRateLimitPolicy("capture", time.Minute, 5, 3)
	store := newFakeLimiterStore()
	called := 0
	handler := CaptureRateLimit(policy, store, authTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, captureRequest("maya@example.com"))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d blocked with %d", i, resp.Code)
		}
	}
	if called != 3 {
		t.Fatalf("expected 3 pass-throughs, got %d", called)
	}
}

func TestCaptureRateLimitBlocksEmailOverLimit(t *testing.T) {
	policy := NewCaptureRateLimitPolicy("capture", time.Minute, 100, 2)
	store := newFakeLimiterStore()
	handler := CaptureRateLimit(policy, store, authTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, captureRequest("maya@example.com"))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d unexpectedly blocked", i)
		}
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, captureRequest("maya@example.com"))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}

	// A different email from the same IP still passes.
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, captureRequest("liam@example.com"))
	if resp.Code != http.StatusOK {
		t.Fatalf("other email must pass, got %d", resp.Code)
	}
}

func TestCaptureRateLimitBlocksIPOverLimit(t *testing.T) {
	policy := NewCaptureRateLimitPolicy("capture", time.Minute, 2, 0)
	store := newFakeLimiterStore()
	handler := CaptureRateLimit(policy, store, authTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, captureRequest("maya@example.com"))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d unexpectedly blocked", i)
		}
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, captureRequest("zoe@example.com"))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
}

func TestCaptureRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	policy := NewCaptureRateLimitPolicy("capture", 0, 0, 0)
	called := false
	handler := CaptureRateLimit(policy, newFakeLimiterStore(), authTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, captureRequest("maya@example.com"))
	if resp.Code != http.StatusOK || !called {
		t.Fatalf("disabled policy must pass through, got %d", resp.Code)
	}
}
