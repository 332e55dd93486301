package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
)

type fakeLimiter struct {
	allowed bool
	err     error
	scopes  []string
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	f.scopes = append(f.scopes, scope)
	if f.err != nil {
		return false, 0, f.err
	}
	if f.allowed {
		return true, 1, nil
	}
	return false, 99, nil
}

func okHandler() (http.Handler, *int) {
	calls := 0
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}), &calls
}

func TestRateLimitScopesByUserAndRoute(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	handler, calls := okHandler()
	mw := RateLimit(limiter, nil, 5, time.Minute)

	req := requestWithPattern(http.MethodPost, "/api/v1/sellers/me/onboarding", "/api/v1/sellers/me/onboarding", nil)
	req = req.WithContext(WithUserID(req.Context(), "user-1"))

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || *calls != 1 {
		t.Fatalf("expected pass-through, got status %d calls %d", rec.Code, *calls)
	}
	if len(limiter.scopes) != 1 || limiter.scopes[0] != "POST:/api/v1/sellers/me/onboarding:user-1" {
		t.Fatalf("unexpected scopes %v", limiter.scopes)
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	handler, calls := okHandler()
	mw := RateLimit(limiter, nil, 5, time.Minute)

	req := requestWithPattern(http.MethodPost, "/api/v1/sellers", "/api/v1/sellers", nil)
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if *calls != 0 {
		t.Fatalf("handler must not run when throttled, got %d calls", *calls)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("unexpected error code %q", envelope.Error.Code)
	}
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	handler, calls := okHandler()
	mw := RateLimit(limiter, nil, 5, time.Minute)

	req := requestWithPattern(http.MethodPost, "/api/v1/sellers", "/api/v1/sellers", nil)
	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || *calls != 1 {
		t.Fatalf("limiter outage must not block requests, got status %d calls %d", rec.Code, *calls)
	}
}
