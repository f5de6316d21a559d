package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

type fakeWindowLimiter struct {
	counts  map[string]int64
	resetIn time.Duration
	err     error
}

func (f *fakeWindowLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (redis.RateDecision, error) {
	if f.err != nil {
		return redis.RateDecision{}, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[scope]++
	return redis.RateDecision{
		Allowed: f.counts[scope] <= limit,
		Count:   f.counts[scope],
		ResetIn: f.resetIn,
	}, nil
}

func TestWriteRateLimitBlocksAfterLimit(t *testing.T) {
	store := &fakeWindowLimiter{resetIn: 41500 * time.Millisecond}
	mw := WriteRateLimit(RateLimitPolicy{Name: "api", Limit: 2, Window: time.Minute}, store, nil)
	actor := types.Actor{UserID: uuid.New(), Kind: enums.ActorCustomer}

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/x/cancel", nil)
		req = req.WithContext(WithActor(req.Context(), actor))
		resp := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
		if resp.Code == http.StatusTooManyRequests && resp.Header().Get("Retry-After") != "42" {
			t.Fatalf("expected Retry-After 42 got %q", resp.Header().Get("Retry-After"))
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if _, ok := store.counts["api:user:"+actor.UserID.String()]; !ok {
		t.Fatalf("expected counter keyed by user, got %v", store.counts)
	}
}

func TestWriteRateLimitIgnoresReads(t *testing.T) {
	store := &fakeWindowLimiter{}
	mw := WriteRateLimit(RateLimitPolicy{Limit: 1, Window: time.Minute}, store, nil)
	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/vendor/ledger", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", resp.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("reads should not be counted: %v", store.counts)
	}
}

func TestWriteRateLimitFailsOpen(t *testing.T) {
	store := &fakeWindowLimiter{err: errors.New("redis down")}
	mw := WriteRateLimit(RateLimitPolicy{Limit: 1, Window: time.Minute}, store, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/provider", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	resp := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected fail-open 200 got %d", resp.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("expected forwarded ip, got %s", got)
	}
	req.Header.Del("X-Forwarded-For")
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %s", got)
	}
}

func TestRetryAfterFallsBackToWindow(t *testing.T) {
	if got := retryAfter(0, time.Minute); got != "60" {
		t.Fatalf("expected window fallback, got %s", got)
	}
	if got := retryAfter(200*time.Millisecond, time.Minute); got != "1" {
		t.Fatalf("expected at least one second, got %s", got)
	}
}
