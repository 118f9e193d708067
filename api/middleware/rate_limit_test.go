package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeLimiterStore struct {
	counts map[string]int64
	err    error
}

func (f *fakeLimiterStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func joinRequest(ip string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/abc/join", nil)
	r.RemoteAddr = ip + ":51234"
	return r
}

func TestJoinRateLimitBlocksAfterLimit(t *testing.T) {
	t.Parallel()

	store := &fakeLimiterStore{}
	policy := NewJoinRateLimitPolicy(time.Minute, 2)
	handler := JoinRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, joinRequest("198.51.100.7"))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d should pass, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, joinRequest("198.51.100.7"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	// A different IP has its own window.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, joinRequest("203.0.113.9"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("other ip should pass, got %d", rec.Code)
	}

	if _, ok := store.counts["rl:ip:join:198.51.100.7"]; !ok {
		t.Fatal("expected the per-ip counter key")
	}
}

func TestJoinRateLimitDisabledPolicy(t *testing.T) {
	t.Parallel()

	store := &fakeLimiterStore{}
	handler := JoinRateLimit(JoinRateLimitPolicy{}, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, joinRequest("198.51.100.7"))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("disabled policy must never block, got %d", rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatal("disabled policy should not touch the store")
	}
}

func TestJoinRateLimitForwardedFor(t *testing.T) {
	t.Parallel()

	store := &fakeLimiterStore{}
	handler := JoinRateLimit(NewJoinRateLimitPolicy(time.Minute, 1), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	r := joinRequest("10.0.0.1")
	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}
	if _, ok := store.counts["rl:ip:join:198.51.100.7"]; !ok {
		t.Fatal("expected the forwarded client ip in the key")
	}
}
