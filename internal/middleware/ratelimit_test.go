package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Handler(t *testing.T) {
	l := NewRateLimiter(0.001, 2)
	h := l.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v; want [200 200 429]", codes)
	}

	// Another client has its own bucket.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d; want 200", rec.Code)
	}
}

func TestRateLimiter_BasicAuth(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	h := l.BasicAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(setAuth func(*http.Request)) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
		req.RemoteAddr = "10.0.0.3:1234"
		setAuth(req)
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	basic := func(r *http.Request) { r.SetBasicAuth("alice", "guess") }
	bearer := func(r *http.Request) { r.Header.Set("Authorization", "Bearer token") }

	if code := send(basic); code != http.StatusOK {
		t.Errorf("first basic request = %d; want 200", code)
	}
	if code := send(basic); code != http.StatusTooManyRequests {
		t.Errorf("second basic request = %d; want 429", code)
	}
	for i := 0; i < 3; i++ {
		if code := send(bearer); code != http.StatusOK {
			t.Errorf("bearer request %d = %d; want 200", i, code)
		}
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	l := NewRateLimiter(1, 1)
	l.get("10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.StartCleanup(ctx, 10*time.Millisecond, 0)

	time.Sleep(200 * time.Millisecond)
	cancel()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.visitors) != 0 {
		t.Errorf("visitors = %d; want 0", len(l.visitors))
	}
}
