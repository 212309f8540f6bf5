package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atinyakov/GophLedger/internal/models"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type fakeAuth struct {
	user, pass string
}

func (f fakeAuth) Authenticate(_ context.Context, username, password string) (models.Username, error) {
	if username == f.user && password == f.pass {
		return models.Username(username), nil
	}
	return "", models.ErrInvalidCredentials
}

type fakeTokens map[string]models.Username

func (f fakeTokens) Parse(raw string) (models.Username, error) {
	if u, ok := f[raw]; ok {
		return u, nil
	}
	return "", errors.New("bad token")
}

func TestUserAuth(t *testing.T) {
	mw := UserAuth(fakeAuth{user: "alice", pass: "pw"}, fakeTokens{"tok": "bob"})

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantCode int
		wantUser models.Username
	}{
		{
			name:     "no credentials",
			setup:    func(r *http.Request) {},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "basic ok",
			setup:    func(r *http.Request) { r.SetBasicAuth("alice", "pw") },
			wantCode: http.StatusOK,
			wantUser: "alice",
		},
		{
			name:     "basic wrong password",
			setup:    func(r *http.Request) { r.SetBasicAuth("alice", "nope") },
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "bearer ok",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer tok") },
			wantCode: http.StatusOK,
			wantUser: "bob",
		},
		{
			name:     "bearer invalid",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer other") },
			wantCode: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
			tt.setup(req)

			mw(dummy).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d; want %d", rec.Code, tt.wantCode)
			}
			if dummy.called != (tt.wantCode == http.StatusOK) {
				t.Fatalf("handler called = %v", dummy.called)
			}
			if dummy.called {
				if got := GetUserFromContext(dummy.ctx); got != tt.wantUser {
					t.Errorf("user = %q; want %q", got, tt.wantUser)
				}
			}
		})
	}
}

func TestUserAuth_NoTokenParserFallsBackToBasic(t *testing.T) {
	dummy := &dummyHandler{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")

	UserAuth(fakeAuth{}, nil)(dummy).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized || dummy.called {
		t.Errorf("status = %d, called = %v; want 401 and not called", rec.Code, dummy.called)
	}
}

func TestGetUserFromContext_Empty(t *testing.T) {
	if got := GetUserFromContext(context.Background()); got != "" {
		t.Errorf("GetUserFromContext = %q; want empty", got)
	}
	if got := GetUserFromContext(WithUser(context.Background(), "carol")); got != "carol" {
		t.Errorf("GetUserFromContext = %q; want carol", got)
	}
}
