package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/atinyakov/GophLedger/internal/models"
)

type mockUserStore struct {
	LoadFunc func(ctx context.Context) (models.Users, error)
	SaveFunc func(ctx context.Context, users models.Users) error
}

func (m *mockUserStore) Load(ctx context.Context) (models.Users, error) {
	return m.LoadFunc(ctx)
}
func (m *mockUserStore) Save(ctx context.Context, users models.Users) error {
	return m.SaveFunc(ctx, users)
}

// memUserStore keeps users in memory and copies on every call, like a file would.
type memUserStore struct {
	users models.Users
	saves int
}

func (m *memUserStore) Load(context.Context) (models.Users, error) {
	out := models.Users{}
	for k, v := range m.users {
		out[k] = v
	}
	return out, nil
}

func (m *memUserStore) Save(_ context.Context, users models.Users) error {
	m.saves++
	m.users = models.Users{}
	for k, v := range users {
		m.users[k] = v
	}
	return nil
}

func TestRegister_Success(t *testing.T) {
	store := &memUserStore{}
	svc := NewAuthService(store, nil, nil)

	if err := svc.Register(context.Background(), "carol", "pw", "pw"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	want, _ := SHA256Hasher{}.Hash("pw")
	if got := store.users["carol"]; got != want {
		t.Errorf("stored hash = %q; want %q", got, want)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		confirm  string
		wantErr  error
	}{
		{"empty username", "", "pw", "pw", models.ErrEmptyInput},
		{"blank username", "   ", "pw", "pw", models.ErrEmptyInput},
		{"empty password", "dave", "", "", models.ErrEmptyInput},
		{"mismatch", "dave", "pw1", "pw2", models.ErrMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memUserStore{}
			svc := NewAuthService(store, nil, nil)

			err := svc.Register(context.Background(), tt.username, tt.password, tt.confirm)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register error = %v; want %v", err, tt.wantErr)
			}
			if !errors.Is(err, models.ErrValidation) {
				t.Errorf("Register error %v is not a validation error", err)
			}
			if store.saves != 0 {
				t.Errorf("store saved %d times; want 0", store.saves)
			}
		})
	}
}

func TestRegister_AlreadyExistsKeepsFirstHash(t *testing.T) {
	store := &memUserStore{}
	svc := NewAuthService(store, nil, nil)
	ctx := context.Background()

	if err := svc.Register(ctx, "alice", "pw1", "pw1"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := svc.Register(ctx, "alice", "pw2", "pw2")
	if !errors.Is(err, models.ErrAlreadyExists) {
		t.Fatalf("second Register error = %v; want %v", err, models.ErrAlreadyExists)
	}
	want, _ := SHA256Hasher{}.Hash("pw1")
	if store.users["alice"] != want {
		t.Errorf("alice hash changed to %q", store.users["alice"])
	}
}

func TestRegister_UsernamesAreCaseSensitive(t *testing.T) {
	store := &memUserStore{}
	svc := NewAuthService(store, nil, nil)
	ctx := context.Background()

	if err := svc.Register(ctx, "alice", "pw", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Register(ctx, "Alice", "pw", "pw"); err != nil {
		t.Fatalf("Register(Alice) error = %v; want nil", err)
	}
	if len(store.users) != 2 {
		t.Errorf("users = %v; want 2 entries", store.users)
	}
}

func TestRegister_StoreErrors(t *testing.T) {
	loadErr := errors.New("load failed")
	svc := NewAuthService(&mockUserStore{
		LoadFunc: func(context.Context) (models.Users, error) { return nil, loadErr },
	}, nil, nil)
	if err := svc.Register(context.Background(), "erin", "pw", "pw"); err != loadErr {
		t.Fatalf("Register error = %v; want %v", err, loadErr)
	}

	saveErr := errors.New("save failed")
	svc = NewAuthService(&mockUserStore{
		LoadFunc: func(context.Context) (models.Users, error) { return nil, nil },
		SaveFunc: func(context.Context, models.Users) error { return saveErr },
	}, nil, nil)
	if err := svc.Register(context.Background(), "erin", "pw", "pw"); err != saveErr {
		t.Fatalf("Register error = %v; want %v", err, saveErr)
	}
}

func TestAuthenticate(t *testing.T) {
	store := &memUserStore{}
	svc := NewAuthService(store, nil, nil)
	ctx := context.Background()
	if err := svc.Register(ctx, "alice", "secret", "secret"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Authenticate(ctx, " alice ", "secret")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if got != "alice" {
		t.Errorf("Authenticate = %q; want %q", got, "alice")
	}

	_, wrongPw := svc.Authenticate(ctx, "alice", "wrong")
	_, unknown := svc.Authenticate(ctx, "bob", "wrong")
	_, empty := svc.Authenticate(ctx, "", "")
	for _, err := range []error{wrongPw, unknown, empty} {
		if err != models.ErrInvalidCredentials {
			t.Errorf("Authenticate error = %v; want %v", err, models.ErrInvalidCredentials)
		}
	}
}

func TestAuthenticate_BcryptUsers(t *testing.T) {
	store := &memUserStore{}
	svc := NewAuthService(store, BcryptHasher{Cost: 4}, nil)
	ctx := context.Background()
	if err := svc.Register(ctx, "frank", "pw", "pw"); err != nil {
		t.Fatal(err)
	}

	// A service configured for SHA-256 still verifies the bcrypt entry.
	plain := NewAuthService(store, nil, nil)
	if _, err := plain.Authenticate(ctx, "frank", "pw"); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if _, err := plain.Authenticate(ctx, "frank", "nope"); err != models.ErrInvalidCredentials {
		t.Fatalf("Authenticate error = %v; want %v", err, models.ErrInvalidCredentials)
	}
}

// tornUserStore clears its contents for a moment on every Save.
type tornUserStore struct {
	mu    sync.Mutex
	users models.Users
}

func (s *tornUserStore) Load(context.Context) (models.Users, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := models.Users{}
	for k, v := range s.users {
		out[k] = v
	}
	return out, nil
}

func (s *tornUserStore) Save(_ context.Context, users models.Users) error {
	s.mu.Lock()
	s.users = nil
	s.mu.Unlock()
	runtime.Gosched()
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	return nil
}

func TestAuthenticate_DuringConcurrentRegister(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(&tornUserStore{}, nil, nil)
	if err := svc.Register(ctx, "alice", "pw", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			name := fmt.Sprintf("user%d", i)
			if err := svc.Register(ctx, name, "pw", "pw"); err != nil {
				t.Errorf("Register(%s): %v", name, err)
				return
			}
		}
	}()

	failures := 0
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		if _, err := svc.Authenticate(ctx, "alice", "pw"); err != nil {
			failures++
		}
	}
	if failures != 0 {
		t.Errorf("Authenticate failed %d times during concurrent registration", failures)
	}
}
