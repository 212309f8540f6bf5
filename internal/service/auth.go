// Package service provides the authentication and ledger business logic,
// delegating persistence to the store interfaces.
package service

import (
	"context"
	"sync"

	"github.com/atinyakov/GophLedger/internal/models"
	"go.uber.org/zap"
)

// UserStore loads and saves the full user map.
type UserStore interface {
	// Load returns every user. A missing backing store yields an empty map.
	Load(ctx context.Context) (models.Users, error)
	// Save replaces the stored users with users.
	Save(ctx context.Context, users models.Users) error
}

// AuthService implements registration and password checks on top of a UserStore.
type AuthService struct {
	// store holds the username to hash map.
	store  UserStore
	hasher Hasher
	log    *zap.Logger
	mu     sync.Mutex
}

// NewAuthService constructs an AuthService. A nil hasher selects SHA-256.
func NewAuthService(store UserStore, hasher Hasher, log *zap.Logger) *AuthService {
	if hasher == nil {
		hasher = SHA256Hasher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{store: store, hasher: hasher, log: log}
}

// Register creates a user. It fails with models.ErrEmptyInput,
// models.ErrMismatch or models.ErrAlreadyExists, checked in that order.
func (s *AuthService) Register(ctx context.Context, username, password, confirm string) error {
	name, err := models.ParseUsername(username)
	if err != nil || password == "" {
		return models.ErrEmptyInput
	}
	if password != confirm {
		return models.ErrMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if users == nil {
		users = models.Users{}
	}
	if _, ok := users[name]; ok {
		return models.ErrAlreadyExists
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	users[name] = hash
	if err := s.store.Save(ctx, users); err != nil {
		return err
	}
	s.log.Info("user registered", zap.String("user", name.String()))
	return nil
}

// Authenticate returns the username when password matches the stored hash.
// Unknown users and wrong passwords both fail with models.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (models.Username, error) {
	name, err := models.ParseUsername(username)
	if err != nil {
		return "", models.ErrInvalidCredentials
	}

	s.mu.Lock()
	users, err := s.store.Load(ctx)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	stored, ok := users[name]
	if !ok || !VerifyPassword(stored, password) {
		s.log.Debug("authentication failed", zap.String("user", name.String()))
		return "", models.ErrInvalidCredentials
	}
	return name, nil
}
