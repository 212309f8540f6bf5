// Package client implements the command-line front end: prompts, output
// and the local and remote backends it runs commands against.
package client

import (
	"context"

	"github.com/atinyakov/GophLedger/internal/models"
	"github.com/atinyakov/GophLedger/internal/service"
)

// Backend registers users and opens sessions.
type Backend interface {
	Register(ctx context.Context, username, password, confirm string) error
	Login(ctx context.Context, username, password string) (Session, error)
}

// Session runs ledger operations for one authenticated user.
type Session interface {
	User() models.Username
	Add(ctx context.Context, description string, amount float64, category string) (models.Expense, error)
	List(ctx context.Context) (models.Expenses, error)
	Update(ctx context.Context, id int64, upd service.ExpenseUpdate) (models.Expense, error)
	Delete(ctx context.Context, id int64) (models.Expense, error)
	Summarize(ctx context.Context, month int) (float64, error)
	// Export writes the CSV export to path and returns the byte count.
	Export(ctx context.Context, path string) (int64, error)
}

// Local runs commands directly against the stores on disk or in PostgreSQL.
type Local struct {
	Auth   *service.AuthService
	Ledger *service.LedgerService
}

// Register creates a user in the local user store.
func (l *Local) Register(ctx context.Context, username, password, confirm string) error {
	return l.Auth.Register(ctx, username, password, confirm)
}

// Login checks the credentials and returns a session for the user.
func (l *Local) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := l.Auth.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return l.SessionFor(user), nil
}

// SessionFor returns a session for user without checking credentials.
// The single-user mode uses it with models.LocalUser.
func (l *Local) SessionFor(user models.Username) Session {
	return &localSession{user: user, ledger: l.Ledger}
}

type localSession struct {
	user   models.Username
	ledger *service.LedgerService
}

func (s *localSession) User() models.Username { return s.user }

func (s *localSession) Add(ctx context.Context, description string, amount float64, category string) (models.Expense, error) {
	return s.ledger.Add(ctx, s.user, description, amount, category)
}

func (s *localSession) List(ctx context.Context) (models.Expenses, error) {
	return s.ledger.List(ctx, s.user)
}

func (s *localSession) Update(ctx context.Context, id int64, upd service.ExpenseUpdate) (models.Expense, error) {
	return s.ledger.Update(ctx, s.user, id, upd)
}

func (s *localSession) Delete(ctx context.Context, id int64) (models.Expense, error) {
	return s.ledger.Delete(ctx, s.user, id)
}

func (s *localSession) Summarize(ctx context.Context, month int) (float64, error) {
	return s.ledger.Summarize(ctx, s.user, month)
}

func (s *localSession) Export(ctx context.Context, path string) (int64, error) {
	return s.ledger.ExportFile(ctx, s.user, path)
}
