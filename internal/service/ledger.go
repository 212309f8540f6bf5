package service

import (
	"context"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atinyakov/GophLedger/internal/models"
	"github.com/atinyakov/GophLedger/internal/storage"
	"go.uber.org/zap"
)

// LedgerStore loads and saves the full ledger.
type LedgerStore interface {
	// Load returns every user's expenses. A missing backing store yields an empty ledger.
	Load(ctx context.Context) (models.Ledger, error)
	// Save replaces the stored ledger with ledger.
	Save(ctx context.Context, ledger models.Ledger) error
}

// ExpenseUpdate lists the fields to change. Nil fields, and an empty
// description, are left as they are.
type ExpenseUpdate struct {
	Description *string
	Amount      *float64
}

// LedgerService implements the expense operations. Each call loads the
// whole ledger, applies one change and saves it back.
type LedgerService struct {
	store LedgerStore
	log   *zap.Logger
	// Now returns the current time; tests replace it.
	Now func() time.Time
	mu  sync.Mutex
}

// NewLedgerService constructs a LedgerService backed by store.
func NewLedgerService(store LedgerStore, log *zap.Logger) *LedgerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerService{store: store, log: log, Now: time.Now}
}

func (s *LedgerService) load(ctx context.Context) (models.Ledger, error) {
	ledger, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = models.Ledger{}
	}
	return ledger, nil
}

// Add appends a new expense dated today with id max+1 and persists the ledger.
func (s *LedgerService) Add(ctx context.Context, user models.Username, description string, amount float64, category string) (models.Expense, error) {
	if !(amount > 0) || math.IsInf(amount, 1) {
		return models.Expense{}, models.ErrInvalidAmount
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return models.Expense{}, models.ErrEmptyDescription
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = models.DefaultCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.load(ctx)
	if err != nil {
		return models.Expense{}, err
	}
	list := ledger[user]
	exp := models.Expense{
		ID:          list.NextID(),
		Date:        s.Now().Format(models.DateLayout),
		Description: description,
		Amount:      amount,
		Category:    category,
	}
	ledger[user] = append(list, exp)
	if err := s.store.Save(ctx, ledger); err != nil {
		return models.Expense{}, err
	}
	s.log.Debug("expense added", zap.String("user", user.String()), zap.Int64("id", exp.ID))
	return exp, nil
}

// List returns the user's expenses in insertion order.
func (s *LedgerService) List(ctx context.Context, user models.Username) (models.Expenses, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx, user)
}

func (s *LedgerService) list(ctx context.Context, user models.Username) (models.Expenses, error) {
	ledger, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	list := ledger[user]
	if list == nil {
		return models.Expenses{}, nil
	}
	return list, nil
}

// Update changes the description and/or amount of one expense. An invalid
// amount rejects the whole update; nothing is changed.
func (s *LedgerService) Update(ctx context.Context, user models.Username, id int64, upd ExpenseUpdate) (models.Expense, error) {
	if upd.Amount != nil && (!(*upd.Amount > 0) || math.IsInf(*upd.Amount, 1)) {
		return models.Expense{}, models.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.load(ctx)
	if err != nil {
		return models.Expense{}, err
	}
	list := ledger[user]
	i := list.Index(id)
	if i < 0 {
		return models.Expense{}, models.ErrExpenseNotFound
	}
	if upd.Description != nil {
		if d := strings.TrimSpace(*upd.Description); d != "" {
			list[i].Description = d
		}
	}
	if upd.Amount != nil {
		list[i].Amount = *upd.Amount
	}
	if err := s.store.Save(ctx, ledger); err != nil {
		return models.Expense{}, err
	}
	return list[i], nil
}

// Delete removes one expense and returns it.
func (s *LedgerService) Delete(ctx context.Context, user models.Username, id int64) (models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.load(ctx)
	if err != nil {
		return models.Expense{}, err
	}
	list := ledger[user]
	i := list.Index(id)
	if i < 0 {
		return models.Expense{}, models.ErrExpenseNotFound
	}
	removed := list[i]
	ledger[user] = append(list[:i:i], list[i+1:]...)
	if err := s.store.Save(ctx, ledger); err != nil {
		return models.Expense{}, err
	}
	return removed, nil
}

// Summarize totals the user's expenses. Month 0 sums everything; months
// 1 to 12 select that month of the current year.
func (s *LedgerService) Summarize(ctx context.Context, user models.Username, month int) (float64, error) {
	if month < 0 || month > 12 {
		return 0, models.ErrInvalidMonth
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(ctx, user)
	if err != nil {
		return 0, err
	}
	year := s.Now().Year()

	var cents int64
	for _, exp := range list {
		if month != 0 {
			d, err := time.Parse(models.DateLayout, exp.Date)
			if err != nil || d.Year() != year || int(d.Month()) != month {
				continue
			}
		}
		cents += int64(math.Round(exp.Amount * 100))
	}
	return float64(cents) / 100, nil
}

// Export writes the user's expenses to w as CSV and returns the byte count.
func (s *LedgerService) Export(ctx context.Context, user models.Username, w io.Writer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(ctx, user)
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, models.ErrNoExpenses
	}
	n, err := storage.WriteCSV(w, list)
	if err != nil {
		return n, models.WrapIO("write export", err)
	}
	return n, nil
}

// ExportFile writes the CSV export to path, replacing any existing file.
func (s *LedgerService) ExportFile(ctx context.Context, user models.Username, path string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.list(ctx, user)
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, models.ErrNoExpenses
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, models.WrapIO("create "+path, err)
	}
	n, err := storage.WriteCSV(f, list)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, models.WrapIO("write "+path, err)
	}
	s.log.Info("expenses exported", zap.String("user", user.String()), zap.String("path", path), zap.Int64("bytes", n))
	return n, nil
}
