package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/atinyakov/GophLedger/internal/models"
)

// PostgresLedgerRepository stores the ledger in the expenses table.
// Insertion order is kept in the position column.
type PostgresLedgerRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresLedgerRepository creates a new PostgresLedgerRepository using the provided *sql.DB.
func NewPostgresLedgerRepository(db *sql.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{DB: db}
}

// Load fetches every user's expenses in insertion order.
func (r *PostgresLedgerRepository) Load(ctx context.Context) (models.Ledger, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_login, id, date, description, amount, category
		FROM expenses ORDER BY user_login, position
	`)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	defer rows.Close()

	ledger := models.Ledger{}
	for rows.Next() {
		var (
			login string
			exp   models.Expense
		)
		if err := rows.Scan(&login, &exp.ID, &exp.Date, &exp.Description, &exp.Amount, &exp.Category); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		name, err := models.ParseUsername(login)
		if err != nil {
			continue
		}
		ledger[name] = append(ledger[name], exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return ledger, nil
}

// Save replaces the contents of the expenses table with ledger in one transaction.
func (r *PostgresLedgerRepository) Save(ctx context.Context, ledger models.Ledger) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}

	logins := make([]string, 0, len(ledger))
	for name := range ledger {
		logins = append(logins, name.String())
	}
	sort.Strings(logins)

	for _, login := range logins {
		for pos, exp := range ledger[models.Username(login)] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO expenses (user_login, position, id, date, description, amount, category)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, login, pos, exp.ID, exp.Date, exp.Description, exp.Amount, exp.Category)
			if err != nil {
				return fmt.Errorf("insert expense: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
