// Package repository provides the PostgreSQL implementations of the user and ledger stores.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/atinyakov/GophLedger/internal/models"
	"github.com/lib/pq"
)

// PostgresUserRepository stores the user map in the users table.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// Load returns every stored user.
func (r *PostgresUserRepository) Load(ctx context.Context) (models.Users, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT login, password_hash FROM users`)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	users := models.Users{}
	for rows.Next() {
		var login, hash string
		if err := rows.Scan(&login, &hash); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		name, err := models.ParseUsername(login)
		if err != nil {
			continue
		}
		users[name] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

// Save makes the users table match users within one transaction.
func (r *PostgresUserRepository) Save(ctx context.Context, users models.Users) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	logins := make([]string, 0, len(users))
	for name := range users {
		logins = append(logins, name.String())
	}
	sort.Strings(logins)

	for _, login := range logins {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (login, password_hash) VALUES ($1, $2)
			ON CONFLICT (login) DO UPDATE SET password_hash = EXCLUDED.password_hash
		`, login, users[models.Username(login)])
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE NOT (login = ANY($1))`, pq.Array(logins)); err != nil {
		return fmt.Errorf("prune users: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
