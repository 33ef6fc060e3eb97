package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/controlwise/account-service/internal/core/domain"
)

// PgxUserRepository implements domain.UserRepository using pgxpool.
type PgxUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PgxUserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PgxUserRepository {
	return &PgxUserRepository{pool: pool}
}

// GetByUsername returns the account matching the given username.
// Returns (nil, nil) when no account is found.
func (r *PgxUserRepository) GetByUsername(ctx context.Context, username string) (*domain.AccountRow, error) {
	query := `SELECT id, username, password_hash, role FROM users WHERE username = $1`

	var row domain.AccountRow
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&row.ID, &row.Username, &row.PasswordHash, &row.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// GetByID returns the account with the given id.
// Returns (nil, nil) when no account is found.
func (r *PgxUserRepository) GetByID(ctx context.Context, id int) (*domain.AccountRow, error) {
	query := `SELECT id, username, password_hash, role FROM users WHERE id = $1`

	var row domain.AccountRow
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.Username, &row.PasswordHash, &row.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// ExistsByUsername returns true when an account with the given
// username already exists.
func (r *PgxUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, username).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// Create inserts a new account and returns the generated id.
func (r *PgxUserRepository) Create(ctx context.Context, username, passwordHash string, role domain.Role) (int, error) {
	query := `INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3) RETURNING id`

	var id int
	err := r.pool.QueryRow(ctx, query, username, passwordHash, role).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// UpdatePassword replaces the stored password hash for the account.
// The single UPDATE statement keeps the write atomic per-record.
func (r *PgxUserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, passwordHash)
	return err
}

// Delete removes the account. Sessions referencing it are removed by the
// ON DELETE CASCADE constraint on the sessions table.
func (r *PgxUserRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM users WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// UpdateLastLogin sets the last_login timestamp to now for the account.
func (r *PgxUserRepository) UpdateLastLogin(ctx context.Context, id int) error {
	query := `UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
