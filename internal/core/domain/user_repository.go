package domain

import "context"

// AccountRow represents an account record returned from the database.
// It includes the password hash so the Logic layer can verify credentials.
type AccountRow struct {
	ID           int
	Username     string
	PasswordHash string
	Role         Role
}

// UserRepository defines the data-access contract for account operations.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only — never on SQL or pgx directly.
type UserRepository interface {
	// GetByUsername returns the account matching the given username.
	// Returns (nil, nil) when no account is found.
	GetByUsername(ctx context.Context, username string) (*AccountRow, error)

	// GetByID returns the account with the given id.
	// Returns (nil, nil) when no account is found.
	GetByID(ctx context.Context, id int) (*AccountRow, error)

	// ExistsByUsername returns true when an account with the given
	// username already exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Create inserts a new account and returns the generated id.
	Create(ctx context.Context, username, passwordHash string, role Role) (int, error)

	// UpdatePassword replaces the stored password hash for the account.
	UpdatePassword(ctx context.Context, id int, passwordHash string) error

	// Delete removes the account. Deleting an absent id is not an error.
	Delete(ctx context.Context, id int) error

	// UpdateLastLogin sets the last_login timestamp to now for the account.
	UpdateLastLogin(ctx context.Context, id int) error
}
