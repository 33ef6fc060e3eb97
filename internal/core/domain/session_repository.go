package domain

import (
	"context"
	"time"
)

// SessionRow represents a session joined with its owner account,
// returned by session lookup queries.
type SessionRow struct {
	UserID    int
	Username  string
	Role      Role
	ExpiresAt time.Time
}

// SessionRepository defines the data-access contract for session operations.
// Implementations live in internal/core/repository (Core layer).
type SessionRepository interface {
	// Create inserts a new session for the given account.
	Create(ctx context.Context, userID int, token string, expiresAt time.Time) error

	// GetByToken looks up the session by token and returns the associated
	// account data together with the session expiry time.
	// Returns (nil, nil) when the token does not match any session.
	GetByToken(ctx context.Context, token string) (*SessionRow, error)

	// Delete invalidates the session with the given token.
	// Deleting an absent token is not an error.
	Delete(ctx context.Context, token string) error
}
