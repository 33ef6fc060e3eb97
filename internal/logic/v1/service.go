package v1

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/controlwise/account-service/internal/core/domain"
	"github.com/controlwise/account-service/middleware"
)

// AuthService implements authentication, session and account business rules.
// It depends on repository interfaces (injected via constructor) and
// MUST NOT access the database or SQL directly.
type AuthService struct {
	users      domain.UserRepository
	sessions   domain.SessionRepository
	hasher     *Hasher
	sessionTTL time.Duration
}

// NewAuthService creates a new AuthService with the given dependencies.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, hasher *Hasher, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		sessionTTL: sessionTTL,
	}
}

// Login verifies the supplied credentials and establishes a session.
// Unknown usernames and wrong passwords both return ErrInvalidCredentials
// with the same shape, so the response never reveals whether the account
// exists.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", req.Username),
	))
	defer span.End()

	row, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user %q: %w", req.Username, err)
	}
	if row == nil || !s.hasher.Verify(req.Password, row.PasswordHash) {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		return nil, fmt.Errorf("authenticate user %q: %w", req.Username, ErrInvalidCredentials)
	}

	// Update last_login timestamp (best-effort, don't fail login)
	if updateErr := s.users.UpdateLastLogin(ctx, row.ID); updateErr != nil {
		span.RecordError(fmt.Errorf("update last_login: %w", updateErr))
	}

	token := uuid.NewString()
	expiresAt := time.Now().Add(s.sessionTTL)
	if err := s.sessions.Create(ctx, row.ID, token, expiresAt); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create session: %w", err)
	}

	span.SetAttributes(
		attribute.Int("user.id", row.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")

	return &domain.AuthResponse{
		Token: token,
		User: domain.User{
			ID:       row.ID,
			Username: row.Username,
			Role:     row.Role,
		},
	}, nil
}

// Register creates a new account with role "user". Registration does not
// log the account in; the client logs in afterwards.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.register", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", req.Username),
	))
	defer span.End()

	if req.Username == "" {
		return nil, fmt.Errorf("register: empty username: %w", ErrInvalidInput)
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("register user %q: %w", req.Username, err)
	}

	exists, err := s.users.ExistsByUsername(ctx, req.Username)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		span.SetAttributes(attribute.Bool("registration.success", false))
		return nil, fmt.Errorf("register user %q: %w", req.Username, ErrUserExists)
	}

	userID, err := s.users.Create(ctx, req.Username, passwordHash, domain.RoleUser)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert user: %w", err)
	}

	span.SetAttributes(
		attribute.Int("user.id", userID),
		attribute.Bool("registration.success", true),
	)
	span.AddEvent("user.registered")

	return &domain.User{
		ID:       userID,
		Username: req.Username,
		Role:     domain.RoleUser,
	}, nil
}

// GetUserByToken resolves the acting identity for a session token.
// It fails closed: missing and expired sessions both resolve to an
// unauthenticated error, never to a stale identity.
func (s *AuthService) GetUserByToken(ctx context.Context, token string) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.get_user_by_token", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	row, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query session: %w", err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("lookup session: %w", ErrUnauthenticated)
	}
	if time.Now().After(row.ExpiresAt) {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, fmt.Errorf("session expired at %v: %w", row.ExpiresAt, ErrSessionExpired)
	}

	span.SetAttributes(
		attribute.Int("user.id", row.UserID),
		attribute.Bool("session.valid", true),
	)

	return &domain.User{
		ID:       row.UserID,
		Username: row.Username,
		Role:     row.Role,
	}, nil
}

// Logout invalidates the session token. It is idempotent: logging out a
// token that was already removed (or never existed) succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	ctx, span := middleware.StartSpan(ctx, "auth.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	if err := s.sessions.Delete(ctx, token); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete session: %w", err)
	}

	span.AddEvent("session.ended")
	return nil
}

// GetUser returns the public view of the target account.
func (s *AuthService) GetUser(ctx context.Context, actor Actor, targetID int) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "user.get", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("target.id", targetID),
	))
	defer span.End()

	if err := Decide(actor, OpRead, targetID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	row, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user %d: %w", targetID, err)
	}
	if row == nil {
		return nil, fmt.Errorf("get user %d: %w", targetID, ErrUserNotFound)
	}

	return &domain.User{
		ID:       row.ID,
		Username: row.Username,
		Role:     row.Role,
	}, nil
}

// UpdatePassword replaces the target account's password after the policy
// allows it. Authorization runs before the existence check, so a denied
// actor receives a forbidden error even for a missing target.
func (s *AuthService) UpdatePassword(ctx context.Context, actor Actor, targetID int, newPassword string) error {
	ctx, span := middleware.StartSpan(ctx, "user.update_password", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("target.id", targetID),
	))
	defer span.End()

	if err := Decide(actor, OpUpdatePassword, targetID); err != nil {
		span.RecordError(err)
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("update password of user %d: %w", targetID, err)
	}

	row, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("query user %d: %w", targetID, err)
	}
	if row == nil {
		return fmt.Errorf("update password of user %d: %w", targetID, ErrUserNotFound)
	}

	if err := s.users.UpdatePassword(ctx, targetID, passwordHash); err != nil {
		span.RecordError(err)
		return fmt.Errorf("update password of user %d: %w", targetID, err)
	}

	span.AddEvent("password.updated")
	return nil
}

// DeleteUser removes the target account after the policy allows it.
// Only admins may delete, and never themselves.
func (s *AuthService) DeleteUser(ctx context.Context, actor Actor, targetID int) error {
	ctx, span := middleware.StartSpan(ctx, "user.delete", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("target.id", targetID),
	))
	defer span.End()

	if err := Decide(actor, OpDelete, targetID); err != nil {
		span.RecordError(err)
		return err
	}

	row, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("query user %d: %w", targetID, err)
	}
	if row == nil {
		return fmt.Errorf("delete user %d: %w", targetID, ErrUserNotFound)
	}

	if err := s.users.Delete(ctx, targetID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete user %d: %w", targetID, err)
	}

	span.AddEvent("user.deleted")
	return nil
}
