// Package v1 provides account and authentication business logic for API
// version 1.
//
// Error Handling:
// This package defines sentinel errors that represent common failures.
// These errors should be wrapped with context using fmt.Errorf("%w") when
// returned from business logic methods.
//
// Example Usage:
//
//	if row == nil {
//	    return nil, fmt.Errorf("authenticate user %q: %w", username, ErrInvalidCredentials)
//	}
//
// Error Checking (in handlers):
//
//	switch {
//	case errors.Is(err, logicv1.ErrInvalidCredentials):
//	    c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
//	case errors.Is(err, logicv1.ErrUserNotFound):
//	    c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
//	default:
//	    c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
//	}
package v1

import "errors"

// Sentinel errors for account and authentication operations.
// These errors should be wrapped with context using fmt.Errorf("%w") when returned.
var (
	// ErrInvalidInput indicates a malformed or missing request field,
	// such as an empty or overlong password.
	// HTTP Status: 400 Bad Request
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials indicates the supplied username/password pair
	// did not authenticate. Unknown usernames and wrong passwords produce
	// this same error so callers cannot enumerate accounts.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated indicates no valid session backs the request.
	// HTTP Status: 401 Unauthorized
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrSessionExpired indicates the session token has expired.
	// HTTP Status: 401 Unauthorized
	ErrSessionExpired = errors.New("session expired")

	// ErrForbiddenRole indicates the actor's role does not permit the
	// operation on the target account.
	// HTTP Status: 403 Forbidden
	ErrForbiddenRole = errors.New("operation not permitted for role")

	// ErrForbiddenSelf indicates the operation may not target the actor's
	// own account.
	// HTTP Status: 403 Forbidden
	ErrForbiddenSelf = errors.New("operation not permitted on own account")

	// ErrUserNotFound indicates the target account does not exist.
	// HTTP Status: 404 Not Found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates the username is already taken.
	// HTTP Status: 409 Conflict
	ErrUserExists = errors.New("user already exists")
)
