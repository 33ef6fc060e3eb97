package v1

import (
	"fmt"

	"github.com/controlwise/account-service/internal/core/domain"
)

// Operation identifies an action on a target account for authorization.
type Operation string

const (
	OpRead           Operation = "read"
	OpUpdatePassword Operation = "update_password"
	OpDelete         Operation = "delete"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   int
	Role domain.Role
}

// Decide authorizes op by actor against the account targetID.
// It is a pure function: nil means allowed, otherwise the error wraps
// ErrForbiddenRole or ErrForbiddenSelf so callers can report which rule
// denied the operation.
//
// Rules, first match wins:
//   - read: always allowed for an authenticated actor
//   - update_password: the actor may change their own password; changing
//     another account's password requires an elevated (non-user) role
//   - delete: admins only, and never the actor's own account
func Decide(actor Actor, op Operation, targetID int) error {
	switch op {
	case OpRead:
		return nil

	case OpUpdatePassword:
		if actor.ID == targetID {
			return nil
		}
		if actor.Role != domain.RoleUser {
			return nil
		}
		return fmt.Errorf("update password of user %d as %s: %w", targetID, actor.Role, ErrForbiddenRole)

	case OpDelete:
		if actor.Role != domain.RoleAdmin {
			return fmt.Errorf("delete user %d as %s: %w", targetID, actor.Role, ErrForbiddenRole)
		}
		if actor.ID == targetID {
			return fmt.Errorf("delete own account %d: %w", targetID, ErrForbiddenSelf)
		}
		return nil
	}

	// Fail closed on operations this policy does not know.
	return fmt.Errorf("unknown operation %q: %w", op, ErrForbiddenRole)
}
