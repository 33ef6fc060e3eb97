package domain

// Role is the coarse authorization tier attached to every account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdatePasswordRequest is the payload for PUT /users/:id.
type UpdatePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// User is the public view of an account. It never carries the password hash.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// AuthResponse is returned on successful login.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
