package core

import (
	"context"
	"errors"
	"time"
)

// Roles a user can hold. Collectors may record payments; managers and admins
// may also open and cancel credits and maintain master data.
const (
	RoleAdmin     = "ADMIN"
	RoleManager   = "MANAGER"
	RoleCollector = "COLLECTOR"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// User represents an authenticated system user scoped to a company.
type User struct {
	ID           int       `json:"id"`
	CompanyID    int       `json:"company_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanManageCredits reports whether the user may open or cancel credits.
func (u User) CanManageCredits() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}

// UserService provides user lookup and credential checks.
type UserService interface {
	// GetByUsername finds an active user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	// Authenticate checks a password against the stored bcrypt hash.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// CreateUser stores a new user with a bcrypt hash of password.
	CreateUser(ctx context.Context, companyID int, username, email, password, role string) (*User, error)
}
