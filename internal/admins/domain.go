package admins

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

var (
	// ErrUsernameTaken is returned when another admin already uses the username.
	ErrUsernameTaken = fmt.Errorf("admins: username already registered: %w", shared.ErrConflict)
	// ErrEmailTaken is returned when another admin already uses the email.
	ErrEmailTaken = fmt.Errorf("admins: email already registered: %w", shared.ErrConflict)
)

// Admin is the administrator principal.
type Admin struct {
	ID           uuid.UUID
	Name         string
	Username     string
	Email        string
	PasswordHash string
	Role         shared.Role
	Department   string
	PhoneNumber  string
	Permissions  []string
	IsActive     bool
	LastLogin    *time.Time
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Authorities returns ROLE_<role> followed by any fine-grained permissions.
func (a *Admin) Authorities() []string {
	out := make([]string, 0, 1+len(a.Permissions))
	out = append(out, a.Role.Authority())
	out = append(out, a.Permissions...)
	return out
}

// Enabled reports whether the account may authenticate.
func (a *Admin) Enabled() bool { return a.IsActive }

// View is the JSON projection of an admin. It never carries the password hash.
type View struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Role        shared.Role `json:"role"`
	Department  string      `json:"department,omitempty"`
	PhoneNumber string      `json:"phoneNumber,omitempty"`
	Permissions []string    `json:"permissions"`
	IsActive    bool        `json:"isActive"`
	LastLogin   *time.Time  `json:"lastLogin,omitempty"`
	Version     int64       `json:"version"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// ToView projects the admin for API responses.
func (a *Admin) ToView() View {
	perms := a.Permissions
	if perms == nil {
		perms = []string{}
	}
	return View{
		ID:          a.ID,
		Name:        a.Name,
		Username:    a.Username,
		Email:       a.Email,
		Role:        a.Role,
		Department:  a.Department,
		PhoneNumber: a.PhoneNumber,
		Permissions: perms,
		IsActive:    a.IsActive,
		LastLogin:   a.LastLogin,
		Version:     a.Version,
		CreatedAt:   a.CreatedAt,
	}
}

// StatusRequest toggles whether an admin account is enabled.
type StatusRequest struct {
	Version  int64 `json:"version" validate:"required"`
	IsActive *bool `json:"isActive" validate:"required"`
}
