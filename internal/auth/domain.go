package auth

import (
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// ForgotPasswordMessage is returned whether or not the email is registered.
const ForgotPasswordMessage = "If the email is registered, password reset instructions have been sent"

// LoginRequest carries a login identifier and secret. Clients send one of
// identifier, email or username; student endpoints also accept a roll number
// in identifier.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password" validate:"required"`
}

// Subject returns the first identifier the client supplied.
func (r LoginRequest) Subject() string {
	for _, v := range []string{r.Identifier, r.Email, r.Username} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// AdminRegisterRequest creates an admin account.
type AdminRegisterRequest struct {
	Name        string      `json:"name" validate:"required,max=120"`
	Username    string      `json:"username" validate:"required,min=3,max=64"`
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"required,min=6,max=72"`
	Role        shared.Role `json:"role" validate:"omitempty,oneof=STAFF_ADMIN SUPER_ADMIN"`
	Department  string      `json:"department" validate:"omitempty,max=120"`
	PhoneNumber string      `json:"phoneNumber" validate:"omitempty,phone"`
}

// ChangePasswordRequest re-authenticates with the current secret.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// ForgotPasswordRequest asks for a reset notice.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Session is returned by login, registration and refresh.
type Session struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expiresAt"`
	Profile   Profile   `json:"user"`
}

// Outcomes reported to a LoginObserver.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)
