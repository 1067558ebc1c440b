package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// StudentRegisterRequest payload for student self-registration.
type StudentRegisterRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Phone     *string `json:"phone"`
	StudentID *string `json:"student_id"`
}

// CreateStaffRequest payload for admin-created accounts.
type CreateStaffRequest struct {
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	Phone      *string     `json:"phone"`
	Department *string     `json:"department"`
	Role       domain.Role `json:"role"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse represents an account without credentials.
type UserResponse struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Role       domain.Role `json:"role"`
	Phone      *string     `json:"phone"`
	Department *string     `json:"department"`
	StudentID  *string     `json:"student_id"`
	Active     bool        `json:"active"`
	CreatedAt  time.Time   `json:"created_at"`
}
