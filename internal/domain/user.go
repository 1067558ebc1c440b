package domain

import "time"

// Role determines a user's access level.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

// User is an account in the accounts subsystem. Complaints reference
// users but never own them.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Phone        *string
	Department   *string
	StudentID    *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StaffWorkload pairs a staff account with its count of complaints in
// non-terminal assigned states. The assignment engine consumes these
// ordered by workload.
type StaffWorkload struct {
	StaffID  string
	Workload int
}
