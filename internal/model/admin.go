package model

import "time"

// AdminRole distinguishes full administrators from teachers.
type AdminRole string

const (
	AdminRoleAdmin   AdminRole = "Admin"
	AdminRoleTeacher AdminRole = "Teacher"
)

// Valid reports whether r is a known admin role.
func (r AdminRole) Valid() bool {
	switch r {
	case AdminRoleAdmin, AdminRoleTeacher:
		return true
	default:
		return false
	}
}

// Admin represents an admin/teacher user.
type Admin struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         AdminRole `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdminLoginRequest is the payload for admin authentication.
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}
