package models

import "time"

// User represents a user in the system.
type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateUserRequest is the request body for creating a user.
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required" example:"John Doe"`
	Email string `json:"email" binding:"required" example:"john@example.com"`
}

// UpdateUserRequest is the request body for a partial user update.
// A nil field was absent from the body and leaves the stored value untouched.
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty" example:"John Doe"`
	Email *string `json:"email,omitempty" example:"john@example.com"`
}
