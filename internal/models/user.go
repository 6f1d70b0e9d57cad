package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID            string    `bun:"id,pk" json:"id"`
	Name          string    `bun:"name,unique,notnull" json:"name"`
	Email         string    `bun:"email,unique,notnull" json:"email"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	Role          string    `bun:"role,notnull" json:"role"`
	PenaltyPoints int       `bun:"penalty_points,notnull" json:"penalty_points"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

type ChangeNameRequest struct {
	Name string `json:"name"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
