package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Book reservation statuses.
const (
	BookStatusActive    = "active"
	BookStatusOverdue   = "overdue"
	BookStatusCompleted = "completed"
	BookStatusPenalized = "penalized"
)

type BookReservation struct {
	bun.BaseModel `bun:"table:book_reservations,alias:book_reservation"`

	ID           string    `bun:"id,pk" json:"id"`
	UserID       string    `bun:"user_id,notnull" json:"user_id"`
	BookID       string    `bun:"book_id,notnull" json:"book_id"`
	CheckedOutAt time.Time `bun:"checked_out_at,notnull" json:"checked_out_at"`
	DueAt        time.Time `bun:"due_at,notnull" json:"due_at"`
	ReturnedAt   time.Time `bun:"returned_at,nullzero" json:"returned_at,omitempty"`
	Status       string    `bun:"status,notnull" json:"status"`
	Delivered    bool      `bun:"delivered,notnull" json:"delivered"`

	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

type CheckoutRequest struct {
	BookID string `json:"book_id"`
}
