package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PenaltyRecord is an append-only audit row. Records are only ever
// inserted; the running total lives on the user.
type PenaltyRecord struct {
	bun.BaseModel `bun:"table:penalty_records"`

	ID                 string    `bun:"id,pk" json:"id"`
	UserID             string    `bun:"user_id,notnull" json:"user_id"`
	Description        string    `bun:"description,notnull" json:"description"`
	CreatedAt          time.Time `bun:"created_at,notnull" json:"created_at"`
	BookReservationID  string    `bun:"book_reservation_id,nullzero" json:"book_reservation_id,omitempty"`
	TableReservationID string    `bun:"table_reservation_id,nullzero" json:"table_reservation_id,omitempty"`
}
