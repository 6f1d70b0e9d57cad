package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Table reservation statuses. All states after active are terminal.
const (
	TableStatusActive    = "active"
	TableStatusCompleted = "completed"
	TableStatusCancelled = "cancelled"
	TableStatusPenalized = "penalized"
)

type Table struct {
	bun.BaseModel `bun:"table:tables"`

	ID    string `bun:"id,pk" json:"id"`
	Label string `bun:"label,unique,notnull" json:"label"`
}

type TableReservation struct {
	bun.BaseModel `bun:"table:table_reservations,alias:table_reservation"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	TableID   string    `bun:"table_id,notnull" json:"table_id"`
	StartsAt  time.Time `bun:"starts_at,notnull" json:"starts_at"`
	EndsAt    time.Time `bun:"ends_at,notnull" json:"ends_at"`
	Status    string    `bun:"status,notnull" json:"status"`
	Cancelled bool      `bun:"cancelled,notnull" json:"cancelled"`
	QRCode    []byte    `bun:"qr_code,nullzero" json:"-"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`

	Table *Table `bun:"rel:belongs-to,join:table_id=id" json:"table,omitempty"`
	User  *User  `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

// ReserveTableRequest uses a calendar date plus wall-clock times the way
// the reservation screen collects them.
type ReserveTableRequest struct {
	TableID string `json:"table_id"`
	Date    string `json:"date"`  // "2006-01-02"
	Start   string `json:"start"` // "15:04"
	End     string `json:"end"`   // "15:04"
}

type TableReservationResponse struct {
	Reservation *TableReservation `json:"reservation"`
	QRCode      []byte            `json:"qr_code,omitempty"`
}
