package models

import "time"

// Kafka event payloads.

type ReservationEvent struct {
	Kind          string    `json:"kind"` // "book" or "table"
	Action        string    `json:"action"`
	ReservationID string    `json:"reservation_id"`
	UserID        string    `json:"user_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type PenaltyEvent struct {
	UserID      string    `json:"user_id"`
	Delta       int       `json:"delta"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}
