package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-library/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// Apply inserts the audit row and adjusts the user's running total in the
// same unit of work. The total never drops below zero. idb may be a
// *bun.DB or an open transaction, so the reservation stores can fold a
// penalty into their own transactions.
func Apply(ctx context.Context, idb bun.IDB, rec models.PenaltyRecord, delta int) error {
	if _, err := idb.NewInsert().Model(&rec).Exec(ctx); err != nil {
		return err
	}

	var user models.User
	if err := idb.NewSelect().Model(&user).Where("id = ?", rec.UserID).Scan(ctx); err != nil {
		return err
	}

	total := user.PenaltyPoints + delta
	if total < 0 {
		total = 0
	}

	_, err := idb.NewUpdate().
		Model((*models.User)(nil)).
		Set("penalty_points = ?", total).
		Where("id = ?", rec.UserID).
		Exec(ctx)
	return err
}

func (d *DB) Apply(ctx context.Context, rec models.PenaltyRecord, delta int) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return Apply(ctx, tx, rec, delta)
	})
}

func (d *DB) Total(ctx context.Context, userID string) (int, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Column("penalty_points").
		Where("id = ?", userID).
		Scan(ctx)
	if err != nil {
		return 0, err
	}
	return user.PenaltyPoints, nil
}

// LatestRecordAt returns the timestamp of the user's newest ledger entry.
// The second return value is false when the user has no entries at all.
func (d *DB) LatestRecordAt(ctx context.Context, userID string) (time.Time, bool, error) {
	var rec models.PenaltyRecord
	err := d.Bun.NewSelect().
		Model(&rec).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return rec.CreatedAt, true, nil
}

func (d *DB) ResetTotal(ctx context.Context, userID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("penalty_points = 0").
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

func (d *DB) ListByUser(ctx context.Context, userID string) ([]models.PenaltyRecord, error) {
	var records []models.PenaltyRecord
	err := d.Bun.NewSelect().
		Model(&records).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
