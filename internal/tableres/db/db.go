package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-library/internal/models"
	penaltydb "ms-library/internal/penalty/db"
	"ms-library/internal/tableres"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetTable(ctx context.Context, id string) (*models.Table, error) {
	var table models.Table
	err := d.Bun.NewSelect().
		Model(&table).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (d *DB) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := d.Bun.NewSelect().
		Model(&tables).
		Order("label ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tables, nil
}

func (d *DB) HasActiveForUser(ctx context.Context, userID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.TableReservation)(nil)).
		Where("user_id = ?", userID).
		Where("status = ?", models.TableStatusActive).
		Exists(ctx)
}

// OverlapExists reports whether an active reservation intersects the
// [start, end) window on the table. Touching windows (one ends exactly
// when the other starts) do not overlap.
func (d *DB) OverlapExists(ctx context.Context, tableID string, start, end time.Time) (bool, error) {
	return overlapExists(ctx, d.Bun, tableID, start, end)
}

func overlapExists(ctx context.Context, idb bun.IDB, tableID string, start, end time.Time) (bool, error) {
	return idb.NewSelect().
		Model((*models.TableReservation)(nil)).
		Where("table_id = ?", tableID).
		Where("status = ?", models.TableStatusActive).
		Where("starts_at < ?", end).
		Where("ends_at > ?", start).
		Exists(ctx)
}

// CreateReservation inserts the reservation after re-running the overlap
// check inside the transaction. The Redis hold keeps concurrent requests
// for the same slot apart, but a hold that expired mid-flight could let
// one through; the re-check catches that.
func (d *DB) CreateReservation(ctx context.Context, res models.TableReservation) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		occupied, err := overlapExists(ctx, tx, res.TableID, res.StartsAt, res.EndsAt)
		if err != nil {
			return err
		}
		if occupied {
			return tableres.ErrTableOccupied
		}

		_, err = tx.NewInsert().Model(&res).Exec(ctx)
		return err
	})
}

func (d *DB) GetReservation(ctx context.Context, id string) (*models.TableReservation, error) {
	var res models.TableReservation
	err := d.Bun.NewSelect().
		Model(&res).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SetStatus moves an active reservation to status. The WHERE guard makes
// it a no-op once the reservation has left active.
func (d *DB) SetStatus(ctx context.Context, id, status string, cancelled bool) (bool, error) {
	result, err := d.Bun.NewUpdate().
		Model((*models.TableReservation)(nil)).
		Set("status = ?", status).
		Set("cancelled = ?", cancelled).
		Where("id = ?", id).
		Where("status = ?", models.TableStatusActive).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (d *DB) ListMissed(ctx context.Context, asOf time.Time) ([]models.TableReservation, error) {
	var reservations []models.TableReservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Where("status = ?", models.TableStatusActive).
		Where("cancelled = ?", false).
		Where("ends_at < ?", asOf).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// PenalizeReservation marks a missed reservation penalized and writes
// the penalty in the same transaction. The status guard keeps repeated
// sweeps from charging the user twice.
func (d *DB) PenalizeReservation(ctx context.Context, res models.TableReservation, rec models.PenaltyRecord, delta int) (bool, error) {
	applied := false
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model((*models.TableReservation)(nil)).
			Set("status = ?", models.TableStatusPenalized).
			Set("cancelled = ?", true).
			Where("id = ?", res.ID).
			Where("status = ?", models.TableStatusActive).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}

		applied = true
		return penaltydb.Apply(ctx, tx, rec, delta)
	})
	return applied, err
}

func (d *DB) ListByUser(ctx context.Context, userID string) ([]models.TableReservation, error) {
	var reservations []models.TableReservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Relation("Table").
		Where("table_reservation.user_id = ?", userID).
		Order("starts_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (d *DB) ListAll(ctx context.Context) ([]models.TableReservation, error) {
	var reservations []models.TableReservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Relation("Table").
		Relation("User").
		Order("starts_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}
