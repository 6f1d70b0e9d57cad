package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-library/internal/bookres"
	"ms-library/internal/models"
	penaltydb "ms-library/internal/penalty/db"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) ActiveCount(ctx context.Context, userID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.BookReservation)(nil)).
		Where("user_id = ?", userID).
		Where("status IN (?)", bun.In([]string{models.BookStatusActive, models.BookStatusOverdue})).
		Count(ctx)
}

func (d *DB) HasActive(ctx context.Context, userID, bookID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.BookReservation)(nil)).
		Where("user_id = ?", userID).
		Where("book_id = ?", bookID).
		Where("status IN (?)", bun.In([]string{models.BookStatusActive, models.BookStatusOverdue})).
		Exists(ctx)
}

func (d *DB) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	var book models.Book
	err := d.Bun.NewSelect().
		Model(&book).
		Where("id = ?", bookID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// CreateReservation inserts the loan row and takes one copy out of stock
// as a single transaction. The stock update is conditional on copies
// still being available, so two racing checkouts cannot oversell the
// last copy.
func (d *DB) CreateReservation(ctx context.Context, res models.BookReservation) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("copies = copies - 1").
			Where("id = ?", res.BookID).
			Where("copies > 0").
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return bookres.ErrOutOfStock
		}

		_, err = tx.NewInsert().Model(&res).Exec(ctx)
		return err
	})
}

func (d *DB) GetReservation(ctx context.Context, id string) (*models.BookReservation, error) {
	var res models.BookReservation
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

// FinishReservation records the return: reservation update, stock
// increment and, for late returns, the penalty ledger entry plus the
// user total, all in one transaction so a failure leaves nothing half done.
func (d *DB) FinishReservation(ctx context.Context, res models.BookReservation, rec *models.PenaltyRecord, delta int) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model(&res).
			Column("status", "returned_at", "delivered").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("copies = copies + 1").
			Where("id = ?", res.BookID).
			Exec(ctx)
		if err != nil {
			return err
		}

		if rec != nil {
			return penaltydb.Apply(ctx, tx, *rec, delta)
		}
		return nil
	})
}

func (d *DB) ListOverdue(ctx context.Context, asOf time.Time) ([]models.BookReservation, error) {
	var reservations []models.BookReservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Where("status = ?", models.BookStatusActive).
		Where("delivered = ?", false).
		Where("due_at < ?", asOf).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// MarkOverdue flips the reservation to overdue and applies the penalty.
// The WHERE status guard makes repeated sweeps of the same reservation a
// no-op: once the row has left active, nothing matches and no second
// penalty lands.
func (d *DB) MarkOverdue(ctx context.Context, res models.BookReservation, rec models.PenaltyRecord, delta int) (bool, error) {
	applied := false
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model((*models.BookReservation)(nil)).
			Set("status = ?", models.BookStatusOverdue).
			Where("id = ?", res.ID).
			Where("status = ?", models.BookStatusActive).
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

func (d *DB) ListByUser(ctx context.Context, userID string, delivered bool) ([]models.BookReservation, error) {
	var reservations []models.BookReservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Relation("Book").
		Where("book_reservation.user_id = ?", userID).
		Where("book_reservation.delivered = ?", delivered).
		Order("checked_out_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (d *DB) ListAll(ctx context.Context) ([]models.BookReservation, error) {
	var reservations []models.BookReservation
	err := d.Bun.NewSelect().
		Model(&reservations).
		Relation("Book").
		Relation("User").
		Order("checked_out_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return reservations, nil
}
