package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-library/internal/bookres"
	"ms-library/internal/bookres/db"
	"ms-library/internal/models"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	bunDB.RegisterModel((*models.BookAuthor)(nil), (*models.BookGenre)(nil))

	for _, model := range []interface{}{
		(*models.User)(nil),
		(*models.Book)(nil),
		(*models.BookReservation)(nil),
		(*models.PenaltyRecord)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func seedUser(t *testing.T, bunDB *bun.DB) models.User {
	user := models.User{
		ID:           uuid.New().String(),
		Name:         "reader-" + uuid.New().String()[:8],
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "x",
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
	}
	_, err := bunDB.NewInsert().Model(&user).Exec(context.Background())
	assert.NoError(t, err)
	return user
}

func seedBook(t *testing.T, bunDB *bun.DB, copies int) models.Book {
	book := models.Book{
		ID:     uuid.New().String(),
		Title:  "Test Book " + uuid.New().String()[:8],
		Copies: copies,
	}
	_, err := bunDB.NewInsert().Model(&book).Exec(context.Background())
	assert.NoError(t, err)
	return book
}

func newReservation(user models.User, book models.Book, status string, due time.Time) models.BookReservation {
	return models.BookReservation{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		BookID:       book.ID,
		CheckedOutAt: time.Now(),
		DueAt:        due,
		Status:       status,
	}
}

func bookCopies(t *testing.T, bunDB *bun.DB, bookID string) int {
	var book models.Book
	err := bunDB.NewSelect().Model(&book).Where("id = ?", bookID).Scan(context.Background())
	assert.NoError(t, err)
	return book.Copies
}

func TestCreateReservationDecrementsStock(t *testing.T) {
	resDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := seedUser(t, bunDB)
	book := seedBook(t, bunDB, 2)

	res := newReservation(user, book, models.BookStatusActive, time.Now().AddDate(0, 0, 14))
	err := resDB.CreateReservation(context.Background(), res)
	assert.NoError(t, err)

	assert.Equal(t, 1, bookCopies(t, bunDB, book.ID))

	count, err := resDB.ActiveCount(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateReservationOutOfStock(t *testing.T) {
	resDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := seedUser(t, bunDB)
	book := seedBook(t, bunDB, 0)

	res := newReservation(user, book, models.BookStatusActive, time.Now().AddDate(0, 0, 14))
	err := resDB.CreateReservation(context.Background(), res)
	assert.ErrorIs(t, err, bookres.ErrOutOfStock)

	// The transaction rolled back: no reservation, stock untouched.
	count, err := resDB.ActiveCount(context.Background(), user.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, bookCopies(t, bunDB, book.ID))
}

func TestFinishReservationRestoresStockAndPenalizes(t *testing.T) {
	resDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := seedUser(t, bunDB)
	book := seedBook(t, bunDB, 1)

	res := newReservation(user, book, models.BookStatusActive, time.Now().AddDate(0, 0, -1))
	assert.NoError(t, resDB.CreateReservation(context.Background(), res))
	assert.Equal(t, 0, bookCopies(t, bunDB, book.ID))

	res.Status = models.BookStatusPenalized
	res.ReturnedAt = time.Now()
	res.Delivered = true
	rec := models.PenaltyRecord{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		Description:       "Book returned late",
		CreatedAt:         time.Now(),
		BookReservationID: res.ID,
	}
	err := resDB.FinishReservation(context.Background(), res, &rec, 5)
	assert.NoError(t, err)

	assert.Equal(t, 1, bookCopies(t, bunDB, book.ID))

	stored, err := resDB.GetReservation(context.Background(), res.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookStatusPenalized, stored.Status)
	assert.True(t, stored.Delivered)

	var updated models.User
	err = bunDB.NewSelect().Model(&updated).Where("id = ?", user.ID).Scan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 5, updated.PenaltyPoints)
}

func TestMarkOverdueIsIdempotent(t *testing.T) {
	resDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := seedUser(t, bunDB)
	book := seedBook(t, bunDB, 1)

	res := newReservation(user, book, models.BookStatusActive, time.Now().AddDate(0, 0, -3))
	assert.NoError(t, resDB.CreateReservation(context.Background(), res))

	rec := models.PenaltyRecord{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		Description:       "Book not returned on time",
		CreatedAt:         time.Now(),
		BookReservationID: res.ID,
	}
	applied, err := resDB.MarkOverdue(context.Background(), res, rec, 5)
	assert.NoError(t, err)
	assert.True(t, applied)

	rec.ID = uuid.New().String()
	applied, err = resDB.MarkOverdue(context.Background(), res, rec, 5)
	assert.NoError(t, err)
	assert.False(t, applied)

	var updated models.User
	err = bunDB.NewSelect().Model(&updated).Where("id = ?", user.ID).Scan(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 5, updated.PenaltyPoints)
}

func TestListOverdueFilters(t *testing.T) {
	resDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := seedUser(t, bunDB)
	book := seedBook(t, bunDB, 5)
	now := time.Now()

	late := newReservation(user, book, models.BookStatusActive, now.AddDate(0, 0, -1))
	onTime := newReservation(user, book, models.BookStatusActive, now.AddDate(0, 0, 7))
	assert.NoError(t, resDB.CreateReservation(context.Background(), late))
	assert.NoError(t, resDB.CreateReservation(context.Background(), onTime))

	overdue, err := resDB.ListOverdue(context.Background(), now)
	assert.NoError(t, err)
	assert.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
}
