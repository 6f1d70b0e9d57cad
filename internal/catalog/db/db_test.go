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

	"ms-library/internal/catalog/db"
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
		(*models.Book)(nil),
		(*models.Author)(nil),
		(*models.Genre)(nil),
		(*models.BookAuthor)(nil),
		(*models.BookGenre)(nil),
		(*models.BookReservation)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(context.Background()); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func newBook(title, isbn string, copies int) models.Book {
	return models.Book{
		ID:        uuid.New().String(),
		Title:     title,
		ISBN:      isbn,
		Copies:    copies,
		CreatedAt: time.Now(),
	}
}

func TestSaveBookUpsertsAuthorsAndGenres(t *testing.T) {
	catalogDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	first := newBook("The Go Programming Language", "9780134190440", 2)
	err := catalogDB.SaveBook(ctx, first, []string{"Alan A. A. Donovan", "Brian W. Kernighan"}, []string{"Programming"})
	assert.NoError(t, err)

	// Sharing an author must not create a second author row.
	second := newBook("The C Programming Language", "9780131103627", 1)
	err = catalogDB.SaveBook(ctx, second, []string{"Brian W. Kernighan", "Dennis Ritchie"}, []string{"Programming", "Classics"})
	assert.NoError(t, err)

	authorCount, err := bunDB.NewSelect().Model((*models.Author)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 3, authorCount)

	genreCount, err := bunDB.NewSelect().Model((*models.Genre)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, genreCount)

	stored, err := catalogDB.GetBook(ctx, second.ID)
	assert.NoError(t, err)
	assert.Len(t, stored.Authors, 2)
	assert.Len(t, stored.Genres, 2)
}

func TestDuplicateExists(t *testing.T) {
	catalogDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	book := newBook("The Go Programming Language", "9780134190440", 1)
	assert.NoError(t, catalogDB.SaveBook(ctx, book, []string{"Alan A. A. Donovan"}, nil))

	// By ISBN.
	dup, err := catalogDB.DuplicateExists(ctx, "9780134190440", "Anything", "")
	assert.NoError(t, err)
	assert.True(t, dup)

	// By title and author, case-insensitive.
	dup, err = catalogDB.DuplicateExists(ctx, "", "the go programming language", "alan a. a. donovan")
	assert.NoError(t, err)
	assert.True(t, dup)

	// Same title, different author.
	dup, err = catalogDB.DuplicateExists(ctx, "", "The Go Programming Language", "Someone Else")
	assert.NoError(t, err)
	assert.False(t, dup)

	dup, err = catalogDB.DuplicateExists(ctx, "9999999999999", "Other Title", "Other Author")
	assert.NoError(t, err)
	assert.False(t, dup)
}

func TestUpdateBookReplacesJoins(t *testing.T) {
	catalogDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	book := newBook("Draft Title", "", 1)
	assert.NoError(t, catalogDB.SaveBook(ctx, book, []string{"First Author"}, []string{"Draft"}))

	book.Title = "Final Title"
	book.Copies = 3
	err := catalogDB.UpdateBook(ctx, book, []string{"Second Author"}, []string{"Programming"})
	assert.NoError(t, err)

	stored, err := catalogDB.GetBook(ctx, book.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Final Title", stored.Title)
	assert.Equal(t, 3, stored.Copies)
	assert.Len(t, stored.Authors, 1)
	assert.Equal(t, "Second Author", stored.Authors[0].Name)
	assert.Len(t, stored.Genres, 1)
	assert.Equal(t, "Programming", stored.Genres[0].Name)
}

func TestDeleteBookCascades(t *testing.T) {
	catalogDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	book := newBook("Doomed Book", "9780134190440", 1)
	assert.NoError(t, catalogDB.SaveBook(ctx, book, []string{"Author"}, []string{"Genre"}))

	res := models.BookReservation{
		ID:           uuid.New().String(),
		UserID:       uuid.New().String(),
		BookID:       book.ID,
		CheckedOutAt: time.Now(),
		DueAt:        time.Now().AddDate(0, 0, 14),
		Status:       models.BookStatusCompleted,
	}
	_, err := bunDB.NewInsert().Model(&res).Exec(ctx)
	assert.NoError(t, err)

	assert.NoError(t, catalogDB.DeleteBook(ctx, book.ID))

	_, err = catalogDB.GetBook(ctx, book.ID)
	assert.Error(t, err)

	joinCount, err := bunDB.NewSelect().Model((*models.BookAuthor)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, joinCount)

	resCount, err := bunDB.NewSelect().Model((*models.BookReservation)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, resCount)
}

func TestListBooksFilters(t *testing.T) {
	catalogDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	goBook := newBook("The Go Programming Language", "9780134190440", 2)
	goBook.Year = 2015
	assert.NoError(t, catalogDB.SaveBook(ctx, goBook, []string{"Alan A. A. Donovan"}, []string{"Programming"}))

	novel := newBook("A Quiet Novel", "", 0)
	novel.Year = 2001
	assert.NoError(t, catalogDB.SaveBook(ctx, novel, []string{"Jane Writer"}, []string{"Fiction"}))

	books, err := catalogDB.ListBooks(ctx, models.BookFilter{Term: "go programming"})
	assert.NoError(t, err)
	assert.Len(t, books, 1)
	assert.Equal(t, goBook.ID, books[0].ID)

	books, err = catalogDB.ListBooks(ctx, models.BookFilter{Author: "writer"})
	assert.NoError(t, err)
	assert.Len(t, books, 1)
	assert.Equal(t, novel.ID, books[0].ID)

	books, err = catalogDB.ListBooks(ctx, models.BookFilter{Genre: "fiction"})
	assert.NoError(t, err)
	assert.Len(t, books, 1)

	books, err = catalogDB.ListBooks(ctx, models.BookFilter{Year: 2015})
	assert.NoError(t, err)
	assert.Len(t, books, 1)
	assert.Equal(t, goBook.ID, books[0].ID)

	books, err = catalogDB.ListBooks(ctx, models.BookFilter{OnlyInStock: true})
	assert.NoError(t, err)
	assert.Len(t, books, 1)
	assert.Equal(t, goBook.ID, books[0].ID)

	books, err = catalogDB.ListBooks(ctx, models.BookFilter{})
	assert.NoError(t, err)
	assert.Len(t, books, 2)
}
