package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-library/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	var books []models.Book
	q := d.Bun.NewSelect().
		Model(&books).
		Relation("Authors").
		Relation("Genres").
		Order("title ASC")

	if filter.Term != "" {
		q = q.Where("lower(book.title) LIKE lower(?)", "%"+filter.Term+"%")
	}
	if filter.Author != "" {
		q = q.Where("EXISTS (SELECT 1 FROM book_authors ba JOIN authors a ON a.id = ba.author_id "+
			"WHERE ba.book_id = book.id AND lower(a.name) LIKE lower(?))", "%"+filter.Author+"%")
	}
	if filter.Genre != "" {
		q = q.Where("EXISTS (SELECT 1 FROM book_genres bg JOIN genres g ON g.id = bg.genre_id "+
			"WHERE bg.book_id = book.id AND lower(g.name) LIKE lower(?))", "%"+filter.Genre+"%")
	}
	if filter.Year != 0 {
		q = q.Where("book.year = ?", filter.Year)
	}
	if filter.Publisher != "" {
		q = q.Where("lower(book.publisher) LIKE lower(?)", "%"+filter.Publisher+"%")
	}
	if filter.OnlyInStock {
		q = q.Where("book.copies > 0")
	}
	if filter.OnlyBorrowed {
		q = q.Where("EXISTS (SELECT 1 FROM book_reservations br "+
			"WHERE br.book_id = book.id AND br.status IN (?))",
			bun.In([]string{models.BookStatusActive, models.BookStatusOverdue}))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return books, nil
}

func (d *DB) GetBook(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	err := d.Bun.NewSelect().
		Model(&book).
		Relation("Authors").
		Relation("Genres").
		Where("book.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (d *DB) DuplicateExists(ctx context.Context, isbn, title, author string) (bool, error) {
	if isbn != "" {
		exists, err := d.Bun.NewSelect().
			Model((*models.Book)(nil)).
			Where("isbn = ?", isbn).
			Exists(ctx)
		if err != nil || exists {
			return exists, err
		}
	}
	if author == "" {
		return d.Bun.NewSelect().
			Model((*models.Book)(nil)).
			Where("lower(title) = lower(?)", title).
			Exists(ctx)
	}
	return d.Bun.NewSelect().
		Model((*models.Book)(nil)).
		Where("lower(title) = lower(?)", title).
		Where("EXISTS (SELECT 1 FROM book_authors ba JOIN authors a ON a.id = ba.author_id "+
			"WHERE ba.book_id = book.id AND lower(a.name) = lower(?))", author).
		Exists(ctx)
}

func (d *DB) SaveBook(ctx context.Context, book models.Book, authors, genres []string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&book).Exec(ctx); err != nil {
			return err
		}
		return linkAuthorsAndGenres(ctx, tx, book.ID, authors, genres)
	})
}

func (d *DB) UpdateBook(ctx context.Context, book models.Book, authors, genres []string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model(&book).
			Column("title", "year", "publisher", "pages", "cover_url", "summary", "isbn", "copies").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}

		// Replace the join rows wholesale; authors and genres themselves
		// stay for other books.
		if _, err := tx.NewDelete().Model((*models.BookAuthor)(nil)).Where("book_id = ?", book.ID).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.BookGenre)(nil)).Where("book_id = ?", book.ID).Exec(ctx); err != nil {
			return err
		}
		return linkAuthorsAndGenres(ctx, tx, book.ID, authors, genres)
	})
}

func (d *DB) DeleteBook(ctx context.Context, id string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.BookAuthor)(nil)).Where("book_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.BookGenre)(nil)).Where("book_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.BookReservation)(nil)).Where("book_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*models.Book)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
}

func linkAuthorsAndGenres(ctx context.Context, tx bun.Tx, bookID string, authors, genres []string) error {
	for _, name := range authors {
		authorID, err := upsertNamed(ctx, tx, (*models.Author)(nil), name)
		if err != nil {
			return err
		}
		if authorID == "" {
			continue
		}
		join := models.BookAuthor{BookID: bookID, AuthorID: authorID}
		if _, err := tx.NewInsert().Model(&join).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
			return err
		}
	}
	for _, name := range genres {
		genreID, err := upsertNamed(ctx, tx, (*models.Genre)(nil), name)
		if err != nil {
			return err
		}
		if genreID == "" {
			continue
		}
		join := models.BookGenre{BookID: bookID, GenreID: genreID}
		if _, err := tx.NewInsert().Model(&join).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// upsertNamed finds or creates an author/genre row by name and returns
// its id. Blank names are skipped.
func upsertNamed(ctx context.Context, tx bun.Tx, model interface{}, name string) (string, error) {
	if name == "" {
		return "", nil
	}

	var id string
	err := tx.NewSelect().
		Model(model).
		Column("id").
		Where("lower(name) = lower(?)", name).
		Limit(1).
		Scan(ctx, &id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id = uuid.New().String()
	switch model.(type) {
	case *models.Author:
		_, err = tx.NewInsert().Model(&models.Author{ID: id, Name: name}).Exec(ctx)
	case *models.Genre:
		_, err = tx.NewInsert().Model(&models.Genre{ID: id, Name: name}).Exec(ctx)
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
