package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ms-library/internal/logger"
	"ms-library/internal/models"
)

var (
	ErrBookNotFound  = errors.New("book not found")
	ErrDuplicateBook = errors.New("book already in catalog")
	ErrTitleRequired = errors.New("title is required")
	// ErrForceRequired guards catalog deletes: removing a book takes its
	// reservation history with it, so the admin console must acknowledge.
	ErrForceRequired = errors.New("delete requires force acknowledgment")
)

type DBLayer interface {
	ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	GetBook(ctx context.Context, id string) (*models.Book, error)
	// DuplicateExists matches on ISBN, or on title+author when the ISBN
	// is absent.
	DuplicateExists(ctx context.Context, isbn, title, author string) (bool, error)
	// SaveBook inserts the book and upserts its authors and genres by
	// name in one transaction.
	SaveBook(ctx context.Context, book models.Book, authors, genres []string) error
	UpdateBook(ctx context.Context, book models.Book, authors, genres []string) error
	// DeleteBook removes the book, its join rows and its reservations.
	DeleteBook(ctx context.Context, id string) error
}

// Importer fetches book metadata by ISBN from an external source.
type Importer interface {
	FetchByISBN(ctx context.Context, isbn string) (*models.BookRequest, error)
}

type Service struct {
	DB       DBLayer
	Importer Importer
	Logger   *logger.Logger
}

func NewService(db DBLayer, importer Importer, log *logger.Logger) *Service {
	return &Service{DB: db, Importer: importer, Logger: log}
}

func (s *Service) List(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	return s.DB.ListBooks(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Book, error) {
	book, err := s.DB.GetBook(ctx, id)
	if err != nil {
		return nil, ErrBookNotFound
	}
	return book, nil
}

// Create adds a book to the catalog, rejecting duplicates by ISBN or by
// title+first-author.
func (s *Service) Create(ctx context.Context, req models.BookRequest) (*models.Book, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	firstAuthor := ""
	if len(req.Authors) > 0 {
		firstAuthor = req.Authors[0]
	}
	dup, err := s.DB.DuplicateExists(ctx, req.ISBN, title, firstAuthor)
	if err != nil {
		return nil, fmt.Errorf("failed to check for duplicates: %w", err)
	}
	if dup {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateBook, title)
	}

	copies := req.Copies
	if copies < 0 {
		copies = 0
	}
	book := models.Book{
		ID:        uuid.New().String(),
		Title:     title,
		Year:      req.Year,
		Publisher: req.Publisher,
		Pages:     req.Pages,
		CoverURL:  req.CoverURL,
		Summary:   req.Summary,
		ISBN:      req.ISBN,
		Copies:    copies,
		CreatedAt: time.Now(),
	}

	if err := s.DB.SaveBook(ctx, book, req.Authors, req.Genres); err != nil {
		return nil, fmt.Errorf("failed to save book: %w", err)
	}

	s.Logger.Info("CATALOG", fmt.Sprintf("added book %q (%s)", book.Title, book.ID))
	return &book, nil
}

func (s *Service) Update(ctx context.Context, id string, req models.BookRequest) (*models.Book, error) {
	existing, err := s.DB.GetBook(ctx, id)
	if err != nil {
		return nil, ErrBookNotFound
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	book := models.Book{
		ID:        existing.ID,
		Title:     title,
		Year:      req.Year,
		Publisher: req.Publisher,
		Pages:     req.Pages,
		CoverURL:  req.CoverURL,
		Summary:   req.Summary,
		ISBN:      req.ISBN,
		Copies:    req.Copies,
		CreatedAt: existing.CreatedAt,
	}

	if err := s.DB.UpdateBook(ctx, book, req.Authors, req.Genres); err != nil {
		return nil, fmt.Errorf("failed to update book %s: %w", id, err)
	}

	s.Logger.Info("CATALOG", fmt.Sprintf("updated book %q (%s)", book.Title, book.ID))
	return &book, nil
}

// Delete removes a book and everything referencing it. The caller must
// pass force=true; reservations attached to the book disappear with it.
func (s *Service) Delete(ctx context.Context, id string, force bool) error {
	if !force {
		return ErrForceRequired
	}

	if _, err := s.DB.GetBook(ctx, id); err != nil {
		return ErrBookNotFound
	}

	if err := s.DB.DeleteBook(ctx, id); err != nil {
		return fmt.Errorf("failed to delete book %s: %w", id, err)
	}

	s.Logger.Warn("CATALOG", fmt.Sprintf("deleted book %s with its reservation history", id))
	return nil
}

// ImportByISBN pulls metadata from Open Library and files it as a new
// catalog entry.
func (s *Service) ImportByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	req, err := s.Importer.FetchByISBN(ctx, isbn)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, *req)
}
