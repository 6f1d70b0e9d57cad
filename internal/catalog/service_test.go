package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-library/internal/catalog"
	"ms-library/internal/logger"
	"ms-library/internal/models"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockDBLayer) GetBook(ctx context.Context, id string) (*models.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockDBLayer) DuplicateExists(ctx context.Context, isbn, title, author string) (bool, error) {
	args := m.Called(ctx, isbn, title, author)
	return args.Bool(0), args.Error(1)
}

func (m *MockDBLayer) SaveBook(ctx context.Context, book models.Book, authors, genres []string) error {
	args := m.Called(ctx, book, authors, genres)
	return args.Error(0)
}

func (m *MockDBLayer) UpdateBook(ctx context.Context, book models.Book, authors, genres []string) error {
	args := m.Called(ctx, book, authors, genres)
	return args.Error(0)
}

func (m *MockDBLayer) DeleteBook(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockImporter struct {
	mock.Mock
}

func (m *MockImporter) FetchByISBN(ctx context.Context, isbn string) (*models.BookRequest, error) {
	args := m.Called(ctx, isbn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookRequest), args.Error(1)
}

func newTestService(db *MockDBLayer, importer *MockImporter) *catalog.Service {
	return catalog.NewService(db, importer, logger.NewLogger())
}

func TestCreateRejectsDuplicate(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db, new(MockImporter))

	db.On("DuplicateExists", mock.Anything, "9780134190440", "The Go Programming Language", "Alan A. A. Donovan").Return(true, nil)

	_, err := svc.Create(context.Background(), models.BookRequest{
		Title:   "The Go Programming Language",
		Authors: []string{"Alan A. A. Donovan"},
		ISBN:    "9780134190440",
	})
	assert.ErrorIs(t, err, catalog.ErrDuplicateBook)
	db.AssertNotCalled(t, "SaveBook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateClampsNegativeCopies(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db, new(MockImporter))

	db.On("DuplicateExists", mock.Anything, "", "Some Book", "").Return(false, nil)
	db.On("SaveBook", mock.Anything, mock.MatchedBy(func(book models.Book) bool {
		return book.Copies == 0
	}), mock.Anything, mock.Anything).Return(nil)

	book, err := svc.Create(context.Background(), models.BookRequest{Title: "Some Book", Copies: -3})
	assert.NoError(t, err)
	assert.Equal(t, 0, book.Copies)
}

func TestCreateRequiresTitle(t *testing.T) {
	svc := newTestService(new(MockDBLayer), new(MockImporter))

	_, err := svc.Create(context.Background(), models.BookRequest{Title: "   "})
	assert.ErrorIs(t, err, catalog.ErrTitleRequired)
}

func TestDeleteRequiresForce(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db, new(MockImporter))

	err := svc.Delete(context.Background(), "book1", false)
	assert.ErrorIs(t, err, catalog.ErrForceRequired)
	db.AssertNotCalled(t, "DeleteBook", mock.Anything, mock.Anything)
}

func TestDeleteWithForce(t *testing.T) {
	db := new(MockDBLayer)
	svc := newTestService(db, new(MockImporter))

	db.On("GetBook", mock.Anything, "book1").Return(&models.Book{ID: "book1"}, nil)
	db.On("DeleteBook", mock.Anything, "book1").Return(nil)

	err := svc.Delete(context.Background(), "book1", true)
	assert.NoError(t, err)
	db.AssertExpectations(t)
}

func TestImportByISBN(t *testing.T) {
	db := new(MockDBLayer)
	importer := new(MockImporter)
	svc := newTestService(db, importer)

	importer.On("FetchByISBN", mock.Anything, "9780134190440").Return(&models.BookRequest{
		Title:   "The Go Programming Language",
		Authors: []string{"Alan A. A. Donovan"},
		ISBN:    "9780134190440",
		Copies:  1,
	}, nil)
	db.On("DuplicateExists", mock.Anything, "9780134190440", "The Go Programming Language", "Alan A. A. Donovan").Return(false, nil)
	db.On("SaveBook", mock.Anything, mock.MatchedBy(func(book models.Book) bool {
		return book.Title == "The Go Programming Language" && book.Copies == 1
	}), []string{"Alan A. A. Donovan"}, mock.Anything).Return(nil)

	book, err := svc.ImportByISBN(context.Background(), "9780134190440")
	assert.NoError(t, err)
	assert.Equal(t, "9780134190440", book.ISBN)
	db.AssertExpectations(t)
	importer.AssertExpectations(t)
}
